package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmed-hpc/slurm-agent/internal/hooks"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadUnknownUnitReturnsInitialState(t *testing.T) {
	s := openStore(t)

	u, err := s.Load("slurmd/0")
	require.NoError(t, err)
	assert.True(t, u.NewNode)
	assert.False(t, u.Installed)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)

	u := NewUnit()
	u.Installed = true
	u.AuthKey = "c2VjcmV0"
	u.NewNodes = []string{"node1", "node2"}
	u.PartitionParams = map[string]string{"MaxTime": "60"}
	require.NoError(t, s.Save("slurmctld/0", u))

	got, err := s.Load("slurmctld/0")
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestUnitsAreIsolated(t *testing.T) {
	s := openStore(t)

	u := NewUnit()
	u.Installed = true
	require.NoError(t, s.Save("slurmd/0", u))

	other, err := s.Load("slurmd/1")
	require.NoError(t, err)
	assert.False(t, other.Installed)
}

func TestDeferredEventsRoundTrip(t *testing.T) {
	s := openStore(t)

	evs := []hooks.Event{
		{Kind: hooks.KindInstall, Attempt: 2},
		{Kind: hooks.KindRelationChanged, Relation: "slurmctld", Attempt: 1},
	}
	require.NoError(t, s.SaveDeferred("slurmd/0", evs))

	got, err := s.TakeDeferred("slurmd/0")
	require.NoError(t, err)
	assert.Equal(t, evs, got)

	// Taking clears them.
	got, err = s.TakeDeferred("slurmd/0")
	require.NoError(t, err)
	assert.Empty(t, got)
}
