package reconciler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/hooks"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
)

func configChanged() hooks.Event {
	return hooks.Event{Kind: hooks.KindConfigChanged}
}

func TestControllerConfigChangedAppliesOverrides(t *testing.T) {
	h := newHarness(t, consts.RoleController)
	h.markInstalled(t)
	h.writeConfigFile(t, "slurm-conf-parameters: |\n  FirstJobId=65536\n  MaxJobCount=9000\n")

	res, err := h.engine.Handle(context.Background(), configChanged())
	require.NoError(t, err)
	assert.False(t, res.Defer)

	rendered, ok := h.files.get("slurm")
	require.True(t, ok)
	assert.Contains(t, rendered, "FirstJobId=65536")
	assert.Contains(t, rendered, "MaxJobCount=9000")
}

func TestControllerConfigChangedRejectsMalformedOverrides(t *testing.T) {
	h := newHarness(t, consts.RoleController)
	st := h.loadState(t)
	st.Installed = true
	st.UserConfParams = "FirstJobId=65536"
	h.saveState(t, st)
	h.writeConfigFile(t, "slurm-conf-parameters: \"this is not key value\"\n")

	res, err := h.engine.Handle(context.Background(), configChanged())
	require.NoError(t, err)
	assert.False(t, res.Defer)

	// Stored state keeps its previous value and the unit blocks.
	assert.Equal(t, "FirstJobId=65536", h.loadState(t).UserConfParams)
	assert.Equal(t, StatusBlocked, h.engine.Status().Kind)
	_, ok := h.files.get("slurm")
	assert.False(t, ok)
}

func TestControllerConfigChangedDefaultPartition(t *testing.T) {
	h := newHarness(t, consts.RoleController)
	h.markInstalled(t)

	id := h.broker.Join(relation.NameCompute, "slurmd")
	require.NoError(t, h.broker.SetAppData(relation.NameCompute, id, map[string]string{
		relation.KeyPartition: `{"batch":{"MaxTime":"60"}}`,
	}))
	h.writeConfigFile(t, "default-partition: batch\n")

	_, err := h.engine.Handle(context.Background(), configChanged())
	require.NoError(t, err)

	rendered, _ := h.files.get("slurm")
	assert.Contains(t, rendered, "PartitionName=batch Default=YES MaxTime=60 State=UP")
}

func TestControllerConfigChangedDistributesHealthCheckParams(t *testing.T) {
	h := newHarness(t, consts.RoleController)
	st := h.loadState(t)
	st.Installed = true
	st.AuthKey = "c2VjcmV0"
	h.saveState(t, st)

	id := h.broker.Join(relation.NameCompute, "slurmd")
	h.writeConfigFile(t, "health-check-params: \"-X -v\"\n")

	_, err := h.engine.Handle(context.Background(), configChanged())
	require.NoError(t, err)

	assert.Equal(t, "-X -v", h.loadState(t).NHCParams)

	published := h.broker.LocalApp(relation.NameCompute, id)
	var info relation.ClusterInfo
	require.NoError(t, json.Unmarshal([]byte(published[relation.KeyClusterInfo]), &info))
	require.NotNil(t, info.NHCParams)
	assert.Equal(t, "-X -v", *info.NHCParams)
}

func TestComputeConfigChangedPartitionConfig(t *testing.T) {
	h := newHarness(t, consts.RoleCompute)
	h.markInstalled(t)
	id := h.broker.Join(relation.NameController, "slurmctld")
	h.writeConfigFile(t, "partition-config: \"MaxTime=120 DefaultTime=30\"\n")

	res, err := h.engine.Handle(context.Background(), configChanged())
	require.NoError(t, err)
	assert.False(t, res.Defer)

	assert.Equal(t, map[string]string{"MaxTime": "120", "DefaultTime": "30"},
		h.loadState(t).PartitionParams)

	published := h.broker.LocalApp(relation.NameController, id)
	var partitions relation.PartitionFact
	require.NoError(t, json.Unmarshal([]byte(published[relation.KeyPartition]), &partitions))
	assert.Equal(t, "120", partitions["compute"]["MaxTime"])
}

func TestComputeConfigChangedRejectsBadPartitionConfig(t *testing.T) {
	h := newHarness(t, consts.RoleCompute)
	st := h.loadState(t)
	st.Installed = true
	st.PartitionParams = map[string]string{"MaxTime": "60"}
	h.saveState(t, st)
	h.broker.Join(relation.NameController, "slurmctld")
	h.writeConfigFile(t, "partition-config: \"FAILEVAL\"\n")

	res, err := h.engine.Handle(context.Background(), configChanged())
	require.NoError(t, err)
	assert.False(t, res.Defer)

	// The previous parameters survive a rejected update.
	assert.Equal(t, map[string]string{"MaxTime": "60"}, h.loadState(t).PartitionParams)
	assert.Equal(t, StatusBlocked, h.engine.Status().Kind)
}

func TestComputeConfigChangedRejectsUnknownPartitionOption(t *testing.T) {
	h := newHarness(t, consts.RoleCompute)
	h.markInstalled(t)
	h.writeConfigFile(t, "partition-config: \"NotARealOption=1\"\n")

	_, err := h.engine.Handle(context.Background(), configChanged())
	require.NoError(t, err)
	assert.Empty(t, h.loadState(t).PartitionParams)
	assert.Equal(t, StatusBlocked, h.engine.Status().Kind)
}

func TestComputeConfigChangedWritesHealthCheckConfig(t *testing.T) {
	h := newHarness(t, consts.RoleCompute)
	h.markInstalled(t)
	var written string
	h.engine.WriteNHCConfig = func(conf string) error {
		written = conf
		return nil
	}
	h.writeConfigFile(t, "nhc-conf: |\n  * || check_fs_mount_rw -f /scratch\n")

	_, err := h.engine.Handle(context.Background(), configChanged())
	require.NoError(t, err)
	assert.Contains(t, written, "check_fs_mount_rw")
	assert.Equal(t, written, h.loadState(t).NHCConf)
}
