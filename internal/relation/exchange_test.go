package relation

import (
	"encoding/json"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExchange(b Broker, name, key string) *Exchange {
	return NewExchange(logr.Discard(), b, name, key)
}

func TestReceiveNoCounterpart(t *testing.T) {
	b := NewMemBroker()
	x := newExchange(b, NameController, KeyClusterInfo)

	var info ClusterInfo
	res, ok, err := x.Receive(&info)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, res.Defer)
}

func TestReceiveKeyAbsentDefers(t *testing.T) {
	b := NewMemBroker()
	id := b.Join(NameController, "slurmctld")
	require.NoError(t, b.SetAppData(NameController, id, map[string]string{"other": "x"}))

	x := newExchange(b, NameController, KeyClusterInfo)

	var info ClusterInfo
	res, ok, err := x.Receive(&info)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, res.Defer)
}

func TestReceiveEmptyValueDefers(t *testing.T) {
	b := NewMemBroker()
	id := b.Join(NameController, "slurmctld")
	require.NoError(t, b.SetAppData(NameController, id, map[string]string{KeyClusterInfo: ""}))

	x := newExchange(b, NameController, KeyClusterInfo)

	var info ClusterInfo
	res, ok, err := x.Receive(&info)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, res.Defer)
}

func TestReceiveDecodes(t *testing.T) {
	b := NewMemBroker()
	id := b.Join(NameController, "slurmctld")
	payload := `{"auth_key":"c2VjcmV0","slurmctld_host":"ctl-0"}`
	require.NoError(t, b.SetAppData(NameController, id, map[string]string{KeyClusterInfo: payload}))

	x := newExchange(b, NameController, KeyClusterInfo)

	var info ClusterInfo
	res, ok, err := x.Receive(&info)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, res.Defer)
	require.NotNil(t, info.AuthKey)
	assert.Equal(t, "c2VjcmV0", *info.AuthKey)
	require.NotNil(t, info.ControllerHost)
	assert.Equal(t, "ctl-0", *info.ControllerHost)
	assert.Nil(t, info.NHCParams)
}

func TestReceiveMalformedIsFatal(t *testing.T) {
	b := NewMemBroker()
	id := b.Join(NameController, "slurmctld")
	require.NoError(t, b.SetAppData(NameController, id, map[string]string{KeyClusterInfo: "{not json"}))

	x := newExchange(b, NameController, KeyClusterInfo)

	var info ClusterInfo
	res, ok, err := x.Receive(&info)
	require.Error(t, err)
	assert.False(t, ok)
	assert.False(t, res.Defer)
}

func TestReceiveUnits(t *testing.T) {
	b := NewMemBroker()
	id := b.Join(NameCompute, "slurmd")
	require.NoError(t, b.SetUnitData(NameCompute, id, "slurmd/0",
		map[string]string{KeyNode: `{"node_name":"node1","new_node":true}`}))
	require.NoError(t, b.SetUnitData(NameCompute, id, "slurmd/1",
		map[string]string{"unrelated": "x"}))

	x := newExchange(b, NameCompute, KeyNode)

	var units []string
	err := x.ReceiveUnits(func(unit string, raw []byte) error {
		units = append(units, unit)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"slurmd/0"}, units)
}

func TestReceiveUnitsMalformedIsFatal(t *testing.T) {
	b := NewMemBroker()
	id := b.Join(NameCompute, "slurmd")
	require.NoError(t, b.SetUnitData(NameCompute, id, "slurmd/0",
		map[string]string{KeyNode: "oops"}))

	x := newExchange(b, NameCompute, KeyNode)
	err := x.ReceiveUnits(func(unit string, raw []byte) error {
		var fact NodeFact
		return json.Unmarshal(raw, &fact)
	})
	require.Error(t, err)
}

func TestPublishRoundTrip(t *testing.T) {
	b := NewMemBroker()
	id := b.Join(NameCompute, "slurmd")

	x := newExchange(b, NameCompute, KeyClusterInfo)
	host := "ctl-0"
	require.NoError(t, x.PublishApp(ClusterInfo{ControllerHost: &host}))

	published := b.LocalApp(NameCompute, id)
	assert.Contains(t, published[KeyClusterInfo], `"slurmctld_host":"ctl-0"`)
}
