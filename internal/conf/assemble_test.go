package conf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmed-hpc/slurm-agent/internal/relation"
)

func baseInputs() Inputs {
	return Inputs{
		ClusterName:    "testcluster",
		ControllerAddr: "10.0.0.10",
		ControllerHost: "ctl-0",
		Partitions:     relation.PartitionFact{},
	}
}

func TestAssembleRequiresControllerHost(t *testing.T) {
	in := baseInputs()
	in.ControllerHost = ""

	_, err := Assemble(in)
	require.ErrorIs(t, err, ErrInsufficientFacts)
}

func TestAssembleIsDeterministic(t *testing.T) {
	in := baseInputs()
	in.Nodes = []relation.NodeFact{
		{NodeName: "node2", NodeParameters: map[string]string{"CPUs": "8"}},
		{NodeName: "node1", NodeParameters: map[string]string{"CPUs": "4"}, NewNode: true},
	}
	in.Partitions = relation.PartitionFact{"batch": {"MaxTime": "60"}}
	in.UserOverrides = "FirstJobId=65536\nMaxJobCount=9000"

	first, err := Assemble(in)
	require.NoError(t, err)
	second, err := Assemble(in)
	require.NoError(t, err)

	assert.Equal(t, first.Render(), second.Render())
}

func TestAssembleClusterNameDefault(t *testing.T) {
	in := baseInputs()
	in.ClusterName = ""

	doc, err := Assemble(in)
	require.NoError(t, err)

	v, ok := doc.Get("ClusterName")
	require.True(t, ok)
	assert.Equal(t, "charmedhpc", v)
}

func TestAssembleUserOverridesWin(t *testing.T) {
	in := baseInputs()
	in.UserOverrides = "SlurmctldPort=7777\nMailProg=/usr/bin/true"

	doc, err := Assemble(in)
	require.NoError(t, err)

	port, _ := doc.Get("SlurmctldPort")
	assert.Equal(t, "7777", port)
	mail, _ := doc.Get("MailProg")
	assert.Equal(t, "/usr/bin/true", mail)
}

func TestAssembleControllerParametersMergedNotReplaced(t *testing.T) {
	in := baseInputs()
	in.UserOverrides = "SlurmctldParameters=idle_on_node_suspend,power_save_interval=30"

	doc, err := Assemble(in)
	require.NoError(t, err)

	v, ok := doc.Get("SlurmctldParameters")
	require.True(t, ok)
	params, ok := v.(map[string]string)
	require.True(t, ok)

	// The default survives next to the user's entries.
	assert.Contains(t, params, "enable_configless")
	assert.Contains(t, params, "idle_on_node_suspend")
	assert.Equal(t, "30", params["power_save_interval"])
}

func TestAssembleValueContainingEquals(t *testing.T) {
	in := baseInputs()
	in.UserOverrides = "JobAcctGatherFrequency=task=30,network=40"

	doc, err := Assemble(in)
	require.NoError(t, err)

	v, _ := doc.Get("JobAcctGatherFrequency")
	assert.Equal(t, "task=30,network=40", v)
}

func TestAssembleMalformedOverrideRejected(t *testing.T) {
	in := baseInputs()
	in.UserOverrides = "ThisLineHasNoSeparator"

	_, err := Assemble(in)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientFacts)
}

func TestAssembleAccountingOnlyWithDatabase(t *testing.T) {
	in := baseInputs()
	doc, err := Assemble(in)
	require.NoError(t, err)
	assert.NotContains(t, doc.Render(), "AccountingStorage")

	in.DatabaseHost = "dbd-0"
	doc, err = Assemble(in)
	require.NoError(t, err)

	rendered := doc.Render()
	assert.Contains(t, rendered, "AccountingStorageHost=dbd-0")
	assert.Contains(t, rendered, "AccountingStorageType=accounting_storage/slurmdbd")
	assert.Contains(t, rendered, "AccountingStoragePort=6819")
}

func TestAssembleContainerPlugins(t *testing.T) {
	in := baseInputs()
	in.Container = true

	doc, err := Assemble(in)
	require.NoError(t, err)

	proctrack, _ := doc.Get("ProctrackType")
	assert.Equal(t, "proctrack/linuxproc", proctrack)
	task, _ := doc.Get("TaskPlugin")
	assert.Equal(t, []string{"task/affinity"}, task)
}

func TestAssembleNodesAndPartitions(t *testing.T) {
	in := baseInputs()
	in.Nodes = []relation.NodeFact{
		{
			NodeName: "node1",
			NodeParameters: map[string]string{
				"CPUs":       "16",
				"RealMemory": "31848",
				"Gres":       "gpu:tesla_t4:1",
			},
			NewNode: true,
		},
	}
	in.Partitions = relation.PartitionFact{"batch": {"MaxTime": "120"}}
	in.DefaultPartition = "batch"

	doc, err := Assemble(in)
	require.NoError(t, err)
	rendered := doc.Render()

	assert.Contains(t, rendered, "NodeName=node1 CPUs=16 Gres=gpu:tesla_t4:1 RealMemory=31848")
	assert.Contains(t, rendered, `DownNodes=node1 State=DOWN Reason="New node."`)
	assert.Contains(t, rendered, "PartitionName=batch Default=YES MaxTime=120 State=UP")
	assert.Equal(t, []string{"node1"}, doc.NewNodeNames())
}

func TestAssembleNewNodesSorted(t *testing.T) {
	in := baseInputs()
	in.Nodes = []relation.NodeFact{
		{NodeName: "node3", NewNode: true},
		{NodeName: "node1", NewNode: true},
		{NodeName: "node2"},
	}

	doc, err := Assemble(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"node1", "node3"}, doc.NewNodeNames())
}

func TestParseOverrides(t *testing.T) {
	overrides, err := ParseOverrides("A=1\n\n# a comment\nB=x=y\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y"}, overrides)

	_, err = ParseOverrides("broken line")
	require.Error(t, err)
}

func TestAssembleCgroup(t *testing.T) {
	doc, err := AssembleCgroup("ConstrainSwapSpace=no")
	require.NoError(t, err)

	rendered := doc.Render()
	assert.Contains(t, rendered, "ConstrainCores=yes")
	assert.Contains(t, rendered, "ConstrainSwapSpace=no")
	assert.Equal(t, 1, strings.Count(rendered, "ConstrainSwapSpace"))
}

func TestAssembleDatabase(t *testing.T) {
	_, err := AssembleDatabase("dbd-0", nil)
	require.ErrorIs(t, err, ErrInsufficientFacts)

	doc, err := AssembleDatabase("dbd-0", map[string]string{
		"StorageUser": "slurm",
		"StoragePass": "secret",
		"StorageHost": "10.2.5.20",
		"StoragePort": "3306",
		"StorageLoc":  AccountingStorageLoc,
	})
	require.NoError(t, err)

	rendered := doc.Render()
	assert.Contains(t, rendered, "DbdHost=dbd-0")
	assert.Contains(t, rendered, "StorageType=accounting_storage/mysql")
	assert.Contains(t, rendered, "StoragePass=secret")
	assert.Contains(t, rendered, "StorageLoc=slurm_acct_db")
}
