package relation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRelationDoc(t *testing.T, dir, relation, id, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, relation), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, relation, id+".json"), []byte(content), 0o600))
}

func TestFileBrokerList(t *testing.T) {
	dir := t.TempDir()
	writeRelationDoc(t, dir, NameController, "3",
		`{"app":"slurmctld","app_data":{"cluster_info":"{}"},"unit_data":{"slurmctld/0":{"k":"v"}}}`)
	writeRelationDoc(t, dir, NameController, "1", `{"app":"slurmctld"}`)

	b := NewFileBroker(dir)
	views := b.List(NameController)
	require.Len(t, views, 2)

	// Sorted by relation ID.
	assert.Equal(t, 1, views[0].ID)
	assert.Equal(t, 3, views[1].ID)
	assert.Equal(t, "slurmctld", views[1].App)
	assert.Equal(t, "{}", views[1].AppData["cluster_info"])
	assert.Equal(t, "v", views[1].UnitData["slurmctld/0"]["k"])
}

func TestFileBrokerListMissingRelation(t *testing.T) {
	b := NewFileBroker(t.TempDir())
	assert.Empty(t, b.List(NameCompute))
}

func TestFileBrokerPublish(t *testing.T) {
	dir := t.TempDir()
	writeRelationDoc(t, dir, NameController, "1", `{"app":"slurmctld"}`)
	writeRelationDoc(t, dir, NameController, "2", `{"app":"slurmctld"}`)

	b := NewFileBroker(dir)
	require.NoError(t, b.PublishApp(NameController, "partition", `{"batch":{}}`))
	require.NoError(t, b.PublishUnit(NameController, "node", `{"node_name":"node1"}`))

	for _, id := range []int{1, 2} {
		doc, err := b.read(NameController, id)
		require.NoError(t, err)
		assert.Equal(t, `{"batch":{}}`, doc.LocalApp["partition"])
		assert.Equal(t, `{"node_name":"node1"}`, doc.LocalUnit["node"])
	}
}
