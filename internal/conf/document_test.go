package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmed-hpc/slurm-agent/internal/relation"
)

func TestDocumentSetKeepsPosition(t *testing.T) {
	doc := NewDocument()
	doc.Set("A", "1")
	doc.Set("B", "2")
	doc.Set("A", "3")

	assert.Equal(t, "A=3\nB=2\n", doc.Render())
}

func TestRenderValueForms(t *testing.T) {
	doc := NewDocument()
	doc.Set("Scalar", "x")
	doc.Set("List", []string{"a", "b"})
	doc.Set("Options", map[string]string{"flag": "", "k": "v"})

	assert.Equal(t, "Scalar=x\nList=a,b\nOptions=flag,k=v\n", doc.Render())
}

func TestRenderEndsWithNewline(t *testing.T) {
	doc := NewDocument()
	doc.Set("ClusterName", "c")
	rendered := doc.Render()
	require.NotEmpty(t, rendered)
	assert.Equal(t, byte('\n'), rendered[len(rendered)-1])
}

func TestGresDocumentRender(t *testing.T) {
	doc := NewGresDocument()
	doc.SetNode("node2", []relation.GresEntry{
		{Name: "gpu", Type: "tesla_t4", File: "/dev/nvidia0"},
	})
	doc.SetNode("node1", []relation.GresEntry{
		{Name: "gpu", Type: "tesla_t4", File: "/dev/nvidia[0-3]"},
	})

	want := "NodeName=node1 Name=gpu Type=tesla_t4 File=/dev/nvidia[0-3]\n" +
		"NodeName=node2 Name=gpu Type=tesla_t4 File=/dev/nvidia0\n"
	assert.Equal(t, want, doc.Render())
}
