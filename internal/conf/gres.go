package conf

import (
	"fmt"
	"strings"

	"github.com/charmed-hpc/slurm-agent/internal/relation"
)

// GresDocument is the generic-resource configuration: every node's
// advertised resource entries, keyed by node name.
type GresDocument struct {
	Nodes map[string][]relation.GresEntry
}

func NewGresDocument() *GresDocument {
	return &GresDocument{Nodes: map[string][]relation.GresEntry{}}
}

// SetNode replaces one node's resource entries.
func (g *GresDocument) SetNode(name string, entries []relation.GresEntry) {
	g.Nodes[name] = entries
}

// Rebuild replaces the whole document from the given per-node entries.
// Used on compute departure, where no reliable per-node delete exists.
func (g *GresDocument) Rebuild(nodes map[string][]relation.GresEntry) {
	g.Nodes = map[string][]relation.GresEntry{}
	for name, entries := range nodes {
		g.Nodes[name] = entries
	}
}

// Render serializes the document in gres.conf format, node-sorted for
// stable output.
func (g *GresDocument) Render() string {
	var lines []string
	for _, name := range sortedKeys(g.Nodes) {
		for _, e := range g.Nodes[name] {
			lines = append(lines, fmt.Sprintf("NodeName=%s Name=%s Type=%s File=%s",
				name, e.Name, e.Type, e.File))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
