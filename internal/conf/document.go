package conf

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a slurm.conf parameter value: a scalar, a comma-joined list,
// or a comma-joined k=v option map. Map entries with an empty value
// render as bare flags (e.g. enable_configless).
type Value any

// Document is an assembled cluster configuration: ordered top-level
// parameters plus node, down-node and partition sections. Rendering is
// stable so identical inputs produce byte-identical output.
type Document struct {
	keys   []string
	values map[string]Value

	Nodes      map[string]map[string]string
	DownNodes  []DownNodesEntry
	Partitions map[string]map[string]string

	// DefaultPartition, when set, marks that partition Default=YES.
	DefaultPartition string
}

// DownNodesEntry holds nodes pinned down with a shared reason.
type DownNodesEntry struct {
	DownNodes []string
	Reason    string
	State     string
}

func NewDocument() *Document {
	return &Document{
		values:     map[string]Value{},
		Nodes:      map[string]map[string]string{},
		Partitions: map[string]map[string]string{},
	}
}

// Set adds or replaces a top-level parameter. A replaced key keeps its
// original position so repeated assembly stays diff-stable.
func (d *Document) Set(key string, value Value) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the parameter value and whether it is present.
func (d *Document) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// NewNodeNames returns the names of nodes held down as new nodes,
// sorted ascending.
func (d *Document) NewNodeNames() []string {
	var out []string
	for _, entry := range d.DownNodes {
		if entry.Reason != NewNodeReason {
			continue
		}
		out = append(out, entry.DownNodes...)
	}
	sort.Strings(out)
	return out
}

// Render serializes the document in slurm.conf format.
func (d *Document) Render() string {
	var lines []string
	for _, key := range d.keys {
		lines = append(lines, fmt.Sprintf("%s=%s", key, renderValue(d.values[key])))
	}

	if len(d.Nodes) > 0 {
		lines = append(lines, "")
		for _, name := range sortedKeys(d.Nodes) {
			lines = append(lines, renderSection("NodeName", name, d.Nodes[name]))
		}
	}

	for _, entry := range d.DownNodes {
		nodes := append([]string(nil), entry.DownNodes...)
		sort.Strings(nodes)
		lines = append(lines, fmt.Sprintf("DownNodes=%s State=%s Reason=%q",
			strings.Join(nodes, ","), entry.State, entry.Reason))
	}

	if len(d.Partitions) > 0 {
		lines = append(lines, "")
		for _, name := range sortedKeys(d.Partitions) {
			params := d.Partitions[name]
			if name == d.DefaultPartition {
				params = withDefaultFlag(params)
			}
			lines = append(lines, renderSection("PartitionName", name, params))
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

func renderValue(v Value) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case map[string]string:
		var opts []string
		for _, k := range sortedKeys(val) {
			if val[k] == "" {
				opts = append(opts, k)
				continue
			}
			opts = append(opts, fmt.Sprintf("%s=%s", k, val[k]))
		}
		return strings.Join(opts, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func renderSection(kind, name string, params map[string]string) string {
	parts := []string{fmt.Sprintf("%s=%s", kind, name)}
	for _, k := range sortedKeys(params) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return strings.Join(parts, " ")
}

func withDefaultFlag(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["Default"] = "YES"
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
