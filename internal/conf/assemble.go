package conf

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/charmed-hpc/slurm-agent/internal/relation"
)

// ErrInsufficientFacts signals that assembly cannot proceed yet. The
// caller defers the triggering event instead of failing.
var ErrInsufficientFacts = errors.New("insufficient facts to assemble configuration")

// Inputs is everything the assembler consumes: durable state, the fact
// set gathered over relations, and user overrides. Assembly is a pure
// function of Inputs.
type Inputs struct {
	ClusterName    string
	ControllerAddr string
	ControllerHost string

	// DatabaseHost is empty until a database fact has been received;
	// while empty no accounting parameters are emitted at all.
	DatabaseHost string

	// Nodes holds the latest fact from every known compute unit.
	Nodes []relation.NodeFact
	// Partitions holds partition parameters keyed by partition name.
	Partitions       relation.PartitionFact
	DefaultPartition string

	// UserOverrides is the raw newline-separated KEY=VALUE override
	// string, applied last and winning all conflicts.
	UserOverrides string

	// Container selects the simpler process-tracking plugins when the
	// unit runs inside a system container.
	Container bool
}

// Assemble merges defaults, accounting parameters, compute-node facts
// and user overrides into one configuration document. Identical inputs
// always produce an identical document.
func Assemble(in Inputs) (*Document, error) {
	if in.ControllerHost == "" {
		return nil, errors.Wrap(ErrInsufficientFacts, "controller host unknown")
	}

	overrides, err := ParseOverrides(in.UserOverrides)
	if err != nil {
		return nil, err
	}

	doc := NewDocument()

	clusterName := in.ClusterName
	if clusterName == "" {
		clusterName = "charmedhpc"
	}
	doc.Set("ClusterName", clusterName)
	if in.ControllerAddr != "" {
		doc.Set("SlurmctldAddr", in.ControllerAddr)
	}
	doc.Set("SlurmctldHost", []string{in.ControllerHost})
	doc.Set("SlurmctldParameters", assembleControllerParameters(overrides))

	if in.Container {
		doc.Set("ProctrackType", "proctrack/linuxproc")
		doc.Set("TaskPlugin", []string{"task/affinity"})
	} else {
		doc.Set("ProctrackType", "proctrack/cgroup")
		doc.Set("TaskPlugin", []string{"task/cgroup", "task/affinity"})
	}

	// Accounting parameters appear only once a database fact exists.
	if in.DatabaseHost != "" {
		doc.Set("AccountingStorageHost", in.DatabaseHost)
		doc.Set("AccountingStorageType", "accounting_storage/slurmdbd")
		doc.Set("AccountingStoragePass", "/var/run/munge/munge.socket.2")
		doc.Set("AccountingStoragePort", "6819")
	}

	for _, p := range maintainedParams {
		doc.Set(p.key, p.value)
	}

	mergeComputeFacts(doc, in)

	// User overrides win every conflict. SlurmctldParameters was
	// already merged key-by-key above, not overwritten wholesale.
	for _, key := range sortedKeys(overrides) {
		if key == "SlurmctldParameters" {
			continue
		}
		doc.Set(key, overrides[key])
	}

	return doc, nil
}

// ParseOverrides parses a newline-separated KEY=VALUE override string.
// Blank lines and lines starting with # are ignored. Only the first =
// separates key from value, so values may themselves contain =. A line
// without = is a user configuration error, reported so the caller can
// block with guidance rather than crash the event.
func ParseOverrides(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, errors.Errorf("malformed override %q: expected KEY=VALUE", line)
		}
		out[key] = value
	}
	return out, nil
}

// assembleControllerParameters builds the SlurmctldParameters option
// map. A user-supplied value for this one key is a comma-separated k=v
// list merged entry-by-entry into the defaults instead of replacing
// them.
func assembleControllerParameters(overrides map[string]string) map[string]string {
	params := map[string]string{"enable_configless": ""}

	if raw, ok := overrides["SlurmctldParameters"]; ok && raw != "" {
		for _, opt := range strings.Split(raw, ",") {
			k, v, _ := strings.Cut(opt, "=")
			params[k] = v
		}
	}
	return params
}

func mergeComputeFacts(doc *Document, in Inputs) {
	var newNodes []string
	for _, node := range in.Nodes {
		if node.NodeName == "" {
			continue
		}
		params := make(map[string]string, len(node.NodeParameters))
		for k, v := range node.NodeParameters {
			params[k] = v
		}
		doc.Nodes[node.NodeName] = params
		if node.NewNode {
			newNodes = append(newNodes, node.NodeName)
		}
	}

	if len(newNodes) > 0 {
		sort.Strings(newNodes)
		doc.DownNodes = append(doc.DownNodes, DownNodesEntry{
			DownNodes: newNodes,
			Reason:    NewNodeReason,
			State:     "DOWN",
		})
	}

	for name, params := range in.Partitions {
		merged := map[string]string{"State": "UP"}
		for k, v := range params {
			merged[k] = v
		}
		doc.Partitions[name] = merged
	}
	doc.DefaultPartition = in.DefaultPartition
}

// AssembleCgroup merges the maintained cgroup defaults with the user's
// cgroup override string, overrides winning.
func AssembleCgroup(userOverrides string) (*Document, error) {
	overrides, err := ParseOverrides(userOverrides)
	if err != nil {
		return nil, err
	}

	doc := NewDocument()
	for _, p := range maintainedCgroupParams {
		doc.Set(p.key, p.value)
	}
	for _, key := range sortedKeys(overrides) {
		doc.Set(key, overrides[key])
	}
	return doc, nil
}

// AssembleDatabase builds the accounting daemon configuration from the
// maintained defaults plus the storage parameters captured from the
// backing database fact.
func AssembleDatabase(host string, storageParams map[string]string) (*Document, error) {
	if len(storageParams) == 0 {
		return nil, errors.Wrap(ErrInsufficientFacts, "no database storage parameters")
	}

	doc := NewDocument()
	doc.Set("DbdHost", host)
	for _, p := range maintainedDatabaseParams {
		doc.Set(p.key, p.value)
	}
	for _, key := range sortedKeys(storageParams) {
		doc.Set(key, storageParams[key])
	}
	return doc, nil
}
