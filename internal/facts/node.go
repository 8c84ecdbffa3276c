package facts

import (
	"context"
	"strings"

	"github.com/charmed-hpc/slurm-agent/internal/relation"
)

// Node gathers the full compute-node fact: machine inventory, detected
// accelerators as generic-resource entries, and user-supplied node
// parameters layered on top.
func Node(ctx context.Context, userParams map[string]string, newNode bool) (relation.NodeFact, error) {
	info, err := Machine(ctx)
	if err != nil {
		return relation.NodeFact{}, err
	}

	gpus, err := GPUs(ctx)
	if err != nil {
		return relation.NodeFact{}, err
	}
	entries, gresStrings := GresEntries(gpus)

	params := map[string]string{"MemSpecLimit": "1024"}
	for k, v := range info {
		params[k] = v
	}
	if len(gresStrings) > 0 {
		existing := params["Gres"]
		if existing != "" {
			gresStrings = append(strings.Split(existing, ","), gresStrings...)
		}
		params["Gres"] = strings.Join(gresStrings, ",")
	}
	for k, v := range userParams {
		params[k] = v
	}

	return relation.NodeFact{
		NodeName:       params["NodeName"],
		NodeParameters: params,
		NewNode:        newNode,
		Gres:           entries,
	}, nil
}
