package facts

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/charmed-hpc/slurm-agent/internal/relation"
)

// GPUs returns the local accelerators grouped by model: model names
// are lowercased with whitespace replaced by underscores to match the
// generic-resource type convention ("Tesla T4" -> "tesla_t4"), mapped
// to the device minor numbers of that model. A host without the nvidia
// tooling reports no GPUs, which is not an error.
func GPUs(ctx context.Context) (map[string][]int, error) {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return nil, nil
	}

	out, err := exec.CommandContext(ctx, path,
		"--query-gpu=name,index", "--format=csv,noheader").Output()
	if err != nil {
		// Driver present but not loaded behaves like no GPUs.
		return nil, nil
	}

	gpus := map[string][]int{}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		name, index, found := strings.Cut(line, ",")
		if !found {
			return nil, errors.Errorf("unexpected nvidia-smi output line %q", line)
		}

		model := strings.ToLower(strings.Join(strings.Fields(name), "_"))
		minor, err := strconv.Atoi(strings.TrimSpace(index))
		if err != nil {
			return nil, errors.Wrapf(err, "unexpected device index in line %q", line)
		}
		gpus[model] = append(gpus[model], minor)
	}

	for model := range gpus {
		sort.Ints(gpus[model])
	}
	return gpus, nil
}

// GresEntries converts the GPU inventory into generic-resource entries
// plus the matching Gres strings for the node parameter line.
func GresEntries(gpus map[string][]int) ([]relation.GresEntry, []string) {
	var entries []relation.GresEntry
	var gresStrings []string

	models := make([]string, 0, len(gpus))
	for model := range gpus {
		models = append(models, model)
	}
	sort.Strings(models)

	for _, model := range models {
		devices := gpus[model]

		var suffix string
		if len(devices) == 1 {
			suffix = strconv.Itoa(devices[0])
		} else {
			suffix = RangesAndStrides(devices)
		}

		entries = append(entries, relation.GresEntry{
			Name: "gpu",
			Type: model,
			File: "/dev/nvidia" + suffix,
		})
		gresStrings = append(gresStrings, fmt.Sprintf("gpu:%s:%d", model, len(devices)))
	}

	return entries, gresStrings
}
