package reconciler

import (
	"strings"

	"github.com/pkg/errors"
)

// partitionOptions is the set of partition parameters an operator may
// set through partition-config. PartitionName, Nodes, State and Default
// are controller-managed and deliberately absent.
var partitionOptions = optionSet(
	"AllocNodes", "AllowAccounts", "AllowGroups", "AllowQos", "Alternate",
	"CpuBind", "DefaultTime", "DefCpuPerGPU", "DefMemPerCPU", "DefMemPerGPU",
	"DefMemPerNode", "DenyAccounts", "DenyQos", "DisableRootJobs",
	"ExclusiveUser", "GraceTime", "Hidden", "LLN", "MaxCPUsPerNode",
	"MaxCPUsPerSocket", "MaxMemPerCPU", "MaxMemPerNode", "MaxNodes",
	"MaxTime", "MinNodes", "OverSubscribe", "OverTimeLimit", "PowerDownOnIdle",
	"PreemptMode", "PriorityJobFactor", "PriorityTier", "QOS", "ReqResv",
	"ResumeTimeout", "RootOnly", "SelectTypeParameters", "SuspendTime",
	"SuspendTimeout", "TRESBillingWeights",
)

// nodeOptions is the set of node parameters an operator may set through
// node-config. NodeName and NodeAddr are derived from the machine and
// cannot be overridden.
var nodeOptions = optionSet(
	"BcastAddr", "Boards", "CoreSpecCount", "CoresPerSocket", "CpuBind",
	"CPUs", "CpuSpecList", "Features", "Gres", "MemSpecLimit", "Port",
	"Procs", "RealMemory", "Reason", "Sockets", "SocketsPerBoard", "State",
	"ThreadsPerCore", "TmpDisk", "Weight",
)

func optionSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// parseOptionList parses a space-separated KEY=VALUE list against an
// allowed option set. Empty values and unknown keys are configuration
// errors; nothing is applied from a list that fails to parse.
func parseOptionList(raw string, allowed map[string]struct{}) (map[string]string, error) {
	out := map[string]string{}
	for _, item := range strings.Fields(raw) {
		key, value, found := strings.Cut(item, "=")
		if !found || value == "" {
			return nil, errors.Errorf("malformed parameter %q: expected KEY=VALUE", item)
		}
		if _, ok := allowed[key]; !ok {
			return nil, errors.Errorf("unknown parameter %q", key)
		}
		out[key] = value
	}
	return out, nil
}
