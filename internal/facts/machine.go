package facts

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mackerelio/go-osstat/memory"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Machine returns the local node parameters as reported by `slurmd -C`
// (NodeName, CPUs, Boards, RealMemory, Gres, ...). When the daemon is
// not installed yet, a reduced parameter set is built from host
// introspection so the node can still advertise itself.
func Machine(ctx context.Context) (map[string]string, error) {
	out, err := exec.CommandContext(ctx, "slurmd", "-C").Output()
	if err != nil {
		return introspect()
	}
	return parseNodeLine(string(bytes.TrimSpace(out)))
}

// parseNodeLine parses the first line of `slurmd -C` output: space
// separated key=value pairs, the trailing UpTime field dropped.
func parseNodeLine(raw string) (map[string]string, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, errors.New("empty node description")
	}

	info := map[string]string{}
	for _, opt := range fields {
		if strings.HasPrefix(opt, "UpTime=") {
			continue
		}
		key, value, found := strings.Cut(opt, "=")
		if !found {
			return nil, errors.Errorf("malformed node description field %q", opt)
		}
		info[key] = value
	}
	return info, nil
}

// introspect builds minimal node parameters from the host itself.
func introspect() (map[string]string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return nil, errors.Wrap(err, "failed to read uname")
	}
	hostname := unix.ByteSliceToString(uts.Nodename[:])

	mem, err := memory.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read memory stats")
	}

	return map[string]string{
		"NodeName":   hostname,
		"CPUs":       strconv.Itoa(cpuCount()),
		"RealMemory": strconv.FormatUint(mem.Total/1024/1024, 10),
	}, nil
}

func cpuCount() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	return 1
}
