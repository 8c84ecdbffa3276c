package systemd

import (
	"context"
	"os/exec"

	"github.com/pkg/errors"
)

// IsContainer detects whether the machine is a system container.
// Containers get the simpler process-tracking plugins and no
// cgroup.conf.
func IsContainer(ctx context.Context) (bool, error) {
	path, err := exec.LookPath("systemd-detect-virt")
	if err != nil {
		return false, errors.Wrap(err,
			"executable systemd-detect-virt not found, cannot determine if machine is a container instance")
	}

	err = exec.CommandContext(ctx, path, "--container").Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, errors.Wrap(err, "failed to run systemd-detect-virt")
}
