package install

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Error is an installation failure. Handlers log it and defer the
// triggering event; it is never retried faster than the next dispatch.
type Error struct {
	Packages []string
	Output   string
	Err      error
}

func (e *Error) Error() string {
	return "failed to install " + strings.Join(e.Packages, " ") + ": " + e.Output
}

func (e *Error) Unwrap() error { return e.Err }

// Packages installs OS packages for a role via apt.
func Packages(ctx context.Context, pkgs ...string) error {
	args := append([]string{"install", "--yes"}, pkgs...)
	cmd := exec.CommandContext(ctx, "apt-get", args...)
	cmd.Env = append(cmd.Environ(), "DEBIAN_FRONTEND=noninteractive")

	out, err := cmd.CombinedOutput()
	if err != nil {
		return &Error{Packages: pkgs, Output: strings.TrimSpace(string(out)), Err: err}
	}
	return nil
}

// Version reports the installed version of a package, for workload
// version display.
func Version(ctx context.Context, pkg string) (string, error) {
	out, err := exec.CommandContext(ctx, "dpkg-query", "--showformat=${Version}", "--show", pkg).Output()
	if err != nil {
		return "", errors.Wrapf(err, "failed to query version of %s", pkg)
	}
	return strings.TrimSpace(string(out)), nil
}
