package systemd

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Service controls one systemd unit. All operations run the systemctl
// binary to completion; a failed invocation surfaces the command's
// diagnostic output.
type Service struct {
	unit string
}

func NewService(unit string) *Service {
	return &Service{unit: unit}
}

func (s *Service) Name() string { return s.unit }

func (s *Service) Enable(ctx context.Context) error {
	return s.run(ctx, "enable", "--now")
}

func (s *Service) Disable(ctx context.Context) error {
	return s.run(ctx, "disable", "--now")
}

func (s *Service) Restart(ctx context.Context) error {
	return s.run(ctx, "restart")
}

// Active reports whether the unit is currently running.
func (s *Service) Active(ctx context.Context) bool {
	err := exec.CommandContext(ctx, "systemctl", "is-active", "--quiet", s.unit).Run()
	return err == nil
}

func (s *Service) run(ctx context.Context, args ...string) error {
	argv := append(args, s.unit)
	out, err := exec.CommandContext(ctx, "systemctl", argv...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "systemctl %s %s: %s",
			strings.Join(args, " "), s.unit, strings.TrimSpace(string(out)))
	}
	return nil
}
