package nhc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
)

const tarball = "lbnl-nhc-1.4.3.tar.gz"

// Install builds and installs the node health check suite from the
// bundled tarball.
func Install(ctx context.Context, logger logr.Logger) error {
	logger = logger.WithName("nhc")

	tmpdir, err := os.MkdirTemp("", "nhc-build-")
	if err != nil {
		return errors.Wrap(err, "failed to create nhc build directory")
	}
	defer os.RemoveAll(tmpdir)

	steps := []struct {
		name string
		argv []string
	}{
		{"extract", []string{"tar", "--extract", "--directory", tmpdir, "--file", tarball}},
		{"configure", []string{"./autogen.sh", "--prefix=/usr", "--sysconfdir=/etc", "--libexecdir=/usr/lib"}},
		{"test", []string{"make", "test"}},
		{"install", []string{"make", "install"}},
	}

	for i, step := range steps {
		logger.Info("running nhc build step", "step", step.name)
		cmd := exec.CommandContext(ctx, step.argv[0], step.argv[1:]...)
		if i > 0 {
			cmd.Dir = tmpdir
		}
		cmd.Env = append(cmd.Environ(), "LC_ALL=C", "LANG=C.UTF-8")

		out, err := cmd.CombinedOutput()
		if err != nil {
			return errors.Wrapf(err, "nhc %s step failed: %s", step.name, strings.TrimSpace(string(out)))
		}
		logger.V(1).Info("nhc build step finished", "step", step.name)
	}
	return nil
}

// GenerateConfig writes a user-supplied health-check configuration.
func GenerateConfig(nhcConf string) error {
	if err := os.WriteFile(consts.NHCConfFile, []byte(nhcConf), 0o644); err != nil {
		return errors.Wrap(err, "failed to write nhc.conf")
	}
	return nil
}

// Config reads the current health-check configuration.
func Config() (string, error) {
	raw, err := os.ReadFile(consts.NHCConfFile)
	if err != nil {
		return "", errors.Wrap(err, "failed to read nhc.conf")
	}
	return string(raw), nil
}

// GenerateWrapper writes the health-check wrapper the workload manager
// invokes, passing through the controller-distributed parameters.
func GenerateWrapper(params string) error {
	script := fmt.Sprintf("#!/usr/bin/env bash\n\n/usr/sbin/nhc-wrapper %s\n", params)
	if err := os.WriteFile(consts.NHCWrapper, []byte(script), 0o755); err != nil {
		return errors.Wrap(err, "failed to write nhc wrapper")
	}
	return nil
}
