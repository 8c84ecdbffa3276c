package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/charmed-hpc/slurm-agent/internal/conf"
	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/install"
)

// DiskFiles writes assembled documents to their canonical locations
// under /etc/slurm. The accounting daemon configuration carries
// credentials and is written 0600.
type DiskFiles struct {
	// Service names the managed daemon; the conf-server address goes
	// into its environment file under /etc/default.
	Service string
}

func (DiskFiles) WriteSlurmConf(content string) error {
	return conf.WriteFile(consts.SlurmConfFile, content, consts.SlurmUser, consts.SlurmGroup, 0o644)
}

func (DiskFiles) ReadSlurmConf() (string, error) {
	raw, err := os.ReadFile(consts.SlurmConfFile)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", consts.SlurmConfFile)
	}
	return string(raw), nil
}

func (DiskFiles) WriteCgroupConf(content string) error {
	return conf.WriteFile(consts.CgroupConfFile, content, consts.SlurmUser, consts.SlurmGroup, 0o644)
}

func (DiskFiles) WriteGresConf(content string) error {
	return conf.WriteFile(consts.GresConfFile, content, consts.SlurmUser, consts.SlurmGroup, 0o644)
}

func (DiskFiles) WriteDatabaseConf(content string) error {
	return conf.WriteFile(consts.SlurmdbdConfFile, content, consts.SlurmUser, consts.SlurmGroup, 0o600)
}

// WriteConfServer points the daemon's --conf-server flag at the
// controller through the SLURMD_CONFIG_SERVER / SACKD_CONFIG_SERVER
// variable the packaged unit file expands.
func (f DiskFiles) WriteConfServer(addr string) error {
	if f.Service == "" {
		return errors.New("no service environment file configured")
	}
	path := filepath.Join(consts.ServiceEnvDir, f.Service)
	content := strings.ToUpper(f.Service) + "_CONFIG_SERVER=" + addr + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// AptInstaller installs role packages through apt.
type AptInstaller struct{}

func (AptInstaller) Install(ctx context.Context, pkgs ...string) error {
	return install.Packages(ctx, pkgs...)
}

func (AptInstaller) Version(ctx context.Context, pkg string) (string, error) {
	return install.Version(ctx, pkg)
}
