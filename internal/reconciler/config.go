package reconciler

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CharmConfig is the user-facing configuration of a unit. The runtime
// signals changes with a config-changed event; the file is re-read on
// every dispatch.
type CharmConfig struct {
	ClusterName         string `yaml:"cluster-name"`
	DefaultPartition    string `yaml:"default-partition"`
	SlurmConfParameters string `yaml:"slurm-conf-parameters"`
	CgroupParameters    string `yaml:"cgroup-parameters"`
	HealthCheckParams   string `yaml:"health-check-params"`
	NHCConf             string `yaml:"nhc-conf"`
	PartitionConfig     string `yaml:"partition-config"`
}

// LoadCharmConfig reads the configuration file. A missing file is not
// an error: every setting has a working default.
func LoadCharmConfig(path string) (CharmConfig, error) {
	var cfg CharmConfig

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}
