package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/exporter"
	"github.com/charmed-hpc/slurm-agent/internal/facts"
	"github.com/charmed-hpc/slurm-agent/internal/nhc"
	"github.com/charmed-hpc/slurm-agent/internal/reconciler"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/scontrol"
	"github.com/charmed-hpc/slurm-agent/internal/secrets"
	"github.com/charmed-hpc/slurm-agent/internal/state"
	"github.com/charmed-hpc/slurm-agent/internal/systemd"
)

// environment is the agent's process configuration, injected by the
// host runtime through SLURM_AGENT_* variables.
type environment struct {
	Role       string `envconfig:"ROLE" required:"true"`
	Unit       string `envconfig:"UNIT" required:"true"`
	Hostname   string `envconfig:"HOSTNAME"`
	Address    string `envconfig:"ADDRESS"`
	DataDir    string `envconfig:"DATA_DIR" default:"/var/lib/slurm-agent"`
	ConfigPath string `envconfig:"CONFIG_PATH" default:"/etc/slurm-agent/config.yaml"`
	Leader     bool   `envconfig:"LEADER"`
	Debug      bool   `envconfig:"DEBUG"`
}

// agent bundles everything one command invocation needs.
type agent struct {
	env     environment
	logger  logr.Logger
	store   *state.Store
	metrics *exporter.Metrics
	engine  *reconciler.Engine
}

func (a *agent) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func buildAgent() (*agent, error) {
	var env environment
	if err := envconfig.Process("SLURM_AGENT", &env); err != nil {
		return nil, errors.Wrap(err, "failed to read agent environment")
	}
	if env.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, errors.Wrap(err, "failed to determine hostname")
		}
		env.Hostname = hostname
	}

	logger, err := newLogger(env.Debug)
	if err != nil {
		return nil, err
	}

	store, err := state.Open(env.DataDir)
	if err != nil {
		return nil, err
	}

	keys := secrets.NewManager(consts.MungeKeyFile, consts.JWTSigningKeyFile)
	metrics := exporter.NewMetrics()

	role := consts.Role(env.Role)
	engine, err := reconciler.New(reconciler.Options{
		Role:       role,
		Unit:       env.Unit,
		Hostname:   env.Hostname,
		Address:    env.Address,
		ConfigPath: env.ConfigPath,

		Logger:  logger,
		Store:   store,
		Broker:  relation.NewFileBroker(filepath.Join(env.DataDir, "relations")),
		Keys:    keys,
		Admin:   scontrol.NewClient(),
		Daemon:  systemd.NewService(role.ServiceName()),
		Munge:   systemd.NewService(consts.MungeName),
		Install: reconciler.AptInstaller{},
		Files:   reconciler.DiskFiles{Service: role.ServiceName()},
		Metrics: metrics,

		IsLeader:    func(context.Context) (bool, error) { return env.Leader, nil },
		IsContainer: systemd.IsContainer,

		NodeFacts:       facts.Node,
		InstallNHC:      func(ctx context.Context) error { return nhc.Install(ctx, logger) },
		WriteNHCConfig:  nhc.GenerateConfig,
		ReadNHCConfig:   nhc.Config,
		WriteNHCWrapper: nhc.GenerateWrapper,
		TokenIssuer: func(username string) (string, error) {
			return keys.IssueToken(username, secrets.DefaultTokenLifetime)
		},
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &agent{
		env:     env,
		logger:  logger,
		store:   store,
		metrics: metrics,
		engine:  engine,
	}, nil
}

func newLogger(debug bool) (logr.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, errors.Wrap(err, "failed to build logger")
	}
	return zapr.NewLogger(zl), nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slurm-agent",
		Short:         "Lifecycle agent for Slurm cluster roles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newDispatchCmd(),
		newDrainCmd(),
		newResumeCmd(),
		newShowConfigCmd(),
		newShowNHCConfigCmd(),
		newTokenCmd(),
		newNodeConfiguredCmd(),
		newNodeConfigCmd(),
	)
	return root
}
