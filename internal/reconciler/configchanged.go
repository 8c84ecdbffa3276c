package reconciler

import (
	"context"

	"github.com/charmed-hpc/slurm-agent/internal/conf"
	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/hooks"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/state"
)

// handleConfigChanged folds the user configuration file into durable
// state. Malformed input is rejected in place: stored state keeps its
// previous value and the event is not retried, since the same bad input
// would fail the same way.
func (e *Engine) handleConfigChanged(ctx context.Context, ev hooks.Event) (hooks.Result, error) {
	st, err := e.Store.Load(e.Unit)
	if err != nil {
		return hooks.Result{}, err
	}

	cfg, err := LoadCharmConfig(e.ConfigPath)
	if err != nil {
		return hooks.Result{}, err
	}

	switch e.role.Name {
	case consts.RoleController:
		return e.controllerConfigChanged(ctx, &st, cfg)
	case consts.RoleCompute:
		return e.computeConfigChanged(ctx, &st, cfg)
	}

	e.checkStatus(ctx, st)
	return hooks.Result{}, nil
}

func (e *Engine) controllerConfigChanged(ctx context.Context, st *state.Unit, cfg CharmConfig) (hooks.Result, error) {
	rewrite := false

	if cfg.HealthCheckParams != "" && cfg.HealthCheckParams != st.NHCParams {
		st.NHCParams = cfg.HealthCheckParams
		if st.Installed && e.leader(ctx) {
			if err := e.pushClusterInfo(*st, relation.NameCompute, ""); err != nil {
				return hooks.Result{}, err
			}
		}
	}

	if cfg.DefaultPartition != st.DefaultPartition {
		st.DefaultPartition = cfg.DefaultPartition
		rewrite = true
	}

	if cfg.SlurmConfParameters != st.UserConfParams {
		if _, err := conf.ParseOverrides(cfg.SlurmConfParameters); err != nil {
			e.logger.Error(err, "rejecting slurm-conf-parameters")
			e.status = Status{Kind: StatusBlocked, Reason: err.Error()}
			return hooks.Result{}, nil
		}
		st.UserConfParams = cfg.SlurmConfParameters
		rewrite = true
	}

	if cfg.CgroupParameters != st.UserCgroupParams {
		if _, err := conf.ParseOverrides(cfg.CgroupParameters); err != nil {
			e.logger.Error(err, "rejecting cgroup-parameters")
			e.status = Status{Kind: StatusBlocked, Reason: err.Error()}
			return hooks.Result{}, nil
		}
		st.UserCgroupParams = cfg.CgroupParameters
		rewrite = true
	}

	if err := e.saveState(*st); err != nil {
		return hooks.Result{}, err
	}

	if rewrite {
		return e.writeConfig(ctx, st)
	}
	e.checkStatus(ctx, *st)
	return hooks.Result{}, nil
}

func (e *Engine) computeConfigChanged(ctx context.Context, st *state.Unit, cfg CharmConfig) (hooks.Result, error) {
	if cfg.NHCConf != "" && cfg.NHCConf != st.NHCConf {
		if err := e.WriteNHCConfig(cfg.NHCConf); err != nil {
			return hooks.Result{}, err
		}
		st.NHCConf = cfg.NHCConf
	}

	if cfg.PartitionConfig != "" {
		params, err := parseOptionList(cfg.PartitionConfig, partitionOptions)
		if err != nil {
			e.logger.Error(err, "rejecting partition-config")
			e.status = Status{Kind: StatusBlocked, Reason: err.Error()}
			return hooks.Result{}, nil
		}
		st.PartitionParams = params

		if e.leader(ctx) && e.exchange(relation.NameController, relation.KeyPartition).Joined() {
			if err := e.publishPartitionFact(*st); err != nil {
				return hooks.Result{}, err
			}
		}
	}

	if err := e.saveState(*st); err != nil {
		return hooks.Result{}, err
	}
	e.checkStatus(ctx, *st)
	return hooks.Result{}, nil
}
