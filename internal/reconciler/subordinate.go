package reconciler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/hooks"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/state"
)

// handleControllerFact applies the controller's fact to this unit. Each
// field is compared against stored state and applied only on change; a
// field the controller has not published yet ends the pass early so the
// remaining fields wait for the next publication instead of being
// half-applied.
func (e *Engine) handleControllerFact(ctx context.Context, st *state.Unit) (hooks.Result, error) {
	if !st.Installed {
		e.logger.V(1).Info("workload not installed yet, deferring")
		return hooks.Result{Defer: true}, nil
	}

	var info relation.ClusterInfo
	res, ok, err := e.exchange(relation.NameController, relation.KeyClusterInfo).Receive(&info)
	if err != nil || !ok {
		return res, err
	}

	changed := false

	if info.ControllerHost == nil {
		e.logger.V(1).Info("controller hostname not in relation data yet")
		return hooks.Result{}, nil
	}
	if *info.ControllerHost != st.ControllerHost {
		if e.role.UsesConfServer {
			// The daemon learns where slurmctld is through its service
			// environment, not through a local slurm.conf.
			addr := *info.ControllerHost + ":" + consts.SlurmctldPort
			if err := e.Files.WriteConfServer(addr); err != nil {
				return hooks.Result{}, err
			}
		}
		st.ControllerHost = *info.ControllerHost
		changed = true
	}

	if info.AuthKey == nil {
		e.logger.V(1).Info("auth key not in relation data yet")
		return hooks.Result{}, e.saveState(*st)
	}
	if *info.AuthKey != st.AuthKey {
		if err := e.Keys.SetAuthKey(*info.AuthKey); err != nil {
			return hooks.Result{}, err
		}
		st.AuthKey = *info.AuthKey
		changed = true
	}

	if e.role.Name == consts.RoleCompute {
		if info.NHCParams != nil && *info.NHCParams != st.NHCParams {
			if err := e.WriteNHCWrapper(*info.NHCParams); err != nil {
				return hooks.Result{}, err
			}
			st.NHCParams = *info.NHCParams
			changed = true
		}
	}

	if e.role.NeedsSlurmConf {
		// The REST daemon reads the cluster document directly, so it
		// cannot start before the controller forwards a rendered copy,
		// and must cycle whenever the forwarded copy changes.
		if info.SlurmConf == nil {
			e.logger.V(1).Info("cluster configuration not in relation data yet")
			return hooks.Result{}, e.saveState(*st)
		}
		sum := sha256.Sum256([]byte(*info.SlurmConf))
		if digest := hex.EncodeToString(sum[:]); digest != st.SlurmConfHash {
			if err := e.Files.WriteSlurmConf(*info.SlurmConf); err != nil {
				return hooks.Result{}, err
			}
			st.SlurmConfHash = digest
			changed = true
		}
	}

	if changed || !st.ControllerAvailable {
		if err := e.Munge.Restart(ctx); err != nil {
			e.logger.Error(err, "failed to restart munge")
			return hooks.Result{Defer: true}, nil
		}
		// The accounting daemon stays down until its backing database
		// endpoint arrives; the endpoint handler brings it up.
		if e.role.Name != consts.RoleDatabase || len(st.StorageParams) > 0 {
			if err := e.Daemon.Enable(ctx); err != nil {
				e.logger.Error(err, "failed to enable daemon", "service", e.Daemon.Name())
				return hooks.Result{Defer: true}, nil
			}
			if err := e.Daemon.Restart(ctx); err != nil {
				e.logger.Error(err, "failed to restart daemon", "service", e.Daemon.Name())
				return hooks.Result{Defer: true}, nil
			}
		}
		st.ControllerAvailable = true
	}

	if err := e.saveState(*st); err != nil {
		return hooks.Result{}, err
	}
	e.checkStatus(ctx, *st)
	return hooks.Result{}, nil
}

// publishNodeFact advertises this compute unit's inventory to the
// controller; the application leader also advertises the partition the
// application forms.
func (e *Engine) publishNodeFact(ctx context.Context, st state.Unit) (hooks.Result, error) {
	if !st.Installed {
		e.logger.V(1).Info("workload not installed yet, deferring")
		return hooks.Result{Defer: true}, nil
	}

	ex := e.exchange(relation.NameController, relation.KeyNode)
	if !ex.Joined() {
		return hooks.Result{}, nil
	}

	fact, err := e.NodeFacts(ctx, st.NodeParams, st.NewNode)
	if err != nil {
		return hooks.Result{}, err
	}
	if err := ex.PublishUnit(fact); err != nil {
		return hooks.Result{}, err
	}

	if e.leader(ctx) {
		if err := e.publishPartitionFact(st); err != nil {
			return hooks.Result{}, err
		}
	}
	return hooks.Result{}, nil
}

// publishPartitionFact publishes this application's partition, named
// after the application itself.
func (e *Engine) publishPartitionFact(st state.Unit) error {
	params := make(map[string]string, len(st.PartitionParams))
	for k, v := range st.PartitionParams {
		params[k] = v
	}

	fact := relation.PartitionFact{e.appName(): params}
	return e.exchange(relation.NameController, relation.KeyPartition).PublishApp(fact)
}

// appName derives the application name from the unit name, slurmd/0
// becoming slurmd.
func (e *Engine) appName() string {
	app, _, _ := strings.Cut(e.Unit, "/")
	return app
}
