package reconciler

import (
	"context"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/hooks"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/state"
)

func (e *Engine) handleRelationCreated(ctx context.Context, ev hooks.Event) (hooks.Result, error) {
	st, err := e.Store.Load(e.Unit)
	if err != nil {
		return hooks.Result{}, err
	}

	switch e.role.Name {
	case consts.RoleController:
		switch ev.Relation {
		case relation.NameCompute, relation.NameLogin, relation.NameDatabase:
			// The counterpart cannot proceed without the shared
			// secret, which only exists after installation.
			if !st.Installed {
				return hooks.Result{Defer: true}, nil
			}
			return hooks.Result{}, e.pushClusterInfo(st, ev.Relation, "")
		}

	case consts.RoleCompute:
		if ev.Relation == relation.NameController {
			return e.publishNodeFact(ctx, st)
		}

	case consts.RoleDatabase:
		if ev.Relation == relation.NameController && st.Installed {
			return hooks.Result{}, e.publishDatabaseFact()
		}
	}

	return hooks.Result{}, nil
}

func (e *Engine) handleRelationChanged(ctx context.Context, ev hooks.Event) (hooks.Result, error) {
	st, err := e.Store.Load(e.Unit)
	if err != nil {
		return hooks.Result{}, err
	}

	switch e.role.Name {
	case consts.RoleController:
		return e.controllerRelationChanged(ctx, &st, ev)
	case consts.RoleDatabase:
		if ev.Relation == relation.NameBackingDB {
			return e.handleDatabaseEndpoints(ctx, &st)
		}
		return e.handleControllerFact(ctx, &st)
	default:
		if ev.Relation == relation.NameController {
			return e.handleControllerFact(ctx, &st)
		}
	}

	return hooks.Result{}, nil
}

func (e *Engine) controllerRelationChanged(ctx context.Context, st *state.Unit, ev hooks.Event) (hooks.Result, error) {
	switch ev.Relation {
	case relation.NameCompute:
		// A compute unit joined or republished its inventory.
		if res, err := e.refreshGres(ctx, *st); err != nil || res.Defer {
			return res, err
		}
		return e.writeConfig(ctx, st)

	case relation.NameDatabase:
		var fact relation.DatabaseFact
		res, ok, err := e.exchange(relation.NameDatabase, relation.KeyDatabase).Receive(&fact)
		if err != nil || !ok {
			return res, err
		}
		if fact.Host == nil {
			e.logger.V(1).Info("database host not in event data")
			return hooks.Result{}, nil
		}
		if *fact.Host != st.DatabaseHost {
			st.DatabaseHost = *fact.Host
			if err := e.saveState(*st); err != nil {
				return hooks.Result{}, err
			}
		}
		return e.writeConfig(ctx, st)

	case relation.NameREST:
		if !e.leader(ctx) {
			return hooks.Result{}, nil
		}
		if !e.checkStatus(ctx, *st) {
			e.logger.V(1).Info("cluster not ready yet, deferring")
			return hooks.Result{Defer: true}, nil
		}
		rendered, err := e.Files.ReadSlurmConf()
		if err != nil {
			e.logger.V(1).Info("no rendered configuration yet, deferring")
			return hooks.Result{Defer: true}, nil
		}
		return hooks.Result{}, e.pushClusterInfo(*st, relation.NameREST, rendered)

	case relation.NameLogin:
		if !st.Installed {
			return hooks.Result{Defer: true}, nil
		}
		return hooks.Result{}, e.pushClusterInfo(*st, relation.NameLogin, "")
	}

	return hooks.Result{}, nil
}

func (e *Engine) handleRelationGone(ctx context.Context, ev hooks.Event) (hooks.Result, error) {
	st, err := e.Store.Load(e.Unit)
	if err != nil {
		return hooks.Result{}, err
	}

	switch e.role.Name {
	case consts.RoleController:
		switch ev.Relation {
		case relation.NameCompute:
			if res, err := e.refreshGres(ctx, st); err != nil || res.Defer {
				return res, err
			}
			return e.writeConfig(ctx, &st)
		case relation.NameDatabase:
			// Rewrite so the accounting parameters drop out.
			st.DatabaseHost = ""
			if err := e.saveState(st); err != nil {
				return hooks.Result{}, err
			}
			return e.writeConfig(ctx, &st)
		}

	case consts.RoleDatabase:
		if ev.Relation == relation.NameBackingDB {
			st.StorageParams = nil
			if err := e.saveState(st); err != nil {
				return hooks.Result{}, err
			}
			if err := e.Daemon.Disable(ctx); err != nil {
				e.logger.Error(err, "failed to disable database daemon")
			}
			e.checkStatus(ctx, st)
			return hooks.Result{}, nil
		}
		return e.handleControllerGone(ctx, &st)

	default:
		if ev.Relation == relation.NameController {
			return e.handleControllerGone(ctx, &st)
		}
	}

	return hooks.Result{}, nil
}

// handleControllerGone resets every field populated from the
// controller fact and stops the dependent service. Safe under repeated
// emission.
func (e *Engine) handleControllerGone(ctx context.Context, st *state.Unit) (hooks.Result, error) {
	e.logger.Info("controller unavailable")

	st.ControllerAvailable = false
	st.ControllerHost = ""
	st.AuthKey = ""
	st.NHCParams = ""
	st.SlurmConfHash = ""
	if err := e.saveState(*st); err != nil {
		return hooks.Result{}, err
	}

	if err := e.Daemon.Disable(ctx); err != nil {
		e.logger.Error(err, "failed to disable daemon")
	}
	e.checkStatus(ctx, *st)
	return hooks.Result{}, nil
}
