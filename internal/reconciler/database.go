package reconciler

import (
	"context"

	"github.com/pkg/errors"

	"github.com/charmed-hpc/slurm-agent/internal/conf"
	"github.com/charmed-hpc/slurm-agent/internal/hooks"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/state"
)

// handleDatabaseEndpoints consumes the backing database fact: pick the
// first usable endpoint, capture the storage parameters, rewrite the
// accounting daemon configuration and advertise our hostname to the
// controller.
func (e *Engine) handleDatabaseEndpoints(ctx context.Context, st *state.Unit) (hooks.Result, error) {
	if !st.Installed {
		e.logger.V(1).Info("workload not installed yet, deferring")
		return hooks.Result{Defer: true}, nil
	}

	var ep relation.DatabaseEndpoints
	res, ok, err := e.exchange(relation.NameBackingDB, relation.KeyEndpoints).Receive(&ep)
	if err != nil || !ok {
		return res, err
	}

	endpoint, err := conf.SelectEndpoint(ep.Endpoints)
	if err != nil {
		// An unusable endpoint list blocks the unit; retrying the same
		// list cannot help, the backing database must republish.
		e.logger.Error(err, "rejecting database endpoints")
		e.status = Status{Kind: StatusBlocked, Reason: err.Error()}
		return hooks.Result{}, nil
	}

	params := map[string]string{
		"StorageUser": ep.Username,
		"StoragePass": ep.Password,
		"StorageLoc":  conf.AccountingStorageLoc,
	}
	if endpoint.SocketPath != "" {
		params["StorageParameters"] = "socket=" + endpoint.SocketPath
	} else {
		params["StorageHost"] = endpoint.Host
		params["StoragePort"] = endpoint.Port
	}

	st.StorageParams = params
	if err := e.saveState(*st); err != nil {
		return hooks.Result{}, err
	}

	return e.writeDatabaseConfig(ctx, st)
}

func (e *Engine) writeDatabaseConfig(ctx context.Context, st *state.Unit) (hooks.Result, error) {
	doc, err := conf.AssembleDatabase(e.Hostname, st.StorageParams)
	if err != nil {
		if errors.Is(err, conf.ErrInsufficientFacts) {
			return hooks.Result{Defer: true}, nil
		}
		return hooks.Result{}, err
	}

	if err := e.Files.WriteDatabaseConf(doc.Render()); err != nil {
		return hooks.Result{}, err
	}
	if err := e.Daemon.Restart(ctx); err != nil {
		e.logger.Error(err, "failed to restart accounting daemon")
		return hooks.Result{Defer: true}, nil
	}

	e.checkStatus(ctx, *st)
	return hooks.Result{}, e.publishDatabaseFact()
}

// publishDatabaseFact advertises this unit's hostname on the controller
// relation so accounting parameters appear in the cluster document.
func (e *Engine) publishDatabaseFact() error {
	ex := e.exchange(relation.NameController, relation.KeyDatabase)
	if !ex.Joined() {
		return nil
	}
	host := e.Hostname
	return ex.PublishApp(relation.DatabaseFact{Host: &host})
}
