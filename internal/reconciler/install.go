package reconciler

import (
	"context"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/hooks"
)

// handleInstall performs installation for the unit's role. Failures
// are logged and the event deferred so installation retries on the
// next dispatch; handlers are re-entrant, so a redelivered install on
// an already installed unit only rechecks status.
func (e *Engine) handleInstall(ctx context.Context, ev hooks.Event) (hooks.Result, error) {
	st, err := e.Store.Load(e.Unit)
	if err != nil {
		return hooks.Result{}, err
	}

	if st.Installed {
		e.checkStatus(ctx, st)
		return hooks.Result{}, nil
	}

	if e.role.SingleUnit && !e.leader(ctx) {
		e.status = Status{
			Kind:   StatusBlocked,
			Reason: e.role.Name.ServiceName() + " high-availability not supported",
		}
		e.logger.Info("high-availability is not supported, please scale down the application")
		return hooks.Result{Defer: true}, nil
	}

	e.status = Status{Kind: StatusWaiting, Reason: "installing " + e.role.Name.ServiceName()}

	if err := e.Options.Install.Install(ctx, e.role.Packages...); err != nil {
		e.logger.Error(err, "installation failed")
		return hooks.Result{Defer: true}, nil
	}

	if e.role.NeedsNHC && e.InstallNHC != nil {
		if err := e.InstallNHC(ctx); err != nil {
			e.logger.Error(err, "health check installation failed")
			return hooks.Result{Defer: true}, nil
		}
	}

	switch e.role.Name {
	case consts.RoleController:
		// The controller owns the cluster secrets: generate both keys
		// before anything is distributed, then cycle the services so
		// they pick the fresh key material up.
		authKey, err := e.Keys.GenerateAuthKey()
		if err != nil {
			e.logger.Error(err, "failed to generate auth key")
			return hooks.Result{Defer: true}, nil
		}
		signingKey, err := e.Keys.GenerateSigningKey()
		if err != nil {
			e.logger.Error(err, "failed to generate signing key")
			return hooks.Result{Defer: true}, nil
		}
		st.AuthKey = authKey
		st.SigningKey = signingKey

		if err := e.Munge.Restart(ctx); err != nil {
			e.logger.Error(err, "failed to restart munge")
			return hooks.Result{Defer: true}, nil
		}
		if err := e.Daemon.Restart(ctx); err != nil {
			e.logger.Error(err, "failed to restart controller daemon")
			return hooks.Result{Defer: true}, nil
		}

	case consts.RoleLogin:
		// The login daemon must not start before the controller
		// relation has delivered the shared secret.
		if err := e.Daemon.Disable(ctx); err != nil {
			e.logger.Error(err, "failed to disable login daemon")
			return hooks.Result{Defer: true}, nil
		}
	}

	if version, err := e.Options.Install.Version(ctx, e.role.Packages[0]); err == nil {
		e.logger.Info("installed workload", "package", e.role.Packages[0], "version", version)
	}

	st.Installed = true
	if err := e.saveState(st); err != nil {
		return hooks.Result{}, err
	}
	e.checkStatus(ctx, st)

	if e.role.Name == consts.RoleController {
		// Immediately attempt a full reconfiguration pass.
		return e.writeConfig(ctx, &st)
	}
	return hooks.Result{}, nil
}
