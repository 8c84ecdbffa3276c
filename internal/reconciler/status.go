package reconciler

import (
	"context"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/state"
)

// StatusKind is the tri-state readiness presentation of a unit.
type StatusKind string

const (
	StatusBlocked StatusKind = "blocked"
	StatusWaiting StatusKind = "waiting"
	StatusActive  StatusKind = "active"
)

// Status is what the operator sees; there is no separate error channel
// beyond this plus action-level failure reporting.
type Status struct {
	Kind   StatusKind
	Reason string
}

func (s Status) String() string {
	if s.Reason == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ": " + s.Reason
}

// checkStatus recomputes readiness from durable state and relation
// membership. The terminal ready condition is never cached: it is
// derived on every check so it cannot diverge from the installed
// reality.
func (e *Engine) checkStatus(ctx context.Context, st state.Unit) bool {
	ready, status := e.readiness(st)
	e.status = status

	if e.Metrics != nil {
		if ready {
			e.Metrics.Ready.Set(1)
		} else {
			e.Metrics.Ready.Set(0)
		}
	}
	e.logger.V(1).Info("status recomputed", "status", status.String())
	return ready
}

func (e *Engine) readiness(st state.Unit) (bool, Status) {
	if !st.Installed {
		return false, Status{
			Kind:   StatusBlocked,
			Reason: "failed to install " + e.role.Name.ServiceName() + ". see logs for further details",
		}
	}

	if e.role.Name == consts.RoleController {
		return true, Status{Kind: StatusActive}
	}

	if e.role.Name == consts.RoleDatabase {
		if len(st.StorageParams) == 0 {
			return false, Status{Kind: StatusWaiting, Reason: "waiting on: database"}
		}
		return true, Status{Kind: StatusActive}
	}

	// Compute, login and REST roles require the controller relation
	// and its full fact set, shared secret included.
	if !e.exchange(relation.NameController, relation.KeyClusterInfo).Joined() {
		return false, Status{Kind: StatusBlocked, Reason: "need relations: slurmctld"}
	}
	if !st.ControllerAvailable {
		return false, Status{Kind: StatusWaiting, Reason: "waiting on: slurmctld"}
	}
	return true, Status{Kind: StatusActive}
}
