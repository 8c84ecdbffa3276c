package reconciler

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/exporter"
	"github.com/charmed-hpc/slurm-agent/internal/hooks"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/state"
)

// ServiceControl is the slice of service management the engine needs.
type ServiceControl interface {
	Name() string
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Restart(ctx context.Context) error
	Active(ctx context.Context) bool
}

// AdminClient issues workload-manager administrative commands.
type AdminClient interface {
	Drain(ctx context.Context, nodes []string, reason string) error
	Resume(ctx context.Context, nodes []string) error
	Reconfigure(ctx context.Context) error
}

// KeyManager holds the shared secret and the signing key.
type KeyManager interface {
	GenerateAuthKey() (string, error)
	SetAuthKey(encoded string) error
	GenerateSigningKey() (string, error)
	SetSigningKey(encoded string) error
}

// Installer installs role packages and reports versions.
type Installer interface {
	Install(ctx context.Context, pkgs ...string) error
	Version(ctx context.Context, pkg string) (string, error)
}

// ConfigFiles writes assembled documents to their canonical locations.
type ConfigFiles interface {
	WriteSlurmConf(content string) error
	ReadSlurmConf() (string, error)
	WriteCgroupConf(content string) error
	WriteGresConf(content string) error
	WriteDatabaseConf(content string) error
	WriteConfServer(addr string) error
}

// Options wires an Engine to its collaborators. Everything that shells
// out or touches disk sits behind an interface or function so the
// convergence logic is testable in isolation.
type Options struct {
	Role       consts.Role
	Unit       string
	Hostname   string
	Address    string
	ConfigPath string

	Logger  logr.Logger
	Store   *state.Store
	Broker  relation.Broker
	Keys    KeyManager
	Admin   AdminClient
	Daemon  ServiceControl
	Munge   ServiceControl
	Install Installer
	Files   ConfigFiles
	Metrics *exporter.Metrics

	IsLeader    func(ctx context.Context) (bool, error)
	IsContainer func(ctx context.Context) (bool, error)

	NodeFacts       func(ctx context.Context, userParams map[string]string, newNode bool) (relation.NodeFact, error)
	InstallNHC      func(ctx context.Context) error
	WriteNHCConfig  func(conf string) error
	ReadNHCConfig   func() (string, error)
	WriteNHCWrapper func(params string) error
	TokenIssuer     func(username string) (string, error)
}

// Engine is the role-parameterized reconciliation state machine. One
// engine instance serves one unit; handlers run one at a time and are
// re-entrant under event redelivery.
type Engine struct {
	Options

	role   Role
	logger logr.Logger
	status Status
}

func New(opts Options) (*Engine, error) {
	role, ok := LookupRole(opts.Role)
	if !ok {
		return nil, errors.Errorf("unknown role %q", opts.Role)
	}

	return &Engine{
		Options: opts,
		role:    role,
		logger:  opts.Logger.WithName("reconciler").WithValues("role", string(opts.Role), "unit", opts.Unit),
		status:  Status{Kind: StatusWaiting, Reason: "agent starting"},
	}, nil
}

// Status returns the last computed unit status.
func (e *Engine) Status() Status { return e.status }

// Handle is the hooks.Handler for this unit: it routes one lifecycle
// event to the role's handler.
func (e *Engine) Handle(ctx context.Context, ev hooks.Event) (hooks.Result, error) {
	if e.Metrics != nil {
		e.Metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	}

	res, err := e.route(ctx, ev)
	if err != nil {
		return res, err
	}
	if res.Defer && e.Metrics != nil {
		e.Metrics.DeferredTotal.WithLabelValues(string(ev.Kind)).Inc()
	}
	return res, nil
}

func (e *Engine) route(ctx context.Context, ev hooks.Event) (hooks.Result, error) {
	switch ev.Kind {
	case hooks.KindInstall:
		return e.handleInstall(ctx, ev)
	case hooks.KindUpdateStatus:
		return e.handleUpdateStatus(ctx)
	case hooks.KindConfigChanged:
		return e.handleConfigChanged(ctx, ev)
	case hooks.KindRelationCreated:
		return e.handleRelationCreated(ctx, ev)
	case hooks.KindRelationChanged:
		return e.handleRelationChanged(ctx, ev)
	case hooks.KindRelationBroken, hooks.KindRelationDeparted:
		return e.handleRelationGone(ctx, ev)
	}

	e.logger.V(1).Info("ignoring event", "event", ev.String())
	return hooks.Result{}, nil
}

// handleUpdateStatus never raises: it only recomputes and republishes
// the unit's readiness presentation.
func (e *Engine) handleUpdateStatus(ctx context.Context) (hooks.Result, error) {
	st, err := e.Store.Load(e.Unit)
	if err != nil {
		e.logger.Error(err, "failed to load state during update-status")
		return hooks.Result{}, nil
	}
	e.checkStatus(ctx, st)
	return hooks.Result{}, nil
}

func (e *Engine) exchange(name, key string) *relation.Exchange {
	return relation.NewExchange(e.logger, e.Broker, name, key)
}

func (e *Engine) leader(ctx context.Context) bool {
	if e.IsLeader == nil {
		return true
	}
	ok, err := e.IsLeader(ctx)
	if err != nil {
		e.logger.Error(err, "failed to check leadership, assuming follower")
		return false
	}
	return ok
}

func (e *Engine) saveState(st state.Unit) error {
	return errors.Wrap(e.Store.Save(e.Unit, st), "failed to persist unit state")
}
