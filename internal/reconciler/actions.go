package reconciler

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
)

// Actions are operator-invoked, run outside the event queue, and report
// through their return value rather than unit status.

// DrainNode marks a node down for maintenance with the given reason.
func (e *Engine) DrainNode(ctx context.Context, nodename, reason string) (string, error) {
	if e.role.Name != consts.RoleController {
		return "", errors.New("this action can only be run on the controller")
	}
	if err := e.Admin.Drain(ctx, []string{nodename}, reason); err != nil {
		return "", errors.Wrapf(err, "failed to drain %s", nodename)
	}
	return "draining " + nodename, nil
}

// ResumeNode returns a drained node to service.
func (e *Engine) ResumeNode(ctx context.Context, nodename string) (string, error) {
	if e.role.Name != consts.RoleController {
		return "", errors.New("this action can only be run on the controller")
	}
	if err := e.Admin.Resume(ctx, []string{nodename}); err != nil {
		return "", errors.Wrapf(err, "failed to resume %s", nodename)
	}
	return "resuming " + nodename, nil
}

// ShowCurrentConfig returns the cluster document as last written.
func (e *Engine) ShowCurrentConfig(ctx context.Context) (string, error) {
	if e.role.Name != consts.RoleController {
		return "", errors.New("this action can only be run on the controller")
	}
	return e.Files.ReadSlurmConf()
}

// IssueToken mints a short-lived API token for the given user.
func (e *Engine) IssueToken(username string) (string, error) {
	if e.role.Name != consts.RoleController {
		return "", errors.New("this action can only be run on the controller")
	}
	if e.TokenIssuer == nil {
		return "", errors.New("token issuance not configured")
	}
	return e.TokenIssuer(username)
}

// ShowNHCConfig returns the health-check configuration currently in
// effect on this node.
func (e *Engine) ShowNHCConfig(ctx context.Context) (string, error) {
	if e.role.Name != consts.RoleCompute {
		return "", errors.New("this action can only be run on compute units")
	}
	if e.ReadNHCConfig == nil {
		return "", errors.New("health checks not configured")
	}
	return e.ReadNHCConfig()
}

// NodeConfigured clears this node's new-node flag and republishes its
// inventory so the controller lifts it out of the down set.
func (e *Engine) NodeConfigured(ctx context.Context) (string, error) {
	if e.role.Name != consts.RoleCompute {
		return "", errors.New("this action can only be run on compute units")
	}

	st, err := e.Store.Load(e.Unit)
	if err != nil {
		return "", err
	}

	st.NewNode = false
	if err := e.saveState(st); err != nil {
		return "", err
	}

	if res, err := e.publishNodeFact(ctx, st); err != nil {
		return "", err
	} else if res.Defer {
		return "", errors.New("node is not installed yet")
	}
	return "node marked as configured", nil
}

// NodeConfig reads or replaces this node's operator-set parameters. An
// empty parameter string is a pure read. A list that fails validation
// changes nothing.
func (e *Engine) NodeConfig(ctx context.Context, parameters string) (string, error) {
	if e.role.Name != consts.RoleCompute {
		return "", errors.New("this action can only be run on compute units")
	}

	st, err := e.Store.Load(e.Unit)
	if err != nil {
		return "", err
	}

	if parameters != "" {
		params, err := parseOptionList(parameters, nodeOptions)
		if err != nil {
			// The whole update is rejected, but the caller still gets
			// the parameters currently in effect.
			return renderParams(st.NodeParams), errors.Wrap(err, "invalid node parameters")
		}
		st.NodeParams = params
		if err := e.saveState(st); err != nil {
			return "", err
		}
		if _, err := e.publishNodeFact(ctx, st); err != nil {
			return "", err
		}
	}

	return renderParams(st.NodeParams), nil
}

func renderParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
		b.WriteString("\n")
	}
	return b.String()
}
