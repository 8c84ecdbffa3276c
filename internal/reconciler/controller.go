package reconciler

import (
	"context"
	"encoding/json"

	"github.com/charmed-hpc/slurm-agent/internal/conf"
	"github.com/charmed-hpc/slurm-agent/internal/hooks"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/state"
	"github.com/pkg/errors"
)

// writeConfig is the controller's reconfiguration pass: assemble the
// cluster document from every fact received so far, write it out,
// cycle the daemon, push a live reconfigure, resume transitioning
// nodes, and feed the rendered document downstream. Only the leader
// unit writes; leadership is checked freshly on every pass.
func (e *Engine) writeConfig(ctx context.Context, st *state.Unit) (hooks.Result, error) {
	if !e.leader(ctx) {
		return hooks.Result{}, nil
	}
	if !e.checkStatus(ctx, *st) {
		return hooks.Result{Defer: true}, nil
	}

	cfg, err := LoadCharmConfig(e.ConfigPath)
	if err != nil {
		return hooks.Result{}, err
	}

	inputs, err := e.gatherInputs(ctx, *st, cfg)
	if err != nil {
		return hooks.Result{}, err
	}

	doc, err := conf.Assemble(inputs)
	if err != nil {
		if errors.Is(err, conf.ErrInsufficientFacts) {
			e.logger.V(1).Info("cannot assemble configuration yet, deferring", "reason", err.Error())
			return hooks.Result{Defer: true}, nil
		}
		// Malformed user overrides: reject without mutating anything.
		// Deferring would retry forever on the same bad input.
		e.logger.Error(err, "rejecting user-supplied configuration")
		e.status = Status{Kind: StatusBlocked, Reason: err.Error()}
		return hooks.Result{}, nil
	}

	if err := e.applyDocument(ctx, doc, cfg); err != nil {
		e.logger.Error(err, "reconfiguration pass failed")
		if e.Metrics != nil {
			e.Metrics.ReconfigureErrors.Inc()
		}
		return hooks.Result{Defer: true}, nil
	}
	if e.Metrics != nil {
		e.Metrics.ReconfigureTotal.Inc()
	}

	if res, err := e.resumeTransitioning(ctx, st, doc); err != nil || res.Defer {
		return res, err
	}
	// Record the shrunken new-node set before anything later in the
	// pass can fail, so redelivery cannot resume a node twice.
	if err := e.saveState(*st); err != nil {
		return hooks.Result{}, err
	}

	// The REST daemon re-renders from the document, so it gets a push
	// on every successful pass, not just when something changed.
	return hooks.Result{}, e.pushToREST(*st, doc)
}

func (e *Engine) applyDocument(ctx context.Context, doc *conf.Document, cfg CharmConfig) error {
	if err := e.Daemon.Disable(ctx); err != nil {
		return err
	}
	if err := e.Files.WriteSlurmConf(doc.Render()); err != nil {
		return err
	}

	container, err := e.IsContainer(ctx)
	if err != nil {
		return err
	}
	if !container {
		cgroup, err := conf.AssembleCgroup(cfg.CgroupParameters)
		if err != nil {
			return err
		}
		if err := e.Files.WriteCgroupConf(cgroup.Render()); err != nil {
			return err
		}
	}

	if err := e.Daemon.Enable(ctx); err != nil {
		return err
	}
	return e.Admin.Reconfigure(ctx)
}

// resumeTransitioning resumes nodes that left the new-node set since
// the last pass, then records the current set. The recorded set only
// changes when the resume command succeeded, so a node is never left
// resumed-but-not-recorded or recorded-but-not-resumed.
func (e *Engine) resumeTransitioning(ctx context.Context, st *state.Unit, doc *conf.Document) (hooks.Result, error) {
	current := doc.NewNodeNames()

	currentSet := make(map[string]struct{}, len(current))
	for _, n := range current {
		currentSet[n] = struct{}{}
	}

	var transitioning []string
	for _, n := range st.NewNodes {
		if _, still := currentSet[n]; !still {
			transitioning = append(transitioning, n)
		}
	}

	if len(transitioning) > 0 {
		if err := e.Admin.Resume(ctx, transitioning); err != nil {
			e.logger.Error(err, "failed to resume transitioning nodes", "nodes", transitioning)
			return hooks.Result{Defer: true}, nil
		}
		e.logger.Info("resumed transitioning nodes", "nodes", transitioning)
	}

	st.NewNodes = current
	return hooks.Result{}, nil
}

// gatherInputs collects the full fact set: every compute unit's node
// fact, each compute application's partition fact, the database fact,
// and the user overrides.
func (e *Engine) gatherInputs(ctx context.Context, st state.Unit, cfg CharmConfig) (conf.Inputs, error) {
	container, err := e.IsContainer(ctx)
	if err != nil {
		return conf.Inputs{}, err
	}

	inputs := conf.Inputs{
		ClusterName:      cfg.ClusterName,
		ControllerAddr:   e.Address,
		ControllerHost:   e.Hostname,
		DatabaseHost:     st.DatabaseHost,
		Partitions:       relation.PartitionFact{},
		DefaultPartition: st.DefaultPartition,
		UserOverrides:    st.UserConfParams,
		Container:        container,
	}

	nodeExchange := e.exchange(relation.NameCompute, relation.KeyNode)
	err = nodeExchange.ReceiveUnits(func(unit string, raw []byte) error {
		var fact relation.NodeFact
		if err := json.Unmarshal(raw, &fact); err != nil {
			return err
		}
		inputs.Nodes = append(inputs.Nodes, fact)
		return nil
	})
	if err != nil {
		return conf.Inputs{}, err
	}

	for _, v := range e.Broker.List(relation.NameCompute) {
		if v.AppData == nil {
			continue
		}
		raw, ok := v.AppData[relation.KeyPartition]
		if !ok || raw == "" {
			continue
		}
		var partitions relation.PartitionFact
		if err := json.Unmarshal([]byte(raw), &partitions); err != nil {
			return conf.Inputs{}, errors.Wrapf(err, "malformed partition payload from %s", v.App)
		}
		for name, params := range partitions {
			inputs.Partitions[name] = params
		}
	}

	return inputs, nil
}

// refreshGres rewrites the generic-resource document from the facts of
// every currently joined compute unit. There is no reliable per-node
// delete, so departures force this global recompute; arrivals reuse it
// because the fact set is the single source of truth either way.
func (e *Engine) refreshGres(ctx context.Context, st state.Unit) (hooks.Result, error) {
	if !e.leader(ctx) {
		return hooks.Result{}, nil
	}
	if !e.checkStatus(ctx, st) {
		return hooks.Result{Defer: true}, nil
	}

	doc := conf.NewGresDocument()
	nodeExchange := e.exchange(relation.NameCompute, relation.KeyNode)
	err := nodeExchange.ReceiveUnits(func(unit string, raw []byte) error {
		var fact relation.NodeFact
		if err := json.Unmarshal(raw, &fact); err != nil {
			return err
		}
		if len(fact.Gres) > 0 && fact.NodeName != "" {
			doc.SetNode(fact.NodeName, fact.Gres)
		}
		return nil
	})
	if err != nil {
		return hooks.Result{}, err
	}

	return hooks.Result{}, e.Files.WriteGresConf(doc.Render())
}

// pushClusterInfo publishes the controller fact to one subordinate
// relation. The REST relation additionally carries the rendered
// document.
func (e *Engine) pushClusterInfo(st state.Unit, relName string, slurmConf string) error {
	info := relation.ClusterInfo{
		AuthKey:        &st.AuthKey,
		ControllerHost: &e.Hostname,
	}
	if st.NHCParams != "" {
		info.NHCParams = &st.NHCParams
	}
	if slurmConf != "" {
		info.SlurmConf = &slurmConf
	}
	return e.exchange(relName, relation.KeyClusterInfo).PublishApp(info)
}

func (e *Engine) pushToREST(st state.Unit, doc *conf.Document) error {
	restExchange := e.exchange(relation.NameREST, relation.KeyClusterInfo)
	if !restExchange.Joined() {
		return nil
	}
	return e.pushClusterInfo(st, relation.NameREST, doc.Render())
}
