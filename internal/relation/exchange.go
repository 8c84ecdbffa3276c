package relation

import (
	"encoding/json"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/charmed-hpc/slurm-agent/internal/hooks"
)

// Exchange decodes the fact payload one relation carries and publishes
// our own. It owns no configuration or service state, it only turns
// relation data into domain facts.
type Exchange struct {
	logger   logr.Logger
	broker   Broker
	relation string
	key      string
}

func NewExchange(logger logr.Logger, broker Broker, relation, key string) *Exchange {
	return &Exchange{
		logger:   logger.WithName("relation").WithValues("relation", relation),
		broker:   broker,
		relation: relation,
		key:      key,
	}
}

// Joined reports whether any counterpart application is attached.
func (x *Exchange) Joined() bool {
	for _, v := range x.broker.List(x.relation) {
		if v.App != "" {
			return true
		}
	}
	return false
}

// Receive inspects the counterpart application bucket for our fact key
// and decodes it into out.
//
// Returns ok=false with a zero Result when there is nothing to do yet
// (no counterpart attached, or its bucket unwritten), and ok=false with
// Result.Defer when the counterpart is attached but the key has not
// appeared, so the event is retried once data lands. A payload that
// fails to decode is a protocol mismatch between producer and consumer
// and is returned as an error, never swallowed.
func (x *Exchange) Receive(out any) (hooks.Result, bool, error) {
	views := x.broker.List(x.relation)
	if len(views) == 0 {
		x.logger.V(1).Info("no counterpart attached")
		return hooks.Result{}, false, nil
	}

	for _, v := range views {
		if v.App == "" {
			x.logger.V(1).Info("no application on relation", "id", v.ID)
			continue
		}
		if v.AppData == nil {
			x.logger.V(1).Info("no application data on relation", "id", v.ID)
			continue
		}

		raw, present := v.AppData[x.key]
		if !present || raw == "" {
			x.logger.V(1).Info("fact not yet published, deferring", "key", x.key, "id", v.ID)
			return hooks.Result{Defer: true}, false, nil
		}

		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return hooks.Result{}, false, errors.Wrapf(err, "malformed %s payload on relation %s", x.key, x.relation)
		}
		return hooks.Result{}, true, nil
	}

	return hooks.Result{}, false, nil
}

// ReceiveUnits decodes the fact key from every counterpart unit bucket
// across all relations of this name. Buckets without the key are
// skipped; malformed payloads are fatal as in Receive. The decode
// callback receives the unit name and the raw payload.
func (x *Exchange) ReceiveUnits(decode func(unit string, raw []byte) error) error {
	for _, v := range x.broker.List(x.relation) {
		for unit, data := range v.UnitData {
			raw, present := data[x.key]
			if !present || raw == "" {
				continue
			}
			if err := decode(unit, []byte(raw)); err != nil {
				return errors.Wrapf(err, "malformed %s payload from unit %s", x.key, unit)
			}
		}
	}
	return nil
}

// PublishApp serializes the fact into our application bucket.
func (x *Exchange) PublishApp(fact any) error {
	raw, err := json.Marshal(fact)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s payload", x.key)
	}
	return x.broker.PublishApp(x.relation, x.key, string(raw))
}

// PublishUnit serializes the fact into our unit bucket.
func (x *Exchange) PublishUnit(fact any) error {
	raw, err := json.Marshal(fact)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s payload", x.key)
	}
	return x.broker.PublishUnit(x.relation, x.key, string(raw))
}
