package hooks

import "fmt"

// Kind names a lifecycle event delivered by the host runtime.
type Kind string

const (
	KindInstall          Kind = "install"
	KindConfigChanged    Kind = "config-changed"
	KindUpdateStatus     Kind = "update-status"
	KindRelationCreated  Kind = "relation-created"
	KindRelationChanged  Kind = "relation-changed"
	KindRelationBroken   Kind = "relation-broken"
	KindRelationDeparted Kind = "relation-departed"
)

// Event is one unit of work for the dispatcher. Relation events carry
// the relation name and the counterpart application, other events leave
// them empty.
type Event struct {
	Kind     Kind   `json:"kind"`
	Relation string `json:"relation,omitempty"`
	App      string `json:"app,omitempty"`
	Unit     string `json:"unit,omitempty"`

	// Attempt counts deliveries of this logical event, starting at 1.
	Attempt int `json:"attempt"`
}

func (e Event) String() string {
	if e.Relation == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s/%s", e.Relation, e.Kind)
}

// Result tells the dispatcher what to do with the event after the
// handler returns. A zero Result means the event is fully handled.
type Result struct {
	// Defer re-enqueues the event for redelivery after all events that
	// are already queued. Handlers must be idempotent under redelivery.
	Defer bool
}
