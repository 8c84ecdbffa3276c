package relation

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// View is a read-only snapshot of one relation as seen from this unit.
// AppData is the counterpart application's bucket and is nil until the
// counterpart writes it. UnitData holds the counterpart unit buckets.
type View struct {
	ID       int
	App      string
	AppData  map[string]string
	UnitData map[string]map[string]string
}

// Broker is the slice of the host runtime the fact exchange needs:
// relation-scoped key-value buckets. A unit writes only its own bucket
// and reads only counterpart buckets.
type Broker interface {
	// List returns every relation attached under the given name.
	List(relation string) []View
	// PublishApp writes a key into our application bucket on all
	// relations of the given name. Leader-only on the real runtime.
	PublishApp(relation, key, value string) error
	// PublishUnit writes a key into our unit bucket on all relations
	// of the given name.
	PublishUnit(relation, key, value string) error
}

// MemBroker is an in-process Broker used by tests and by the dispatch
// shim that mirrors the runtime's relation data into the agent.
type MemBroker struct {
	mu        sync.Mutex
	relations map[string]map[int]*memRelation
	nextID    int
}

type memRelation struct {
	app       string
	appData   map[string]string
	unitData  map[string]map[string]string
	localApp  map[string]string
	localUnit map[string]string
}

func NewMemBroker() *MemBroker {
	return &MemBroker{relations: map[string]map[int]*memRelation{}}
}

// Join attaches a counterpart application under the relation name and
// returns the relation ID.
func (b *MemBroker) Join(relation, app string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.relations[relation] == nil {
		b.relations[relation] = map[int]*memRelation{}
	}
	b.nextID++
	b.relations[relation][b.nextID] = &memRelation{
		app:       app,
		unitData:  map[string]map[string]string{},
		localApp:  map[string]string{},
		localUnit: map[string]string{},
	}
	return b.nextID
}

// Depart removes a relation, as after relation-broken.
func (b *MemBroker) Depart(relation string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.relations[relation], id)
}

// SetAppData replaces the counterpart application bucket.
func (b *MemBroker) SetAppData(relation string, id int, data map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rel, ok := b.relations[relation][id]
	if !ok {
		return errors.Errorf("relation %s:%d not found", relation, id)
	}
	rel.appData = data
	return nil
}

// SetUnitData replaces one counterpart unit bucket.
func (b *MemBroker) SetUnitData(relation string, id int, unit string, data map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rel, ok := b.relations[relation][id]
	if !ok {
		return errors.Errorf("relation %s:%d not found", relation, id)
	}
	if data == nil {
		delete(rel.unitData, unit)
		return nil
	}
	rel.unitData[unit] = data
	return nil
}

func (b *MemBroker) List(relation string) []View {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int, 0, len(b.relations[relation]))
	for id := range b.relations[relation] {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []View
	for _, id := range ids {
		rel := b.relations[relation][id]
		v := View{ID: id, App: rel.app, AppData: copyData(rel.appData)}
		v.UnitData = map[string]map[string]string{}
		for unit, data := range rel.unitData {
			v.UnitData[unit] = copyData(data)
		}
		out = append(out, v)
	}
	return out
}

func (b *MemBroker) PublishApp(relation, key, value string) error {
	return b.publish(relation, key, value, true)
}

func (b *MemBroker) PublishUnit(relation, key, value string) error {
	return b.publish(relation, key, value, false)
}

// LocalApp returns our application bucket on a relation, for tests
// asserting what was published.
func (b *MemBroker) LocalApp(relation string, id int) map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rel, ok := b.relations[relation][id]; ok {
		return copyData(rel.localApp)
	}
	return nil
}

// LocalUnit returns our unit bucket on a relation.
func (b *MemBroker) LocalUnit(relation string, id int) map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rel, ok := b.relations[relation][id]; ok {
		return copyData(rel.localUnit)
	}
	return nil
}

func (b *MemBroker) publish(relation, key, value string, app bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rel := range b.relations[relation] {
		if app {
			rel.localApp[key] = value
		} else {
			rel.localUnit[key] = value
		}
	}
	return nil
}

func copyData(data map[string]string) map[string]string {
	if data == nil {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
