package relation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// relationDoc is the on-disk form of one relation. The host runtime
// shim mirrors counterpart buckets into app_data and unit_data before
// each dispatch; the agent owns only local_app and local_unit.
type relationDoc struct {
	App      string                       `json:"app"`
	AppData  map[string]string            `json:"app_data,omitempty"`
	UnitData map[string]map[string]string `json:"unit_data,omitempty"`

	LocalApp  map[string]string `json:"local_app,omitempty"`
	LocalUnit map[string]string `json:"local_unit,omitempty"`
}

// FileBroker is a Broker backed by JSON documents under
// <dir>/<relation>/<id>.json, one per attached relation. It survives
// process restarts, which MemBroker does not.
type FileBroker struct {
	mu  sync.Mutex
	dir string
}

func NewFileBroker(dir string) *FileBroker {
	return &FileBroker{dir: dir}
}

func (b *FileBroker) List(relation string) []View {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []View
	for _, id := range b.ids(relation) {
		doc, err := b.read(relation, id)
		if err != nil {
			continue
		}
		out = append(out, View{
			ID:       id,
			App:      doc.App,
			AppData:  doc.AppData,
			UnitData: doc.UnitData,
		})
	}
	return out
}

func (b *FileBroker) PublishApp(relation, key, value string) error {
	return b.publish(relation, key, value, true)
}

func (b *FileBroker) PublishUnit(relation, key, value string) error {
	return b.publish(relation, key, value, false)
}

func (b *FileBroker) publish(relation, key, value string, app bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range b.ids(relation) {
		doc, err := b.read(relation, id)
		if err != nil {
			return err
		}
		if app {
			if doc.LocalApp == nil {
				doc.LocalApp = map[string]string{}
			}
			doc.LocalApp[key] = value
		} else {
			if doc.LocalUnit == nil {
				doc.LocalUnit = map[string]string{}
			}
			doc.LocalUnit[key] = value
		}
		if err := b.write(relation, id, doc); err != nil {
			return err
		}
	}
	return nil
}

func (b *FileBroker) ids(relation string) []int {
	entries, err := os.ReadDir(filepath.Join(b.dir, relation))
	if err != nil {
		return nil
	}

	var ids []int
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (b *FileBroker) path(relation string, id int) string {
	return filepath.Join(b.dir, relation, strconv.Itoa(id)+".json")
}

func (b *FileBroker) read(relation string, id int) (*relationDoc, error) {
	raw, err := os.ReadFile(b.path(relation, id))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read relation %s:%d", relation, id)
	}
	var doc relationDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "corrupt relation document %s:%d", relation, id)
	}
	return &doc, nil
}

func (b *FileBroker) write(relation string, id int, doc *relationDoc) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode relation %s:%d", relation, id)
	}
	if err := os.WriteFile(b.path(relation, id), raw, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write relation %s:%d", relation, id)
	}
	return nil
}
