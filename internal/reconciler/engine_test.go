package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/charmed-hpc/slurm-agent/internal/consts"
	"github.com/charmed-hpc/slurm-agent/internal/relation"
	"github.com/charmed-hpc/slurm-agent/internal/state"
)

type fakeService struct {
	name      string
	enabled   int
	disabled  int
	restarted int
	fail      error
}

func (s *fakeService) Name() string { return s.name }
func (s *fakeService) Enable(context.Context) error {
	if s.fail != nil {
		return s.fail
	}
	s.enabled++
	return nil
}
func (s *fakeService) Disable(context.Context) error {
	if s.fail != nil {
		return s.fail
	}
	s.disabled++
	return nil
}
func (s *fakeService) Restart(context.Context) error {
	if s.fail != nil {
		return s.fail
	}
	s.restarted++
	return nil
}
func (s *fakeService) Active(context.Context) bool { return s.restarted+s.enabled > 0 }

type fakeAdmin struct {
	drained      [][]string
	resumed      [][]string
	reconfigures int
	resumeErr    error
}

func (a *fakeAdmin) Drain(_ context.Context, nodes []string, _ string) error {
	a.drained = append(a.drained, nodes)
	return nil
}
func (a *fakeAdmin) Resume(_ context.Context, nodes []string) error {
	if a.resumeErr != nil {
		return a.resumeErr
	}
	a.resumed = append(a.resumed, nodes)
	return nil
}
func (a *fakeAdmin) Reconfigure(context.Context) error {
	a.reconfigures++
	return nil
}

type fakeKeys struct {
	setAuthKeys    []string
	setSigningKeys []string
}

func (k *fakeKeys) GenerateAuthKey() (string, error)    { return "YXV0aC1rZXk=", nil }
func (k *fakeKeys) GenerateSigningKey() (string, error) { return "c2lnbi1rZXk=", nil }
func (k *fakeKeys) SetAuthKey(encoded string) error {
	k.setAuthKeys = append(k.setAuthKeys, encoded)
	return nil
}
func (k *fakeKeys) SetSigningKey(encoded string) error {
	k.setSigningKeys = append(k.setSigningKeys, encoded)
	return nil
}

type fakeInstaller struct {
	installed [][]string
	fail      error
}

func (i *fakeInstaller) Install(_ context.Context, pkgs ...string) error {
	if i.fail != nil {
		return i.fail
	}
	i.installed = append(i.installed, pkgs)
	return nil
}
func (i *fakeInstaller) Version(context.Context, string) (string, error) { return "23.11.4", nil }

type fakeFiles struct {
	mu    sync.Mutex
	files map[string]string
}

func newFakeFiles() *fakeFiles { return &fakeFiles{files: map[string]string{}} }

func (f *fakeFiles) set(name, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = content
}

func (f *fakeFiles) get(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.files[name]
	return c, ok
}

func (f *fakeFiles) WriteSlurmConf(content string) error  { f.set("slurm", content); return nil }
func (f *fakeFiles) WriteCgroupConf(content string) error { f.set("cgroup", content); return nil }
func (f *fakeFiles) WriteGresConf(content string) error   { f.set("gres", content); return nil }
func (f *fakeFiles) WriteDatabaseConf(content string) error {
	f.set("database", content)
	return nil
}
func (f *fakeFiles) WriteConfServer(addr string) error { f.set("conf-server", addr); return nil }
func (f *fakeFiles) ReadSlurmConf() (string, error) {
	if c, ok := f.get("slurm"); ok {
		return c, nil
	}
	return "", errors.New("no configuration written")
}

type harness struct {
	engine    *Engine
	store     *state.Store
	broker    *relation.MemBroker
	admin     *fakeAdmin
	keys      *fakeKeys
	daemon    *fakeService
	munge     *fakeService
	installer *fakeInstaller
	files     *fakeFiles
	configDir string
	leader    bool
	unit      string
}

func newHarness(t *testing.T, role consts.Role) *harness {
	t.Helper()

	store, err := state.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		store:     store,
		broker:    relation.NewMemBroker(),
		admin:     &fakeAdmin{},
		keys:      &fakeKeys{},
		daemon:    &fakeService{name: role.ServiceName()},
		munge:     &fakeService{name: consts.MungeName},
		installer: &fakeInstaller{},
		files:     newFakeFiles(),
		configDir: t.TempDir(),
		leader:    true,
		unit:      string(role) + "/0",
	}

	engine, err := New(Options{
		Role:       role,
		Unit:       h.unit,
		Hostname:   "ctl-0",
		Address:    "10.0.0.10",
		ConfigPath: filepath.Join(h.configDir, "config.yaml"),

		Logger:  logr.Discard(),
		Store:   store,
		Broker:  h.broker,
		Keys:    h.keys,
		Admin:   h.admin,
		Daemon:  h.daemon,
		Munge:   h.munge,
		Install: h.installer,
		Files:   h.files,

		IsLeader:    func(context.Context) (bool, error) { return h.leader, nil },
		IsContainer: func(context.Context) (bool, error) { return false, nil },

		NodeFacts: func(_ context.Context, userParams map[string]string, newNode bool) (relation.NodeFact, error) {
			params := map[string]string{"NodeName": "node1", "CPUs": "4"}
			for k, v := range userParams {
				params[k] = v
			}
			return relation.NodeFact{NodeName: "node1", NodeParameters: params, NewNode: newNode}, nil
		},
		InstallNHC:      func(context.Context) error { return nil },
		WriteNHCConfig:  func(string) error { return nil },
		ReadNHCConfig:   func() (string, error) { return "", errors.New("no health-check configuration") },
		WriteNHCWrapper: func(string) error { return nil },
	})
	require.NoError(t, err)

	h.engine = engine
	return h
}

func (h *harness) loadState(t *testing.T) state.Unit {
	t.Helper()
	st, err := h.store.Load(h.unit)
	require.NoError(t, err)
	return st
}

func (h *harness) saveState(t *testing.T, st state.Unit) {
	t.Helper()
	require.NoError(t, h.store.Save(h.unit, st))
}

func (h *harness) markInstalled(t *testing.T) {
	t.Helper()
	st := h.loadState(t)
	st.Installed = true
	h.saveState(t, st)
}

func (h *harness) writeConfigFile(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(
		filepath.Join(h.configDir, "config.yaml"), []byte(content), 0o644))
}
