package usecase

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// mockProcessManager implements domain.ProcessManager for testing
type mockProcessManager struct {
	self        int
	args        map[int][]string
	children    map[int][]int
	running     map[int]bool
	ignoresTerm map[int]bool
	exitsWith   map[int][]int // terminating the key also ends these PIDs
	findErr     error
	killErr     error
	terminated  []int
	killed      []int
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		self:        1,
		args:        make(map[int][]string),
		children:    make(map[int][]int),
		running:     make(map[int]bool),
		ignoresTerm: make(map[int]bool),
		exitsWith:   make(map[int][]int),
	}
}

func (m *mockProcessManager) spawn(pid int, args ...string) {
	m.args[pid] = args
	m.running[pid] = true
}

func (m *mockProcessManager) spawnChild(parent, pid int, args ...string) {
	m.spawn(pid, args...)
	m.children[parent] = append(m.children[parent], pid)
}

func (m *mockProcessManager) FindByArgs(match func([]string) bool) ([]int, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []int
	for pid, args := range m.args {
		if m.running[pid] && match(args) {
			out = append(out, pid)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (m *mockProcessManager) Cmdline(pid int) ([]string, error) {
	if !m.running[pid] {
		return nil, errors.New("no such process")
	}
	return m.args[pid], nil
}

func (m *mockProcessManager) Descendants(pid int) ([]int, error) {
	var out []int
	queue := []int{pid}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, c := range m.children[p] {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out, nil
}

func (m *mockProcessManager) Terminate(pid int) error {
	if !m.running[pid] {
		return errors.New("no such process")
	}
	m.terminated = append(m.terminated, pid)
	if !m.ignoresTerm[pid] {
		m.running[pid] = false
	}
	for _, p := range m.exitsWith[pid] {
		m.running[p] = false
	}
	return nil
}

func (m *mockProcessManager) Kill(pid int) error {
	if m.killErr != nil {
		return m.killErr
	}
	if !m.running[pid] {
		return errors.New("no such process")
	}
	m.killed = append(m.killed, pid)
	m.running[pid] = false
	return nil
}

func (m *mockProcessManager) IsRunning(pid int) bool { return m.running[pid] }

func (m *mockProcessManager) GetCurrentPID() int { return m.self }

// mockHost implements domain.SessionHost for testing
type mockHost struct {
	available bool
	sessions  map[string]bool
	panes     []string
	commands  map[string]string
	tiled     int
	splitErr  error
	killErr   error
	killed    []string
}

func newMockHost() *mockHost {
	return &mockHost{
		available: true,
		sessions:  make(map[string]bool),
		commands:  make(map[string]string),
	}
}

func (h *mockHost) Available() bool { return h.available }

func (h *mockHost) HasSession(name string) bool { return h.sessions[name] }

func (h *mockHost) NewSession(name, workDir string) (string, error) {
	if h.sessions[name] {
		return "", errors.New("duplicate session: " + name)
	}
	h.sessions[name] = true
	h.panes = []string{"%0"}
	return "%0", nil
}

func (h *mockHost) SplitPane(name, workDir string) (string, error) {
	if h.splitErr != nil {
		return "", h.splitErr
	}
	pane := "%" + string(rune('0'+len(h.panes)))
	h.panes = append(h.panes, pane)
	return pane, nil
}

func (h *mockHost) SendCommand(paneID, command string) error {
	h.commands[paneID] = command
	return nil
}

func (h *mockHost) Tile(name string) error {
	h.tiled++
	return nil
}

func (h *mockHost) KillSession(name string) error {
	if h.killErr != nil {
		return h.killErr
	}
	h.killed = append(h.killed, name)
	delete(h.sessions, name)
	return nil
}

// mockRegistry implements domain.SessionRegistry for testing
type mockRegistry struct {
	group    *domain.ProcessGroup
	loadErr  error
	cleared  int
	createFn func(domain.ProcessGroup)
}

func (r *mockRegistry) Create(g domain.ProcessGroup) error {
	g.Version = 1
	g.Processes = make(map[domain.Role]domain.RoleProcess)
	r.group = &g
	if r.createFn != nil {
		r.createFn(g)
	}
	return nil
}

func (r *mockRegistry) Register(p domain.RoleProcess) error {
	if r.group == nil {
		r.group = &domain.ProcessGroup{Processes: make(map[domain.Role]domain.RoleProcess)}
	}
	r.group.Processes[p.Role] = p
	return nil
}

func (r *mockRegistry) Load() (*domain.ProcessGroup, error) { return r.group, r.loadErr }

func (r *mockRegistry) Clear() error {
	r.cleared++
	r.group = nil
	return nil
}

func (r *mockRegistry) GetRegistryPath() string { return "/tmp/mock-session.json" }

// countingRecorder implements Recorder for testing
type countingRecorder struct {
	mu          sync.Mutex
	detections  int
	suppressed  int
	published   map[domain.Channel]int
	actions     map[string]int
	failures    map[string]int
	stopReasons []string
	loopErrors  map[domain.ErrorKind]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		published:  make(map[domain.Channel]int),
		actions:    make(map[string]int),
		failures:   make(map[string]int),
		loopErrors: make(map[domain.ErrorKind]int),
	}
}

func (r *countingRecorder) Detection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detections++
}

func (r *countingRecorder) Suppressed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppressed++
}

func (r *countingRecorder) Published(c domain.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[c]++
}

func (r *countingRecorder) Action(action string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[action]++
	if err != nil {
		r.failures[action]++
	}
}

func (r *countingRecorder) Stopped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopReasons = append(r.stopReasons, reason)
}

func (r *countingRecorder) LoopError(kind domain.ErrorKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loopErrors[kind]++
}

var (
	_ domain.ProcessManager  = (*mockProcessManager)(nil)
	_ domain.SessionHost     = (*mockHost)(nil)
	_ domain.SessionRegistry = (*mockRegistry)(nil)
	_ Recorder               = (*countingRecorder)(nil)
)
