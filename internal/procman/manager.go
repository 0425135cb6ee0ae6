// Package procman starts, stops and tracks the dev servers of demo projects.
package procman

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"central-illustration/internal/logger"
	"central-illustration/internal/models"
)

// ErrProcessGone is returned by a Launcher signalling a pid that no longer exists.
var ErrProcessGone = errors.New("process already exited")

// Launcher abstracts the OS so the manager can be tested without real children.
type Launcher interface {
	Start(dir string, args []string, env []string) (pid int, err error)
	Alive(pid int) bool
	Terminate(pid int) error
	Kill(pid int) error
}

type entry struct {
	PID    int    `json:"pid"`
	Port   int    `json:"port"`
	Status string `json:"status"`
	Path   string `json:"path"`
}

type Options struct {
	ProjectsDir    string
	StateFile      string
	BasePort       int
	Command        []string
	InstallCommand []string
	Grace          time.Duration
	Launcher       Launcher
	Log            *logger.Logger
}

type Manager struct {
	opts Options
	log  *logger.Logger

	mu    sync.Mutex
	procs map[string]*entry
}

// New loads any previously persisted state so a restarted backend still
// knows which demos are running.
func New(opts Options) *Manager {
	if opts.BasePort == 0 {
		opts.BasePort = 3001
	}
	if len(opts.Command) == 0 {
		opts.Command = []string{"npm", "run", "dev", "--"}
	}
	if opts.Grace == 0 {
		opts.Grace = time.Second
	}
	if opts.Launcher == nil {
		opts.Launcher = ExecLauncher{}
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	m := &Manager{opts: opts, log: log.With("component", "procman"), procs: map[string]*entry{}}
	m.load()
	return m
}

func (m *Manager) load() {
	if m.opts.StateFile == "" {
		return
	}
	data, err := os.ReadFile(m.opts.StateFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.log.Warn("read process state", "error", err)
		}
		return
	}
	procs := map[string]*entry{}
	if err := json.Unmarshal(data, &procs); err != nil {
		m.log.Warn("discarding unreadable process state", "path", m.opts.StateFile, "error", err)
		return
	}
	m.procs = procs
}

// save must be called with mu held.
func (m *Manager) save() {
	if m.opts.StateFile == "" {
		return
	}
	data, err := json.Marshal(m.procs)
	if err != nil {
		m.log.Error("encode process state", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.opts.StateFile), 0o755); err != nil {
		m.log.Error("create state dir", "error", err)
		return
	}
	if err := os.WriteFile(m.opts.StateFile, data, 0o644); err != nil {
		m.log.Error("save process state", "error", err)
	}
}

// portFor must be called with mu held.
func (m *Manager) portFor(folder string) int {
	if e, ok := m.procs[folder]; ok {
		return e.Port
	}
	used := map[int]bool{}
	for _, e := range m.procs {
		used[e.Port] = true
	}
	port := m.opts.BasePort
	for used[port] {
		port++
	}
	return port
}

func (m *Manager) Start(folder string) models.ControlResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.procs[folder]; ok && e.PID > 0 && m.opts.Launcher.Alive(e.PID) {
		return models.ControlResult{Status: "already_running", Port: intPtr(e.Port), PID: intPtr(e.PID)}
	}

	port := m.portFor(folder)
	dir := filepath.Join(m.opts.ProjectsDir, folder)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return models.ControlResult{Status: "error", Message: "Demo folder not found: " + folder}
	}

	args := append(append([]string{}, m.opts.Command...), "-p", strconv.Itoa(port))
	pid, err := m.opts.Launcher.Start(dir, args, []string{"PORT=" + strconv.Itoa(port)})
	if err != nil {
		m.log.Error("start demo", "folder", folder, "error", err)
		return models.ControlResult{Status: "error", Message: err.Error()}
	}

	m.procs[folder] = &entry{PID: pid, Port: port, Status: string(models.StateRunning), Path: dir}
	m.save()
	m.log.Info("demo started", "folder", folder, "port", port, "pid", pid)
	return models.ControlResult{Status: "started", Port: intPtr(port), PID: intPtr(pid)}
}

// Stop sends SIGTERM to the demo's process group and escalates to SIGKILL
// once the grace period has passed.
func (m *Manager) Stop(folder string) models.ControlResult {
	m.mu.Lock()
	e, ok := m.procs[folder]
	m.mu.Unlock()
	if !ok {
		return models.ControlResult{Status: "not_found"}
	}
	if e.PID <= 0 {
		return models.ControlResult{Status: "not_running"}
	}

	if err := m.terminate(e.PID); err != nil {
		m.log.Error("stop demo", "folder", folder, "pid", e.PID, "error", err)
		return models.ControlResult{Status: "error", Message: err.Error()}
	}

	m.mu.Lock()
	if cur, ok := m.procs[folder]; ok && cur.PID == e.PID {
		delete(m.procs, folder)
		m.save()
	}
	m.mu.Unlock()
	m.log.Info("demo stopped", "folder", folder, "pid", e.PID)
	return models.ControlResult{Status: "stopped"}
}

func (m *Manager) terminate(pid int) error {
	l := m.opts.Launcher
	if err := l.Terminate(pid); err != nil {
		if errors.Is(err, ErrProcessGone) {
			return nil
		}
		return err
	}

	deadline := time.Now().Add(m.opts.Grace)
	for time.Now().Before(deadline) {
		if !l.Alive(pid) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !l.Alive(pid) {
		return nil
	}
	if err := l.Kill(pid); err != nil && !errors.Is(err, ErrProcessGone) {
		return err
	}
	return nil
}

// Status reports whether the demo's process is alive. Dead entries are pruned.
func (m *Manager) Status(folder string) models.DemoStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.procs[folder]
	if !ok {
		return models.DemoStatus{Status: models.StateNotRunning}
	}
	if e.PID > 0 && m.opts.Launcher.Alive(e.PID) {
		return models.DemoStatus{Status: models.StateRunning, Port: intPtr(e.Port), PID: intPtr(e.PID)}
	}
	delete(m.procs, folder)
	m.save()
	return models.DemoStatus{Status: models.StateNotRunning}
}

// List reports every tracked demo without pruning.
func (m *Manager) List() map[string]models.DemoStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]models.DemoStatus, len(m.procs))
	for folder, e := range m.procs {
		if e.PID > 0 && m.opts.Launcher.Alive(e.PID) {
			out[folder] = models.DemoStatus{Status: models.StateRunning, Port: intPtr(e.Port), PID: intPtr(e.PID)}
		} else {
			out[folder] = models.DemoStatus{Status: models.StateNotRunning}
		}
	}
	return out
}

// Shutdown stops every tracked demo.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	folders := make([]string, 0, len(m.procs))
	for f := range m.procs {
		folders = append(folders, f)
	}
	m.mu.Unlock()

	sort.Strings(folders)
	for _, f := range folders {
		if res := m.Stop(f); res.Status == "error" {
			m.log.Warn("shutdown stop failed", "folder", f, "message", res.Message)
		}
	}
}

// Install starts the dependency install for a freshly scaffolded project and
// returns without waiting for it.
func (m *Manager) Install(dir string) error {
	if len(m.opts.InstallCommand) == 0 {
		return nil
	}
	pid, err := m.opts.Launcher.Start(dir, m.opts.InstallCommand, nil)
	if err != nil {
		m.log.Warn("dependency install failed to start", "dir", dir, "error", err)
		return fmt.Errorf("install: %w", err)
	}
	m.log.Info("dependency install started", "dir", dir, "pid", pid)
	return nil
}

func intPtr(v int) *int { return &v }
