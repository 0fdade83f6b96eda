package session

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chazu/gusset/pkg/model"
)

// Manager tracks live sessions by id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	logger   *log.Logger
}

// NewManager creates a registry whose sessions share opts.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		logger:   logger,
	}
}

// Create opens a session, seeded from snap when given.
func (mg *Manager) Create(snap *model.Snapshot) (*Session, error) {
	var m *model.Model
	if snap != nil {
		var err error
		m, err = model.FromSnapshot(snap)
		if err != nil {
			return nil, err
		}
	}
	s := New(m, mg.opts)
	mg.mu.Lock()
	mg.sessions[s.ID] = s
	mg.mu.Unlock()
	mg.logger.Info("session opened", "id", s.ID)
	return s, nil
}

// Get returns the session with the given id.
func (mg *Manager) Get(id string) (*Session, bool) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	s, ok := mg.sessions[id]
	return s, ok
}

// Remove forgets the session. Pending debounced work in the session may
// still run; it holds its own references.
func (mg *Manager) Remove(id string) {
	mg.mu.Lock()
	_, ok := mg.sessions[id]
	delete(mg.sessions, id)
	mg.mu.Unlock()
	if ok {
		mg.logger.Info("session closed", "id", id)
	}
}

// Len reports the number of live sessions.
func (mg *Manager) Len() int {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return len(mg.sessions)
}
