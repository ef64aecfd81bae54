// Package session implements the Session Manager (C8): a process-local
// map from connection id to the caller's active project, independent of
// the token's original project claim so long as it stays within the
// caller's access set. See spec.md §4.8.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// Account is one project a connection's caller may switch into.
type Account struct {
	ProjectID uuid.UUID
	Role      model.Role
}

// Session is one authenticated connection's state.
type Session struct {
	ConnectionID     string
	UserID           uuid.UUID
	ActiveProjectID  uuid.UUID
	ActiveRole       model.Role
	AvailableAccounts []Account
	LastUsedAt       time.Time
}

// Manager holds every live Session keyed by connection id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// New constructs a Manager. ttl is the inactivity window the reaper
// enforces (§4.8: "remove sessions whose last_used_at is older than 24h").
func New(ttl time.Duration) *Manager {
	return &Manager{sessions: make(map[string]*Session), ttl: ttl}
}

// Open creates a new Session for connectionID, with the active project
// set to defaultProjectID (the token's claim, or the user's
// default_project_id) and the membership list loaded into
// available_accounts.
func (m *Manager) Open(connectionID string, userID, defaultProjectID uuid.UUID, accounts []Account) *Session {
	role := model.RoleViewer
	for _, a := range accounts {
		if a.ProjectID == defaultProjectID {
			role = a.Role
			break
		}
	}

	s := &Session{
		ConnectionID:      connectionID,
		UserID:            userID,
		ActiveProjectID:   defaultProjectID,
		ActiveRole:        role,
		AvailableAccounts: accounts,
		LastUsedAt:        time.Now().UTC(),
	}

	m.mu.Lock()
	m.sessions[connectionID] = s
	m.mu.Unlock()
	return s
}

// Active returns the caller's current (project_id, role), touching
// last_used_at, or apperr.NotFound if the connection has no session.
func (m *Manager) Active(connectionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[connectionID]
	if !ok {
		return nil, apperr.New(apperr.Unauthenticated, "no active session for connection")
	}
	s.LastUsedAt = time.Now().UTC()
	return s, nil
}

// Switch moves the active project to projectID if it is in the caller's
// available accounts, updating active_role to that membership's role.
func (m *Manager) Switch(connectionID string, projectID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[connectionID]
	if !ok {
		return nil, apperr.New(apperr.Unauthenticated, "no active session for connection")
	}

	for _, a := range s.AvailableAccounts {
		if a.ProjectID == projectID {
			s.ActiveProjectID = projectID
			s.ActiveRole = a.Role
			s.LastUsedAt = time.Now().UTC()
			return s, nil
		}
	}
	return nil, apperr.New(apperr.Forbidden, "project is not in the caller's available accounts")
}

// ListAccounts returns the caller's active project and the full set of
// accounts available to switch into.
func (m *Manager) ListAccounts(connectionID string) (*Session, error) {
	return m.Active(connectionID)
}

// Remove drops a session on disconnect.
func (m *Manager) Remove(connectionID string) {
	m.mu.Lock()
	delete(m.sessions, connectionID)
	m.mu.Unlock()
}

// Reap removes every session whose last_used_at predates the configured
// ttl. Intended to run on a periodic goroutine (spec.md's "periodic
// reaper").
func (m *Manager) Reap() int {
	cutoff := time.Now().UTC().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.LastUsedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunReaper blocks, invoking Reap every period until stop is closed.
func (m *Manager) RunReaper(period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}
