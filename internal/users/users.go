// Package users manages the approved user list and admin checks. The list
// is persisted to approved_users.json on every mutation; the admin set is
// static configuration and is implicitly approved.
package users

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/collabtools/webex-ai-bot/internal/domain"
)

const usersFile = "approved_users.json"

// Manager tracks approved users with synchronous JSON persistence.
type Manager struct {
	path        string
	adminEmails map[string]bool

	mu    sync.RWMutex
	users []domain.ApprovedUser
}

type usersDoc struct {
	Description string                `json:"description"`
	Users       []domain.ApprovedUser `json:"users"`
}

// NewManager loads approved_users.json from configDir. A missing or
// malformed file is a startup error.
func NewManager(configDir string, adminEmails []string) (*Manager, error) {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(email)] = true
	}

	m := &Manager{
		path:        filepath.Join(configDir, usersFile),
		adminEmails: admins,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read approved users: %w", err)
	}

	var doc usersDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse approved users: %w", err)
	}

	m.mu.Lock()
	m.users = doc.Users
	m.mu.Unlock()

	log.WithField("count", len(doc.Users)).Info("Loaded approved users")
	return nil
}

// save writes the full user list back to disk. Callers hold the write lock.
func (m *Manager) save() error {
	doc := usersDoc{
		Description: "Approved users for Webex AI Bot",
		Users:       m.users,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal approved users: %w", err)
	}
	raw = append(raw, '\n')

	if err := os.WriteFile(m.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write approved users: %w", err)
	}
	return nil
}

// IsApproved reports whether an email may use the bot. Admins are always
// approved; the comparison is case-insensitive.
func (m *Manager) IsApproved(email string) bool {
	if m.IsAdmin(email) {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	emailLower := strings.ToLower(email)
	for _, u := range m.users {
		if strings.ToLower(u.Email) == emailLower {
			return true
		}
	}
	return false
}

// IsAdmin reports whether an email is in the configured admin set.
func (m *Manager) IsAdmin(email string) bool {
	return m.adminEmails[strings.ToLower(email)]
}

// Add appends a user and persists the list before reporting success.
// Returns false if the email is already present (case-insensitive); a
// persistence failure rolls back the in-memory change and returns the
// error so callers never see an approval that will not survive a restart.
func (m *Manager) Add(email, name, addedBy string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	emailLower := strings.ToLower(email)
	for _, u := range m.users {
		if strings.ToLower(u.Email) == emailLower {
			return false, nil
		}
	}

	m.users = append(m.users, domain.ApprovedUser{
		Email:     email,
		Name:      name,
		AddedDate: time.Now().Format("2006-01-02"),
		AddedBy:   addedBy,
	})
	if err := m.save(); err != nil {
		m.users = m.users[:len(m.users)-1]
		return false, err
	}

	log.WithFields(log.Fields{"email": email, "added_by": addedBy}).Info("Added approved user")
	return true, nil
}

// Remove deletes a user and persists the list before reporting success.
// Returns false if the email is not present; a persistence failure rolls
// back the in-memory change and returns the error.
func (m *Manager) Remove(email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	emailLower := strings.ToLower(email)
	for i, u := range m.users {
		if strings.ToLower(u.Email) == emailLower {
			prev := make([]domain.ApprovedUser, len(m.users))
			copy(prev, m.users)

			m.users = append(m.users[:i], m.users[i+1:]...)
			if err := m.save(); err != nil {
				m.users = prev
				return false, err
			}
			log.WithField("email", email).Info("Removed approved user")
			return true, nil
		}
	}
	return false, nil
}

// List returns a copy of the approved user list.
func (m *Manager) List() []domain.ApprovedUser {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ApprovedUser, len(m.users))
	copy(out, m.users)
	return out
}

// Reload re-reads approved_users.json, discarding in-memory state.
func (m *Manager) Reload() error {
	return m.load()
}
