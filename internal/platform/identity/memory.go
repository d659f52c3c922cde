package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Memory is an in-process Provider used by tests.
type Memory struct {
	mu          sync.RWMutex
	byID        map[string]*Principal
	hashByID    map[string]string
	reverifyErr error
	deleteErr   error
	deleted     []string
}

func NewMemory() *Memory {
	return &Memory{
		byID:     make(map[string]*Principal),
		hashByID: make(map[string]string),
	}
}

// FailReverify makes the next Reverify calls return err.
func (m *Memory) FailReverify(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reverifyErr = err
}

// FailDelete makes Delete return err until cleared with FailDelete(nil).
func (m *Memory) FailDelete(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// Deleted returns the ids removed so far, in order.
func (m *Memory) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.deleted))
	copy(out, m.deleted)
	return out
}

func (m *Memory) Principal(ctx context.Context, id string) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	principal, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *principal
	return &copied, nil
}

func (m *Memory) PrincipalByEmail(ctx context.Context, email string) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, principal := range m.byID {
		if principal.Email == email {
			copied := *principal
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Create(ctx context.Context, email, displayName, secret string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, principal := range m.byID {
		if principal.Email == email {
			return nil, ErrEmailTaken
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	principal := &Principal{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	m.byID[principal.ID] = principal
	m.hashByID[principal.ID] = string(hash)
	copied := *principal
	return &copied, nil
}

// CreateWithID seeds a principal under a fixed id, for tests.
func (m *Memory) CreateWithID(id, email, displayName, secret string) *Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, _ := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	principal := &Principal{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	m.byID[id] = principal
	m.hashByID[id] = string(hash)
	copied := *principal
	return &copied
}

func (m *Memory) Reverify(ctx context.Context, email, secret string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reverifyErr != nil {
		return false, m.reverifyErr
	}
	for id, principal := range m.byID {
		if principal.Email != email {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(m.hashByID[id]), []byte(secret)); err != nil {
			return false, nil
		}
		return true, nil
	}
	return false, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.byID[id]; ok {
		delete(m.byID, id)
		delete(m.hashByID, id)
		m.deleted = append(m.deleted, id)
	}
	return nil
}
