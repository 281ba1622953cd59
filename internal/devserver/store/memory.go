package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-process store used by tests and quick local runs.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]Record
	users       map[string]*User
}

func NewMemory() *Memory {
	return &Memory{
		collections: map[string][]Record{},
		users:       map[string]*User{},
	}
}

func (m *Memory) List(ctx context.Context, collection string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.collections[collection]
	out := make([]Record, len(items))
	for i, rec := range items {
		out[i] = cloneRecord(rec)
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, collection, key string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.collections[collection] {
		if matchesKey(rec, key) {
			return cloneRecord(rec), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneRecord(rec)
	if _, ok := stored["id"].(string); !ok {
		stored["id"] = uuid.NewString()
	}
	if _, ok := stored["isActive"]; !ok {
		stored["isActive"] = true
	}
	stored["createdAt"] = time.Now().UTC().Format(time.RFC3339)

	if code := codeOf(stored); code != "" {
		for _, existing := range m.collections[collection] {
			if codeOf(existing) == code {
				return nil, ErrDuplicateCode
			}
		}
	}
	m.collections[collection] = append(m.collections[collection], stored)
	return cloneRecord(stored), nil
}

func (m *Memory) Update(ctx context.Context, collection, key string, changes Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.collections[collection] {
		if !matchesKey(rec, key) {
			continue
		}
		for k, v := range changes {
			if k == "id" || k == "createdAt" {
				continue
			}
			rec[k] = v
		}
		return cloneRecord(rec), nil
	}
	return nil, ErrNotFound
}

func (m *Memory) Toggle(ctx context.Context, collection, key string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.collections[collection] {
		if !matchesKey(rec, key) {
			continue
		}
		active, _ := rec["isActive"].(bool)
		rec["isActive"] = !active
		return cloneRecord(rec), nil
	}
	return nil, ErrNotFound
}

func (m *Memory) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.collections[collection]
	for i, rec := range items {
		if matchesKey(rec, key) {
			m.collections[collection] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *Memory) SaveUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	clone := *u
	m.users[strings.ToLower(u.Email)] = &clone
	return nil
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
