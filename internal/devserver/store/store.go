// Package store abstracts the devserver's persistence: a memory
// implementation backs tests, a gorm/postgres one backs local runs.
package store

import (
	"context"
	"errors"
	"time"
)

// Record is one stored document, JSON-shaped.
type Record = map[string]any

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateCode = errors.New("code already exists")
)

// User is a back-office account. Password holds the bcrypt hash.
type User struct {
	ID        string
	Email     string
	FullName  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// Store persists collection records and users. Keys passed to Get, Update,
// Toggle and Delete match either the record id or its code.
type Store interface {
	List(ctx context.Context, collection string) ([]Record, error)
	Get(ctx context.Context, collection, key string) (Record, error)
	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	Update(ctx context.Context, collection, key string, changes Record) (Record, error)
	Toggle(ctx context.Context, collection, key string) (Record, error)
	Delete(ctx context.Context, collection, key string) error

	UserByEmail(ctx context.Context, email string) (*User, error)
	SaveUser(ctx context.Context, u *User) error
}

// matchesKey reports whether rec is addressed by key via its id or code.
func matchesKey(rec Record, key string) bool {
	if id, ok := rec["id"].(string); ok && id == key {
		return true
	}
	if code, ok := rec["code"].(string); ok && code == key {
		return true
	}
	return false
}

// codeOf returns the record's code, "" when absent.
func codeOf(rec Record) string {
	if code, ok := rec["code"].(string); ok {
		return code
	}
	return ""
}
