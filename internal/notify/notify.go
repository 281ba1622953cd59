// Package notify is the transient notification center. The entity
// controller is the only layer that turns errors into notifications;
// everything below it propagates errors instead.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Errors linger longer than successes so there is time to read them.
const (
	DefaultSuccessTTL = 6 * time.Second
	DefaultErrorTTL   = 8 * time.Second
)

type Notification struct {
	ID        string
	Kind      Kind
	Message   string
	CreatedAt time.Time
}

// Listener is invoked on every add and dismiss. dismissed is true when the
// notification just left the active set.
type Listener func(n Notification, dismissed bool)

type Option func(*Center)

// WithTTLs overrides the auto-dismiss delays, mainly for tests.
func WithTTLs(success, failure time.Duration) Option {
	return func(c *Center) {
		c.successTTL = success
		c.errorTTL = failure
	}
}

// Center keeps the currently visible notifications and auto-dismisses them.
// Safe for concurrent use.
type Center struct {
	mu         sync.Mutex
	items      []Notification
	timers     map[string]*time.Timer
	listeners  []Listener
	successTTL time.Duration
	errorTTL   time.Duration
}

func NewCenter(opts ...Option) *Center {
	c := &Center{
		timers:     map[string]*time.Timer{},
		successTTL: DefaultSuccessTTL,
		errorTTL:   DefaultErrorTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a listener and returns its unsubscribe func.
func (c *Center) Subscribe(l Listener) func() {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	idx := len(c.listeners) - 1
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.listeners[idx] = nil
		c.mu.Unlock()
	}
}

func (c *Center) Success(message string) Notification {
	return c.push(KindSuccess, message, c.successTTL)
}

func (c *Center) Error(message string) Notification {
	return c.push(KindError, message, c.errorTTL)
}

// Active returns a snapshot of the visible notifications, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Dismiss removes a notification before its timer fires.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	removed, ok := c.remove(id)
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	if ok {
		for _, l := range listeners {
			l(removed, true)
		}
	}
}

func (c *Center) push(kind Kind, message string, ttl time.Duration) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}
	c.mu.Lock()
	c.items = append(c.items, n)
	c.timers[n.ID] = time.AfterFunc(ttl, func() { c.Dismiss(n.ID) })
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, l := range listeners {
		l(n, false)
	}
	return n
}

// remove must be called with the lock held.
func (c *Center) remove(id string) (Notification, bool) {
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return n, true
		}
	}
	return Notification{}, false
}

// snapshotListeners must be called with the lock held.
func (c *Center) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}
