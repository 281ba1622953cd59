// Package entity implements the schema-driven management controller behind
// every admin listing screen: paginated loading, debounced multi-field
// search, create/edit forms and the soft/hard delete confirmation flows.
// The controller is headless; consumers subscribe to state snapshots and
// render them however they like.
package entity

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/patidost/pati_admin_v1/internal/api"
	"github.com/patidost/pati_admin_v1/internal/apierrors"
	"github.com/patidost/pati_admin_v1/internal/harddelete"
	"github.com/patidost/pati_admin_v1/internal/notify"
	"github.com/patidost/pati_admin_v1/internal/schema"
)

// DefaultDebounce is the quiet period that coalesces rapid typing into one
// fetch. Page and page-size changes bypass it: they are discrete actions,
// not a typing stream.
const DefaultDebounce = 600 * time.Millisecond

const defaultPageSize = 20

type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateLoadError
)

type ModalState int

const (
	ModalClosed ModalState = iota
	ModalCreating
	ModalEditing
)

type ConfirmState int

const (
	ConfirmNone ConfirmState = iota
	ConfirmToggle
	ConfirmHardDelete
)

// API is the uniform operation set the controller drives. *api.Resource
// satisfies it.
type API interface {
	GetAll(ctx context.Context, opts api.ListOptions) (*api.Page, error)
	Search(ctx context.Context, opts api.SearchOptions, extra map[string]string) (*api.Page, error)
	Create(ctx context.Context, rec api.Record) (api.Record, error)
	Update(ctx context.Context, id string, rec api.Record) (api.Record, error)
	Delete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

// OptionLoader supplies the choices for select fields sourced from a
// dictionary or another entity collection.
type OptionLoader interface {
	LoadOptions(ctx context.Context, field schema.FieldSpec) ([]schema.Option, error)
}

// State is an immutable snapshot handed to subscribers.
type State struct {
	Load    LoadState
	Modal   ModalState
	Confirm ConfirmState

	Page            *api.Page
	CurrentPage     int
	PageSize        int
	IncludeArchived bool
	FreeText        string
	SearchValues    map[string]string
	Options         map[string][]schema.Option

	Form          map[string]string
	Editing       api.Record
	ConfirmTarget api.Record

	LastError string
}

// Config wires a controller instance.
type Config struct {
	API      API
	Schema   *schema.EntitySchema
	Notifier *notify.Center
	Options  OptionLoader

	// WindowSeconds is the hard-delete permanence window; zero means the
	// client-side default.
	WindowSeconds int

	Debounce time.Duration
	PageSize int
	OnChange func(State)
	Logger   *slog.Logger
}

// Controller owns the transient UI state for one mounted management
// screen. All exported methods are safe for concurrent use; the backend
// remains the sole owner of persisted state.
type Controller struct {
	cfg      Config
	api      API
	schema   *schema.EntitySchema
	notifier *notify.Center
	logger   *slog.Logger

	mu            sync.Mutex
	loadState     LoadState
	modalState    ModalState
	confirmState  ConfirmState
	page          *api.Page
	currentPage   int
	pageSize      int
	includeAll    bool
	freeText      string
	searchValues  map[string]string
	options       map[string][]schema.Option
	form          map[string]string
	editing       api.Record
	confirmTarget api.Record
	lastError     string

	fetchGen      uint64
	debounceTimer *time.Timer
}

func NewController(cfg Config) *Controller {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = harddelete.DefaultWindowSeconds
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewCenter()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		cfg:          cfg,
		api:          cfg.API,
		schema:       cfg.Schema,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger,
		pageSize:     cfg.PageSize,
		searchValues: map[string]string{},
		options:      map[string][]schema.Option{},
	}
}

// Notifier exposes the notification center the controller reports through.
func (c *Controller) Notifier() *notify.Center { return c.notifier }

// Start activates the controller: loads select options and fetches the
// first page immediately, with no debounce.
func (c *Controller) Start(ctx context.Context) {
	c.loadOptions(ctx)
	c.fetch(ctx)
}

// SetSchema switches the controller to a different entity schema and API.
// All filters reset, options reload and the first page is fetched
// immediately.
func (c *Controller) SetSchema(ctx context.Context, s *schema.EntitySchema, operations API) {
	c.mu.Lock()
	c.stopDebounceLocked()
	c.schema = s
	c.api = operations
	c.currentPage = 0
	c.freeText = ""
	c.searchValues = map[string]string{}
	c.includeAll = false
	c.options = map[string][]schema.Option{}
	c.page = nil
	c.loadState = StateIdle
	c.modalState = ModalClosed
	c.confirmState = ConfirmNone
	c.mu.Unlock()

	c.emit()
	c.loadOptions(ctx)
	c.fetch(ctx)
}

// SetSearchField updates one declared search field. The page resets to 0
// and the fetch is debounced.
func (c *Controller) SetSearchField(ctx context.Context, name, value string) {
	c.mu.Lock()
	c.searchValues[name] = value
	c.currentPage = 0
	c.mu.Unlock()
	c.scheduleFetch(ctx)
}

// SetFreeText updates the generic search term. Debounced.
func (c *Controller) SetFreeText(ctx context.Context, value string) {
	c.mu.Lock()
	c.freeText = value
	c.currentPage = 0
	c.mu.Unlock()
	c.scheduleFetch(ctx)
}

// SetIncludeArchived toggles archive visibility. Debounced like any other
// filter change.
func (c *Controller) SetIncludeArchived(ctx context.Context, include bool) {
	c.mu.Lock()
	c.includeAll = include
	c.currentPage = 0
	c.mu.Unlock()
	c.scheduleFetch(ctx)
}

// SetPage jumps to a zero-based page and fetches immediately.
func (c *Controller) SetPage(ctx context.Context, page int) {
	if page < 0 {
		page = 0
	}
	c.mu.Lock()
	c.stopDebounceLocked()
	c.currentPage = page
	c.mu.Unlock()
	c.fetch(ctx)
}

// SetPageSize changes the page size, resets to page 0 and fetches
// immediately.
func (c *Controller) SetPageSize(ctx context.Context, size int) {
	if size <= 0 {
		size = defaultPageSize
	}
	c.mu.Lock()
	c.stopDebounceLocked()
	c.pageSize = size
	c.currentPage = 0
	c.mu.Unlock()
	c.fetch(ctx)
}

// Reload refetches the current window immediately.
func (c *Controller) Reload(ctx context.Context) {
	c.mu.Lock()
	c.stopDebounceLocked()
	c.mu.Unlock()
	c.fetch(ctx)
}

// Flush fires a pending debounced fetch now instead of waiting out the
// quiet period. Tests use it to avoid real sleeps.
func (c *Controller) Flush(ctx context.Context) {
	c.mu.Lock()
	pending := c.debounceTimer != nil
	c.stopDebounceLocked()
	c.mu.Unlock()
	if pending {
		c.fetch(ctx)
	}
}

// scheduleFetch arms the trailing-edge debounce timer, canceling any timer
// already pending so only the last change within the quiet period fires.
func (c *Controller) scheduleFetch(ctx context.Context) {
	c.mu.Lock()
	c.stopDebounceLocked()
	c.debounceTimer = time.AfterFunc(c.cfg.Debounce, func() {
		c.mu.Lock()
		c.debounceTimer = nil
		c.mu.Unlock()
		c.fetch(ctx)
	})
	c.mu.Unlock()
}

// stopDebounceLocked must be called with the lock held.
func (c *Controller) stopDebounceLocked() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
}

// fetch is the single authoritative load path. A generation counter makes
// newer results supersede older ones: stale responses are dropped, so the
// display is last-write-wins without cancelling in-flight reads.
func (c *Controller) fetch(ctx context.Context) {
	c.mu.Lock()
	c.fetchGen++
	gen := c.fetchGen
	c.loadState = StateLoading
	page := c.currentPage
	size := c.pageSize
	all := c.includeAll
	freeText := c.freeText
	filters := make(map[string]string, len(c.searchValues))
	for k, v := range c.searchValues {
		filters[k] = v
	}
	operations := c.api
	c.mu.Unlock()
	c.emit()

	var result *api.Page
	var err error
	if hasSearchInput(freeText, filters) {
		result, err = operations.Search(ctx, api.SearchOptions{
			Search: freeText,
			All:    all,
			Page:   page,
			Size:   size,
		}, filters)
	} else {
		result, err = operations.GetAll(ctx, api.ListOptions{All: all, Page: page, Size: size})
	}

	c.mu.Lock()
	if gen != c.fetchGen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.loadState = StateLoadError
		c.lastError = apierrors.Message(err)
	} else {
		c.loadState = StateLoaded
		c.lastError = ""
		c.page = result
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("list fetch failed", "error", err)
		c.notifier.Error(apierrors.Message(err))
	}
	c.emit()
}

// hasSearchInput decides the routing between the search endpoint and the
// plain listing; re-evaluated on every fetch.
func hasSearchInput(freeText string, filters map[string]string) bool {
	if strings.TrimSpace(freeText) != "" {
		return true
	}
	for _, v := range filters {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// snapshotLocked must be called with the lock held.
func (c *Controller) snapshotLocked() State {
	st := State{
		Load:            c.loadState,
		Modal:           c.modalState,
		Confirm:         c.confirmState,
		Page:            c.page,
		CurrentPage:     c.currentPage,
		PageSize:        c.pageSize,
		IncludeArchived: c.includeAll,
		FreeText:        c.freeText,
		SearchValues:    map[string]string{},
		Options:         map[string][]schema.Option{},
		Editing:         c.editing,
		ConfirmTarget:   c.confirmTarget,
		LastError:       c.lastError,
	}
	for k, v := range c.searchValues {
		st.SearchValues[k] = v
	}
	for k, v := range c.options {
		st.Options[k] = v
	}
	if c.form != nil {
		st.Form = map[string]string{}
		for k, v := range c.form {
			st.Form[k] = v
		}
	}
	return st
}

func (c *Controller) emit() {
	if c.cfg.OnChange == nil {
		return
	}
	c.mu.Lock()
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.cfg.OnChange(st)
}
