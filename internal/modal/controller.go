package modal

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/stevechez/influencer-portfolio/internal/shot"
)

// State is the observable overlay state.
type State int

const (
	Closed State = iota
	Open
	NotFound
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

var (
	// ErrStale is returned when a transition's fetch was superseded by a
	// newer transition or its context was canceled. The result is discarded.
	ErrStale = errors.New("modal: stale transition discarded")
	// ErrNotOpen is returned by Advance outside the Open state.
	ErrNotOpen = errors.New("modal: overlay is not open")
)

// Source resolves shots. Implementations must degrade failures to empty
// collections / not-found rather than returning errors.
type Source interface {
	FetchCollection(ctx context.Context, tag string) shot.Collection
	FetchByID(ctx context.Context, id string) (shot.Shot, bool)
}

// Locations maps controller states to addressable locations.
type Locations struct {
	Shot   func(id, scope string) string
	Closed func(scope string) string
}

// DefaultLocations addresses shots as /p/{id}?in={scope} and closes to "/".
func DefaultLocations() Locations {
	return Locations{
		Shot: func(id, scope string) string {
			loc := "/p/" + url.PathEscape(id)
			if scope != "" {
				loc += "?in=" + url.QueryEscape(scope)
			}
			return loc
		},
		Closed: func(string) string { return "/" },
	}
}

// View is a read-only snapshot of the controller for rendering.
type View struct {
	State    State
	Shot     shot.Shot
	Position Position
	Scope    string
	Location string
	Pushed   bool
	Bindings []Binding
}

// IsOpen reports whether the overlay shows a shot.
func (v View) IsOpen() bool { return v.State == Open }

// Snapshot is the persisted form of the controller between requests.
type Snapshot struct {
	State  State  `json:"state"`
	ID     string `json:"id,omitempty"`
	Scope  string `json:"scope,omitempty"`
	Pushed bool   `json:"pushed,omitempty"`
}

// Option customises a Controller.
type Option func(*Controller)

// WithScope sets the tag whose collection supplies neighbors. Empty means all.
func WithScope(scope string) Option {
	return func(c *Controller) { c.scope = shot.NormalizeScope(scope) }
}

// WithSurface installs the surface that receives scroll-lock and key binding effects.
func WithSurface(s Surface) Option {
	return func(c *Controller) {
		if s != nil {
			c.surface = s
		}
	}
}

// WithLocations overrides the location builders.
func WithLocations(l Locations) Option {
	return func(c *Controller) {
		if l.Shot != nil {
			c.locs.Shot = l.Shot
		}
		if l.Closed != nil {
			c.locs.Closed = l.Closed
		}
	}
}

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller is the overlay navigation state machine. It is safe for
// concurrent use; fetches run outside the lock and are discarded when a
// newer transition started meanwhile.
type Controller struct {
	src     Source
	hist    History
	surface Surface
	locs    Locations
	logger  *zap.Logger

	mu      sync.Mutex
	seq     uint64
	scope   string
	state   State
	id      string
	current shot.Shot
	pos     Position
	pushed  bool
	unbind  func()
	locked  bool
}

// New builds a Closed controller.
func New(src Source, hist History, opts ...Option) *Controller {
	c := &Controller{
		src:     src,
		hist:    hist,
		surface: NopSurface{},
		locs:    DefaultLocations(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hist == nil {
		c.hist = NewStack(c.locs.Closed(c.scope))
	}
	return c
}

// Open addresses the overlay at id. The first open from Closed is the only
// history push; opening while already open replaces the current entry.
func (c *Controller) Open(ctx context.Context, id string) (View, error) {
	c.mu.Lock()
	seq := c.beginLocked()
	scope := c.scope
	c.mu.Unlock()

	s, coll, found := c.resolve(ctx, id, scope)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(ctx, seq); err != nil {
		return c.viewLocked(), err
	}

	target := c.locs.Shot(id, scope)
	if c.hist.Location() != target {
		if c.state == Closed {
			c.hist.Push(target)
			c.pushed = true
		} else {
			c.hist.Replace(target)
		}
	}

	if !found {
		c.enterNotFoundLocked(id)
		c.logger.Debug("modal open: not found", zap.String("id", id), zap.String("scope", scope))
		return c.viewLocked(), nil
	}
	pos, _ := Locate(coll, id)
	c.enterOpenLocked(s, pos)
	c.logger.Debug("modal open", zap.String("id", id), zap.Int("index", pos.Index), zap.Int("total", pos.Total))
	return c.viewLocked(), nil
}

// Advance moves to the circular neighbor in dir, computed against a freshly
// fetched collection. With a single member it is a no-op.
func (c *Controller) Advance(ctx context.Context, dir Direction) (View, error) {
	c.mu.Lock()
	if c.state != Open {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrNotOpen
	}
	seq := c.beginLocked()
	id, scope := c.id, c.scope
	c.mu.Unlock()

	coll := c.src.FetchCollection(ctx, scope)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(ctx, seq); err != nil {
		return c.viewLocked(), err
	}

	pos, ok := Locate(coll, id)
	if !ok {
		c.enterNotFoundLocked(id)
		c.logger.Debug("modal advance: current shot vanished", zap.String("id", id))
		return c.viewLocked(), nil
	}
	nextID := pos.Neighbor(dir)
	if nextID == id {
		if s, ok := coll.Find(id); ok {
			c.current = s
		}
		c.pos = pos
		return c.viewLocked(), nil
	}

	next, _ := coll.Find(nextID)
	npos, _ := Locate(coll, nextID)
	c.hist.Replace(c.locs.Shot(nextID, scope))
	c.enterOpenLocked(next, npos)
	c.logger.Debug("modal advance", zap.String("from", id), zap.String("to", nextID), zap.Stringer("dir", dir))
	return c.viewLocked(), nil
}

// Dismiss closes the overlay. When the overlay owns a pushed history entry
// it is popped; otherwise the closed location replaces the current entry.
func (c *Controller) Dismiss() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beginLocked()
	if c.state == Closed {
		return c.viewLocked()
	}
	if c.pushed {
		c.hist.Back()
	} else {
		c.hist.Replace(c.locs.Closed(c.scope))
	}
	c.closeLocked()
	c.logger.Debug("modal dismissed", zap.String("location", c.hist.Location()))
	return c.viewLocked()
}

// Leave releases the surface after a forced navigation away. History is
// left to the navigation that caused it.
func (c *Controller) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beginLocked()
	c.closeLocked()
}

// HandleKey applies a key press. Keys are ignored unless the overlay is Open.
func (c *Controller) HandleKey(ctx context.Context, key Key) (View, error) {
	c.mu.Lock()
	st := c.state
	v := c.viewLocked()
	c.mu.Unlock()
	if st != Open {
		return v, nil
	}
	switch key {
	case KeyLeft:
		return c.Advance(ctx, Prev)
	case KeyRight:
		return c.Advance(ctx, Next)
	case KeyEscape:
		return c.Dismiss(), nil
	default:
		return v, nil
	}
}

// Activate handles a pointer activation. The backdrop and close control
// dismiss; the image itself does not.
func (c *Controller) Activate(target Target) View {
	switch target {
	case TargetBackdrop, TargetCloseControl:
		return c.Dismiss()
	default:
		return c.View()
	}
}

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Snapshot captures the state for persistence between requests.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, ID: c.id, Scope: c.scope, Pushed: c.pushed}
}

// Restore re-enters a persisted state without fetching. Surface effects are
// reinstalled for Open and NotFound.
func (c *Controller) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beginLocked()
	c.closeLocked()
	c.scope = shot.NormalizeScope(s.Scope)
	switch s.State {
	case Open:
		c.enterOpenLocked(shot.Shot{ID: s.ID}, Position{})
	case NotFound:
		c.enterNotFoundLocked(s.ID)
	}
	c.pushed = s.Pushed && s.State != Closed
}

func (c *Controller) resolve(ctx context.Context, id, scope string) (shot.Shot, shot.Collection, bool) {
	if id == "" {
		return shot.Shot{}, nil, false
	}
	s, ok := c.src.FetchByID(ctx, id)
	if !ok {
		return shot.Shot{}, nil, false
	}
	coll := c.src.FetchCollection(ctx, scope)
	if !coll.Contains(id) {
		return shot.Shot{}, coll, false
	}
	return s, coll, true
}

func (c *Controller) beginLocked() uint64 {
	c.seq++
	return c.seq
}

func (c *Controller) checkLocked(ctx context.Context, seq uint64) error {
	if ctx.Err() != nil || c.seq != seq {
		return ErrStale
	}
	return nil
}

func (c *Controller) enterOpenLocked(s shot.Shot, pos Position) {
	c.state = Open
	c.id = s.ID
	c.current = s
	c.pos = pos
	if !c.locked {
		c.surface.LockScroll()
		c.locked = true
	}
	if c.unbind == nil {
		c.unbind = c.surface.Bind(DefaultBindings())
	}
}

func (c *Controller) enterNotFoundLocked(id string) {
	c.state = NotFound
	c.id = id
	c.current = shot.Shot{}
	c.pos = Position{}
	c.releaseBindingsLocked()
	if !c.locked {
		c.surface.LockScroll()
		c.locked = true
	}
}

func (c *Controller) closeLocked() {
	c.state = Closed
	c.id = ""
	c.current = shot.Shot{}
	c.pos = Position{}
	c.pushed = false
	c.releaseBindingsLocked()
	if c.locked {
		c.surface.UnlockScroll()
		c.locked = false
	}
}

func (c *Controller) releaseBindingsLocked() {
	if c.unbind != nil {
		c.unbind()
		c.unbind = nil
	}
}

func (c *Controller) viewLocked() View {
	v := View{
		State:    c.state,
		Shot:     c.current,
		Position: c.pos,
		Scope:    c.scope,
		Location: c.hist.Location(),
		Pushed:   c.pushed,
	}
	if v.State != Closed && v.Shot.ID == "" {
		v.Shot.ID = c.id
	}
	if c.state == Open {
		v.Bindings = DefaultBindings()
	}
	return v
}
