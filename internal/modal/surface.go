package modal

// Key is a keyboard key name as reported by KeyboardEvent.key.
type Key string

const (
	KeyLeft   Key = "ArrowLeft"
	KeyRight  Key = "ArrowRight"
	KeyEscape Key = "Escape"
)

// Action is what a key binding triggers.
type Action string

const (
	ActionPrev    Action = "prev"
	ActionNext    Action = "next"
	ActionDismiss Action = "dismiss"
)

// Binding maps a key to an action while the overlay is open.
type Binding struct {
	Key    Key
	Action Action
}

// DefaultBindings are installed on every entry into the Open state.
func DefaultBindings() []Binding {
	return []Binding{
		{Key: KeyLeft, Action: ActionPrev},
		{Key: KeyRight, Action: ActionNext},
		{Key: KeyEscape, Action: ActionDismiss},
	}
}

// Target identifies what the user activated inside the overlay.
type Target int

const (
	TargetBackdrop Target = iota + 1
	TargetCloseControl
	TargetImage
)

// Surface owns the page-level resources the overlay borrows: the scroll
// lock and global key listeners.
type Surface interface {
	LockScroll()
	UnlockScroll()
	// Bind installs listeners and returns the function that removes them.
	Bind(bindings []Binding) (unbind func())
}

// NopSurface ignores all surface effects.
type NopSurface struct{}

func (NopSurface) LockScroll()   {}
func (NopSurface) UnlockScroll() {}

func (NopSurface) Bind([]Binding) func() { return func() {} }
