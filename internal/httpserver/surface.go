package httpserver

import (
	"strings"

	"github.com/stevechez/influencer-portfolio/internal/modal"
)

// pageSurface records the controller's page-level effects for one request.
// The rendered overlay carries them to the browser as data attributes, and
// the client script applies them.
type pageSurface struct {
	locked   bool
	bindings []modal.Binding
}

func (s *pageSurface) LockScroll()   { s.locked = true }
func (s *pageSurface) UnlockScroll() { s.locked = false }

func (s *pageSurface) Bind(b []modal.Binding) func() {
	s.bindings = append([]modal.Binding(nil), b...)
	return func() { s.bindings = nil }
}

// keys encodes the active bindings as "Key:action" pairs.
func (s *pageSurface) keys() string {
	pairs := make([]string, 0, len(s.bindings))
	for _, b := range s.bindings {
		pairs = append(pairs, string(b.Key)+":"+string(b.Action))
	}
	return strings.Join(pairs, " ")
}
