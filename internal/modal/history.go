package modal

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// History is the browsing-context abstraction the controller drives.
type History interface {
	// Push adds a new entry on top of the stack.
	Push(location string)
	// Replace overwrites the top entry.
	Replace(location string)
	// Back pops the top entry and returns the location now on top. ok is
	// false when there is nothing to pop.
	Back() (location string, ok bool)
	// Location returns the top entry's location.
	Location() string
}

// Entry is one history record.
type Entry struct {
	ID       string `json:"id"`
	Location string `json:"loc"`
}

// Stack is an in-memory History that can be serialized into a session.
type Stack struct {
	mu      sync.Mutex
	entries []Entry
}

// NewStack starts a stack whose only entry is initial.
func NewStack(initial string) *Stack {
	return &Stack{entries: []Entry{newEntry(initial)}}
}

// RestoreStack rebuilds a stack from persisted entries. An empty slice
// yields a stack rooted at fallback.
func RestoreStack(entries []Entry, fallback string) *Stack {
	if len(entries) == 0 {
		return NewStack(fallback)
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Stack{entries: cp}
}

func (s *Stack) Push(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, newEntry(location))
}

func (s *Stack) Replace(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		s.entries = append(s.entries, newEntry(location))
		return
	}
	s.entries[len(s.entries)-1] = newEntry(location)
}

func (s *Stack) Back() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) <= 1 {
		return s.topLocked(), false
	}
	s.entries = s.entries[:len(s.entries)-1]
	return s.topLocked(), true
}

func (s *Stack) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topLocked()
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the stack, bottom first.
func (s *Stack) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Locations returns the entry locations, bottom first.
func (s *Stack) Locations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Location)
	}
	return out
}

func (s *Stack) topLocked() string {
	if len(s.entries) == 0 {
		return ""
	}
	return s.entries[len(s.entries)-1].Location
}

func newEntry(location string) Entry {
	return Entry{ID: ulid.Make().String(), Location: location}
}
