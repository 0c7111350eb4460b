package shot

import "strings"

// AllScope names the unfiltered collection scope.
const AllScope = "all"

// Collection is an ordered, read-only snapshot of shots in provider order
// (most recent first). Projections always return new slices.
type Collection []Shot

// Len returns the number of shots.
func (c Collection) Len() int { return len(c) }

// Empty reports whether the collection has no shots.
func (c Collection) Empty() bool { return len(c) == 0 }

// IndexOf returns the position of id, or -1.
func (c Collection) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range c {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is a member of the collection.
func (c Collection) Contains(id string) bool { return c.IndexOf(id) >= 0 }

// Find returns the shot with id.
func (c Collection) Find(id string) (Shot, bool) {
	if i := c.IndexOf(id); i >= 0 {
		return c[i], true
	}
	return Shot{}, false
}

// IDs returns the shot ids in order.
func (c Collection) IDs() []string {
	out := make([]string, 0, len(c))
	for _, s := range c {
		out = append(out, s.ID)
	}
	return out
}

// Filter returns the shots tagged with tag. An empty tag or "all" yields a
// copy of the whole collection.
func (c Collection) Filter(tag string) Collection {
	if IsAllScope(tag) {
		out := make(Collection, len(c))
		copy(out, c)
		return out
	}
	out := make(Collection, 0, len(c))
	for _, s := range c {
		if s.HasTag(tag) {
			out = append(out, s)
		}
	}
	return out
}

// IsAllScope reports whether scope means "unfiltered".
func IsAllScope(scope string) bool {
	scope = strings.TrimSpace(scope)
	return scope == "" || strings.EqualFold(scope, AllScope)
}

// NormalizeScope maps a user-supplied scope to its canonical form: "" for
// all, otherwise the lowercased tag.
func NormalizeScope(scope string) string {
	if IsAllScope(scope) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(scope))
}
