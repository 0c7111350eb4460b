package modal

import (
	"strings"

	"github.com/stevechez/influencer-portfolio/internal/shot"
)

// Direction selects a lateral move inside the overlay.
type Direction int

const (
	Next Direction = iota + 1
	Prev
)

func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Prev:
		return "prev"
	default:
		return "unknown"
	}
}

// ParseDirection maps "next"/"prev" to a Direction.
func ParseDirection(v string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "next":
		return Next, true
	case "prev", "previous":
		return Prev, true
	default:
		return 0, false
	}
}

// Position is the derived navigation state of one shot inside a collection.
type Position struct {
	Index  int
	Total  int
	PrevID string
	NextID string
}

// Locate computes the circular neighbors of id. ok is false when the
// collection is empty or id is not a member.
func Locate(c shot.Collection, id string) (Position, bool) {
	n := c.Len()
	if n == 0 {
		return Position{}, false
	}
	i := c.IndexOf(id)
	if i < 0 {
		return Position{}, false
	}
	return Position{
		Index:  i,
		Total:  n,
		NextID: c[(i+1)%n].ID,
		PrevID: c[(i-1+n)%n].ID,
	}, true
}

// Neighbor returns the id reached by moving in dir.
func (p Position) Neighbor(dir Direction) string {
	if dir == Prev {
		return p.PrevID
	}
	return p.NextID
}

// Single reports whether the shot is the only member of its collection.
func (p Position) Single() bool { return p.Total == 1 }

// Ordinal is the one-based index used for "3 / 12" counters.
func (p Position) Ordinal() int { return p.Index + 1 }
