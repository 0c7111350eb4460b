// Package gallery projects a shot collection into the grid the pages render:
// the visible subset for a filter, the category bar and masonry columns.
package gallery

import (
	"net/url"
	"sort"
	"strings"

	"github.com/stevechez/influencer-portfolio/internal/shot"
)

// ReservedPrefix marks tags that identify talent rather than content.
const ReservedPrefix = "model"

// DefaultColumns is the masonry column count when none is configured.
const DefaultColumns = 3

// Options control a grid projection.
type Options struct {
	// Filter is the active category; empty or "all" shows everything.
	Filter string
	// Columns is the masonry column count.
	Columns int
	// Preferred lists categories shown first, in order, when present.
	Preferred []string
	// Scope is the tag the collection was fetched for; empty means all.
	Scope string
	// BasePath is the page the grid lives on, used for no-JS filter links.
	BasePath string
}

// TagSeparator joins card tags. Provider tags may contain spaces.
const TagSeparator = "|"

// Card is one activatable tile.
type Card struct {
	Shot shot.Shot
	// Href addresses the shot's overlay/page.
	Href string
	// Tags is the TagSeparator-joined tag list used by the client-side filter.
	Tags string
	// Ratio is the padding-bottom percentage that reserves the tile's box.
	Ratio float64
	Index int
}

// Category is one entry of the filter bar.
type Category struct {
	Name   string
	Href   string
	Active bool
}

// Grid is the render-ready projection.
type Grid struct {
	Filter     string
	Scope      string
	Total      int
	Visible    int
	Categories []Category
	Columns    [][]Card
	Cards      []Card
	Empty      bool
}

// ShowCategories reports whether the filter bar has anything besides "all".
func (g Grid) ShowCategories() bool { return len(g.Categories) > 1 }

// Build projects c for rendering. It never mutates c.
func Build(c shot.Collection, opts Options) Grid {
	filter := NormalizeFilter(opts.Filter)
	scope := shot.NormalizeScope(opts.Scope)
	visible := Visible(c, filter)

	g := Grid{
		Filter:  filter,
		Scope:   scope,
		Total:   c.Len(),
		Visible: visible.Len(),
		Empty:   visible.Empty(),
	}

	for i, s := range visible {
		g.Cards = append(g.Cards, Card{
			Shot:  s,
			Href:  ShotHref(s.ID, scope),
			Tags:  strings.Join(shot.NormalizeTags(s.Tags), TagSeparator),
			Ratio: s.AspectRatio() * 100,
			Index: i,
		})
	}
	g.Columns = Masonry(g.Cards, opts.Columns)

	for _, name := range Categories(c, opts.Preferred) {
		g.Categories = append(g.Categories, Category{
			Name:   name,
			Href:   filterHref(opts.BasePath, name),
			Active: name == filter,
		})
	}
	return g
}

// NormalizeFilter lowercases the filter and maps empty to "all".
func NormalizeFilter(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	if f == "" {
		return shot.AllScope
	}
	return f
}

// Visible returns the subset of c shown for filter.
func Visible(c shot.Collection, filter string) shot.Collection {
	return c.Filter(filter)
}

// Categories returns "all" followed by the distinct non-reserved tags of c:
// preferred names first in the given order, then the rest alphabetically.
func Categories(c shot.Collection, preferred []string) []string {
	seen := map[string]struct{}{}
	for _, s := range c {
		for _, t := range shot.NormalizeTags(s.Tags) {
			if t == shot.AllScope || strings.HasPrefix(t, ReservedPrefix) {
				continue
			}
			seen[t] = struct{}{}
		}
	}

	out := []string{shot.AllScope}
	for _, p := range shot.NormalizeTags(preferred) {
		if _, ok := seen[p]; ok {
			out = append(out, p)
			delete(seen, p)
		}
	}
	rest := make([]string, 0, len(seen))
	for t := range seen {
		rest = append(rest, t)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Masonry distributes cards into n columns, each card going to the column
// with the smallest accumulated height. Ties pick the leftmost column.
func Masonry(cards []Card, n int) [][]Card {
	if n <= 0 {
		n = DefaultColumns
	}
	cols := make([][]Card, n)
	heights := make([]float64, n)
	for _, card := range cards {
		best := 0
		for i := 1; i < n; i++ {
			if heights[i] < heights[best] {
				best = i
			}
		}
		cols[best] = append(cols[best], card)
		heights[best] += card.Shot.AspectRatio()
	}
	return cols
}

// ShotHref is the location of a shot opened from a grid over scope.
func ShotHref(id, scope string) string {
	href := "/p/" + url.PathEscape(id)
	if scope = shot.NormalizeScope(scope); scope != "" {
		href += "?in=" + url.QueryEscape(scope)
	}
	return href
}

func filterHref(base, name string) string {
	if base == "" {
		base = "/work"
	}
	if name == shot.AllScope {
		return base
	}
	return base + "?filter=" + url.QueryEscape(name)
}
