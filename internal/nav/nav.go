package nav

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Item is a top-level navigation entry.
type Item struct {
	Path  string
	Label string
}

// RenderedItem is the template view of an Item.
type RenderedItem struct {
	Href   string
	Label  string
	Active bool
}

// Crumb is one breadcrumb entry.
type Crumb struct {
	Href   string
	Label  string
	Active bool
}

// Main is the site header navigation.
var Main = []Item{
	{Path: "/", Label: "Talent"},
	{Path: "/work", Label: "Work"},
}

// sections label path prefixes that have no index page of their own.
var sections = map[string]Crumb{
	"talent": {Href: "/", Label: "Talent"},
	"p":      {Href: "/work", Label: "Work"},
	"work":   {Href: "/work", Label: "Work"},
}

var titler = cases.Title(language.Und)

// Build marks the item matching currentPath as active.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{Href: it.Path, Label: it.Label, Active: isActive(it.Path, currentPath)})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/" || strings.HasPrefix(currentPath, "/talent/")
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/") || strings.HasPrefix(currentPath, "/p/")
}

// Breadcrumbs derives the trail for currentPath. leaf, when set, labels the
// final crumb (a talent name or shot caption) instead of the raw segment.
func Breadcrumbs(currentPath, leaf string) []Crumb {
	crumbs := []Crumb{{Href: "/", Label: "Home", Active: currentPath == "" || currentPath == "/"}}
	clean := path.Clean("/" + currentPath)
	if clean == "/" {
		return crumbs
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")

	if sec, ok := sections[parts[0]]; ok && sec.Href != "/" {
		sec.Active = len(parts) == 1
		crumbs = append(crumbs, sec)
	}
	if len(parts) == 1 {
		return crumbs
	}
	last := parts[len(parts)-1]
	label := strings.TrimSpace(leaf)
	if label == "" {
		label = titleFromSegment(last)
	}
	crumbs = append(crumbs, Crumb{Href: clean, Label: label, Active: true})
	return crumbs
}

func titleFromSegment(seg string) string {
	seg = strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	return titler.String(seg)
}
