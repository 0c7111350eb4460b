// Package seo builds page metadata and schema.org JSON-LD payloads.
package seo

import (
	"encoding/json"
	"strings"
	"time"
)

// OpenGraph holds og:* properties.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
}

// Meta is the head metadata of a page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	// NoIndex marks terminal pages such as not-found.
	NoIndex bool
}

// Absolute joins base and p, leaving p untouched when base is empty or p is
// already absolute.
func Absolute(base, p string) string {
	if base == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

// JSON marshals v compactly; it returns "" on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func Organization(name, url, logoURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	return m
}

// Image describes one gallery image for structured data.
type Image struct {
	URL     string
	Page    string
	Caption string
	Width   int
	Height  int
	Created time.Time
}

// ImageObject returns a schema.org ImageObject.
func ImageObject(img Image) map[string]any {
	m := map[string]any{
		"@context":   "https://schema.org",
		"@type":      "ImageObject",
		"contentUrl": img.URL,
	}
	if img.Caption != "" {
		m["caption"] = img.Caption
		m["name"] = img.Caption
	}
	if img.Page != "" {
		m["url"] = img.Page
	}
	if img.Width > 0 && img.Height > 0 {
		m["width"] = img.Width
		m["height"] = img.Height
	}
	if !img.Created.IsZero() {
		m["uploadDate"] = img.Created.UTC().Format(time.RFC3339)
	}
	return m
}

// ImageGallery lists images as an ImageGallery page.
func ImageGallery(name, url string, images []Image) map[string]any {
	items := make([]map[string]any, 0, len(images))
	for _, img := range images {
		obj := ImageObject(img)
		delete(obj, "@context")
		items = append(items, obj)
	}
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "ImageGallery",
		"name":     name,
		"image":    items,
	}
	if url != "" {
		m["url"] = url
	}
	return m
}

// BreadcrumbItem is a named absolute URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}
