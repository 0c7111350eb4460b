package provider

import (
	"sort"
	"strconv"
	"strings"
)

// Transform is a delivery-time image transformation. Zero fields are omitted.
type Transform struct {
	Width       int
	Height      int
	AspectRatio string
	Crop        string
	Gravity     string
	Zoom        float64
	Effect      string
	Quality     string
	Format      string
}

// Display is the transformation applied to every gallery image.
var Display = Transform{Format: "auto", Quality: "auto"}

// Placeholder is the tiny blurred rendition inlined as a data URI.
var Placeholder = Transform{Width: 100, Effect: "blur:1000", Quality: "auto", Format: "webp"}

// Cover is the talent roster card rendition.
var Cover = Transform{Width: 1000, AspectRatio: "3:4", Crop: "fill", Gravity: "auto", Effect: "sharpen"}

// String renders the transformation as a URL path segment with
// alphabetically ordered components, e.g. "ar_16:9,c_fill,g_auto,w_1000".
func (t Transform) String() string {
	parts := make([]string, 0, 9)
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"_"+value)
		}
	}
	add("ar", t.AspectRatio)
	add("c", t.Crop)
	add("e", t.Effect)
	add("f", t.Format)
	add("g", t.Gravity)
	if t.Height > 0 {
		add("h", strconv.Itoa(t.Height))
	}
	add("q", t.Quality)
	if t.Width > 0 {
		add("w", strconv.Itoa(t.Width))
	}
	if t.Zoom > 0 {
		add("z", strconv.FormatFloat(t.Zoom, 'f', -1, 64))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// IsZero reports whether the transform renders to nothing.
func (t Transform) IsZero() bool { return t == Transform{} }

// ParseTransform reads a comma separated transformation string. Unknown
// components are ignored.
func ParseTransform(s string) Transform {
	var t Transform
	for _, part := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "_")
		if !ok || value == "" {
			continue
		}
		switch key {
		case "ar":
			t.AspectRatio = value
		case "c":
			t.Crop = value
		case "e":
			t.Effect = value
		case "f":
			t.Format = value
		case "g":
			t.Gravity = value
		case "h":
			t.Height, _ = strconv.Atoi(value)
		case "q":
			t.Quality = value
		case "w":
			t.Width, _ = strconv.Atoi(value)
		case "z":
			t.Zoom, _ = strconv.ParseFloat(value, 64)
		}
	}
	return t
}
