package shot

import (
	"strings"
	"time"
)

// Shot is one portfolio image as resolved from the media provider.
type Shot struct {
	ID              string
	PublicID        string
	URL             string
	Width           int
	Height          int
	Caption         string
	Tags            []string
	BlurPlaceholder string
	Format          string
	Bytes           int64
	CreatedAt       time.Time
}

// HasTag reports whether the shot carries tag. Comparison is case-insensitive.
func (s Shot) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// AspectRatio returns height/width, or 1 when dimensions are unknown.
func (s Shot) AspectRatio() float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return 1
	}
	return float64(s.Height) / float64(s.Width)
}

// Megapixels returns the pixel count in millions.
func (s Shot) Megapixels() float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	return float64(s.Width) * float64(s.Height) / 1e6
}

// HasPlaceholder reports whether a blurred placeholder is available.
func (s Shot) HasPlaceholder() bool { return s.BlurPlaceholder != "" }

// NormalizeTags lowercases, trims and deduplicates tags while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
