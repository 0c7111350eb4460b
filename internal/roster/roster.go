// Package roster loads the represented talent list shown on the home page.
package roster

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ReservedPrefix is the tag namespace that identifies talent.
const ReservedPrefix = "model-"

// ErrNotFound is returned when a slug is not on the roster.
var ErrNotFound = errors.New("roster: talent not found")

//go:embed roster.yaml
var defaultRoster []byte

// Talent is one represented personality.
type Talent struct {
	Slug      string
	Name      string
	Title     string
	Cover     string
	Transform string
	Bio       template.HTML
}

// Tag is the provider tag whose collection makes up the talent's portfolio.
func (t Talent) Tag() string { return Tag(t.Slug) }

// Roster is an ordered, immutable talent list.
type Roster struct {
	talent []Talent
	bySlug map[string]int
}

type fileFormat struct {
	Talent []struct {
		Slug      string `yaml:"slug"`
		Name      string `yaml:"name"`
		Title     string `yaml:"title"`
		Cover     string `yaml:"cover"`
		Transform string `yaml:"transform"`
		Bio       string `yaml:"bio"`
	} `yaml:"talent"`
}

var (
	markdown = goldmark.New()
	policy   = bluemonday.UGCPolicy()
)

// Default returns the embedded roster.
func Default() (*Roster, error) {
	return Parse(bytes.NewReader(defaultRoster))
}

// LoadFile reads a roster from path, or the embedded default when path is empty.
func LoadFile(path string) (*Roster, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a roster document. Slugs are normalized and must be unique.
func Parse(r io.Reader) (*Roster, error) {
	var doc fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("roster: decode: %w", err)
	}

	ro := &Roster{bySlug: make(map[string]int, len(doc.Talent))}
	for i, entry := range doc.Talent {
		s := slug.Make(firstNonEmpty(entry.Slug, entry.Name))
		if s == "" {
			return nil, fmt.Errorf("roster: entry %d has no slug or name", i)
		}
		if _, dup := ro.bySlug[s]; dup {
			return nil, fmt.Errorf("roster: duplicate slug %q", s)
		}
		bio, err := renderBio(entry.Bio)
		if err != nil {
			return nil, fmt.Errorf("roster: %s bio: %w", s, err)
		}
		ro.bySlug[s] = len(ro.talent)
		ro.talent = append(ro.talent, Talent{
			Slug:      s,
			Name:      firstNonEmpty(entry.Name, DisplayName(s)),
			Title:     strings.TrimSpace(entry.Title),
			Cover:     strings.TrimSpace(entry.Cover),
			Transform: strings.TrimSpace(entry.Transform),
			Bio:       bio,
		})
	}
	return ro, nil
}

// All returns the talent in file order.
func (r *Roster) All() []Talent {
	out := make([]Talent, len(r.talent))
	copy(out, r.talent)
	return out
}

// Len returns the number of talents.
func (r *Roster) Len() int { return len(r.talent) }

// Find looks a talent up by slug, case-insensitively.
func (r *Roster) Find(s string) (Talent, error) {
	if i, ok := r.bySlug[slug.Make(s)]; ok {
		return r.talent[i], nil
	}
	return Talent{}, fmt.Errorf("%w: %s", ErrNotFound, s)
}

// Tag maps a talent slug to its provider tag.
func Tag(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// DisplayName derives a heading from a slug: "model-sarah-jane" becomes
// "Sarah Jane".
func DisplayName(s string) string {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ReservedPrefix)
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' }), " ")
	return cases.Title(language.Und).String(s)
}

func renderBio(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
