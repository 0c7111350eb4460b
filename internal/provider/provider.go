// Package provider adapts the hosted media API into shot values. Every
// failure degrades to an empty collection or a not-found result; callers
// never see provider errors.
package provider

import (
	"context"
	"errors"
	"regexp"

	"github.com/stevechez/influencer-portfolio/internal/shot"
)

// ErrNotConfigured is logged when the adapter has no credentials.
var ErrNotConfigured = errors.New("provider: cloud name or credentials missing")

// Provider is the read-only image source used by pages and the modal controller.
type Provider interface {
	FetchCollection(ctx context.Context, tag string) shot.Collection
	FetchByID(ctx context.Context, id string) (shot.Shot, bool)
	// ImageURL builds a delivery URL for an asset public id.
	ImageURL(publicID string, t Transform) string
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

var tagPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidID reports whether id can be safely embedded in a search expression.
func ValidID(id string) bool { return idPattern.MatchString(id) }

// ValidTag reports whether a normalized tag can be embedded in a search expression.
func ValidTag(tag string) bool { return tagPattern.MatchString(tag) }

// Lister is implemented by providers that can list a collection without
// per-shot extras such as blur placeholders.
type Lister interface {
	ListCollection(ctx context.Context, tag string) shot.Collection
}

// Lean routes FetchCollection to ListCollection when p supports it. Callers
// that only need membership and order, like the modal controller, use it.
func Lean(p Provider) Provider {
	if l, ok := p.(Lister); ok {
		return lean{Provider: p, list: l}
	}
	return p
}

type lean struct {
	Provider
	list Lister
}

func (l lean) FetchCollection(ctx context.Context, tag string) shot.Collection {
	return l.list.ListCollection(ctx, tag)
}
