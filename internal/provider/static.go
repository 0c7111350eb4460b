package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/stevechez/influencer-portfolio/internal/shot"
)

// Static serves a fixed, in-memory collection. It backs demo mode and tests.
type Static struct {
	mu    sync.RWMutex
	shots shot.Collection
	base  string
	limit int
}

// NewStatic returns an adapter over shots in the given order. Relative image
// ids resolve under base.
func NewStatic(base string, shots ...shot.Shot) *Static {
	s := &Static{base: strings.TrimRight(base, "/"), limit: defaultMaxResults}
	s.Set(shots...)
	return s
}

// Set replaces the served collection. Shots without a URL get one built from
// their public id.
func (s *Static) Set(shots ...shot.Shot) {
	c := make(shot.Collection, 0, len(shots))
	for _, sh := range shots {
		sh.Tags = shot.NormalizeTags(sh.Tags)
		if sh.URL == "" {
			sh.URL = s.ImageURL(firstNonEmpty(sh.PublicID, sh.ID), Display)
		}
		c = append(c, sh)
	}
	s.mu.Lock()
	s.shots = c
	s.mu.Unlock()
}

// FetchCollection returns a copy of the shots tagged with tag, capped like
// the remote adapter.
func (s *Static) FetchCollection(ctx context.Context, tag string) shot.Collection {
	if ctx.Err() != nil {
		return shot.Collection{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.shots.Filter(tag)
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out
}

// FetchByID looks a shot up by id.
func (s *Static) FetchByID(ctx context.Context, id string) (shot.Shot, bool) {
	if ctx.Err() != nil {
		return shot.Shot{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shots.Find(strings.TrimSpace(id))
}

// ImageURL resolves publicID under the static base. Transformations are
// not applied.
func (s *Static) ImageURL(publicID string, _ Transform) string {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" || strings.HasPrefix(publicID, "http://") || strings.HasPrefix(publicID, "https://") || strings.HasPrefix(publicID, "/") {
		return publicID
	}
	return s.base + "/" + publicID
}
