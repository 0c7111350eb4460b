package httpserver

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/stevechez/influencer-portfolio/internal/gallery"
	"github.com/stevechez/influencer-portfolio/internal/modal"
	"github.com/stevechez/influencer-portfolio/internal/nav"
	"github.com/stevechez/influencer-portfolio/internal/seo"
	"github.com/stevechez/influencer-portfolio/internal/shot"
)

type siteView struct {
	Name string
	URL  string
}

// pageData is the root value every page template receives.
type pageData struct {
	Site    siteView
	Meta    seo.Meta
	JSONLD  []any
	Nav     []nav.RenderedItem
	Crumbs  []nav.Crumb
	Page    any
	Overlay *shotView
}

type talentCard struct {
	Slug  string
	Name  string
	Title string
	Cover string
	Href  string
}

type homePage struct {
	Talent []talentCard
}

type galleryPage struct {
	Heading    string
	Subheading string
	Bio        template.HTML
	Grid       gallery.Grid
}

type notFoundPage struct {
	Message string
}

// shotView renders one controller state, either as the overlay fragment or
// as the standalone page.
type shotView struct {
	State        string
	Shot         shot.Shot
	Position     modal.Position
	Scope        string
	Location     string
	PrevHref     string
	NextHref     string
	CloseHref    string
	BackdropHref string
	Pushed       bool
	ScrollLock   bool
	Keys         string
	Overlay      bool
}

func newShotView(v modal.View, surf *pageSurface, overlay bool) shotView {
	id := v.Shot.ID
	return shotView{
		State:        v.State.String(),
		Shot:         v.Shot,
		Position:     v.Position,
		Scope:        v.Scope,
		Location:     v.Location,
		PrevHref:     lateralHref(id, v.Scope, modal.Prev),
		NextHref:     lateralHref(id, v.Scope, modal.Next),
		CloseHref:    closeHref(id, v.Scope, ""),
		BackdropHref: closeHref(id, v.Scope, "backdrop"),
		Pushed:       v.Pushed,
		ScrollLock:   surf.locked,
		Keys:         surf.keys(),
		Overlay:      overlay,
	}
}

// lateralHref addresses a move from the shot id in dir.
func lateralHref(id, scope string, dir modal.Direction) string {
	return withQuery(gallery.ShotHref(id, scope), "dir", dir.String())
}

func closeHref(id, scope, via string) string {
	href := "/p/" + url.PathEscape(id) + "/close"
	if scope = shot.NormalizeScope(scope); scope != "" {
		href = withQuery(href, "in", scope)
	}
	if via != "" {
		href = withQuery(href, "via", via)
	}
	return href
}

// closedLocation is the grid a scope's overlay dismisses to when no
// earlier entry exists.
func closedLocation(scope string) string {
	if scope = shot.NormalizeScope(scope); scope != "" {
		return "/talent/" + url.PathEscape(scope)
	}
	return "/work"
}

func withQuery(href, key, value string) string {
	sep := "?"
	if strings.Contains(href, "?") {
		sep = "&"
	}
	return href + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

func parseTarget(v string) modal.Target {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "backdrop":
		return modal.TargetBackdrop
	case "image":
		return modal.TargetImage
	default:
		return modal.TargetCloseControl
	}
}
