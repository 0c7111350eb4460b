package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommw "github.com/stevechez/influencer-portfolio/internal/httpserver/middleware"
	"github.com/stevechez/influencer-portfolio/internal/gallery"
	"github.com/stevechez/influencer-portfolio/internal/modal"
	"github.com/stevechez/influencer-portfolio/internal/nav"
	"github.com/stevechez/influencer-portfolio/internal/provider"
	"github.com/stevechez/influencer-portfolio/internal/requestctx"
	"github.com/stevechez/influencer-portfolio/internal/roster"
	"github.com/stevechez/influencer-portfolio/internal/seo"
	"github.com/stevechez/influencer-portfolio/internal/shot"
)

// overlayTarget is the element id overlay fragments swap into.
const overlayTarget = "modal"

const (
	homeTagline     = "Digital Model Agency"
	homeDescription = "A curated collective of AI personalities based in Rio del Mar."
	talentSuffix    = "Agency Portfolio"
)

type server struct {
	provider  provider.Provider
	// nav feeds the modal controller, which needs membership and order only.
	nav       provider.Provider
	roster    *roster.Roster
	render    *renderer
	site      siteView
	columns   int
	preferred []string
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	custommw.GetSession(r).ResetNavigation("/")

	talent := s.roster.All()
	cards := make([]talentCard, 0, len(talent))
	for _, t := range talent {
		cards = append(cards, talentCard{
			Slug:  t.Slug,
			Name:  t.Name,
			Title: t.Title,
			Cover: s.coverURL(t),
			Href:  "/talent/" + t.Slug,
		})
	}

	data := s.pageData(r, seo.Meta{
		Title:       s.site.Name + " | " + homeTagline,
		Description: homeDescription,
	}, "")
	data.JSONLD = []any{seo.Organization(s.site.Name, s.site.URL, "")}
	data.Page = homePage{Talent: cards}
	s.renderPage(w, r, http.StatusOK, "home", data)
}

func (s *server) coverURL(t roster.Talent) string {
	tr := provider.Cover
	if t.Transform != "" {
		tr = provider.ParseTransform(t.Transform)
	}
	return s.provider.ImageURL(t.Cover, tr)
}

func (s *server) handleWork(w http.ResponseWriter, r *http.Request) {
	coll := s.provider.FetchCollection(r.Context(), "")
	if r.Context().Err() != nil {
		return
	}
	s.renderGallery(w, r, coll, "", galleryPage{Heading: "Work"}, "Work | "+s.site.Name, "")
}

func (s *server) handleTalent(w http.ResponseWriter, r *http.Request) {
	slugParam := chi.URLParam(r, "slug")
	tag := roster.Tag(slugParam)
	if !provider.ValidTag(tag) {
		s.renderNotFound(w, r, "")
		return
	}
	coll := s.provider.FetchCollection(r.Context(), tag)
	if r.Context().Err() != nil {
		return
	}

	page := galleryPage{Heading: roster.DisplayName(tag)}
	if t, err := s.roster.Find(tag); err == nil {
		page.Heading = t.Name
		page.Subheading = t.Title
		page.Bio = t.Bio
	}
	if coll.Empty() {
		s.renderNotFound(w, r, "No work from "+page.Heading+" yet.")
		return
	}
	s.renderGallery(w, r, coll, tag, page, page.Heading+" | "+talentSuffix, page.Heading)
}

func (s *server) renderGallery(w http.ResponseWriter, r *http.Request, coll shot.Collection, scope string, page galleryPage, title, leaf string) {
	custommw.GetSession(r).ResetNavigation(r.URL.RequestURI())

	page.Grid = gallery.Build(coll, gallery.Options{
		Filter:    r.URL.Query().Get("filter"),
		Columns:   s.columns,
		Preferred: s.preferred,
		Scope:     scope,
		BasePath:  r.URL.Path,
	})

	canonical := seo.Absolute(s.site.URL, r.URL.Path)
	data := s.pageData(r, seo.Meta{Title: title, Description: page.Subheading, Canonical: canonical}, leaf)
	if !coll.Empty() {
		data.Meta.OG.Image = coll[0].URL
	}
	images := make([]seo.Image, 0, len(page.Grid.Cards))
	for _, c := range page.Grid.Cards {
		images = append(images, seo.Image{
			URL:     c.Shot.URL,
			Page:    seo.Absolute(s.site.URL, c.Href),
			Caption: c.Shot.Caption,
			Width:   c.Shot.Width,
			Height:  c.Shot.Height,
			Created: c.Shot.CreatedAt,
		})
	}
	data.JSONLD = []any{seo.ImageGallery(page.Heading, canonical, images), s.breadcrumbLD(data.Crumbs)}
	data.Page = page
	s.renderPage(w, r, http.StatusOK, "gallery", data)
}

// handleShot serves /p/{id}: the overlay fragment when htmx targets the
// overlay container, the standalone page otherwise. A dir parameter turns
// the request into a lateral move from id.
func (s *server) handleShot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	scope := shot.NormalizeScope(q.Get("in"))
	hx := custommw.HTMXInfoFromContext(ctx)
	overlay := hx.Targets(overlayTarget)

	if dir, ok := modal.ParseDirection(q.Get("dir")); ok {
		s.advance(w, r, id, scope, dir, overlay)
		return
	}

	sess := custommw.GetSession(r)
	surf := &pageSurface{}
	var stack *modal.Stack
	if overlay {
		// Activated from a grid: the page under the overlay is the only
		// entry beneath it.
		stack = modal.NewStack(firstNonEmpty(hx.CurrentLocation(), closedLocation(scope)))
	} else {
		stack = restoreLanding(sess, id, scope)
	}
	ctrl := s.controller(r, stack, scope, surf)
	if !overlay && sess.Modal.State != modal.Closed && sess.Modal.ID == id && sess.Modal.Scope == scope {
		ctrl.Restore(sess.Modal)
	}

	view, err := ctrl.Open(ctx, id)
	if err != nil {
		s.discard(r, "open", err)
		return
	}
	sess.SaveNavigation(stack.Entries(), ctrl.Snapshot())
	if overlay {
		w.Header().Set("HX-Push-Url", view.Location)
	}
	s.renderShot(w, r, view, surf, overlay)
}

func (s *server) advance(w http.ResponseWriter, r *http.Request, id, scope string, dir modal.Direction, overlay bool) {
	sess := custommw.GetSession(r)
	surf := &pageSurface{}
	stack, ctrl := s.resume(r, sess, id, scope, surf)

	view, err := ctrl.Advance(r.Context(), dir)
	if errors.Is(err, modal.ErrNotOpen) {
		s.renderShot(w, r, view, surf, overlay)
		return
	}
	if err != nil {
		s.discard(r, "advance", err)
		return
	}
	sess.SaveNavigation(stack.Entries(), ctrl.Snapshot())

	switch {
	case overlay:
		if view.IsOpen() {
			w.Header().Set("HX-Replace-Url", view.Location)
		}
		s.renderShot(w, r, view, surf, true)
	case view.IsOpen():
		http.Redirect(w, r, view.Location, http.StatusSeeOther)
	default:
		s.renderShot(w, r, view, surf, false)
	}
}

// handleClose dismisses without script: the stack pops back to the entry
// beneath the first open and the browser is redirected there.
func (s *server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	scope := shot.NormalizeScope(r.URL.Query().Get("in"))
	sess := custommw.GetSession(r)
	stack, ctrl := s.resume(r, sess, id, scope, &pageSurface{})

	view := ctrl.Activate(parseTarget(r.URL.Query().Get("via")))
	sess.SaveNavigation(stack.Entries(), ctrl.Snapshot())
	http.Redirect(w, r, view.Location, http.StatusSeeOther)
}

// resume rebuilds the controller for a follow-up request on an open overlay.
// A request for a different shot of the same open scope takes over its
// history entry; with no open overlay the shot is treated as landed on
// directly, owning no entry.
func (s *server) resume(r *http.Request, sess *custommw.SessionData, id, scope string, surf *pageSurface) (*modal.Stack, *modal.Controller) {
	loc := gallery.ShotHref(id, scope)
	stack := modal.RestoreStack(sess.Nav, loc)
	snap := sess.Modal
	if snap.State == modal.Closed || snap.ID != id || snap.Scope != scope {
		pushed := snap.State != modal.Closed && snap.Scope == scope && snap.Pushed
		snap = modal.Snapshot{State: modal.Open, ID: id, Scope: scope, Pushed: pushed}
		if stack.Location() != loc {
			stack.Replace(loc)
		}
	}
	ctrl := s.controller(r, stack, scope, surf)
	ctrl.Restore(snap)
	return stack, ctrl
}

// restoreLanding rebuilds the stack beneath a page-mode open. An overlay
// still recorded for another shot was closed client-side without telling
// the server, so its entry is unwound before the new open pushes.
func restoreLanding(sess *custommw.SessionData, id, scope string) *modal.Stack {
	loc := gallery.ShotHref(id, scope)
	stack := modal.RestoreStack(sess.Nav, loc)
	stale := sess.Modal
	if stale.State == modal.Closed || (stale.ID == id && stale.Scope == scope) {
		return stack
	}
	if stale.Pushed {
		if _, ok := stack.Back(); ok {
			return stack
		}
	}
	return modal.NewStack(loc)
}

func (s *server) controller(r *http.Request, stack *modal.Stack, scope string, surf modal.Surface) *modal.Controller {
	return modal.New(s.nav, stack,
		modal.WithScope(scope),
		modal.WithSurface(surf),
		modal.WithLocations(modal.Locations{Shot: gallery.ShotHref, Closed: closedLocation}),
		modal.WithLogger(requestctx.Logger(r.Context())),
	)
}

func (s *server) renderShot(w http.ResponseWriter, r *http.Request, v modal.View, surf *pageSurface, overlay bool) {
	sv := newShotView(v, surf, overlay)
	status := http.StatusOK
	if v.State == modal.NotFound {
		status = http.StatusNotFound
	}
	if overlay {
		if err := s.render.fragment(w, status, "overlay", sv); err != nil {
			s.fail(w, r, err)
		}
		return
	}
	if v.State == modal.NotFound {
		s.renderNotFound(w, r, "This piece is no longer in the collection.")
		return
	}

	page := gallery.ShotHref(v.Shot.ID, v.Scope)
	data := s.pageData(r, seo.Meta{
		Title:       v.Shot.Caption + " | " + s.site.Name,
		Description: v.Shot.Caption,
		Canonical:   seo.Absolute(s.site.URL, r.URL.Path),
		OG:          seo.OpenGraph{Image: v.Shot.URL, Type: "article"},
	}, v.Shot.Caption)
	data.JSONLD = []any{
		seo.ImageObject(seo.Image{
			URL:     v.Shot.URL,
			Page:    seo.Absolute(s.site.URL, page),
			Caption: v.Shot.Caption,
			Width:   v.Shot.Width,
			Height:  v.Shot.Height,
			Created: v.Shot.CreatedAt,
		}),
		s.breadcrumbLD(data.Crumbs),
	}
	data.Page = sv
	s.renderPage(w, r, status, "shot", data)
}

func (s *server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderNotFound(w, r, "")
}

func (s *server) renderNotFound(w http.ResponseWriter, r *http.Request, msg string) {
	data := s.pageData(r, seo.Meta{Title: "Not found | " + s.site.Name, NoIndex: true}, "")
	data.Page = notFoundPage{Message: msg}
	s.renderPage(w, r, http.StatusNotFound, "notfound", data)
}

func (s *server) handleError(w http.ResponseWriter, r *http.Request) {
	data := s.pageData(r, seo.Meta{Title: "Error | " + s.site.Name, NoIndex: true}, "")
	data.Page = notFoundPage{}
	if err := s.render.page(w, http.StatusInternalServerError, "error", data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *server) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if err := s.render.page(w, status, page, data); err != nil {
		s.fail(w, r, err)
	}
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Error("render failed", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// discard drops the response of a transition whose request went away.
func (s *server) discard(r *http.Request, op string, err error) {
	logger := requestctx.Logger(r.Context())
	if errors.Is(err, modal.ErrStale) {
		logger.Debug("modal transition discarded", zap.String("operation", op), zap.Error(r.Context().Err()))
		return
	}
	logger.Warn("modal transition failed", zap.String("operation", op), zap.Error(err))
}

func (s *server) pageData(r *http.Request, meta seo.Meta, leaf string) pageData {
	return pageData{
		Site:   s.site,
		Meta:   meta,
		Nav:    nav.Build(r.URL.Path),
		Crumbs: nav.Breadcrumbs(r.URL.Path, leaf),
	}
}

func (s *server) breadcrumbLD(crumbs []nav.Crumb) map[string]any {
	items := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		items = append(items, seo.BreadcrumbItem{Name: c.Label, Item: seo.Absolute(s.site.URL, c.Href)})
	}
	return seo.BreadcrumbList(items)
}
