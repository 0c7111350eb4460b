package httpserver_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevechez/influencer-portfolio/internal/provider"
	"github.com/stevechez/influencer-portfolio/internal/testutil"
)

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) doc(t *testing.T) *goquery.Document {
	t.Helper()
	return testutil.ParseHTML(t, r.body)
}

func get(t *testing.T, client *http.Client, url string, headers map[string]string) response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: body}
}

func overlayHeaders(current string) map[string]string {
	return map[string]string{
		"HX-Request":     "true",
		"HX-Target":      "modal",
		"HX-Current-URL": current,
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := get(t, testutil.NewClient(t), ts.URL+"/healthz", nil)

	require.Equal(t, http.StatusOK, res.status)
	require.Equal(t, "ok", string(res.body))
}

func TestHomeRendersRoster(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := get(t, testutil.NewClient(t), ts.URL+"/", nil)
	require.Equal(t, http.StatusOK, res.status)

	doc := res.doc(t)
	require.Equal(t, "Velvet Studio | Digital Model Agency", doc.Find("title").First().Text())

	cards := doc.Find(".talent-card")
	require.Equal(t, 2, cards.Length())
	first := cards.First()
	assert.Equal(t, "model-sarah", first.AttrOr("data-talent", ""))
	assert.Equal(t, "/talent/model-sarah", first.Find("a").AttrOr("href", ""))
	assert.Contains(t, first.Find("img").AttrOr("src", ""), "res.cloudinary.com")
	assert.Equal(t, "Sarah", strings.TrimSpace(first.Find("h2").Text()))

	ld := doc.Find(`script[type="application/ld+json"]`).First().Text()
	assert.Contains(t, ld, `"Organization"`)
}

func TestWorkRendersGridWithCategories(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithPreferredTags("night"))
	res := get(t, testutil.NewClient(t), ts.URL+"/work", nil)
	require.Equal(t, http.StatusOK, res.status)

	doc := res.doc(t)
	require.Equal(t, 8, doc.Find(".card").Length())
	require.Equal(t, 3, doc.Find(".grid-column").Length())

	cats := testutil.Attrs(doc, "[data-filter-bar] [data-filter]", "data-filter")
	require.Equal(t, []string{"all", "night", "beach", "editorial", "studio"}, cats)
	assert.Equal(t, "/work?filter=beach", doc.Find(`[data-filter="beach"]`).AttrOr("href", ""))

	card := doc.Find(`.card[data-shot="dune-light"]`)
	require.Equal(t, 1, card.Length())
	assert.Equal(t, "/p/dune-light", card.AttrOr("href", ""))
	assert.Equal(t, "/p/dune-light", card.AttrOr("hx-get", ""))
	assert.Equal(t, "#modal", card.AttrOr("hx-target", ""))
	assert.Equal(t, "editorial|beach|model-sarah", card.AttrOr("data-tags", ""))
	assert.Equal(t, "/assets/demo/dune-light.svg", card.Find("img").AttrOr("src", ""))
}

func TestWorkFilterIsServerSideSubset(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := get(t, testutil.NewClient(t), ts.URL+"/work?filter=NIGHT", nil)
	require.Equal(t, http.StatusOK, res.status)

	doc := res.doc(t)
	ids := testutil.Attrs(doc, ".card", "data-shot")
	require.ElementsMatch(t, []string{"neon-hall", "late-train", "paper-moon"}, ids)
	assert.True(t, doc.Find(`[data-filter="night"]`).HasClass("active"))
	assert.Equal(t, "3 of 8", strings.TrimSpace(doc.Find("[data-count]").Text()))
}

func TestWorkEmptyCollectionRendersEmptyState(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithProvider(provider.NewStatic("/assets")))
	res := get(t, testutil.NewClient(t), ts.URL+"/work", nil)

	require.Equal(t, http.StatusOK, res.status)
	doc := res.doc(t)
	require.Equal(t, 1, doc.Find("[data-empty]").Length())
	require.Equal(t, 0, doc.Find(".card").Length())
}

func TestTalentScopesGridToTag(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := get(t, testutil.NewClient(t), ts.URL+"/talent/Model-Sarah", nil)
	require.Equal(t, http.StatusOK, res.status)

	doc := res.doc(t)
	require.Equal(t, "Sarah | Agency Portfolio", doc.Find("title").Text())
	require.Equal(t, "Sarah", strings.TrimSpace(doc.Find("h1").Text()))
	require.Equal(t, 3, doc.Find(".card").Length())
	assert.Equal(t, "/p/late-train?in=model-sarah", doc.Find(`.card[data-shot="late-train"]`).AttrOr("href", ""))
	assert.Equal(t, 1, doc.Find(".bio strong").Length(), "bio markdown should render")
}

func TestTalentWithoutRosterEntryUsesSlug(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := get(t, testutil.NewClient(t), ts.URL+"/talent/model-lena", nil)
	require.Equal(t, http.StatusOK, res.status)

	doc := res.doc(t)
	require.Equal(t, "Lena", strings.TrimSpace(doc.Find("h1").Text()))
	require.Equal(t, 3, doc.Find(".card").Length())
}

func TestTalentEmptyCollectionIsNotFound(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	for _, path := range []string{"/talent/model-aria", "/talent/model-nobody", "/talent/bad%20tag"} {
		res := get(t, client, ts.URL+path, nil)
		require.Equal(t, http.StatusNotFound, res.status, path)
		require.Equal(t, 1, res.doc(t).Find("[data-not-found]").Length(), path)
	}
}

func TestShotPageRendersStandalone(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := get(t, testutil.NewClient(t), ts.URL+"/p/linen-room", nil)
	require.Equal(t, http.StatusOK, res.status)

	doc := res.doc(t)
	require.Equal(t, "Linen room | Velvet Studio", doc.Find("title").Text())
	require.Equal(t, 0, doc.Find("#modal [data-overlay]").Length(), "direct request renders the page, not the overlay")

	page := doc.Find(`[data-page="shot"]`)
	require.Equal(t, 1, page.Length())
	assert.Equal(t, "ArrowLeft:prev ArrowRight:next Escape:dismiss", page.AttrOr("data-bind-keys", ""))
	assert.Equal(t, "3 / 8", strings.TrimSpace(page.Find("[data-counter]").Text()))
	assert.Equal(t, "/p/linen-room?dir=prev", page.Find(`[data-action="prev"]`).AttrOr("href", ""))
	assert.Equal(t, "/p/linen-room?dir=next", page.Find(`[data-action="next"]`).AttrOr("href", ""))
	assert.Empty(t, page.Find(`[data-action="next"]`).AttrOr("hx-get", ""))
	assert.Equal(t, "replace", page.Find(`[data-action="prev"]`).AttrOr("data-history", ""))
	assert.Equal(t, "replace", page.Find(`[data-action="next"]`).AttrOr("data-history", ""))
	assert.Contains(t, page.Find(".shot-meta").Text(), "1,000 × 1,000")

	assert.Equal(t, []string{"Home", "Work", "Linen room"}, testutil.Texts(doc, ".breadcrumbs li"))
}

func TestShotUnknownIDIsNotFound(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	res := get(t, client, ts.URL+"/p/ghost", nil)
	require.Equal(t, http.StatusNotFound, res.status)
	require.Equal(t, 1, res.doc(t).Find("[data-not-found]").Length())

	res = get(t, client, ts.URL+"/p/ghost", overlayHeaders(ts.URL+"/work"))
	require.Equal(t, http.StatusNotFound, res.status)
	overlay := res.doc(t).Find("[data-overlay]")
	require.Equal(t, "not_found", overlay.AttrOr("data-overlay", ""))
	assert.Empty(t, overlay.AttrOr("data-bind-keys", ""), "keys are bound only while open")
	assert.Equal(t, "true", overlay.AttrOr("data-scroll-lock", ""))
}

func TestShotOutsideScopeIsNotFound(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := get(t, testutil.NewClient(t), ts.URL+"/p/neon-hall?in=model-sarah", nil)
	require.Equal(t, http.StatusNotFound, res.status)
}

func TestOverlayNavigationReplacesAndDismissRestores(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	grid := get(t, client, ts.URL+"/talent/model-sarah", nil)
	require.Equal(t, http.StatusOK, grid.status)

	open := get(t, client, ts.URL+"/p/dune-light?in=model-sarah", overlayHeaders(ts.URL+"/talent/model-sarah"))
	require.Equal(t, http.StatusOK, open.status)
	require.Equal(t, "/p/dune-light?in=model-sarah", open.header.Get("HX-Push-Url"))
	require.Empty(t, open.header.Get("HX-Replace-Url"))

	overlay := open.doc(t).Find("[data-overlay]")
	require.Equal(t, "open", overlay.AttrOr("data-overlay", ""))
	assert.Equal(t, "true", overlay.AttrOr("data-pushed", ""))
	assert.Equal(t, "true", overlay.AttrOr("data-scroll-lock", ""))
	assert.Equal(t, "ArrowLeft:prev ArrowRight:next Escape:dismiss", overlay.AttrOr("data-bind-keys", ""))
	assert.Equal(t, "1 / 3", strings.TrimSpace(overlay.Find("[data-counter]").Text()))
	assert.Equal(t, "/p/dune-light?in=model-sarah&dir=next", overlay.Find(`[data-action="next"]`).AttrOr("hx-get", ""))
	_, marked := overlay.Find(`[data-action="next"]`).Attr("data-history")
	assert.False(t, marked, "overlay moves replace through htmx")
	assert.Equal(t, "/p/dune-light/close?in=model-sarah&via=backdrop", overlay.Find(`[data-target="backdrop"]`).AttrOr("href", ""))

	current := "dune-light"
	for _, want := range []string{"linen-room", "late-train", "dune-light"} {
		res := get(t, client, ts.URL+"/p/"+current+"?in=model-sarah&dir=next", overlayHeaders(ts.URL+"/p/"+current+"?in=model-sarah"))
		require.Equal(t, http.StatusOK, res.status)
		require.Equal(t, "/p/"+want+"?in=model-sarah", res.header.Get("HX-Replace-Url"))
		require.Empty(t, res.header.Get("HX-Push-Url"))
		require.Equal(t, want, res.doc(t).Find("figure[data-shot]").AttrOr("data-shot", ""))
		current = want
	}

	prev := get(t, client, ts.URL+"/p/dune-light?in=model-sarah&dir=prev", overlayHeaders(""))
	require.Equal(t, "/p/late-train?in=model-sarah", prev.header.Get("HX-Replace-Url"))

	closed := get(t, client, ts.URL+"/p/late-train/close?in=model-sarah", nil)
	require.Equal(t, http.StatusSeeOther, closed.status)
	require.Equal(t, "/talent/model-sarah", closed.header.Get("Location"))
}

func TestNoScriptNavigationUnwindsToGrid(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	require.Equal(t, http.StatusOK, get(t, client, ts.URL+"/work?filter=beach", nil).status)
	require.Equal(t, http.StatusOK, get(t, client, ts.URL+"/p/tide-pool", nil).status)

	next := get(t, client, ts.URL+"/p/tide-pool?dir=next", nil)
	require.Equal(t, http.StatusSeeOther, next.status)
	require.Equal(t, "/p/chrome-set", next.header.Get("Location"))

	page := get(t, client, ts.URL+"/p/chrome-set", nil)
	require.Equal(t, http.StatusOK, page.status)
	require.Equal(t, "5 / 8", strings.TrimSpace(page.doc(t).Find("[data-counter]").Text()))

	last := get(t, client, ts.URL+"/p/paper-moon?dir=next", nil)
	require.Equal(t, http.StatusSeeOther, last.status)
	require.Equal(t, "/p/dune-light", last.header.Get("Location"), "next from the last shot wraps")

	closed := get(t, client, ts.URL+"/p/dune-light/close", nil)
	require.Equal(t, http.StatusSeeOther, closed.status)
	require.Equal(t, "/work?filter=beach", closed.header.Get("Location"))
}

func TestPageOpenAfterClientSideDismissUnwindsToGrid(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	require.Equal(t, http.StatusOK, get(t, client, ts.URL+"/work", nil).status)
	open := get(t, client, ts.URL+"/p/dune-light", overlayHeaders(ts.URL+"/work"))
	require.Equal(t, http.StatusOK, open.status)
	require.Equal(t, "/p/dune-light", open.header.Get("HX-Push-Url"))

	// The overlay is dismissed with history.back(), which sends no request.
	page := get(t, client, ts.URL+"/p/salt-air", nil)
	require.Equal(t, http.StatusOK, page.status)

	closed := get(t, client, ts.URL+"/p/salt-air/close", nil)
	require.Equal(t, http.StatusSeeOther, closed.status)
	require.Equal(t, "/work", closed.header.Get("Location"))
}

func TestPageOpenAfterStaleDirectLandingOwnsNoEntry(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	require.Equal(t, http.StatusOK, get(t, client, ts.URL+"/p/dune-light?in=model-sarah", nil).status)
	require.Equal(t, http.StatusOK, get(t, client, ts.URL+"/p/salt-air", nil).status)

	closed := get(t, client, ts.URL+"/p/salt-air/close", nil)
	require.Equal(t, http.StatusSeeOther, closed.status)
	require.Equal(t, "/work", closed.header.Get("Location"))
}

func TestDismissAfterDirectLandingReplacesWithGrid(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)

	closed := get(t, testutil.NewClient(t), ts.URL+"/p/tide-pool/close?in=model-maya", nil)
	require.Equal(t, http.StatusSeeOther, closed.status)
	require.Equal(t, "/talent/model-maya", closed.header.Get("Location"))

	closed = get(t, testutil.NewClient(t), ts.URL+"/p/tide-pool/close", nil)
	require.Equal(t, "/work", closed.header.Get("Location"))
}

func TestActivatingImageDoesNotDismiss(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	get(t, client, ts.URL+"/work", nil)
	get(t, client, ts.URL+"/p/salt-air", nil)

	res := get(t, client, ts.URL+"/p/salt-air/close?via=image", nil)
	require.Equal(t, http.StatusSeeOther, res.status)
	require.Equal(t, "/p/salt-air", res.header.Get("Location"))

	res = get(t, client, ts.URL+"/p/salt-air/close?via=backdrop", nil)
	require.Equal(t, "/work", res.header.Get("Location"))
}

func TestSingleShotScopeHidesLateralControls(t *testing.T) {
	t.Parallel()

	p := provider.NewStatic("/assets/demo", provider.DemoShots()[1])
	ts := testutil.NewServer(t, testutil.WithProvider(p))
	client := testutil.NewClient(t)

	res := get(t, client, ts.URL+"/p/neon-hall", nil)
	require.Equal(t, http.StatusOK, res.status)
	require.Equal(t, 0, res.doc(t).Find(".shot-nav").Length())

	res = get(t, client, ts.URL+"/p/neon-hall?dir=next", nil)
	require.Equal(t, http.StatusSeeOther, res.status)
	require.Equal(t, "/p/neon-hall", res.header.Get("Location"))
}

func TestAssetsCarryCacheHeaders(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t)

	res := get(t, client, ts.URL+"/assets/app.css", nil)
	require.Equal(t, http.StatusOK, res.status)
	etag := res.header.Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`), etag)
	require.Contains(t, res.header.Get("Cache-Control"), "max-age=604800")

	res = get(t, client, ts.URL+"/assets/app.css", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, res.status)

	res = get(t, client, ts.URL+"/assets/demo/neon-hall.svg", nil)
	require.Equal(t, http.StatusOK, res.status)
}

func TestUnknownRouteRendersNotFoundPage(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := get(t, testutil.NewClient(t), ts.URL+"/nope", nil)

	require.Equal(t, http.StatusNotFound, res.status)
	doc := res.doc(t)
	require.Equal(t, 1, doc.Find("[data-not-found]").Length())
	_, noindex := doc.Find(`meta[name="robots"]`).Attr("content")
	require.True(t, noindex)
}
