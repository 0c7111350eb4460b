package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stevechez/influencer-portfolio/internal/httpserver"
	"github.com/stevechez/influencer-portfolio/internal/provider"
	"github.com/stevechez/influencer-portfolio/internal/roster"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithProvider replaces the demo image provider.
func WithProvider(p provider.Provider) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Provider = p
	}
}

// WithRoster overrides the embedded talent roster.
func WithRoster(r *roster.Roster) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Roster = r
	}
}

// WithPreferredTags sets the categories listed first in the filter bar.
func WithPreferredTags(tags ...string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.PreferredTags = tags
	}
}

// DemoProvider serves the bundled demo shots.
func DemoProvider() *provider.Static {
	return provider.NewStatic("/assets/demo", provider.DemoShots()...)
}

// NewServer constructs an httptest server running the site HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	cfg := httpserver.Config{
		Address:           ":0",
		Provider:          DemoProvider(),
		SiteName:          "Velvet Studio",
		SiteURL:           "https://velvet.example",
		Columns:           3,
		SessionSigningKey: "test-signing-key-0123456789abcdef",
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client that keeps cookies and does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
