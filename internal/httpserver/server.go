package httpserver

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	custommw "github.com/stevechez/influencer-portfolio/internal/httpserver/middleware"
	"github.com/stevechez/influencer-portfolio/internal/observability"
	"github.com/stevechez/influencer-portfolio/internal/provider"
	"github.com/stevechez/influencer-portfolio/internal/roster"
	"github.com/stevechez/influencer-portfolio/web"
)

const defaultRequestTimeout = 20 * time.Second

// Config holds runtime options for the site HTTP server.
type Config struct {
	Address  string
	Provider provider.Provider
	Roster   *roster.Roster
	Logger   *zap.Logger

	SiteName      string
	SiteURL       string
	Columns       int
	PreferredTags []string

	SessionSigningKey string
	SessionSecure     bool

	// TemplatesDir loads templates from disk and reloads them on change.
	// Empty uses the embedded templates.
	TemplatesDir string
	// Static overrides the embedded asset tree.
	Static fs.FS

	TraceProjectID string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// New constructs the HTTP server with its middleware stack and embedded
// assets. Shutting the server down stops the template watcher.
func New(cfg Config) (*http.Server, error) {
	if cfg.Provider == nil {
		return nil, errors.New("httpserver: provider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rost := cfg.Roster
	if rost == nil {
		var err error
		if rost, err = roster.Default(); err != nil {
			return nil, err
		}
	}

	templates := web.Templates()
	if cfg.TemplatesDir != "" {
		templates = os.DirFS(cfg.TemplatesDir)
	}
	rend, err := newRenderer(templates, logger)
	if err != nil {
		return nil, err
	}
	if cfg.TemplatesDir != "" {
		if err := rend.watch(cfg.TemplatesDir); err != nil {
			return nil, err
		}
	}

	static := cfg.Static
	if static == nil {
		static = web.Static()
	}

	s := &server{
		provider:  cfg.Provider,
		nav:       provider.Lean(cfg.Provider),
		roster:    rost,
		render:    rend,
		site:      siteView{Name: firstNonEmpty(cfg.SiteName, "Velvet Studio"), URL: strings.TrimRight(cfg.SiteURL, "/")},
		columns:   cfg.Columns,
		preferred: cfg.PreferredTags,
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.Trace(cfg.TraceProjectID))
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.RequestLogger())
	router.Use(observability.Recovery(s.handleError))
	router.Use(chimw.Compress(5))
	router.Use(chimw.Timeout(timeout))

	router.Get("/healthz", handleHealthz)
	router.Handle("/assets/*", http.StripPrefix("/assets", custommw.AssetsWithCache(static)))

	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.Session(custommw.SessionConfig{
			SigningKey: []byte(cfg.SessionSigningKey),
			Secure:     cfg.SessionSecure,
			Logger:     logger,
		}))

		r.Get("/", s.handleHome)
		r.Get("/work", s.handleWork)
		r.Get("/talent/{slug}", s.handleTalent)
		r.Get("/p/{id}", s.handleShot)
		r.Get("/p/{id}/close", s.handleClose)
		r.NotFound(s.handleNotFound)
	})

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       orDefault(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      orDefault(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:       orDefault(cfg.IdleTimeout, 120*time.Second),
	}
	srv.RegisterOnShutdown(rend.Close)
	return srv, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
