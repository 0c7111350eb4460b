package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stevechez/influencer-portfolio/internal/config"
	"github.com/stevechez/influencer-portfolio/internal/httpserver"
	"github.com/stevechez/influencer-portfolio/internal/observability"
	"github.com/stevechez/influencer-portfolio/internal/provider"
	"github.com/stevechez/influencer-portfolio/internal/roster"
	"github.com/stevechez/influencer-portfolio/internal/secrets"
)

var version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	devTemplatesDir = "web/templates"
	demoAssetBase   = "/assets/demo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	addr      string
	envFile   string
	templates string
	dev       bool
	demo      bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "portfolio-web",
		Short:        "Serve the portfolio gallery",
		Long:         `portfolio-web serves the talent roster, the work grid and the shot overlay backed by the image provider.`,
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "HTTP listen address (default \":\" + PORTFOLIO_SERVER_PORT)")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file read beneath the process environment")
	f.StringVar(&opts.templates, "templates", "", "load templates from this directory and reload them on change")
	f.BoolVar(&opts.dev, "dev", false, "console logging and live templates from "+devTemplatesDir)
	f.BoolVar(&opts.demo, "demo", false, "serve the bundled demo shots instead of the image provider")
	return cmd
}

func run(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loaderOpts := []config.Option{config.WithEnvFile(opts.envFile)}
	lookup, err := config.Lookup(loaderOpts...)
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	logger, err := observability.NewLogger(observability.LoggerConfig{
		Level:       lookup("LOG_LEVEL"),
		Development: opts.dev,
	})
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("web")

	fetcher := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(firstNonEmpty(lookup("PORTFOLIO_SECRETS_PROJECT_ID"), lookup("GOOGLE_CLOUD_PROJECT"))),
		secrets.WithFallbackFile(firstNonEmpty(lookup("PORTFOLIO_SECRETS_FALLBACK_FILE"), ".secrets.local")),
	)
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, append(loaderOpts,
		config.WithSecretResolver(fetcher),
		config.WithLogger(logger.Named("config")),
	)...)
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Error("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		return fmt.Errorf("load configuration: %w", err)
	}

	rost, err := loadRoster(cfg.Site.RosterFile)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	templates := firstNonEmpty(opts.templates, cfg.Site.TemplatesDir)
	if templates == "" && opts.dev {
		templates = devTemplatesDir
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:           firstNonEmpty(opts.addr, ":"+cfg.Server.Port),
		Provider:          newProvider(cfg, opts.demo || cfg.Site.Demo, logger),
		Roster:            rost,
		Logger:            logger,
		SiteName:          cfg.Site.Name,
		SiteURL:           cfg.Site.URL,
		Columns:           cfg.Grid.Columns,
		PreferredTags:     cfg.Grid.PreferredTags,
		SessionSigningKey: cfg.Session.SigningKey,
		SessionSecure:     cfg.Session.Secure,
		TemplatesDir:      templates,
		TraceProjectID:    cfg.Logging.TraceProjectID,
		RequestTimeout:    cfg.Server.RequestTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("portfolio web listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Environment),
			zap.Bool("live_templates", templates != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func loadRoster(path string) (*roster.Roster, error) {
	if strings.TrimSpace(path) == "" {
		return roster.Default()
	}
	return roster.LoadFile(path)
}

// newProvider picks the image source. Missing credentials still yield the
// remote adapter, which then serves empty results.
func newProvider(cfg config.Config, demo bool, logger *zap.Logger) provider.Provider {
	if demo {
		logger.Info("serving demo shots", zap.Int("shots", len(provider.DemoShots())))
		return provider.NewStatic(demoAssetBase, provider.DemoShots()...)
	}
	p := provider.NewCloudinary(provider.Config{
		CloudName:    cfg.Provider.CloudName,
		APIKey:       cfg.Provider.APIKey,
		APISecret:    cfg.Provider.APISecret,
		Folder:       cfg.Provider.Folder,
		MaxResults:   cfg.Provider.MaxResults,
		Placeholders: cfg.Provider.Placeholders,
		APIBase:      cfg.Provider.APIBase,
		DeliveryBase: cfg.Provider.DeliveryBase,
	}, provider.WithLogger(logger.Named("provider")))
	if !p.Configured() {
		logger.Warn("image provider is not configured; pages will be empty", zap.Error(provider.ErrNotConfigured))
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
