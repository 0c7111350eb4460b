// Package config loads runtime configuration from defaults, a .env file,
// the process environment and explicit overrides, resolving secret
// references through a pluggable resolver.
package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultRequestTimeout = 20 * time.Second
	defaultEnvironment    = "local"
	defaultSiteName       = "Velvet Studio"
	defaultFolder         = "portfolio"
	defaultMaxResults     = 30
	defaultColumns        = 3
	defaultFallbackFile   = ".secrets.local"
	minSigningKeyLen      = 32
	maxSearchResults      = 500
)

// Config groups runtime configuration by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Provider    ProviderConfig
	Site        SiteConfig
	Grid        GridConfig
	Session     SessionConfig
	Secrets     SecretsConfig
	Logging     LoggingConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// ProviderConfig holds the image provider account and query settings.
type ProviderConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	Folder       string
	MaxResults   int
	Placeholders bool
	APIBase      string
	DeliveryBase string
}

// SiteConfig describes the public site.
type SiteConfig struct {
	Name       string
	URL        string
	RosterFile string
	// TemplatesDir loads templates from disk instead of the embedded copy.
	TemplatesDir string
	Demo         bool
}

// GridConfig tunes the gallery grid.
type GridConfig struct {
	Columns       int
	PreferredTags []string
}

// SessionConfig configures the signed navigation cookie.
type SessionConfig struct {
	SigningKey string
	Secure     bool
}

// SecretsConfig selects where secret:// references resolve.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// LoggingConfig controls the zap logger and trace correlation.
type LoggingConfig struct {
	Level          string
	TraceProjectID string
}

// IsProduction reports whether the environment is prod.
func (c Config) IsProduction() bool { return c.Environment == "prod" }

// SecretResolver resolves secret references such as secret://name.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError wraps a failed secret reference resolution.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

var errResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
	logger       *zap.Logger
}

// WithEnvFile overrides the .env path. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap supplies values that win over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithLogger sets the logger that reports degraded settings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *loaderOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type lookupFunc func(string) (string, bool)

// Lookup returns a key lookup applying the same precedence as Load
// (.env < system env < explicit map). It lets callers read settings needed
// to build a secret resolver before calling Load.
func Lookup(opts ...Option) (func(string) string, error) {
	options := newOptions(opts)
	lookup, err := options.lookup()
	if err != nil {
		return nil, err
	}
	return func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}, nil
}

// Load builds the configuration and validates it.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newOptions(opts)
	lookup, err := options.lookup()
	if err != nil {
		return Config{}, err
	}

	env := strings.ToLower(stringWithDefault(lookup, "PORTFOLIO_ENV", defaultEnvironment))
	cfg := Config{
		Environment: env,
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "PORTFOLIO_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:    durationWithDefault(lookup, "PORTFOLIO_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "PORTFOLIO_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "PORTFOLIO_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "PORTFOLIO_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Provider: ProviderConfig{
			CloudName:    stringWithDefault(lookup, "CLOUDINARY_CLOUD_NAME", stringWithDefault(lookup, "NEXT_PUBLIC_CLOUDINARY_CLOUD_NAME", "")),
			APIKey:       stringWithDefault(lookup, "CLOUDINARY_API_KEY", ""),
			APISecret:    stringWithDefault(lookup, "CLOUDINARY_API_SECRET", ""),
			Folder:       strings.Trim(stringWithDefault(lookup, "PORTFOLIO_PROVIDER_FOLDER", defaultFolder), "/"),
			MaxResults:   intWithDefault(lookup, "PORTFOLIO_PROVIDER_MAX_RESULTS", defaultMaxResults),
			Placeholders: boolWithDefault(lookup, "PORTFOLIO_PROVIDER_PLACEHOLDERS", true),
			APIBase:      stringWithDefault(lookup, "PORTFOLIO_PROVIDER_API_BASE", ""),
			DeliveryBase: stringWithDefault(lookup, "PORTFOLIO_PROVIDER_DELIVERY_BASE", ""),
		},
		Site: SiteConfig{
			Name:         stringWithDefault(lookup, "PORTFOLIO_SITE_NAME", defaultSiteName),
			URL:          strings.TrimRight(stringWithDefault(lookup, "PORTFOLIO_SITE_URL", ""), "/"),
			RosterFile:   stringWithDefault(lookup, "PORTFOLIO_ROSTER_FILE", ""),
			TemplatesDir: stringWithDefault(lookup, "PORTFOLIO_TEMPLATES_DIR", ""),
			Demo:         boolWithDefault(lookup, "PORTFOLIO_DEMO", false),
		},
		Grid: GridConfig{
			Columns:       intWithDefault(lookup, "PORTFOLIO_GRID_COLUMNS", defaultColumns),
			PreferredTags: csvWithDefault(lookup, "PORTFOLIO_GRID_PREFERRED_TAGS"),
		},
		Session: SessionConfig{
			SigningKey: stringWithDefault(lookup, "PORTFOLIO_SESSION_SIGNING_KEY", ""),
			Secure:     boolWithDefault(lookup, "PORTFOLIO_SESSION_SECURE", env == "prod"),
		},
		Secrets: SecretsConfig{
			ProjectID:    stringWithDefault(lookup, "PORTFOLIO_SECRETS_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
			FallbackFile: stringWithDefault(lookup, "PORTFOLIO_SECRETS_FALLBACK_FILE", defaultFallbackFile),
		},
		Logging: LoggingConfig{
			Level:          stringWithDefault(lookup, "LOG_LEVEL", "info"),
			TraceProjectID: stringWithDefault(lookup, "PORTFOLIO_TRACE_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
		},
	}

	secretFields := []struct {
		key      string
		value    *string
		degrades bool
	}{
		{key: "CLOUDINARY_API_KEY", value: &cfg.Provider.APIKey, degrades: true},
		{key: "CLOUDINARY_API_SECRET", value: &cfg.Provider.APISecret, degrades: true},
		{key: "PORTFOLIO_SESSION_SIGNING_KEY", value: &cfg.Session.SigningKey},
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field.value, options.secret)
		if err != nil {
			if !field.degrades {
				return Config{}, err
			}
			// Without credentials the provider serves empty results.
			options.logger.Warn("provider credential unavailable",
				zap.String("key", field.key), zap.Error(err))
			resolved = ""
		}
		*field.value = resolved
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func (o loaderOptions) lookup() (lookupFunc, error) {
	dotEnv, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	return func(key string) (string, bool) {
		if v, ok := o.envMap[key]; ok {
			return v, true
		}
		if o.useSystemEnv {
			if v, ok := os.LookupEnv(key); ok {
				return v, true
			}
		}
		v, ok := dotEnv[key]
		return v, ok
	}, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func validate(cfg Config) error {
	var bad []string
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 0 || port > 65535 {
		bad = append(bad, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		bad = append(bad, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		bad = append(bad, "Server.WriteTimeout")
	}
	if cfg.Server.RequestTimeout <= 0 {
		bad = append(bad, "Server.RequestTimeout")
	}
	if cfg.Provider.MaxResults < 1 || cfg.Provider.MaxResults > maxSearchResults {
		bad = append(bad, "Provider.MaxResults")
	}
	if cfg.Provider.Folder == "" {
		bad = append(bad, "Provider.Folder")
	}
	for name, raw := range map[string]string{
		"Provider.APIBase":      cfg.Provider.APIBase,
		"Provider.DeliveryBase": cfg.Provider.DeliveryBase,
		"Site.URL":              cfg.Site.URL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			bad = append(bad, name)
		}
	}
	if cfg.Grid.Columns < 1 || cfg.Grid.Columns > 6 {
		bad = append(bad, "Grid.Columns")
	}
	if cfg.IsProduction() && len(cfg.Session.SigningKey) < minSigningKeyLen {
		bad = append(bad, "Session.SigningKey")
	}
	if len(bad) > 0 {
		sortStrings(bad)
		return &ValidationError{fields: bad}
	}
	return nil
}

func isSecretReference(value string) bool {
	v := strings.TrimSpace(value)
	return strings.HasPrefix(v, "secret://") || strings.HasPrefix(v, "sm://")
}

func normalizeSecretReference(value string) string {
	v := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(v, "sm://"); ok {
		return "secret://" + rest
	}
	return v
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	file, err := os.Open(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", abs, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", abs, err)
	}
	return values, nil
}
