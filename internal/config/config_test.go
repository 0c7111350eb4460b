package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func load(t *testing.T, env map[string]string, opts ...Option) (Config, error) {
	t.Helper()
	base := []Option{WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(env)}
	return Load(context.Background(), append(base, opts...)...)
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, nil)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Environment)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "portfolio", cfg.Provider.Folder)
	require.Equal(t, 30, cfg.Provider.MaxResults)
	require.True(t, cfg.Provider.Placeholders)
	require.Equal(t, "Velvet Studio", cfg.Site.Name)
	require.Equal(t, 3, cfg.Grid.Columns)
	require.Empty(t, cfg.Grid.PreferredTags)
	require.False(t, cfg.Session.Secure)
	require.Equal(t, ".secrets.local", cfg.Secrets.FallbackFile)
}

func TestLoadFallbackKeys(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, map[string]string{
		"PORT":                              "9090",
		"NEXT_PUBLIC_CLOUDINARY_CLOUD_NAME": "velvet",
		"PORTFOLIO_GRID_PREFERRED_TAGS":     "editorial, beach ,,studio",
		"PORTFOLIO_PROVIDER_FOLDER":         "/portfolio/",
		"PORTFOLIO_PROVIDER_PLACEHOLDERS":   "off",
		"PORTFOLIO_SITE_URL":                "https://velvet.example/",
	})
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "velvet", cfg.Provider.CloudName)
	require.Equal(t, []string{"editorial", "beach", "studio"}, cfg.Grid.PreferredTags)
	require.Equal(t, "portfolio", cfg.Provider.Folder)
	require.False(t, cfg.Provider.Placeholders)
	require.Equal(t, "https://velvet.example", cfg.Site.URL)

	cfg, err = load(t, map[string]string{
		"PORT":                              "9090",
		"PORTFOLIO_SERVER_PORT":             "7070",
		"CLOUDINARY_CLOUD_NAME":             "primary",
		"NEXT_PUBLIC_CLOUDINARY_CLOUD_NAME": "secondary",
	})
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.Server.Port)
	require.Equal(t, "primary", cfg.Provider.CloudName)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# local\nexport CLOUDINARY_API_KEY=\"from-file\"\nPORTFOLIO_SITE_NAME='File Studio'\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PORTFOLIO_SITE_NAME", "Env Studio")

	cfg, err := Load(context.Background(),
		WithEnvFile(envFile),
		WithEnvMap(map[string]string{"PORTFOLIO_SITE_NAME": "Map Studio"}),
	)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Provider.APIKey)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "Map Studio", cfg.Site.Name)

	get, err := Lookup(WithEnvFile(envFile), WithoutSystemEnv())
	require.NoError(t, err)
	require.Equal(t, "debug", get("LOG_LEVEL"))
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	t.Parallel()

	var refs []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		refs = append(refs, ref)
		return " resolved-" + ref[len("secret://"):] + " ", nil
	})

	cfg, err := load(t, map[string]string{
		"CLOUDINARY_API_KEY":    "plain-key",
		"CLOUDINARY_API_SECRET": "sm://cloudinary-api-secret",
	}, WithSecretResolver(resolver))
	require.NoError(t, err)
	require.Equal(t, "plain-key", cfg.Provider.APIKey)
	require.Equal(t, "resolved-cloudinary-api-secret", cfg.Provider.APISecret)
	require.Equal(t, []string{"secret://cloudinary-api-secret"}, refs)
}

func TestLoadSecretErrors(t *testing.T) {
	t.Parallel()

	_, err := load(t, map[string]string{"PORTFOLIO_SESSION_SIGNING_KEY": "secret://session"})
	var secretErr *SecretError
	require.ErrorAs(t, err, &secretErr)
	require.Equal(t, "secret://session", secretErr.Ref)
	require.ErrorIs(t, err, errResolverNotConfigured)

	boom := errors.New("denied")
	_, err = load(t, map[string]string{"PORTFOLIO_SESSION_SIGNING_KEY": "secret://session"},
		WithSecretResolver(SecretResolverFunc(func(context.Context, string) (string, error) { return "", boom })))
	require.ErrorIs(t, err, boom)
}

func TestLoadUnresolvedProviderCredentialsDegrade(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	unavailable := errors.New("secret manager unavailable")
	cfg, err := load(t, map[string]string{
		"CLOUDINARY_CLOUD_NAME": "velvet",
		"CLOUDINARY_API_KEY":    "secret://cloudinary-key",
		"CLOUDINARY_API_SECRET": "secret://cloudinary",
	},
		WithLogger(zap.New(core)),
		WithSecretResolver(SecretResolverFunc(func(context.Context, string) (string, error) { return "", unavailable })),
	)
	require.NoError(t, err)
	require.Equal(t, "velvet", cfg.Provider.CloudName)
	require.Empty(t, cfg.Provider.APIKey)
	require.Empty(t, cfg.Provider.APISecret)

	entries := logs.FilterMessage("provider credential unavailable").All()
	require.Len(t, entries, 2)
	require.Equal(t, "CLOUDINARY_API_KEY", entries[0].ContextMap()["key"])
	require.Equal(t, "CLOUDINARY_API_SECRET", entries[1].ContextMap()["key"])

	// Without any resolver the same references degrade rather than fail.
	cfg, err = load(t, map[string]string{"CLOUDINARY_API_SECRET": "sm://cloudinary"})
	require.NoError(t, err)
	require.Empty(t, cfg.Provider.APISecret)
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	_, err := load(t, map[string]string{
		"PORTFOLIO_ENV":                  "prod",
		"PORTFOLIO_SERVER_PORT":          "http",
		"PORTFOLIO_PROVIDER_MAX_RESULTS": "1000",
		"PORTFOLIO_GRID_COLUMNS":         "0",
		"PORTFOLIO_SITE_URL":             "not a url",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{
		"Grid.Columns",
		"Provider.MaxResults",
		"Server.Port",
		"Session.SigningKey",
		"Site.URL",
	}, verr.Fields())

	cfg, err := load(t, map[string]string{
		"PORTFOLIO_ENV":                 "PROD",
		"PORTFOLIO_SESSION_SIGNING_KEY": "0123456789abcdef0123456789abcdef",
	})
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.True(t, cfg.Session.Secure)
}
