// Package observability builds the zap logger and the HTTP middleware that
// attaches request logging, tracing and panic recovery.
package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLevel = "info"

// LoggerConfig selects the log level and encoding.
type LoggerConfig struct {
	Level string
	// Development switches to a console encoder for local runs.
	Development bool
}

// NewLogger returns a JSON logger using Cloud Logging field names. An empty
// or unparsable level falls back to info.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(cfg.Level)))); err != nil || strings.TrimSpace(cfg.Level) == "" {
		_ = level.UnmarshalText([]byte(defaultLevel))
	}

	encoding := "json"
	if cfg.Development {
		encoding = "console"
	}

	zcfg := zap.Config{
		Level:    level,
		Encoding: encoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			TimeKey:       "timestamp",
			LevelKey:      "severity",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			EncodeTime:    zapcore.RFC3339NanoTimeEncoder,
			EncodeLevel:   zapcore.CapitalLevelEncoder,
			EncodeCaller:  zapcore.ShortCallerEncoder,
		},
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	return zcfg.Build()
}

// sanitize drops control characters and caps the length of values copied
// from requests into log fields.
func sanitize(value string, limit int) string {
	out := make([]rune, 0, len(value))
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return string(out)
}
