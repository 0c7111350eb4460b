package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stevechez/influencer-portfolio/internal/requestctx"
)

func TestParseCloudTrace(t *testing.T) {
	t.Parallel()

	sc, ok := parseCloudTrace("105445aa7843bc8bf206b12000100000/1;o=1")
	require.True(t, ok)
	require.Equal(t, "105445aa7843bc8bf206b12000100000", sc.TraceID().String())
	require.Equal(t, "0000000000000001", sc.SpanID().String())
	require.True(t, sc.IsSampled())
	require.True(t, sc.IsRemote())

	for _, bad := range []string{"", "abc/1", "105445aa7843bc8bf206b12000100000/x", "105445aa7843bc8bf206b12000100000"} {
		_, ok := parseCloudTrace(bad)
		require.False(t, ok, bad)
	}

	require.Equal(t, "105445aa7843bc8bf206b12000100000/1;o=1", formatCloudTrace(sc))
}

func TestTraceStoresInfo(t *testing.T) {
	t.Parallel()

	var got requestctx.TraceInfo
	h := Trace("proj")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/work", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "proj", got.ProjectID)
	require.Equal(t, "105445aa7843bc8bf206b12000100000", got.TraceID, "noop tracer keeps the remote trace")
}

func TestRequestLoggerAndRecovery(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	r := chi.NewRouter()
	r.Use(InjectLogger(zap.New(core)), RequestLogger(), Recovery(nil))
	r.Get("/p/{id}", func(w http.ResponseWriter, r *http.Request) {
		requestctx.Logger(r.Context()).Info("inside")
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/p/abc", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	inside := logs.FilterMessage("inside").All()
	require.Len(t, inside, 1)
	require.Equal(t, true, inside[0].ContextMap()["htmx"])

	done := logs.FilterMessage("request completed").All()
	require.Len(t, done, 1)
	require.Equal(t, zapcore.WarnLevel, done[0].Level)
	require.Equal(t, "/p/{id}", done[0].ContextMap()["route"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(LoggerConfig{Level: "loud"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(LoggerConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
