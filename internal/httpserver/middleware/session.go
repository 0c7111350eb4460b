package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/stevechez/influencer-portfolio/internal/modal"
)

// SessionCookieName is the signed cookie carrying navigation state.
const SessionCookieName = "PORTFOLIO_SESSION"

const (
	sessionCtxKey  contextKey = "session"
	sessionMaxAge             = 12 * time.Hour
	maxNavEntries             = 16
)

// SessionData is the per-browser state persisted in the signed cookie: the
// navigation stack mirrored from the browser and the overlay controller
// snapshot.
type SessionData struct {
	ID        string         `json:"id"`
	Nav       []modal.Entry  `json:"nav,omitempty"`
	Modal     modal.Snapshot `json:"modal"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`

	dirty bool
}

// MarkDirty flags the session for writing before the response is sent.
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// SaveNavigation stores the stack and controller state. Only the newest
// entries are kept so the cookie stays small.
func (s *SessionData) SaveNavigation(entries []modal.Entry, snap modal.Snapshot) {
	if len(entries) > maxNavEntries {
		entries = entries[len(entries)-maxNavEntries:]
	}
	s.Nav = append([]modal.Entry(nil), entries...)
	s.Modal = snap
	s.MarkDirty()
}

// ResetNavigation roots the stack at location with the overlay closed.
func (s *SessionData) ResetNavigation(location string) {
	if len(s.Nav) == 1 && s.Nav[0].Location == location && s.Modal.State == modal.Closed {
		return
	}
	s.SaveNavigation(modal.NewStack(location).Entries(), modal.Snapshot{State: modal.Closed})
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	SigningKey []byte
	Secure     bool
	Logger     *zap.Logger
}

// Session loads or initializes the session and stores it in the request
// context. A changed session is written just before the first byte of the
// response.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	key := cfg.SigningKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			key = []byte("insecure-dev-key-set-PORTFOLIO_SESSION_SIGNING_KEY")
		}
		if cfg.Logger != nil {
			cfg.Logger.Warn("session: using ephemeral signing key; set PORTFOLIO_SESSION_SIGNING_KEY for production")
		}
	}
	codec := sessionCodec{key: key}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sd, fromCookie := codec.read(r)
			if sd.ID == "" {
				sd.ID = ulid.Make().String()
				sd.CreatedAt = time.Now().UTC()
				sd.UpdatedAt = sd.CreatedAt
				sd.dirty = true
			}
			sw := &sessionWriter{ResponseWriter: w}
			sw.before = func() {
				if sd.dirty || !fromCookie {
					codec.write(w, sd, cfg.Secure)
				}
			}
			ctx := context.WithValue(r.Context(), sessionCtxKey, sd)
			next.ServeHTTP(sw, r.WithContext(ctx))
			if !sw.wrote {
				sw.before()
			}
		})
	}
}

// GetSession returns the session from context, or an empty throwaway value.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(sessionCtxKey).(*SessionData); ok {
		return sd
	}
	return &SessionData{}
}

type sessionCodec struct {
	key []byte
}

func (c sessionCodec) read(r *http.Request) (*SessionData, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return &SessionData{}, false
	}
	payload, sig, ok := strings.Cut(cookie.Value, ".")
	if !ok {
		return &SessionData{}, false
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return &SessionData{}, false
	}
	sigB, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return &SessionData{}, false
	}
	if !hmac.Equal(sigB, c.sign(payloadB)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payloadB, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (c sessionCodec) write(w http.ResponseWriter, sd *SessionData, secure bool) {
	b, err := json.Marshal(sd)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    c.encode(b),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge / time.Second),
	})
}

func (c sessionCodec) encode(payload []byte) string {
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(c.sign(payload))
}

func (c sessionCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// sessionWriter runs before once, ahead of the first header write.
type sessionWriter struct {
	http.ResponseWriter
	before func()
	wrote  bool
}

func (w *sessionWriter) WriteHeader(status int) {
	if !w.wrote {
		w.wrote = true
		w.before()
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if !w.wrote {
			w.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
