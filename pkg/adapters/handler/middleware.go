package handler

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wadjakorntonsri/go-shortlink/pkg/config"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/ratelimit"
)

type Middleware struct {
	jwtSecret []byte
	apiToken  string
	limiter   *ratelimit.Limiter
}

func NewMiddleware(cfg *config.Config, limiter *ratelimit.Limiter) *Middleware {
	return &Middleware{
		jwtSecret: []byte(cfg.JWTSecret),
		apiToken:  cfg.APIToken,
		limiter:   limiter,
	}
}

// SessionAuth verifies the admin JWT cookie. API calls get a 401, browser
// navigation is sent to the login flow.
func (m *Middleware) SessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("auth_token")
		if err != nil {
			m.rejectSession(w, r)
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
			return m.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			m.rejectSession(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userEmailKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type userEmailKey struct{}

func (m *Middleware) rejectSession(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	http.Redirect(w, r, "/auth/google/login", http.StatusTemporaryRedirect)
}

func isAPIRequest(r *http.Request) bool {
	return strings.Contains(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// APIAuth requires a Bearer token matching API_TOKEN. An unconfigured token
// locks the API rather than opening it.
func (m *Middleware) APIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("Authorization")
		if m.apiToken == "" || !strings.HasPrefix(got, "Bearer ") {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		token := strings.TrimPrefix(got, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.apiToken)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit gates a handler behind the sliding-window limiter, keyed by
// scope and client IP. Rejections answer 429 with a Retry-After hint.
func (m *Middleware) RateLimit(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := m.limiter.Check(scope, ClientIP(r))
		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets the blanket response headers on everything.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// ClientIP prefers the first X-Forwarded-For entry (set by the front-door
// proxy), falling back to the peer address. Advisory only: it keys rate
// limits and analytics, never authorization.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
