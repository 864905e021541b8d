package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/go-shortlink/pkg/config"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/ratelimit"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.LinkService, limiter *ratelimit.Limiter) http.Handler {
	h := NewHTTPHandler(service)
	mw := NewMiddleware(cfg, limiter)
	authHandler := NewAuthHandler(cfg)

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"service": "shortlink", "base_url": cfg.BaseURL})
	})
	mux.HandleFunc("GET /{slug}", h.Redirect)

	// Token API (write + analytics), rate limited per scope and client IP
	mux.Handle("POST /api/v1/links",
		mw.APIAuth(mw.RateLimit("api-create", http.HandlerFunc(h.Create))))
	mux.Handle("GET /api/v1/links/{slug}",
		mw.APIAuth(mw.RateLimit("api-get", http.HandlerFunc(h.Analytics))))

	// Admin API behind the JWT session cookie
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /admin/api/links", h.AdminList)
	adminMux.HandleFunc("GET /admin/api/links/{slug}", h.AdminDetail)
	mux.Handle("/admin/api/", mw.SessionAuth(adminMux))

	// Login flow
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	return SecurityHeaders(mux)
}
