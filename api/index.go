package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/go-shortlink/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-shortlink/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-shortlink/pkg/config"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/ratelimit"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/services"
)

var mux http.Handler

func init() {
	cfg := config.Load()

	// Note: On Vercel, db.sqlite is ephemeral unless DATABASE_URL points at
	// a remote libsql/Turso instance. Rate buckets are per-instance either
	// way; that is acceptable, the limiter is best-effort.
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	service := services.NewLinkService(repo, cfg.BaseURL, cfg.SlugLen, cfg.RedirectCache)
	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)
	mux = handler.NewRouter(cfg, service, limiter)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
