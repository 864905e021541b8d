package main

import (
	"log"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/go-shortlink/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-shortlink/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-shortlink/pkg/config"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/ratelimit"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/services"
)

func main() {
	cfg := config.Load()

	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	service := services.NewLinkService(repo, cfg.BaseURL, cfg.SlugLen, cfg.RedirectCache)
	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)

	mux := handler.NewRouter(cfg, service, limiter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
