package main

import (
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dashboard-backend/internal/bootstrap"
	"dashboard-backend/internal/capture/tesseract"
	"dashboard-backend/internal/shared/config"
	"dashboard-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg, bootstrap.WithRecognizer(tesseract.New()))
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(app.Router, "dashboard-api"),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Starting API server on %s (store=%s, tesseract=%s)", addr, cfg.CloudStore, tesseract.Version())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
