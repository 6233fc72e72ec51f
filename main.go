package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/promptlift/prompt-enhancer/internal/api"
	"github.com/promptlift/prompt-enhancer/internal/billing"
	"github.com/promptlift/prompt-enhancer/internal/config"
	"github.com/promptlift/prompt-enhancer/internal/database"
	"github.com/promptlift/prompt-enhancer/internal/enhance"
	"github.com/promptlift/prompt-enhancer/internal/ratelimit"
	"github.com/promptlift/prompt-enhancer/internal/upstream"
)

func main() {
	config.Load()

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	if config.Cfg.UpstreamAPIKey == "" {
		log.Println("UPSTREAM_API_KEY is not set; enhancement calls will fail")
	}

	client := upstream.NewClient(config.Cfg.UpstreamBaseURL, config.Cfg.UpstreamAPIKey)
	orchestrator := enhance.NewOrchestrator(client, config.Cfg.DefaultModel, config.Cfg.MaxOutputTokens)

	limiter := ratelimit.New(
		config.Cfg.RedisURL,
		config.Cfg.RateLimitBase,
		time.Duration(config.Cfg.RateLimitWindow)*time.Second,
	)
	defer limiter.Close()

	handler := api.NewHandler(orchestrator, limiter)

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", api.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.With(api.Identity).Post("/enhance", handler.Enhance)
		r.Get("/techniques", handler.ListTechniques)
		r.Get("/models", handler.ListModels)

		r.Get("/webhooks/stripe", billing.Info)
		r.Post("/webhooks/stripe", billing.Handle)
	})

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Prompt Enhancer starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Prompt Enhancer stopped")
}
