package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/example/pr-style-reviewer/internal/api"
	"github.com/example/pr-style-reviewer/internal/checker"
	"github.com/example/pr-style-reviewer/internal/config"
	"github.com/example/pr-style-reviewer/internal/github"
	"github.com/example/pr-style-reviewer/internal/logger"
	"github.com/example/pr-style-reviewer/internal/orchestrator"
	"github.com/example/pr-style-reviewer/internal/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and review HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	gh := github.NewClient(cfg.GitHub.Token, github.WithRateLimit(cfg.GitHub.RateLimit))
	if gh == nil {
		log.Warnf("GITHUB_TOKEN is not set; pull request reviews will fail")
	}

	service := orchestrator.NewService(gh, store, checker.NewDefaultRegistry(), log, cfg.Review.StyleFile,
		orchestrator.WithWorkers(cfg.Review.Workers),
		orchestrator.WithFetchTimeout(cfg.Review.FetchTimeout),
		orchestrator.WithCheckTimeout(cfg.Review.CheckTimeout),
	)
	handlers := api.NewHandlers(service, cfg.GitHub.WebhookSecret,
		api.WithLogger(log),
		api.WithRunTimeout(cfg.Review.RunTimeout),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("POST /webhook/github", handlers.WebhookGitHub)
	mux.HandleFunc("POST /analyze/pr", handlers.AnalyzePR)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErr <- err
			return
		}
		shutdownErr <- handlers.Drain(shutdownCtx)
	}()

	log.Infof("server listening on :%s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		log.Error("shutdown error", err)
	}
	return nil
}
