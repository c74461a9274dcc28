package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sc2summariser/internal/analysis"
	"sc2summariser/internal/coach"
	"sc2summariser/internal/config"
	"sc2summariser/internal/discord"
	"sc2summariser/internal/history"
	"sc2summariser/internal/logger"
	"sc2summariser/internal/session"
	"sc2summariser/internal/web"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutput,
	})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := setupSignalHandler(log)

	store, err := history.NewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	hub := web.NewHub(log.Named("hub"))
	go hub.Run(ctx)

	opts := []session.Option{
		session.WithContext(ctx),
		session.WithHistory(store),
		session.WithPublisher(hub),
		session.WithLogger(log.Named("session")),
	}
	if cfg.CoachEnabled() {
		opts = append(opts, session.WithCoach(coach.NewClient(cfg.CoachAPIKey,
			coach.WithBaseURL(cfg.CoachBaseURL),
			coach.WithModel(cfg.CoachModel),
			coach.WithLogger(log.Named("coach")),
		)))
	}
	if cfg.DiscordEnabled() {
		opts = append(opts, session.WithSharer(discord.NewWebhookClient(cfg.DiscordWebhookURL)))
	}

	uploader := analysis.NewClient(cfg.APIURL,
		analysis.WithTimeout(cfg.AnalysisTimeout),
		analysis.WithLogger(log.Named("analysis")),
	)
	orch := session.New(uploader, cfg.Session(), opts...)

	srv := web.NewServer(ctx, orch, store, hub, cfg.Session().Rules, log.Named("web"))
	httpServer := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("replay summariser listening",
			zap.String("addr", cfg.WebAddr),
			zap.String("api_url", cfg.APIURL),
			zap.Bool("coach", cfg.CoachEnabled()),
			zap.Bool("discord", cfg.DiscordEnabled()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	orch.Reset()
	orch.Wait()
	log.Info("stopped")
	return nil
}

// setupSignalHandler returns a context cancelled on SIGINT or SIGTERM. A
// second signal forces exit.
func setupSignalHandler(log *zap.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()

		sig = <-sigCh
		log.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	return ctx
}
