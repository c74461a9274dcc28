package main

import (
	"context"
	"fmt"

	"sc2summariser/internal/analysis"
	"sc2summariser/internal/coach"
	"sc2summariser/internal/config"
	"sc2summariser/internal/discord"
	"sc2summariser/internal/history"
	"sc2summariser/internal/session"

	"go.uber.org/zap"
)

// App struct
type App struct {
	ctx     context.Context
	cfg     *config.Config
	log     *zap.Logger
	session *session.Orchestrator
	history *history.Store
}

// NewApp creates a new App application struct
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := history.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		history: store,
	}

	opts := []session.Option{
		session.WithClipboard(wailsClipboard{app: a}),
		session.WithPublisher(eventPublisher{app: a}),
		session.WithHistory(store),
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
	a.session = session.New(uploader, cfg.Session(), opts...)

	return a, nil
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.registerHotkeys()

	a.log.Info("replay summariser started",
		zap.String("api_url", a.cfg.APIURL),
		zap.Bool("coach", a.cfg.CoachEnabled()),
		zap.Bool("discord", a.cfg.DiscordEnabled()),
	)
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	// Abandons any upload still in flight.
	a.session.Reset()
	a.session.Wait()

	if err := a.history.Close(); err != nil {
		a.log.Warn("failed to close history", zap.Error(err))
	}
}
