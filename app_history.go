package main

import (
	"context"
	"errors"
	"time"

	"sc2summariser/internal/history"
	"sc2summariser/internal/session"

	"go.uber.org/zap"
)

// Coach replies can take a while on free-tier models
const assistTimeout = 2 * time.Minute

// GetHistory returns the replays analysed since the app started, newest first
func (a *App) GetHistory() []history.Entry {
	entries, err := a.history.List(a.ctx)
	if err != nil {
		a.log.Error("failed to list history", zap.Error(err))
		return []history.Entry{}
	}
	return entries
}

// OpenHistory shows an earlier result again
func (a *App) OpenHistory(id int64) session.Snapshot {
	if err := a.session.OpenHistory(a.ctx, id); err != nil {
		if !errors.Is(err, session.ErrUploadInProgress) {
			a.log.Warn("failed to open history", zap.Int64("id", id), zap.Error(err))
			a.session.Notify(session.MsgSomethingWrong)
		}
	}
	return a.session.Snapshot()
}

// RequestFeedback asks the configured model to review the current prompt
func (a *App) RequestFeedback() session.Snapshot {
	ctx, cancel := context.WithTimeout(a.ctx, assistTimeout)
	defer cancel()

	_, _ = a.session.RequestFeedback(ctx)
	return a.session.Snapshot()
}

// ShareToDiscord posts the current summary to the configured webhook
func (a *App) ShareToDiscord() session.Snapshot {
	ctx, cancel := context.WithTimeout(a.ctx, assistTimeout)
	defer cancel()

	_ = a.session.Share(ctx)
	return a.session.Snapshot()
}
