package session

import (
	"context"
	"fmt"

	"sc2summariser/internal/replay"

	"go.uber.org/zap"
)

// Coach turns a prompt into written feedback
type Coach interface {
	Feedback(ctx context.Context, prompt string) (string, error)
}

// Sharer publishes a summary outside the app
type Sharer interface {
	ShareSummary(ctx context.Context, fileName string, data replay.SummarisedData, summary string) error
}

// WithCoach enables RequestFeedback
func WithCoach(c Coach) Option {
	return func(o *Orchestrator) {
		o.coach = c
	}
}

// WithSharer enables Share
func WithSharer(s Sharer) Option {
	return func(o *Orchestrator) {
		o.sharer = s
	}
}

// Result is the analysis currently on screen
type Result struct {
	Source   string
	Data     replay.SummarisedData
	Selected *int
	Summary  string
	Prompt   string
	Feedback string
}

// Result returns the current result, if the session has one
func (o *Orchestrator) Result() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.state
	if s.Phase != PhaseSuccess || s.Data == nil {
		return Result{}, false
	}
	r := Result{
		Source:   s.Source,
		Data:     *s.Data,
		Summary:  s.Summary,
		Prompt:   s.Prompt,
		Feedback: s.Feedback,
	}
	if s.Selected != nil {
		id := *s.Selected
		r.Selected = &id
	}
	return r, true
}

// RequestFeedback sends the current prompt to the coach and shows the reply.
// It blocks for the duration of the model call; the lock is not held.
func (o *Orchestrator) RequestFeedback(ctx context.Context) (string, error) {
	if o.coach == nil {
		o.dispatch(Announced{Text: MsgNotConfigured})
		return "", ErrNotConfigured
	}
	res, ok := o.Result()
	if !ok {
		o.dispatch(Announced{Text: MsgNoSummary})
		return "", ErrNoResult
	}

	o.logger.Info("requesting coach feedback", zap.String("file", res.Source))
	text, err := o.coach.Feedback(ctx, res.Prompt)
	if err != nil {
		o.logger.Error("coach feedback failed", zap.String("file", res.Source), zap.Error(err))
		o.dispatch(Announced{Text: MsgFeedbackFailed})
		return "", fmt.Errorf("failed to get feedback: %w", err)
	}

	o.dispatch(FeedbackReceived{Prompt: res.Prompt, Text: text})
	return text, nil
}

// Share posts the current summary through the configured Sharer
func (o *Orchestrator) Share(ctx context.Context) error {
	if o.sharer == nil {
		o.dispatch(Announced{Text: MsgNotConfigured})
		return ErrNotConfigured
	}
	res, ok := o.Result()
	if !ok {
		o.dispatch(Announced{Text: MsgNoSummary})
		return ErrNoResult
	}

	if err := o.sharer.ShareSummary(ctx, res.Source, res.Data, res.Summary); err != nil {
		o.logger.Error("share failed", zap.String("file", res.Source), zap.Error(err))
		o.dispatch(Announced{Text: MsgShareFailed})
		return fmt.Errorf("failed to share summary: %w", err)
	}

	o.logger.Info("summary shared", zap.String("file", res.Source))
	o.dispatch(Announced{Text: MsgShared})
	return nil
}

// Notify shows text as a notice
func (o *Orchestrator) Notify(text string) {
	o.dispatch(Announced{Text: text})
}
