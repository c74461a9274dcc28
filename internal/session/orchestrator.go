package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"sc2summariser/internal/replay"

	"go.uber.org/zap"
)

const (
	// DefaultSlowAfter is when an upload starts showing the "taking too long" hint
	DefaultSlowAfter = 5 * time.Second
	// DefaultNoticeTTL is how long a notice stays up
	DefaultNoticeTTL = 3 * time.Second
)

// Uploader sends a replay to the analysis service
type Uploader interface {
	Upload(ctx context.Context, fileName string, content io.Reader) (*replay.SummarisedData, error)
}

// Clipboard receives copied text
type Clipboard interface {
	SetText(text string) error
}

// Publisher is told about every state change. Publish is called with the
// orchestrator lock held and must not call back into the Orchestrator.
type Publisher interface {
	Publish(Snapshot)
}

// History keeps the results analysed during this session
type History interface {
	Record(ctx context.Context, fileName string, data replay.SummarisedData) (int64, error)
	Load(ctx context.Context, id int64) (string, *replay.SummarisedData, error)
}

// Config holds the orchestrator's tunables
type Config struct {
	Rules     replay.Rules
	SlowAfter time.Duration
	NoticeTTL time.Duration
}

// DefaultConfig returns the StarCraft 2 rules with the standard timings
func DefaultConfig() Config {
	return Config{
		Rules:     replay.DefaultRules(),
		SlowAfter: DefaultSlowAfter,
		NoticeTTL: DefaultNoticeTTL,
	}
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithClipboard sets where copy actions write to
func WithClipboard(c Clipboard) Option {
	return func(o *Orchestrator) {
		o.clipboard = c
	}
}

// WithPublisher sets the receiver of state snapshots
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithHistory records successful results so they can be reopened
func WithHistory(h History) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// WithLogger sets the logger for diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithContext sets the parent context for uploads
func WithContext(ctx context.Context) Option {
	return func(o *Orchestrator) {
		o.ctx = ctx
	}
}

// Orchestrator runs the session state machine and its side effects: the
// upload request, the slow-warning timer, notice expiry, clipboard writes
// and history recording.
type Orchestrator struct {
	mu    sync.Mutex
	state State

	ctx       context.Context
	cfg       Config
	uploader  Uploader
	clipboard Clipboard
	publisher Publisher
	history   History
	coach     Coach
	sharer    Sharer
	logger    *zap.Logger

	cancel    context.CancelFunc
	slowTimer *time.Timer
	inflight  sync.WaitGroup
}

// New creates an idle Orchestrator
func New(uploader Uploader, cfg Config, opts ...Option) *Orchestrator {
	if cfg.SlowAfter <= 0 {
		cfg.SlowAfter = DefaultSlowAfter
	}
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = DefaultNoticeTTL
	}

	o := &Orchestrator{
		state:    NewState(cfg.Rules),
		ctx:      context.Background(),
		cfg:      cfg,
		uploader: uploader,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Snapshot returns the current observable state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Snapshot()
}

// ChooseFile validates and holds f. A rejected file returns a
// *replay.ValidationError and leaves no file held.
func (o *Orchestrator) ChooseFile(f File) error {
	o.dispatch(FileChosen{File: f})
	if err := replay.Validate(f.Size, f.Name, o.cfg.Rules); err != nil {
		o.logger.Info("replay rejected", zap.String("file", f.Name), zap.Int64("size", f.Size), zap.Error(err))
		return err
	}
	o.logger.Info("replay selected", zap.String("file", f.Name), zap.Int64("size", f.Size))
	return nil
}

// Upload starts sending the held file. It returns immediately; progress is
// reported through snapshots.
func (o *Orchestrator) Upload() error {
	prev, next := o.dispatch(UploadRequested{})
	if next.Attempt == prev.Attempt {
		if prev.Phase == PhaseUploading {
			return ErrUploadInProgress
		}
		return ErrNoFile
	}
	return nil
}

// SelectPlayer scopes the summary and prompt to player id. A nil id is a
// cleared selection and is rejected.
func (o *Orchestrator) SelectPlayer(id *int) error {
	_, next := o.dispatch(PlayerSelected{ID: id})
	if next.Selected == nil || id == nil || *next.Selected != *id {
		return ErrNoPlayer
	}
	return nil
}

// CopySummary writes the summary to the clipboard and returns it
func (o *Orchestrator) CopySummary() (string, error) {
	return o.copyText(CopySummary)
}

// CopyPrompt writes the prompt to the clipboard and returns it
func (o *Orchestrator) CopyPrompt() (string, error) {
	return o.copyText(CopyPrompt)
}

func (o *Orchestrator) copyText(target CopyTarget) (string, error) {
	o.mu.Lock()
	text := o.state.Summary
	if target == CopyPrompt {
		text = o.state.Prompt
	}
	o.mu.Unlock()

	if text == "" {
		o.dispatch(NothingToCopy{})
		return "", ErrNothingToCopy
	}

	if o.clipboard != nil {
		if err := o.clipboard.SetText(text); err != nil {
			o.logger.Warn("clipboard write failed", zap.String("target", string(target)), zap.Error(err))
			o.dispatch(CopyFailed{})
			return "", fmt.Errorf("failed to write clipboard: %w", err)
		}
	}

	o.dispatch(Copied{Target: target})
	return text, nil
}

// Reset drops the file, result and derived text and abandons any upload
func (o *Orchestrator) Reset() {
	o.dispatch(Reset{})
	o.logger.Info("session reset")
}

// OpenHistory restores a result recorded earlier in this session
func (o *Orchestrator) OpenHistory(ctx context.Context, id int64) error {
	if o.history == nil {
		return errors.New("history is not enabled")
	}

	name, data, err := o.history.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load history entry %d: %w", id, err)
	}

	_, next := o.dispatch(HistoryOpened{Name: name, Data: data})
	if next.Phase == PhaseUploading {
		return ErrUploadInProgress
	}
	return nil
}

// Wait blocks until no upload is in flight
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// dispatch applies ev and runs the effects implied by the transition
func (o *Orchestrator) dispatch(ev Event) (State, State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev := o.state
	next := Reduce(prev, ev)
	o.state = next

	if next.Attempt != prev.Attempt {
		// Whatever was in flight belongs to an older attempt now.
		o.stopUpload()
		if next.Phase == PhaseUploading && next.File != nil {
			o.startUpload(next.Attempt, *next.File)
		}
	} else if prev.Phase == PhaseUploading && next.Phase != PhaseUploading {
		o.stopSlowTimer()
	}

	if next.Notice.ID != prev.Notice.ID && next.Notice.Text != "" {
		id := next.Notice.ID
		time.AfterFunc(o.cfg.NoticeTTL, func() {
			o.dispatch(NoticeExpired{ID: id})
		})
	}

	if prev.Phase == PhaseUploading && next.Phase == PhaseSuccess && next.Data != nil {
		o.record(next.Source, *next.Data)
	}

	if o.publisher != nil {
		o.publisher.Publish(next.Snapshot())
	}

	return prev, next
}

// startUpload runs one request for attempt. Called with o.mu held.
func (o *Orchestrator) startUpload(attempt uint64, f File) {
	ctx, cancel := context.WithCancel(o.ctx)
	o.cancel = cancel
	o.slowTimer = time.AfterFunc(o.cfg.SlowAfter, func() {
		o.logger.Info("upload is taking longer than expected",
			zap.Uint64("attempt", attempt), zap.Duration("after", o.cfg.SlowAfter))
		o.dispatch(UploadSlow{Attempt: attempt})
	})

	o.logger.Info("upload started", zap.String("file", f.Name), zap.Uint64("attempt", attempt))

	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		defer cancel()

		data, err := o.send(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				o.logger.Debug("upload abandoned", zap.Uint64("attempt", attempt), zap.Error(err))
			} else {
				o.logger.Error("upload failed", zap.String("file", f.Name), zap.Uint64("attempt", attempt), zap.Error(err))
			}
			o.dispatch(UploadFailed{Attempt: attempt, Err: err})
			return
		}

		switch {
		case data == nil:
			o.logger.Error("upload returned no data", zap.String("file", f.Name), zap.Uint64("attempt", attempt))
		case data.GameType != replay.SupportedGameType:
			o.logger.Warn("unsupported game type", zap.String("file", f.Name), zap.String("game_type", data.GameType))
		default:
			o.logger.Info("upload finished", zap.String("file", f.Name), zap.Uint64("attempt", attempt),
				zap.Int("players", len(data.Players)), zap.Int("commands", len(data.Commands)))
		}
		o.dispatch(UploadSucceeded{Attempt: attempt, Data: data})
	}()
}

func (o *Orchestrator) send(ctx context.Context, f File) (*replay.SummarisedData, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("replay %s has no content", f.Name)
	}
	content, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	defer content.Close()

	return o.uploader.Upload(ctx, f.Name, content)
}

// stopUpload cancels the request in flight. Called with o.mu held.
func (o *Orchestrator) stopUpload() {
	o.stopSlowTimer()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) stopSlowTimer() {
	if o.slowTimer != nil {
		o.slowTimer.Stop()
		o.slowTimer = nil
	}
}

// record stores a result in history. Called with o.mu held; the insert runs
// in the background so the lock is not held across I/O.
func (o *Orchestrator) record(source string, data replay.SummarisedData) {
	if o.history == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		id, err := o.history.Record(ctx, source, data)
		if err != nil {
			o.logger.Warn("failed to record history", zap.String("file", source), zap.Error(err))
			return
		}
		o.logger.Debug("history recorded", zap.Int64("id", id), zap.String("file", source))
	}()
}
