package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"sc2summariser/internal/analysis"
	"sc2summariser/internal/replay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploader answers uploads from a script and counts calls
type fakeUploader struct {
	mu      sync.Mutex
	calls   int
	names   []string
	release chan struct{}
	data    *replay.SummarisedData
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, fileName string, content io.Reader) (*replay.SummarisedData, error) {
	f.mu.Lock()
	f.calls++
	f.names = append(f.names, fileName)
	release := f.release
	data, err := f.data, f.err
	f.mu.Unlock()

	if _, rerr := io.ReadAll(content); rerr != nil {
		return nil, rerr
	}

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", analysis.ErrTransport, ctx.Err())
		}
	}
	return data, err
}

func (f *fakeUploader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) SetText(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (p *recordingPublisher) Publish(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, s)
}

func (p *recordingPublisher) Last() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snaps[len(p.snaps)-1]
}

type memoryHistory struct {
	mu      sync.Mutex
	entries map[int64]string
	data    map[int64]replay.SummarisedData
	next    int64
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{entries: map[int64]string{}, data: map[int64]replay.SummarisedData{}}
}

func (h *memoryHistory) Record(ctx context.Context, name string, data replay.SummarisedData) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.entries[h.next] = name
	h.data[h.next] = data
	return h.next, nil
}

func (h *memoryHistory) Load(ctx context.Context, id int64) (string, *replay.SummarisedData, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	name, ok := h.entries[id]
	if !ok {
		return "", nil, errors.New("not found")
	}
	data := h.data[id]
	return name, &data, nil
}

func (h *memoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SlowAfter = 30 * time.Millisecond
	cfg.NoticeTTL = 2 * time.Second
	return cfg
}

func TestOrchestrator_UploadSuccess(t *testing.T) {
	uploader := &fakeUploader{data: ladderMatch()}
	pub := &recordingPublisher{}
	hist := newMemoryHistory()
	o := New(uploader, testConfig(), WithPublisher(pub), WithHistory(hist))

	require.NoError(t, o.ChooseFile(replayFile("game.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseSuccess, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Equal(t, MsgUploadSuccessful, snap.Notice)
	assert.Contains(t, snap.Summary, "At 01:05, Alice used Build Barracks")
	assert.Equal(t, 1, uploader.Calls())
	assert.Equal(t, []string{"game.SC2Replay"}, uploader.names)

	assert.Equal(t, snap, pub.Last())
	assert.Eventually(t, func() bool { return hist.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestOrchestrator_GuardErrors(t *testing.T) {
	uploader := &fakeUploader{data: ladderMatch()}
	o := New(uploader, testConfig())

	assert.ErrorIs(t, o.Upload(), ErrNoFile)
	assert.Equal(t, MsgNoFile, o.Snapshot().Notice)

	err := o.ChooseFile(replayFile("game.SC2Replay", 2000000))
	var verr *replay.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, replay.ReasonTooLarge, verr.Reason)

	_, err = o.CopyPrompt()
	assert.ErrorIs(t, err, ErrNothingToCopy)
	assert.Equal(t, MsgNothingToCopy, o.Snapshot().Notice)

	assert.ErrorIs(t, o.SelectPlayer(intPtr(1)), ErrNoPlayer)
	assert.Equal(t, 0, uploader.Calls(), "guards never reach the network")
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	uploader := &fakeUploader{data: ladderMatch(), release: make(chan struct{})}
	o := New(uploader, testConfig())

	require.NoError(t, o.ChooseFile(replayFile("game.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	assert.ErrorIs(t, o.Upload(), ErrUploadInProgress)
	assert.Equal(t, MsgUploadInProgress, o.Snapshot().Notice)

	close(uploader.release)
	o.Wait()
	assert.Equal(t, 1, uploader.Calls())
	assert.Equal(t, PhaseSuccess, o.Snapshot().Phase)
}

func TestOrchestrator_SlowWarning(t *testing.T) {
	uploader := &fakeUploader{data: ladderMatch(), release: make(chan struct{})}
	o := New(uploader, testConfig())

	require.NoError(t, o.ChooseFile(replayFile("game.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	assert.False(t, o.Snapshot().Slow)

	assert.Eventually(t, func() bool { return o.Snapshot().Slow }, time.Second, 5*time.Millisecond)
	assert.True(t, o.Snapshot().Loading, "slow warning does not end the upload")

	close(uploader.release)
	o.Wait()
	snap := o.Snapshot()
	assert.False(t, snap.Slow)
	assert.Equal(t, PhaseSuccess, snap.Phase)
}

func TestOrchestrator_FastUploadNeverWarns(t *testing.T) {
	uploader := &fakeUploader{data: ladderMatch()}
	pub := &recordingPublisher{}
	o := New(uploader, testConfig(), WithPublisher(pub))

	require.NoError(t, o.ChooseFile(replayFile("game.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	o.Wait()
	time.Sleep(3 * testConfig().SlowAfter)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	for _, s := range pub.snaps {
		assert.False(t, s.Slow)
	}
}

// TestOrchestrator_TransportFailure covers a request that fails before any response
func TestOrchestrator_TransportFailure(t *testing.T) {
	uploader := &fakeUploader{err: fmt.Errorf("%w: dial tcp: connection refused", analysis.ErrTransport)}
	o := New(uploader, testConfig())

	require.NoError(t, o.ChooseFile(replayFile("game.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, MsgSomethingWrong, snap.Error)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Summary)
}

func TestOrchestrator_UploaderReturnsNothing(t *testing.T) {
	hist := newMemoryHistory()
	o := New(&fakeUploader{}, testConfig(), WithHistory(hist))

	require.NoError(t, o.ChooseFile(replayFile("game.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, MsgSomethingWrong, snap.Error)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Summary)
	assert.Equal(t, 0, hist.Len())
}

func TestOrchestrator_UnsupportedGameType(t *testing.T) {
	data := ladderMatch()
	data.GameType = "2v2"
	hist := newMemoryHistory()
	o := New(&fakeUploader{data: data}, testConfig(), WithHistory(hist))

	require.NoError(t, o.ChooseFile(replayFile("team.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Contains(t, snap.Error, "2v2")
	assert.Empty(t, snap.Summary)
	assert.Empty(t, snap.Prompt)
	assert.Equal(t, 0, hist.Len())
}

func TestOrchestrator_ResetCancelsUpload(t *testing.T) {
	uploader := &fakeUploader{data: ladderMatch(), release: make(chan struct{})}
	defer close(uploader.release)
	o := New(uploader, testConfig())

	require.NoError(t, o.ChooseFile(replayFile("game.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	o.Reset()
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error, "the abandoned attempt does not surface an error")
}

func TestOrchestrator_PlayerSelectionAndCopy(t *testing.T) {
	clip := &fakeClipboard{}
	o := New(&fakeUploader{data: ladderMatch()}, testConfig(), WithClipboard(clip))

	require.NoError(t, o.ChooseFile(replayFile("game.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	o.Wait()

	require.NoError(t, o.SelectPlayer(intPtr(1)))
	assert.ErrorIs(t, o.SelectPlayer(nil), ErrNoPlayer)
	assert.ErrorIs(t, o.SelectPlayer(intPtr(5)), ErrNoPlayer)

	text, err := o.CopySummary()
	require.NoError(t, err)
	assert.Equal(t, text, clip.text)
	assert.Contains(t, clip.text, "Me: Alice as Terran (Win)")
	assert.Equal(t, MsgSummaryCopied, o.Snapshot().Notice)

	text, err = o.CopyPrompt()
	require.NoError(t, err)
	assert.Equal(t, replay.BuildPrompt(*ladderMatch(), intPtr(1)), text)
	assert.Equal(t, MsgPromptCopied, o.Snapshot().Notice)

	clip.err = errors.New("no display")
	_, err = o.CopySummary()
	assert.Error(t, err)
	assert.Equal(t, MsgClipboardFailed, o.Snapshot().Notice)
}

func TestOrchestrator_NoticeExpires(t *testing.T) {
	cfg := testConfig()
	cfg.NoticeTTL = 20 * time.Millisecond
	o := New(&fakeUploader{}, cfg)

	assert.ErrorIs(t, o.Upload(), ErrNoFile)
	assert.Equal(t, MsgNoFile, o.Snapshot().Notice)
	assert.Eventually(t, func() bool { return o.Snapshot().Notice == "" }, time.Second, 5*time.Millisecond)
}

func TestOrchestrator_OpenHistory(t *testing.T) {
	hist := newMemoryHistory()
	o := New(&fakeUploader{data: ladderMatch()}, testConfig(), WithHistory(hist))

	require.NoError(t, o.ChooseFile(replayFile("first.SC2Replay", 2048)))
	require.NoError(t, o.Upload())
	o.Wait()
	require.Eventually(t, func() bool { return hist.Len() == 1 }, time.Second, 5*time.Millisecond)

	o.Reset()
	require.NoError(t, o.OpenHistory(context.Background(), 1))

	snap := o.Snapshot()
	assert.Equal(t, PhaseSuccess, snap.Phase)
	assert.Equal(t, "first.SC2Replay", snap.Source)
	assert.Contains(t, snap.Summary, "Map: Ladder")

	assert.Error(t, o.OpenHistory(context.Background(), 99))
}
