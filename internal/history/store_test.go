package history

import (
	"context"
	"testing"
	"time"

	"sc2summariser/internal/replay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ladderMatch() replay.SummarisedData {
	return replay.SummarisedData{
		Map:       "Ladder",
		Duration:  125,
		GameType:  "1v1",
		Build:     "94137",
		Expansion: "LotV",
		Players: []replay.PlayerStats{
			{PlayerID: 1, Name: "Alice", Race: "Terran", IsHuman: true, Result: "Win"},
			{PlayerID: 2, Name: "Bob", Race: "Zerg", IsHuman: false, Result: "Loss"},
		},
		Commands: []replay.CommandEvent{
			{Player: 1, Second: 65, Frame: 1456, AbilityName: "Build Barracks"},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, "game.SC2Replay", ladderMatch())
	require.NoError(t, err)

	name, data, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "game.SC2Replay", name)
	assert.Equal(t, ladderMatch(), *data)

	// A reloaded result renders exactly like the original.
	assert.Equal(t, replay.BuildSummary(ladderMatch(), nil), replay.BuildSummary(*data, nil))
}

func TestStore_LoadUnknown(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.Load(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	_, err := store.Record(ctx, "first.SC2Replay", ladderMatch())
	require.NoError(t, err)

	second := ladderMatch()
	second.Map = "Alcyone LE"
	second.Duration = 3661
	clock = clock.Add(time.Minute)
	_, err = store.Record(ctx, "second.SC2Replay", second)
	require.NoError(t, err)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "second.SC2Replay", entries[0].FileName)
	assert.Equal(t, "Alcyone LE", entries[0].Map)
	assert.Equal(t, "61:01", entries[0].Duration)
	assert.True(t, entries[0].AnalysedAt.Equal(clock))

	assert.Equal(t, "first.SC2Replay", entries[1].FileName)
	assert.Equal(t, "Alice (Terran) vs Bob (Zerg)", entries[1].Matchup)
}

func TestStore_ListEmpty(t *testing.T) {
	entries, err := newTestStore(t).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestStore_IsolatedPerInstance(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)

	_, err := a.Record(context.Background(), "game.SC2Replay", ladderMatch())
	require.NoError(t, err)

	entries, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
