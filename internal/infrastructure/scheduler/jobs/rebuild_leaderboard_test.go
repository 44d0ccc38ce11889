package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence/redis"
	"github.com/synthia-live/synthia-bot/internal/infrastructure/persistence/sqlite"
)

var (
	testNow     = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type rebuildRecorder struct {
	members []int
	at      []time.Time
}

func (r *rebuildRecorder) LeaderboardRebuilt(members int, at time.Time) {
	r.members = append(r.members, members)
	r.at = append(r.at, at)
}

func newFixture(t *testing.T, xps map[string]int64) (*sqlite.RecordStore, *redis.LeaderboardCache) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })
	store := sqlite.NewRecordStore(db)

	for id, xp := range xps {
		rec := member.NewRecord(shared.UserID(id), nil, testNow)
		rec.GainXP(shared.XP(xp))
		require.NoError(t, store.Upsert(context.Background(), rec))
	}

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return store, redis.NewLeaderboardCache(redis.NewCacheFromClient(client))
}

func TestRebuildLeaderboardJob_Run(t *testing.T) {
	store, board := newFixture(t, map[string]int64{"1": 900, "2": 400, "3": 400, "4": 100})
	recorder := &rebuildRecorder{}

	job := NewRebuildLeaderboardJob(store, board, recorder, quietLogger, RebuildLeaderboardConfig{Limit: 3})
	job.now = func() time.Time { return testNow }

	require.NoError(t, job.Run(context.Background()))

	ctx := context.Background()
	top, err := board.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, shared.UserID("1"), top[0].UserID)
	assert.Equal(t, shared.Rank(2), top[1].Rank)
	assert.Equal(t, shared.Rank(2), top[2].Rank)

	_, err = board.Rank(ctx, "4")
	assert.ErrorIs(t, err, shared.ErrRecordNotFound)

	state, err := board.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Depth)
	assert.False(t, state.Complete)

	assert.Equal(t, []int{3}, recorder.members)
	stats := job.LastRebuildStats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.Members)
	assert.Equal(t, testNow, stats.CompletedAt)
}

func TestRebuildLeaderboardJob_ReplacesStaleEntries(t *testing.T) {
	store, board := newFixture(t, map[string]int64{"1": 500})
	ctx := context.Background()
	require.NoError(t, board.Update(ctx, "gone", 9999))

	job := NewRebuildLeaderboardJob(store, board, nil, quietLogger, DefaultRebuildLeaderboardConfig())
	require.NoError(t, job.Run(ctx))

	_, err := board.Rank(ctx, "gone")
	assert.ErrorIs(t, err, shared.ErrRecordNotFound)
	rank, err := board.Rank(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, shared.Rank(1), rank)
}

type failingRepo struct{ member.Repository }

func (failingRepo) Top(context.Context, int) ([]*member.Record, error) {
	return nil, errors.New("db down")
}

func TestRebuildLeaderboardJob_StoreFailure(t *testing.T) {
	_, board := newFixture(t, nil)
	recorder := &rebuildRecorder{}

	job := NewRebuildLeaderboardJob(failingRepo{}, board, recorder, quietLogger, DefaultRebuildLeaderboardConfig())
	err := job.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load top records")
	assert.Empty(t, recorder.members)
	assert.Nil(t, job.LastRebuildStats())
}

func TestRebuildLeaderboardJob_Metadata(t *testing.T) {
	job := NewRebuildLeaderboardJob(nil, nil, nil, nil, RebuildLeaderboardConfig{})
	assert.Equal(t, "rebuild_leaderboard", job.Name())
	assert.NotEmpty(t, job.Description())
	assert.Equal(t, DefaultRebuildLeaderboardConfig().Limit, job.config.Limit)
}
