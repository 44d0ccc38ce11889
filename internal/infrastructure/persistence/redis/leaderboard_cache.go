package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// Sorted set user_id -> XP. Rank follows the store: 1 + members with
// strictly more XP, so equal XP shares a position.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements member.Leaderboard on a Redis sorted set.
type LeaderboardCache struct {
	cache    *Cache
	xpKey    string
	stateKey string
	now      func() time.Time
}

// snapshotState is the stored form of member.SnapshotState.
type snapshotState struct {
	BuiltAt  time.Time `json:"built_at"`
	Depth    int       `json:"depth"`
	Complete bool      `json:"complete"`
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{
		cache:    cache,
		xpKey:    LeaderboardKey("xp"),
		stateKey: LeaderboardKey("state"),
		now:      time.Now,
	}
}

var _ member.Leaderboard = (*LeaderboardCache)(nil)

// Top returns the first limit standings.
func (l *LeaderboardCache) Top(ctx context.Context, limit int) ([]member.Standing, error) {
	if limit <= 0 {
		return []member.Standing{}, nil
	}

	members, err := l.cache.Client().ZRevRangeWithScores(ctx, l.xpKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}

	standings := make([]member.Standing, 0, len(members))
	for i, z := range members {
		userID, ok := z.Member.(string)
		if !ok {
			continue
		}
		xp := shared.XP(int64(z.Score))

		rank := shared.Rank(i + 1)
		if i > 0 && standings[len(standings)-1].XP == xp {
			rank = standings[len(standings)-1].Rank
		}

		standings = append(standings, member.Standing{
			UserID: shared.UserID(userID),
			XP:     xp,
			Level:  member.LevelForXP(xp),
			Rank:   rank,
		})
	}
	return standings, nil
}

// Rank returns the position of a user or shared.ErrRecordNotFound.
func (l *LeaderboardCache) Rank(ctx context.Context, id shared.UserID) (shared.Rank, error) {
	client := l.cache.Client()

	score, err := client.ZScore(ctx, l.xpKey, id.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Unranked, shared.ErrRecordNotFound
		}
		return shared.Unranked, fmt.Errorf("leaderboard score: %w", err)
	}

	ahead, err := client.ZCount(ctx, l.xpKey, "("+strconv.FormatInt(int64(score), 10), "+inf").Result()
	if err != nil {
		return shared.Unranked, fmt.Errorf("leaderboard rank: %w", err)
	}
	return shared.Rank(ahead + 1), nil
}

// Update sets the XP of one user. XP never decreases, so an out-of-order
// update carrying a lower value is ignored.
func (l *LeaderboardCache) Update(ctx context.Context, id shared.UserID, xp shared.XP) error {
	err := l.cache.Client().ZAddArgs(ctx, l.xpKey, redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(xp), Member: id.String()}},
	}).Err()
	if err != nil {
		return fmt.Errorf("leaderboard update: %w", err)
	}
	return nil
}

// Rebuild replaces the snapshot and its state in one MULTI/EXEC.
func (l *LeaderboardCache) Rebuild(ctx context.Context, records []*member.Record, complete bool) error {
	state, err := json.Marshal(snapshotState{
		BuiltAt:  l.now().UTC(),
		Depth:    len(records),
		Complete: complete,
	})
	if err != nil {
		return fmt.Errorf("leaderboard state: %w", err)
	}

	pipe := l.cache.Client().TxPipeline()

	pipe.Del(ctx, l.xpKey)
	if len(records) > 0 {
		members := make([]redis.Z, 0, len(records))
		for _, rec := range records {
			members = append(members, redis.Z{
				Score:  float64(rec.XP),
				Member: rec.UserID.String(),
			})
		}
		pipe.ZAdd(ctx, l.xpKey, members...)
	}
	pipe.Set(ctx, l.stateKey, state, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard rebuild: %w", err)
	}
	return nil
}

// State returns the parameters of the last Rebuild, or a zero state if none.
func (l *LeaderboardCache) State(ctx context.Context) (member.SnapshotState, error) {
	var st snapshotState
	if err := l.cache.Get(ctx, l.stateKey, &st); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return member.SnapshotState{}, nil
		}
		return member.SnapshotState{}, fmt.Errorf("leaderboard state: %w", err)
	}
	return member.SnapshotState{
		BuiltAt:  st.BuiltAt,
		Depth:    st.Depth,
		Complete: st.Complete,
	}, nil
}
