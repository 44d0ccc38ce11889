package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// cachedRecord is the JSON shape of a member record in Redis.
type cachedRecord struct {
	UserID           string     `json:"user_id"`
	XP               int64      `json:"xp"`
	Level            int        `json:"level"`
	Credits          int64      `json:"credits"`
	Badges           []string   `json:"badges"`
	MessagesSent     int64      `json:"messages_sent"`
	ReactionsGiven   int64      `json:"reactions_given"`
	JoinedAt         time.Time  `json:"joined_at"`
	LastClaimedDaily *time.Time `json:"last_claimed_daily,omitempty"`
	PrefLevelUp      bool       `json:"pref_level_up"`
	PrefDailyReward  bool       `json:"pref_daily_reward"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func fromRecord(rec *member.Record) cachedRecord {
	return cachedRecord{
		UserID:           rec.UserID.String(),
		XP:               rec.XP.Int64(),
		Level:            rec.Level.Int(),
		Credits:          rec.Credits.Int64(),
		Badges:           rec.Badges,
		MessagesSent:     rec.MessagesSent,
		ReactionsGiven:   rec.ReactionsGiven,
		JoinedAt:         rec.JoinedAt,
		LastClaimedDaily: rec.LastClaimedDaily,
		PrefLevelUp:      rec.Preferences.LevelUp,
		PrefDailyReward:  rec.Preferences.DailyReward,
		Version:          rec.Version,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func (c cachedRecord) toRecord() *member.Record {
	badges := c.Badges
	if badges == nil {
		badges = []string{}
	}
	return &member.Record{
		UserID:           shared.UserID(c.UserID),
		XP:               shared.XP(c.XP),
		Level:            shared.Level(c.Level),
		Credits:          shared.Credits(c.Credits),
		Badges:           badges,
		MessagesSent:     c.MessagesSent,
		ReactionsGiven:   c.ReactionsGiven,
		JoinedAt:         c.JoinedAt,
		LastClaimedDaily: c.LastClaimedDaily,
		Preferences:      member.Preferences{LevelUp: c.PrefLevelUp, DailyReward: c.PrefDailyReward},
		Version:          c.Version,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// RecordCache implements member.Cache on top of Cache.
type RecordCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewRecordCache creates a record cache. A non-positive ttl uses TTLRecordCache.
func NewRecordCache(cache *Cache, ttl time.Duration) *RecordCache {
	if ttl <= 0 {
		ttl = TTLRecordCache
	}
	return &RecordCache{cache: cache, ttl: ttl}
}

var _ member.Cache = (*RecordCache)(nil)

// Get returns the cached record or shared.ErrRecordNotFound on a miss.
func (r *RecordCache) Get(ctx context.Context, id shared.UserID) (*member.Record, error) {
	var cached cachedRecord
	if err := r.cache.Get(ctx, RecordKey(id.String()), &cached); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrRecordNotFound
		}
		return nil, err
	}
	return cached.toRecord(), nil
}

// Set stores a record.
func (r *RecordCache) Set(ctx context.Context, rec *member.Record) error {
	if rec == nil {
		return ErrCacheNilValue
	}
	return r.cache.Set(ctx, RecordKey(rec.UserID.String()), fromRecord(rec), r.ttl)
}

// Delete removes a record from the cache.
func (r *RecordCache) Delete(ctx context.Context, id shared.UserID) error {
	return r.cache.Delete(ctx, RecordKey(id.String()))
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHED REPOSITORY
// Read-through, write-through decorator. Cache failures are logged and the
// call falls through to the store; a write conflict evicts the entry so the
// retry reads the stored version.
// ══════════════════════════════════════════════════════════════════════════════

// CachedRepository wraps a member.Repository with a member.Cache.
type CachedRepository struct {
	repo   member.Repository
	cache  member.Cache
	logger *slog.Logger
}

// NewCachedRepository creates the decorator.
func NewCachedRepository(repo member.Repository, cache member.Cache, logger *slog.Logger) *CachedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{
		repo:   repo,
		cache:  cache,
		logger: logger.With("component", "record_cache"),
	}
}

var _ member.Repository = (*CachedRepository)(nil)

func (c *CachedRepository) Get(ctx context.Context, id shared.UserID) (*member.Record, error) {
	rec, err := c.cache.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, shared.ErrRecordNotFound) {
		c.logger.Warn("cache read failed", "user_id", id, "error", err)
	}

	rec, err = c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, rec); err != nil {
		c.logger.Warn("cache fill failed", "user_id", id, "error", err)
	}
	return rec, nil
}

func (c *CachedRepository) Upsert(ctx context.Context, rec *member.Record) error {
	if err := c.repo.Upsert(ctx, rec); err != nil {
		if errors.Is(err, shared.ErrConcurrentModification) {
			c.evict(ctx, rec.UserID)
		}
		return err
	}

	if err := c.cache.Set(ctx, rec); err != nil {
		c.logger.Warn("cache write failed", "user_id", rec.UserID, "error", err)
		c.evict(ctx, rec.UserID)
	}
	return nil
}

func (c *CachedRepository) Top(ctx context.Context, limit int) ([]*member.Record, error) {
	return c.repo.Top(ctx, limit)
}

func (c *CachedRepository) Rank(ctx context.Context, id shared.UserID) (shared.Rank, error) {
	return c.repo.Rank(ctx, id)
}

func (c *CachedRepository) Count(ctx context.Context) (int, error) {
	return c.repo.Count(ctx)
}

func (c *CachedRepository) evict(ctx context.Context, id shared.UserID) {
	if err := c.cache.Delete(ctx, id); err != nil {
		c.logger.Warn("cache evict failed", "user_id", id, "error", err)
	}
}
