// Package jobs contains the scheduled jobs of the ledger.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildObserver receives the outcome of a rebuild.
type RebuildObserver interface {
	LeaderboardRebuilt(members int, at time.Time)
}

// RebuildLeaderboardJob reloads the top records from the store and replaces
// the leaderboard snapshot with them. Incremental updates keep the snapshot
// close between runs; the rebuild repairs drift and drops stale entries.
type RebuildLeaderboardJob struct {
	records     member.Repository
	leaderboard member.Leaderboard
	observer    RebuildObserver
	logger      *slog.Logger
	now         func() time.Time

	config RebuildLeaderboardConfig

	lastRebuildStats atomic.Pointer[RebuildStats]
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// Limit is how many records the snapshot holds.
	Limit int

	// Timeout is the maximum duration for the rebuild operation.
	Timeout time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		Limit:   1000,
		Timeout: 2 * time.Minute,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Members     int
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
func NewRebuildLeaderboardJob(
	records member.Repository,
	leaderboard member.Leaderboard,
	observer RebuildObserver,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Limit <= 0 {
		config.Limit = DefaultRebuildLeaderboardConfig().Limit
	}

	return &RebuildLeaderboardJob{
		records:     records,
		leaderboard: leaderboard,
		observer:    observer,
		logger:      logger.With("job", "rebuild_leaderboard"),
		now:         time.Now,
		config:      config,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Replaces the leaderboard snapshot with the top records from the store"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	startedAt := j.now()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	top, err := j.records.Top(ctx, j.config.Limit)
	if err != nil {
		return fmt.Errorf("load top records: %w", err)
	}

	complete := len(top) < j.config.Limit
	if err := j.leaderboard.Rebuild(ctx, top, complete); err != nil {
		return fmt.Errorf("rebuild snapshot: %w", err)
	}

	completedAt := j.now()
	stats := &RebuildStats{
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Members:     len(top),
	}
	j.lastRebuildStats.Store(stats)

	if j.observer != nil {
		j.observer.LeaderboardRebuilt(stats.Members, completedAt)
	}

	j.logger.Info("leaderboard rebuilt",
		"members", stats.Members,
		"complete", complete,
		"duration", stats.Duration.String(),
	)
	return nil
}

// LastRebuildStats returns statistics from the last successful rebuild.
func (j *RebuildLeaderboardJob) LastRebuildStats() *RebuildStats {
	return j.lastRebuildStats.Load()
}
