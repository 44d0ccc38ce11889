package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD MUTATOR
// Every ledger write goes through Mutate: lock the user, load the record,
// apply the mutation in memory, persist it with one versioned Upsert.
// A version conflict reloads and reapplies; any other error aborts.
// ══════════════════════════════════════════════════════════════════════════════

// LoadPolicy decides what happens when the user has no record yet.
type LoadPolicy int

const (
	// MustExist fails with shared.ErrUnknownUser.
	MustExist LoadPolicy = iota
	// CreateIfAbsent starts from a fresh record.
	CreateIfAbsent
	// SkipIfAbsent returns (nil, nil) without writing.
	SkipIfAbsent
)

// Mutation changes a record in memory. It may run more than once if the
// store reports a version conflict, so it must derive everything from rec.
type Mutation func(rec *member.Record) error

// Clock returns the current time.
type Clock func() time.Time

// MutatorConfig contains configuration for the RecordMutator.
type MutatorConfig struct {
	// MaxConflictRetries bounds reapplication after a version conflict.
	MaxConflictRetries uint64

	// RetryInterval is the initial wait between conflict retries.
	RetryInterval time.Duration

	// OnConflict is called for every version conflict (metrics hook).
	OnConflict func()
}

// DefaultMutatorConfig returns default configuration.
func DefaultMutatorConfig() MutatorConfig {
	return MutatorConfig{
		MaxConflictRetries: 3,
		RetryInterval:      10 * time.Millisecond,
	}
}

// RecordMutator performs serialized read-modify-write cycles on records.
type RecordMutator struct {
	repo   member.Repository
	locks  *KeyedMutex
	clock  Clock
	logger *slog.Logger
	config MutatorConfig
}

// NewRecordMutator creates a new RecordMutator.
func NewRecordMutator(repo member.Repository, clock Clock, logger *slog.Logger, config MutatorConfig) *RecordMutator {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxConflictRetries == 0 {
		config.MaxConflictRetries = DefaultMutatorConfig().MaxConflictRetries
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultMutatorConfig().RetryInterval
	}

	return &RecordMutator{
		repo:   repo,
		locks:  NewKeyedMutex(),
		clock:  clock,
		logger: logger,
		config: config,
	}
}

// Now returns the mutator's current time.
func (m *RecordMutator) Now() time.Time {
	return m.clock()
}

// Mutate loads the record for id, applies fn and persists the result.
// joinedAt is used only when a record is created.
func (m *RecordMutator) Mutate(
	ctx context.Context,
	id shared.UserID,
	policy LoadPolicy,
	joinedAt *time.Time,
	fn Mutation,
) (*member.Record, error) {
	unlock, err := m.locks.Lock(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("mutate: acquire lock: %w", err)
	}
	defer unlock()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = m.config.RetryInterval
	eb.MaxElapsedTime = 0
	policyBackoff := backoff.WithContext(backoff.WithMaxRetries(eb, m.config.MaxConflictRetries), ctx)

	attempt := 0
	rec, err := backoff.RetryWithData(func() (*member.Record, error) {
		attempt++
		rec, err := m.load(ctx, id, policy, joinedAt)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if rec == nil {
			return nil, nil
		}

		if err := fn(rec); err != nil {
			return nil, backoff.Permanent(err)
		}

		rec.Level = member.LevelForXP(rec.XP)
		rec.UpdatedAt = m.clock()

		if err := m.repo.Upsert(ctx, rec); err != nil {
			if shared.IsConflict(err) {
				if m.config.OnConflict != nil {
					m.config.OnConflict()
				}
				m.logger.Warn("record version conflict, retrying",
					slog.String("user_id", id.String()),
					slog.Int("attempt", attempt),
				)
				return nil, err
			}
			return nil, backoff.Permanent(fmt.Errorf("mutate: upsert: %w", err))
		}
		return rec, nil
	}, policyBackoff)

	if err != nil {
		if shared.IsConflict(err) {
			return nil, shared.WrapError("member", "Mutate", shared.ErrConcurrentModification,
				fmt.Sprintf("gave up after %d attempts", attempt), err)
		}
		return nil, err
	}
	return rec, nil
}

func (m *RecordMutator) load(ctx context.Context, id shared.UserID, policy LoadPolicy, joinedAt *time.Time) (*member.Record, error) {
	rec, err := m.repo.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, shared.ErrRecordNotFound) {
		return nil, fmt.Errorf("mutate: load record: %w", err)
	}

	switch policy {
	case CreateIfAbsent:
		return member.NewRecord(id, joinedAt, m.clock()), nil
	case SkipIfAbsent:
		return nil, nil
	default:
		return nil, shared.ErrUnknownUser
	}
}
