package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// memRepo is an in-memory member.Repository with version checks.
type memRepo struct {
	mu   sync.Mutex
	recs map[shared.UserID]*member.Record

	upsertErr     error
	conflictsLeft int

	gets    int
	upserts int
}

func newMemRepo() *memRepo {
	return &memRepo{recs: make(map[shared.UserID]*member.Record)}
}

func (r *memRepo) Get(_ context.Context, id shared.UserID) (*member.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	rec, ok := r.recs[id]
	if !ok {
		return nil, shared.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *memRepo) Upsert(_ context.Context, rec *member.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++

	if r.upsertErr != nil {
		return r.upsertErr
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return shared.ErrRecordConflict
	}

	stored, ok := r.recs[rec.UserID]
	if rec.Version == 0 && ok {
		return shared.ErrRecordConflict
	}
	if rec.Version != 0 && (!ok || stored.Version != rec.Version) {
		return shared.ErrRecordConflict
	}

	rec.Version++
	r.recs[rec.UserID] = rec.Clone()
	return nil
}

func (r *memRepo) Top(_ context.Context, limit int) ([]*member.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*member.Record, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].XP > out[j].XP })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) Rank(_ context.Context, id shared.UserID) (shared.Rank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	if !ok {
		return shared.Unranked, shared.ErrRecordNotFound
	}
	rank := 1
	for _, other := range r.recs {
		if other.XP > rec.XP {
			rank++
		}
	}
	return shared.Rank(rank), nil
}

func (r *memRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs), nil
}

func (r *memRepo) put(rec *member.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Level = member.LevelForXP(rec.XP)
	if rec.Version == 0 {
		rec.Version = 1
	}
	r.recs[rec.UserID] = rec.Clone()
}

func (r *memRepo) stored(id shared.UserID) *member.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.recs[id]; ok {
		return rec.Clone()
	}
	return nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
	err    error
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

var errStoreDown = errors.New("disk I/O error")

var fixedNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func fixedRoll(n int64) XPRoller {
	return func(min, max int64) int64 { return n }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	repo      *memRepo
	clock     *testClock
	publisher *recordingPublisher
	mutator   *RecordMutator
	config    LedgerConfig
}

func newFixture() *fixture {
	repo := newMemRepo()
	clock := &testClock{now: fixedNow}
	cfg := DefaultMutatorConfig()
	cfg.RetryInterval = time.Millisecond
	return &fixture{
		repo:      repo,
		clock:     clock,
		publisher: &recordingPublisher{},
		mutator:   NewRecordMutator(repo, clock.Now, discardLogger(), cfg),
		config:    DefaultLedgerConfig(),
	}
}

func (f *fixture) ingest(roll int64) *IngestActivityHandler {
	return NewIngestActivityHandler(f.mutator, f.publisher, fixedRoll(roll), discardLogger(), f.config)
}

func (f *fixture) daily() *ClaimDailyHandler {
	return NewClaimDailyHandler(f.mutator, f.publisher, discardLogger(), f.config)
}

func (f *fixture) redeem() *RedeemRewardHandler {
	return NewRedeemRewardHandler(f.mutator, nil, f.publisher, discardLogger())
}

func (f *fixture) prefs() *UpdatePreferencesHandler {
	return NewUpdatePreferencesHandler(f.mutator, f.publisher, discardLogger())
}
