package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD REPOSITORY
// Implements member.Repository. Every write is a compare-and-set on version.
// ══════════════════════════════════════════════════════════════════════════════

const recordColumns = `user_id, xp, level, credits, badges, messages_sent, reactions_given,
	joined_at, last_claimed_daily, pref_level_up, pref_daily_reward,
	version, created_at, updated_at`

// RecordRepository implements member.Repository for PostgreSQL.
type RecordRepository struct {
	conn *Connection
	now  func() time.Time
}

// NewRecordRepository creates a new PostgreSQL record repository.
func NewRecordRepository(conn *Connection) *RecordRepository {
	return &RecordRepository{conn: conn, now: time.Now}
}

var _ member.Repository = (*RecordRepository)(nil)

// Get retrieves a record by user ID.
func (r *RecordRepository) Get(ctx context.Context, id shared.UserID) (*member.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM member_records WHERE user_id = $1`

	rec, err := scanRecord(r.conn.QueryRow(ctx, query, id.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

// Upsert inserts a new record (Version == 0) or updates an existing one
// when the stored version matches.
func (r *RecordRepository) Upsert(ctx context.Context, rec *member.Record) error {
	now := r.now().UTC()
	badges := rec.Badges
	if badges == nil {
		badges = []string{}
	}

	if rec.IsNew() {
		query := `
			INSERT INTO member_records (` + recordColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $13)
		`
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := r.conn.Exec(ctx, query,
			rec.UserID.String(),
			rec.XP.Int64(),
			rec.Level.Int(),
			rec.Credits.Int64(),
			badges,
			rec.MessagesSent,
			rec.ReactionsGiven,
			rec.JoinedAt,
			rec.LastClaimedDaily,
			rec.Preferences.LevelUp,
			rec.Preferences.DailyReward,
			createdAt,
			now,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.ErrRecordConflict
			}
			return fmt.Errorf("insert record %s: %w", rec.UserID, err)
		}
		rec.Version = 1
		rec.CreatedAt = createdAt
		rec.UpdatedAt = now
		return nil
	}

	query := `
		UPDATE member_records SET
			xp = $2,
			level = $3,
			credits = $4,
			badges = $5,
			messages_sent = $6,
			reactions_given = $7,
			last_claimed_daily = $8,
			pref_level_up = $9,
			pref_daily_reward = $10,
			version = version + 1,
			updated_at = $11
		WHERE user_id = $1 AND version = $12
	`
	tag, err := r.conn.Exec(ctx, query,
		rec.UserID.String(),
		rec.XP.Int64(),
		rec.Level.Int(),
		rec.Credits.Int64(),
		badges,
		rec.MessagesSent,
		rec.ReactionsGiven,
		rec.LastClaimedDaily,
		rec.Preferences.LevelUp,
		rec.Preferences.DailyReward,
		now,
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update record %s: %w", rec.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrRecordConflict
	}

	rec.Version++
	rec.UpdatedAt = now
	return nil
}

// Top returns records with the most XP, descending.
func (r *RecordRepository) Top(ctx context.Context, limit int) ([]*member.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM member_records ORDER BY xp DESC, user_id ASC LIMIT $1`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top records: %w", err)
	}
	defer rows.Close()

	records := make([]*member.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Rank returns 1 + the number of records with strictly more XP.
func (r *RecordRepository) Rank(ctx context.Context, id shared.UserID) (shared.Rank, error) {
	query := `
		SELECT 1 + (SELECT COUNT(*) FROM member_records o WHERE o.xp > r.xp)
		FROM member_records r
		WHERE r.user_id = $1
	`
	var rank int
	if err := r.conn.QueryRow(ctx, query, id.String()).Scan(&rank); err != nil {
		if IsNoRows(err) {
			return shared.Unranked, shared.ErrRecordNotFound
		}
		return shared.Unranked, fmt.Errorf("rank %s: %w", id, err)
	}
	return shared.Rank(rank), nil
}

// Count returns the total number of records.
func (r *RecordRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM member_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Scanning
// ──────────────────────────────────────────────────────────────────────────────

func scanRecord(row pgx.Row) (*member.Record, error) {
	var (
		rec                  member.Record
		userID               string
		xp, credits          int64
		level                int
		badges               []string
		lastClaimed          *time.Time
		prefLevel, prefDaily bool
	)

	err := row.Scan(
		&userID,
		&xp,
		&level,
		&credits,
		&badges,
		&rec.MessagesSent,
		&rec.ReactionsGiven,
		&rec.JoinedAt,
		&lastClaimed,
		&prefLevel,
		&prefDaily,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if badges == nil {
		badges = []string{}
	}

	rec.UserID = shared.UserID(userID)
	rec.XP = shared.XP(xp)
	rec.Level = shared.Level(level)
	rec.Credits = shared.Credits(credits)
	rec.Badges = badges
	rec.LastClaimedDaily = lastClaimed
	rec.Preferences = member.Preferences{LevelUp: prefLevel, DailyReward: prefDaily}
	return &rec, nil
}
