// Package sqlite implements the member record store on an embedded
// SQLite database through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/synthia-live/synthia-bot/internal/domain/member"
	"github.com/synthia-live/synthia-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MODEL
// ══════════════════════════════════════════════════════════════════════════════

// recordModel is the "records" table. Columns added later carry defaults so
// AutoMigrate can add them to existing rows.
type recordModel struct {
	UserID           string     `gorm:"column:user_id;primaryKey;size:20"`
	XP               int64      `gorm:"column:xp;not null;default:0;index:idx_records_xp"`
	Level            int        `gorm:"column:level;not null;default:0"`
	Credits          int64      `gorm:"column:credits;not null;default:0"`
	Badges           []string   `gorm:"column:badges;type:text;serializer:json"`
	MessagesSent     int64      `gorm:"column:messages_sent;not null;default:0"`
	ReactionsGiven   int64      `gorm:"column:reactions_given;not null;default:0"`
	JoinedAt         time.Time  `gorm:"column:joined_at;not null"`
	LastClaimedDaily *time.Time `gorm:"column:last_claimed_daily"`
	PrefLevelUp      bool       `gorm:"column:pref_level_up;not null;default:true"`
	PrefDailyReward  bool       `gorm:"column:pref_daily_reward;not null;default:true"`
	Version          int64      `gorm:"column:version;not null;default:1"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (recordModel) TableName() string { return "records" }

// updatableColumns lists what Upsert writes on update. user_id, joined_at
// and created_at never change.
var updatableColumns = []string{
	"xp", "level", "credits", "badges", "messages_sent", "reactions_given",
	"last_claimed_daily", "pref_level_up", "pref_daily_reward", "version", "updated_at",
}

func toModel(rec *member.Record) recordModel {
	badges := rec.Badges
	if badges == nil {
		badges = []string{}
	}
	return recordModel{
		UserID:           rec.UserID.String(),
		XP:               rec.XP.Int64(),
		Level:            rec.Level.Int(),
		Credits:          rec.Credits.Int64(),
		Badges:           badges,
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

func (m recordModel) toDomain() *member.Record {
	badges := m.Badges
	if badges == nil {
		badges = []string{}
	}
	return &member.Record{
		UserID:           shared.UserID(m.UserID),
		XP:               shared.XP(m.XP),
		Level:            shared.Level(m.Level),
		Credits:          shared.Credits(m.Credits),
		Badges:           badges,
		MessagesSent:     m.MessagesSent,
		ReactionsGiven:   m.ReactionsGiven,
		JoinedAt:         m.JoinedAt,
		LastClaimedDaily: m.LastClaimedDaily,
		Preferences:      member.Preferences{LevelUp: m.PrefLevelUp, DailyReward: m.PrefDailyReward},
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION
// ══════════════════════════════════════════════════════════════════════════════

// Open opens (or creates) the database at path and migrates the schema.
// File paths get a busy timeout and WAL journaling; DSNs with a query
// string are used as is.
func Open(path string) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the records table and adds missing columns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return fmt.Errorf("sqlite: migrate records: %w", err)
	}
	return nil
}

// Ping checks the underlying connection.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD STORE
// ══════════════════════════════════════════════════════════════════════════════

// RecordStore implements member.Repository on SQLite.
type RecordStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRecordStore creates a store over an opened database.
func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db, now: time.Now}
}

var _ member.Repository = (*RecordStore)(nil)

func (s *RecordStore) Get(ctx context.Context, id shared.UserID) (*member.Record, error) {
	var m recordModel
	err := s.db.WithContext(ctx).Where("user_id = ?", id.String()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return m.toDomain(), nil
}

func (s *RecordStore) Upsert(ctx context.Context, rec *member.Record) error {
	now := s.now().UTC()
	m := toModel(rec)
	m.UpdatedAt = now

	if rec.IsNew() {
		m.Version = 1
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		// Select("*") keeps false preferences from being replaced by column defaults.
		tx := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Select("*").
			Create(&m)
		if tx.Error != nil {
			return fmt.Errorf("insert record %s: %w", rec.UserID, tx.Error)
		}
		if tx.RowsAffected == 0 {
			return shared.ErrRecordConflict
		}
		rec.Version = 1
		rec.CreatedAt = m.CreatedAt
		rec.UpdatedAt = now
		return nil
	}

	m.Version = rec.Version + 1
	tx := s.db.WithContext(ctx).
		Model(&recordModel{}).
		Where("user_id = ? AND version = ?", m.UserID, rec.Version).
		Select(updatableColumns).
		Updates(&m)
	if tx.Error != nil {
		return fmt.Errorf("update record %s: %w", rec.UserID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return shared.ErrRecordConflict
	}

	rec.Version = m.Version
	rec.UpdatedAt = now
	return nil
}

func (s *RecordStore) Top(ctx context.Context, limit int) ([]*member.Record, error) {
	var models []recordModel
	err := s.db.WithContext(ctx).
		Order("xp DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("query top records: %w", err)
	}

	records := make([]*member.Record, 0, len(models))
	for _, m := range models {
		records = append(records, m.toDomain())
	}
	return records, nil
}

func (s *RecordStore) Rank(ctx context.Context, id shared.UserID) (shared.Rank, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return shared.Unranked, err
	}

	var ahead int64
	err = s.db.WithContext(ctx).
		Model(&recordModel{}).
		Where("xp > ?", rec.XP.Int64()).
		Count(&ahead).Error
	if err != nil {
		return shared.Unranked, fmt.Errorf("rank %s: %w", id, err)
	}
	return shared.Rank(ahead + 1), nil
}

func (s *RecordStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&recordModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return int(count), nil
}
