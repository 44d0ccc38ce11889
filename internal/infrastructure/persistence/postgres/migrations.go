package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- One row per Discord user, global across guilds
CREATE TABLE IF NOT EXISTS member_records (
    user_id VARCHAR(20) PRIMARY KEY,
    xp BIGINT NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 0,
    credits BIGINT NOT NULL DEFAULT 0,
    badges TEXT[] NOT NULL DEFAULT '{}',
    messages_sent BIGINT NOT NULL DEFAULT 0,
    joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    last_claimed_daily TIMESTAMP WITH TIME ZONE,
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_xp CHECK (xp >= 0),
    CONSTRAINT valid_credits CHECK (credits >= 0)
);

-- Leaderboard and rank queries
CREATE INDEX IF NOT EXISTS idx_member_records_xp ON member_records(xp DESC);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PREFERENCES AND REACTIONS
// Колонки добавляются со значениями по умолчанию, старые строки их получают.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
ALTER TABLE member_records ADD COLUMN IF NOT EXISTS reactions_given BIGINT NOT NULL DEFAULT 0;
ALTER TABLE member_records ADD COLUMN IF NOT EXISTS pref_level_up BOOLEAN NOT NULL DEFAULT TRUE;
ALTER TABLE member_records ADD COLUMN IF NOT EXISTS pref_daily_reward BOOLEAN NOT NULL DEFAULT TRUE;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_member_records",
			UpSQL:   migration001Up,
		},
		{
			Version: 2,
			Name:    "add_preferences_and_reactions",
			UpSQL:   migration002Up,
		},
	}
}
