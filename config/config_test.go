package config

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, int64(15), cfg.Leveling.MessageXPMin)
	assert.Equal(t, int64(25), cfg.Leveling.MessageXPMax)
	assert.Equal(t, int64(100), cfg.Leveling.DailyXP)
	assert.Equal(t, int64(50), cfg.Leveling.DailyCredits)
	assert.Equal(t, 24*time.Hour, cfg.Leveling.DailyCooldown)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.RebuildLeaderboardInterval)
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://bot@localhost/ledger")
	t.Setenv("LEVELING_DAILY_COOLDOWN", "12h")
	t.Setenv("LEVELING_MESSAGE_XP_MAX", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Leveling.DailyCooldown)
	assert.Equal(t, int64(25), cfg.Leveling.MessageXPMax)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("LEVELING_MESSAGE_XP_MIN", "30")
	t.Setenv("LEVELING_MESSAGE_XP_MAX", "10")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN is required")
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "LEVELING_MESSAGE_XP_MIN")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadWorker_TokenOptional(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Empty(t, cfg.Discord.Token)

	t.Setenv("STORE_DRIVER", "mongo")
	_, err = LoadWorker()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureNotifyLevelUpChannel, nil))
	assert.False(t, ff.IsEnabled(FeatureNotifyLevelUpDM, nil))
	assert.True(t, ff.IsEnabled(FeatureActivityReactions, nil))
	assert.False(t, ff.IsEnabled("unknown.flag", nil))
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_NOTIFY_LEVEL_UP_DM", "true")
	t.Setenv("FEATURE_NOTIFY_LEVEL_UP_CHANNEL", "false")

	ff := LoadFeatureFlags()
	assert.True(t, ff.IsEnabled(FeatureNotifyLevelUpDM, nil))
	assert.False(t, ff.IsEnabled(FeatureNotifyLevelUpChannel, nil))
}

func TestFeatureFlags_RolloutIsStablePerUser(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureNotifyLevelUpDM, 50))

	ctx := &FeatureContext{UserID: "80351110224678912"}
	first := ff.IsEnabled(FeatureNotifyLevelUpDM, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureNotifyLevelUpDM, ctx))
	}
}

func TestFeatureFlags_UserOverride(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "42"}

	ff.SetUserOverride("42", FeatureActivityReactions, false)
	assert.False(t, ff.IsEnabled(FeatureActivityReactions, ctx))
	assert.True(t, ff.IsEnabled(FeatureActivityReactions, &FeatureContext{UserID: "43"}))
	assert.True(t, ff.IsEnabled(FeatureActivityReactions, nil))
}

func TestFeatureFlags_UserOverridesFromEnv(t *testing.T) {
	t.Setenv("FEATURE_USER_OVERRIDES",
		"42:activity.reactions=false, 43:notify.level_up_dm=true,bad,44:unknown.flag=true,45:activity.reactions=maybe")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureActivityReactions, &FeatureContext{UserID: "42"}))
	assert.True(t, ff.IsEnabled(FeatureNotifyLevelUpDM, &FeatureContext{UserID: "43"}))
	assert.False(t, ff.IsEnabled(FeatureNotifyLevelUpDM, &FeatureContext{UserID: "42"}))
	assert.True(t, ff.IsEnabled(FeatureActivityReactions, &FeatureContext{UserID: "45"}))
	assert.False(t, ff.IsEnabled("unknown.flag", &FeatureContext{UserID: "44"}))
}

func TestFeatureFlags_RolloutPercentFromEnv(t *testing.T) {
	t.Setenv("FEATURE_NOTIFY_LEVEL_UP_DM", "30")
	t.Setenv("FEATURE_ACTIVITY_REACTIONS", "250")

	ff := LoadFeatureFlags()
	assert.True(t, ff.IsEnabled(FeatureNotifyLevelUpDM, nil))
	assert.True(t, ff.IsEnabled(FeatureActivityReactions, nil))

	enabled := 0
	for i := 0; i < 200; i++ {
		if ff.IsEnabled(FeatureNotifyLevelUpDM, &FeatureContext{UserID: strconv.Itoa(1000 + i)}) {
			enabled++
		}
	}
	assert.Greater(t, enabled, 0)
	assert.Less(t, enabled, 200)
}

func TestFeatureFlags_Names(t *testing.T) {
	ff := LoadFeatureFlags()
	assert.Equal(t, []string{
		FeatureActivityReactions,
		FeatureCacheRedis,
		FeatureNotifyLevelUpChannel,
		FeatureNotifyLevelUpDM,
	}, ff.Names())
}

func TestFeatureFlags_InvalidRollout(t *testing.T) {
	ff := LoadFeatureFlags()
	assert.Error(t, ff.SetRolloutPercent(FeatureCacheRedis, 101))
	assert.Error(t, ff.SetRolloutPercent("unknown", 10))
}
