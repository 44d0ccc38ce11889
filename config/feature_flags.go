package config

import (
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages runtime toggles with percentage rollout and
// per-user overrides.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID string // Discord user snowflake
}

// Predefined feature flag names.
const (
	// === Notification Features ===
	FeatureNotifyLevelUpChannel = "notify.level_up_channel" // Level-up message in the channel
	FeatureNotifyLevelUpDM      = "notify.level_up_dm"      // Level-up message by DM

	// === Activity Features ===
	FeatureActivityReactions = "activity.reactions" // Count reactions given

	// === Infrastructure ===
	FeatureCacheRedis = "cache.redis" // Read-through record cache
)

// LoadFeatureFlags creates flags with defaults and applies env overrides.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureNotifyLevelUpChannel] = &Feature{
		Name:           FeatureNotifyLevelUpChannel,
		Description:    "Announce level-ups in the channel where the message was sent",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureNotifyLevelUpDM] = &Feature{
		Name:           FeatureNotifyLevelUpDM,
		Description:    "Send level-up congratulations by direct message",
		Enabled:        false,
		RolloutPercent: 0,
	}
	ff.features[FeatureActivityReactions] = &Feature{
		Name:           FeatureActivityReactions,
		Description:    "Count reactions given by members",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureCacheRedis] = &Feature{
		Name:           FeatureCacheRedis,
		Description:    "Serve record reads through the Redis cache",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_NOTIFY_LEVEL_UP_DM=true
//
// Per-user overrides come from FEATURE_USER_OVERRIDES as
// <user_id>:<feature>=<bool> pairs separated by commas.
// Example: FEATURE_USER_OVERRIDES=80351110224678912:activity.reactions=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for _, name := range ff.Names() {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			percent := 0
			if b {
				percent = 100
			}
			_ = ff.SetRolloutPercent(name, percent)
			continue
		}

		if p, err := strconv.Atoi(val); err == nil {
			_ = ff.SetRolloutPercent(name, p)
		}
	}

	ff.loadUserOverrides(os.Getenv("FEATURE_USER_OVERRIDES"))
}

// loadUserOverrides parses FEATURE_USER_OVERRIDES. Malformed pairs and
// unknown features are skipped.
func (ff *FeatureFlags) loadUserOverrides(raw string) {
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		userID, rule, ok := strings.Cut(pair, ":")
		if !ok || userID == "" {
			continue
		}
		name, val, ok := strings.Cut(rule, "=")
		if !ok {
			continue
		}
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			continue
		}
		if _, known := ff.features[name]; !known {
			continue
		}
		ff.SetUserOverride(userID, name, enabled)
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "notify.level_up_dm" -> "FEATURE_NOTIFY_LEVEL_UP_DM"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
// A nil context evaluates the global switch only.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.UserID != "" {
		if overrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout uses consistent hashing so users stay in their bucket.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	return int(h.Sum32()%100) < percent
}

// SetUserOverride sets a feature override for a specific user.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	if percent < 0 || percent > 100 {
		return &FeatureFlagError{Feature: featureName, Message: "rollout percent must be 0-100"}
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Feature: featureName, Message: "unknown feature"}
	}
	feature.RolloutPercent = percent
	feature.Enabled = percent > 0
	return nil
}

// Names returns the known feature names, sorted.
func (ff *FeatureFlags) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	names := make([]string, 0, len(ff.features))
	for name := range ff.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Feature string
	Message string
}

func (e *FeatureFlagError) Error() string {
	return "feature flag " + e.Feature + ": " + e.Message
}
