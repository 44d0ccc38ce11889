package shared

import (
	"regexp"
	"strconv"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID is a Discord user snowflake kept in its decimal string form.
// Records are keyed by it globally, not per guild.
type UserID string

// Discord snowflakes are unsigned 64-bit integers, at most 20 digits.
var userIDRegex = regexp.MustCompile(`^[0-9]{1,20}$`)

// IsValid checks if the user ID looks like a Discord snowflake.
func (u UserID) IsValid() bool {
	return userIDRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// Mention returns the Discord mention markup for the user.
func (u UserID) Mention() string {
	return "<@" + string(u) + ">"
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if !uid.IsValid() {
		return "", ErrInvalidUserID
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a member. It never decreases.
type XP int64

// MinXP is the lower bound for XP.
const MinXP XP = 0

// IsValid checks if the XP value is within valid range.
func (x XP) IsValid() bool {
	return x >= MinXP
}

// Int64 returns the underlying int64 value.
func (x XP) Int64() int64 {
	return int64(x)
}

// Add returns XP increased by amount. Negative amounts are ignored.
func (x XP) Add(amount int64) XP {
	if amount <= 0 {
		return x
	}
	return x + XP(amount)
}

// String returns the decimal representation.
func (x XP) String() string {
	return strconv.FormatInt(int64(x), 10)
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level is derived from XP and is never stored independently of it.
type Level int

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RoleName returns the guild role name associated with the level.
func (l Level) RoleName() string {
	return "Level " + strconv.Itoa(int(l))
}

// BadgeName returns the badge granted when the level is reached.
func (l Level) BadgeName() string {
	return l.RoleName()
}

// ═══════════════════════════════════════════════════════════════════════════
// Credits Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Credits is the spendable currency earned from daily rewards.
type Credits int64

// Int64 returns the underlying int64 value.
func (c Credits) Int64() int64 {
	return int64(c)
}

// CanAfford reports whether the balance covers the cost.
func (c Credits) CanAfford(cost Credits) bool {
	return c >= cost
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a member's position in the leaderboard.
type Rank int

const (
	MinRank  Rank = 1
	Unranked Rank = 0 // Not yet ranked
)

// IsValid checks if the rank is valid.
func (r Rank) IsValid() bool {
	return r >= MinRank
}

// Int returns the underlying int value.
func (r Rank) Int() int {
	return int(r)
}

// Medal returns a medal emoji for top ranks.
func (r Rank) Medal() string {
	switch r {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}
