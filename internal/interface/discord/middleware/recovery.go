// Package middleware contains Discord event middlewares.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in gateway event handlers. discordgo runs each handler in
// its own goroutine, so an unrecovered panic would take the whole bot down.
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace enables capturing stack traces.
	EnableStackTrace bool

	// OnPanic is called when a panic is recovered.
	OnPanic func(ctx context.Context, info *PanicInfo)

	// UserErrorMessage is shown to the user when a slash command panics.
	UserErrorMessage string

	// MaxPanicsPerMinute limits how many panics are reported per minute.
	MaxPanicsPerMinute int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultRecoveryConfig returns sensible defaults for recovery middleware.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace:   true,
		UserErrorMessage:   "Une erreur inattendue est survenue. Veuillez réessayer plus tard.",
		MaxPanicsPerMinute: 100,
	}
}

// PanicInfo contains information about a recovered panic.
type PanicInfo struct {
	Error      error
	PanicValue interface{}
	StackTrace string

	// UserID is the Discord user whose event panicked (if known).
	UserID string

	// Event is the slash command name or gateway event type.
	Event string

	Timestamp time.Time
}

// RecoveryResult represents the result of handling a panic.
type RecoveryResult struct {
	// Recovered indicates if a panic was recovered.
	Recovered bool

	// PanicInfo is nil when the panic was rate limited.
	PanicInfo *PanicInfo

	// UserMessage is the message to show to the user.
	UserMessage string
}

// RecoveryMiddleware recovers from panics in event handlers.
type RecoveryMiddleware struct {
	config       RecoveryConfig
	logger       *slog.Logger
	panicCounter *panicRateLimiter
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxPanicsPerMinute <= 0 {
		config.MaxPanicsPerMinute = DefaultRecoveryConfig().MaxPanicsPerMinute
	}
	if config.UserErrorMessage == "" {
		config.UserErrorMessage = DefaultRecoveryConfig().UserErrorMessage
	}
	return &RecoveryMiddleware{
		config:       config,
		logger:       config.Logger.With("component", "recovery"),
		panicCounter: newPanicRateLimiter(config.MaxPanicsPerMinute),
	}
}

// Run executes fn and recovers from any panic. The returned error is fn's
// error when it did not panic.
func (m *RecoveryMiddleware) Run(ctx context.Context, userID, event string, fn func() error) (result *RecoveryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = m.handlePanic(ctx, r, userID, event)
			err = result.Err()
		}
	}()

	err = fn()
	return &RecoveryResult{}, err
}

// Err returns the recovered panic as an error.
func (r *RecoveryResult) Err() error {
	if r == nil || !r.Recovered {
		return nil
	}
	if r.PanicInfo != nil {
		return r.PanicInfo.Error
	}
	return fmt.Errorf("panic recovered")
}

func (m *RecoveryMiddleware) handlePanic(ctx context.Context, panicValue interface{}, userID, event string) *RecoveryResult {
	if !m.panicCounter.allow() {
		return &RecoveryResult{
			Recovered:   true,
			UserMessage: m.config.UserErrorMessage,
		}
	}

	info := &PanicInfo{
		Error:      toError(panicValue),
		PanicValue: panicValue,
		UserID:     userID,
		Event:      event,
		Timestamp:  time.Now(),
	}
	if m.config.EnableStackTrace {
		info.StackTrace = string(debug.Stack())
	}

	m.logger.Error("panic recovered",
		"event", event,
		"user_id", userID,
		"error", info.Error,
		"stack", info.StackTrace,
	)

	if m.config.OnPanic != nil {
		m.config.OnPanic(ctx, info)
	}

	return &RecoveryResult{
		Recovered:   true,
		PanicInfo:   info,
		UserMessage: m.config.UserErrorMessage,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

func toError(panicValue interface{}) error {
	switch v := panicValue.(type) {
	case error:
		return fmt.Errorf("panic: %w", v)
	case string:
		return fmt.Errorf("panic: %s", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PANIC RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

type panicRateLimiter struct {
	mu        sync.Mutex
	count     int
	maxPerMin int
	window    time.Time
	now       func() time.Time
}

func newPanicRateLimiter(maxPerMin int) *panicRateLimiter {
	return &panicRateLimiter{
		maxPerMin: maxPerMin,
		window:    time.Now(),
		now:       time.Now,
	}
}

func (p *panicRateLimiter) allow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.window) > time.Minute {
		p.count = 0
		p.window = now
	}

	if p.count >= p.maxPerMin {
		return false
	}
	p.count++
	return true
}
