// Package shared contains common domain types, errors and events that are
// used across all domain packages of the leveling ledger.
package shared

import (
	"errors"
	"fmt"
	"time"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "member", "ledger", "discord"
	Op      string // Operation that failed, e.g., "Get", "Redeem"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Member domain errors
var (
	ErrRecordNotFound = NewDomainError("member", "Get", ErrNotFound, "record not found")
	ErrRecordConflict = NewDomainError("member", "Upsert", ErrConcurrentModification, "record version conflict")
	ErrInvalidUserID  = NewDomainError("member", "Validate", ErrInvalidID, "invalid Discord user ID")
)

// Ledger errors. These are the user-facing denials rendered as plain messages.
var (
	ErrCooldownActive      = NewDomainError("ledger", "ClaimDaily", ErrInvalidState, "daily reward already claimed")
	ErrUnknownReward       = NewDomainError("ledger", "Redeem", ErrInvalidInput, "unknown reward")
	ErrInsufficientCredits = NewDomainError("ledger", "Redeem", ErrInvalidState, "insufficient credits")
	ErrRewardAlreadyOwned  = NewDomainError("ledger", "Redeem", ErrAlreadyExists, "reward already owned")
	ErrUnknownUser         = NewDomainError("ledger", "Lookup", ErrNotFound, "user has no record")
	ErrInvalidOption       = NewDomainError("ledger", "SetPreference", ErrInvalidInput, "unknown notification option")
)

// Discord errors
var (
	ErrRoleNotFound       = NewDomainError("discord", "GrantRole", ErrNotFound, "role not found in guild")
	ErrDiscordUnavailable = NewDomainError("discord", "Request", ErrServiceUnavailable, "Discord API is unavailable")
)

// CooldownError is returned when a daily claim is attempted before the
// cooldown has elapsed. It matches ErrCooldownActive with errors.Is().
type CooldownError struct {
	NextClaimAt time.Time
	Remaining   time.Duration
}

// Error implements the error interface.
func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: next claim in %s", ErrCooldownActive.Error(), e.Remaining.Round(time.Second))
}

// Is implements errors.Is() matching.
func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive || errors.Is(ErrCooldownActive, target)
}

// IsConflict checks if the error is an optimistic concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsUserFacing reports whether the error is an expected ledger denial that
// should be shown to the user instead of being logged as a failure.
func IsUserFacing(err error) bool {
	for _, target := range []error{
		ErrCooldownActive,
		ErrUnknownReward,
		ErrInsufficientCredits,
		ErrRewardAlreadyOwned,
		ErrUnknownUser,
		ErrInvalidOption,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
