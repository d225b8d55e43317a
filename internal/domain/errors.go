package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountNotActive    = errors.New("account not active")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrExpiredToken        = errors.New("expired token")
	ErrRevokedToken        = errors.New("revoked token")
	ErrMalformedToken      = errors.New("malformed token")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrDuplicateRequest    = errors.New("duplicate request")
	ErrRateLimited         = errors.New("rate limited")
	ErrSameAccount         = errors.New("source and destination accounts must differ")

	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidCard   = errors.New("invalid card")
)

// RateLimitError is returned when a rate-limit window is exhausted.
// It matches ErrRateLimited under errors.Is and carries the remaining cooldown.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
