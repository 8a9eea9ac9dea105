package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidToken covers every token verification failure uniformly.
	// Expired and tampered tokens are indistinguishable to the caller.
	ErrInvalidToken      = errors.New("invalid token")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateResource = errors.New("duplicate resource")
	ErrConflict          = errors.New("conflict")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenConsumed     = errors.New("token already consumed")
	ErrAlreadyVerified   = errors.New("email already verified")
	ErrWalletNotLinked   = errors.New("wallet not linked")
	ErrRateLimited       = errors.New("rate limited")
	ErrSignatureInvalid  = errors.New("signature verification failed")
	ErrChallengeNotFound = errors.New("challenge not found or expired")
)

// AccountLockedError carries lock expiry so the caller layer can surface it.
// It matches errors.Is(err, ErrAccountLocked).
type AccountLockedError struct {
	LockedUntil *time.Time
}

func (e *AccountLockedError) Error() string {
	if e.LockedUntil == nil {
		return "account locked"
	}
	return fmt.Sprintf("account locked until %s", e.LockedUntil.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
