package domain

import "time"

// LockoutPolicy is the pure decision logic over a user's lockout state.
// Callers apply the mutations it prescribes and persist the row themselves.
type LockoutPolicy struct {
	Threshold    int
	LockDuration time.Duration
}

// DefaultLockoutPolicy mirrors the registry defaults: 5 failures, 30 minute lock.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: 5, LockDuration: 30 * time.Minute}
}

// IsLocked reports whether the account is locked at the given instant.
// A nil LockedUntil on a locked account means a manual lock with no expiry.
func (p LockoutPolicy) IsLocked(u User, now time.Time) bool {
	if !u.AccountLocked {
		return false
	}
	return u.LockedUntil == nil || u.LockedUntil.After(now)
}

// LockExpired reports whether an active lock has passed its expiry and is
// eligible for auto-unlock before credential verification.
func (p LockoutPolicy) LockExpired(u User, now time.Time) bool {
	return u.AccountLocked && u.LockedUntil != nil && !u.LockedUntil.After(now)
}

// AutoUnlock clears an expired lock, resetting the failure counter.
func (p LockoutPolicy) AutoUnlock(u *User) {
	u.AccountLocked = false
	u.LockedUntil = nil
	u.FailedLoginAttempts = 0
}

// RecordFailure increments the failure counter and locks the account when the
// threshold is reached. It returns true when this failure triggered the lock.
func (p LockoutPolicy) RecordFailure(u *User, now time.Time) bool {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts < p.Threshold {
		return false
	}
	until := now.Add(p.LockDuration)
	u.AccountLocked = true
	u.LockedUntil = &until
	return true
}

// RecordSuccess clears lockout state unconditionally after any successful
// authentication.
func (p LockoutPolicy) RecordSuccess(u *User, now time.Time) {
	u.FailedLoginAttempts = 0
	u.AccountLocked = false
	u.LockedUntil = nil
	loginAt := now
	u.LastLoginAt = &loginAt
}
