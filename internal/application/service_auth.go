package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
	"github.com/terraregistry/auth-service/internal/ports"
)

// Login validates credentials and enforces the durable account lockout.
//
// The credential check runs before the lock check and runs unconditionally,
// against a fixed dummy hash when no account exists, so response time does
// not reveal whether the email is registered or the account locked.
func (s *Service) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}

	unlock := s.userLocks.Lock("login:" + email)
	defer unlock()

	user, lookupErr := s.users.GetByEmail(ctx, email)
	exists := lookupErr == nil
	if lookupErr != nil && !errors.Is(lookupErr, domain.ErrNotFound) {
		return AuthResponse{}, lookupErr
	}

	now := s.nowFn()

	// An expired lock is cleared before credential verification and the
	// cleared state is persisted, so restarts cannot resurrect a stale lock.
	if exists && s.lockout.LockExpired(user, now) {
		s.lockout.AutoUnlock(&user)
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return AuthResponse{}, fmt.Errorf("persist auto-unlock: %w", err)
		}
	}

	passwordHash := dummyPasswordHash
	if exists {
		passwordHash = user.PasswordHash
	}
	compareErr := s.hasher.Compare(passwordHash, req.Password)

	if !exists {
		slog.Default().WarnContext(ctx, "login rejected",
			"service", "registry-auth",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "rejected",
		)
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	if compareErr != nil {
		locked := s.lockout.RecordFailure(&user, now)
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			// Fail closed: the lock could not be recorded, so deny the
			// attempt rather than let it slip past the threshold.
			slog.Default().ErrorContext(ctx, "failed to persist lockout state",
				"service", "registry-auth",
				"module", "application",
				"layer", "application",
				"operation", "login",
				"outcome", "failure",
				"error", err,
			)
			return AuthResponse{}, domain.ErrAccountLocked
		}
		if locked {
			slog.Default().WarnContext(ctx, "account lockout triggered",
				"service", "registry-auth",
				"module", "application",
				"layer", "application",
				"operation", "login",
				"outcome", "blocked",
				"locked_until", user.LockedUntil,
			)
			return AuthResponse{}, &domain.AccountLockedError{LockedUntil: user.LockedUntil}
		}
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	// Lock check deliberately follows the fixed-cost credential check. A
	// correct password against a locked account may surface the expiry: the
	// account's existence is already implied by the successful check.
	if s.lockout.IsLocked(user, now) {
		return AuthResponse{}, &domain.AccountLockedError{LockedUntil: user.LockedUntil}
	}

	s.lockout.RecordSuccess(&user, now)
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return AuthResponse{}, fmt.Errorf("persist login state: %w", err)
	}

	pair, _, err := s.issueSession(ctx, user, req.IPAddress, req.UserAgent)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		User:             user.Sanitized(),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// Refresh rotates a refresh token: the presenting session is deleted and an
// entirely new session and token pair are created, inheriting the old
// session's client metadata. Tokens are never updated in place.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return AuthResponse{}, domain.ErrInvalidToken
	}

	unlock := s.userLocks.Lock("refresh:" + claims.UserID.String())
	defer unlock()

	session, err := s.sessions.GetByRefreshTokenHash(ctx, s.tokens.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AuthResponse{}, fmt.Errorf("%w: session", domain.ErrNotFound)
		}
		return AuthResponse{}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AuthResponse{}, fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return AuthResponse{}, err
	}

	if err := s.sessions.Delete(ctx, session.SessionID); err != nil {
		return AuthResponse{}, fmt.Errorf("retire session: %w", err)
	}

	pair, _, err := s.issueSession(ctx, user, session.IPAddress, session.UserAgent)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		User:             user.Sanitized(),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// Logout deletes every session the user owns (log out everywhere). Calling it
// for a user with no sessions is not an error.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteByUser(ctx, userID)
}

// ValidateToken verifies an access token and confirms its session is still
// live, enabling revocation despite stateless bearer tokens.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (ports.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return ports.AccessClaims{}, domain.ErrInvalidToken
	}

	session, err := s.sessions.GetByAccessTokenHash(ctx, s.tokens.HashToken(accessToken))
	if err != nil {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	if session.UserID != claims.UserID {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	if !session.ExpiresAt.After(s.nowFn()) {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}
