package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/terraregistry/auth-service/internal/domain"
	"github.com/terraregistry/auth-service/internal/ports"
)

// issueSession mints a token pair and persists the session holding both
// digests. Shared by password login, wallet login, and refresh rotation.
func (s *Service) issueSession(ctx context.Context, user domain.User, ip, userAgent string) (ports.TokenPair, domain.Session, error) {
	now := s.nowFn()
	pair, err := s.tokens.IssuePair(user, now)
	if err != nil {
		return ports.TokenPair{}, domain.Session{}, fmt.Errorf("sign token pair: %w", err)
	}

	session, err := s.sessions.Create(ctx, domain.Session{
		UserID:           user.UserID,
		AccessTokenHash:  s.tokens.HashToken(pair.AccessToken),
		RefreshTokenHash: s.tokens.HashToken(pair.RefreshToken),
		ExpiresAt:        pair.RefreshExpiresAt,
		IPAddress:        ip,
		UserAgent:        userAgent,
		CreatedAt:        now,
	})
	if err != nil {
		return ports.TokenPair{}, domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return pair, session, nil
}

// enforceRateLimit applies a fixed-window counter when a rate-limit store is
// wired. Store unavailability is logged and waved through rather than taking
// the endpoint down with it.
func (s *Service) enforceRateLimit(ctx context.Context, key string, threshold int, window time.Duration) error {
	if s.rates == nil || threshold <= 0 || window <= 0 {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		return nil
	}

	state, err := s.rates.Get(ctx, key)
	if err == nil && state.BlockedUntil != nil && state.BlockedUntil.After(s.nowFn()) {
		return domain.ErrRateLimited
	}

	now := s.nowFn()
	updated, err := s.rates.RecordHit(ctx, key, now, threshold, window)
	if err != nil {
		slog.Default().WarnContext(ctx, "rate-limit state unavailable",
			"service", "registry-auth",
			"module", "application",
			"layer", "application",
			"operation", "rate_limit",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
		return nil
	}
	if updated.BlockedUntil != nil && updated.BlockedUntil.After(now) {
		return domain.ErrRateLimited
	}
	return nil
}

// normalizeEmail canonicalizes and validates email format before persistence
// and comparison; uniqueness is case-insensitive by construction.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// randomHex returns a cryptographically random hex token.
func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

// keyedMutex serializes read-modify-write sequences per account so two
// concurrent failed logins cannot under-count toward the lockout threshold.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() keyedMutex {
	return keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
