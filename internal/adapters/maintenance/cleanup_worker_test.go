package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
)

type stubSessions struct {
	mu           sync.Mutex
	expiredCalls []time.Time
	inactiveCut  time.Time
	failExpired  error
}

func (s *stubSessions) Create(context.Context, domain.Session) (domain.Session, error) {
	return domain.Session{}, errors.New("not implemented")
}
func (s *stubSessions) GetByAccessTokenHash(context.Context, string) (domain.Session, error) {
	return domain.Session{}, domain.ErrNotFound
}
func (s *stubSessions) GetByRefreshTokenHash(context.Context, string) (domain.Session, error) {
	return domain.Session{}, domain.ErrNotFound
}
func (s *stubSessions) ListByUser(context.Context, uuid.UUID) ([]domain.Session, error) {
	return nil, nil
}
func (s *stubSessions) Delete(context.Context, uuid.UUID) error       { return nil }
func (s *stubSessions) DeleteByUser(context.Context, uuid.UUID) error { return nil }

func (s *stubSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failExpired != nil {
		return 0, s.failExpired
	}
	s.expiredCalls = append(s.expiredCalls, now)
	return 2, nil
}

func (s *stubSessions) DeleteInactive(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inactiveCut = olderThan
	return 1, nil
}

type stubEmailTokens struct {
	mu    sync.Mutex
	calls int
}

func (s *stubEmailTokens) Create(context.Context, domain.EmailVerificationToken) (domain.EmailVerificationToken, error) {
	return domain.EmailVerificationToken{}, errors.New("not implemented")
}
func (s *stubEmailTokens) GetByToken(context.Context, string) (domain.EmailVerificationToken, error) {
	return domain.EmailVerificationToken{}, domain.ErrNotFound
}
func (s *stubEmailTokens) MarkUsed(context.Context, uuid.UUID, time.Time) error { return nil }
func (s *stubEmailTokens) DeleteByUser(context.Context, uuid.UUID) error        { return nil }

func (s *stubEmailTokens) DeleteExpired(context.Context, time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 0, nil
}

type stubResetTokens struct {
	mu    sync.Mutex
	calls int
}

func (s *stubResetTokens) Create(context.Context, domain.PasswordResetToken) (domain.PasswordResetToken, error) {
	return domain.PasswordResetToken{}, errors.New("not implemented")
}
func (s *stubResetTokens) GetByToken(context.Context, string) (domain.PasswordResetToken, error) {
	return domain.PasswordResetToken{}, domain.ErrNotFound
}
func (s *stubResetTokens) MarkUsed(context.Context, uuid.UUID, time.Time) error { return nil }
func (s *stubResetTokens) DeleteByUser(context.Context, uuid.UUID) error        { return nil }

func (s *stubResetTokens) DeleteExpired(context.Context, time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 0, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepOnceHitsEveryStore(t *testing.T) {
	t.Parallel()

	sessions := &stubSessions{}
	emailTokens := &stubEmailTokens{}
	resetTokens := &stubResetTokens{}
	w := NewCleanupWorker(quietLogger(), sessions, emailTokens, resetTokens, time.Hour, 30*24*time.Hour)

	if err := w.sweepOnce(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(sessions.expiredCalls) != 1 {
		t.Fatalf("expired-session sweeps = %d, want 1", len(sessions.expiredCalls))
	}
	if emailTokens.calls != 1 || resetTokens.calls != 1 {
		t.Fatalf("token sweeps = %d/%d, want 1/1", emailTokens.calls, resetTokens.calls)
	}

	// Inactive cutoff trails now by the configured age.
	gap := sessions.expiredCalls[0].Sub(sessions.inactiveCut)
	if gap != 30*24*time.Hour {
		t.Fatalf("inactive cutoff gap = %v, want 720h", gap)
	}
}

func TestSweepOnceStopsOnStoreError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	sessions := &stubSessions{failExpired: boom}
	emailTokens := &stubEmailTokens{}
	w := NewCleanupWorker(quietLogger(), sessions, emailTokens, &stubResetTokens{}, time.Hour, time.Hour)

	if err := w.sweepOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("sweep = %v, want wrapped store error", err)
	}
	if emailTokens.calls != 0 {
		t.Fatalf("later stores swept after failure")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	w := NewCleanupWorker(quietLogger(), &stubSessions{}, &stubEmailTokens{}, &stubResetTokens{}, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop on cancel")
	}
}
