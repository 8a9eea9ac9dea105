package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/terraregistry/auth-service/internal/ports"
)

// CleanupWorker sweeps expired sessions and spent credential tokens on an
// interval. Keeping the purge out of the request path means login latency
// never pays for housekeeping.
type CleanupWorker struct {
	logger      *slog.Logger
	sessions    ports.SessionRepository
	emailTokens ports.EmailVerificationTokenRepository
	resetTokens ports.PasswordResetTokenRepository
	interval    time.Duration
	inactiveAge time.Duration
}

// NewCleanupWorker constructs the periodic sweep loop with sane defaults.
func NewCleanupWorker(
	logger *slog.Logger,
	sessions ports.SessionRepository,
	emailTokens ports.EmailVerificationTokenRepository,
	resetTokens ports.PasswordResetTokenRepository,
	interval time.Duration,
	inactiveAge time.Duration,
) *CleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if inactiveAge <= 0 {
		inactiveAge = 30 * 24 * time.Hour
	}
	return &CleanupWorker{
		logger:      logger,
		sessions:    sessions,
		emailTokens: emailTokens,
		resetTokens: resetTokens,
		interval:    interval,
		inactiveAge: inactiveAge,
	}
}

// Run executes the periodic sweep until context cancellation.
func (w *CleanupWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.sweepOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "cleanup iteration failed",
				"service", "registry-auth",
				"module", "maintenance.cleanup_worker",
				"layer", "adapter",
				"operation", "sweep_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *CleanupWorker) sweepOnce(ctx context.Context) error {
	now := time.Now().UTC()

	expiredSessions, err := w.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	inactiveSessions, err := w.sessions.DeleteInactive(ctx, now.Add(-w.inactiveAge))
	if err != nil {
		return err
	}
	expiredEmailTokens, err := w.emailTokens.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	expiredResetTokens, err := w.resetTokens.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	if expiredSessions+inactiveSessions+expiredEmailTokens+expiredResetTokens > 0 {
		w.logger.InfoContext(ctx, "cleanup sweep completed",
			"service", "registry-auth",
			"module", "maintenance.cleanup_worker",
			"layer", "adapter",
			"operation", "sweep_once",
			"outcome", "success",
			"expired_sessions", expiredSessions,
			"inactive_sessions", inactiveSessions,
			"expired_email_tokens", expiredEmailTokens,
			"expired_reset_tokens", expiredResetTokens,
		)
	}
	return nil
}
