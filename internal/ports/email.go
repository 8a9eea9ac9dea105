package ports

import "context"

// EmailSender delivers transactional mail. All sends are fire-and-forget from
// the orchestrator's perspective: failures are logged, never propagated.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email, name, token string) error
	SendPasswordResetEmail(ctx context.Context, email, name, token string) error
	SendNotificationEmail(ctx context.Context, email, subject, body string) error
}
