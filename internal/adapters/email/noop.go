package email

import (
	"context"
	"log/slog"
)

// NoopSender logs instead of delivering. Used in local and test environments
// where no SMTP relay is reachable.
type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) SendVerificationEmail(ctx context.Context, to, _, _ string) error {
	slog.Default().InfoContext(ctx, "verification email suppressed",
		"service", "registry-auth",
		"module", "email",
		"layer", "adapter",
		"operation", "send_verification_email",
		"outcome", "skipped",
		"to", to,
	)
	return nil
}

func (s *NoopSender) SendPasswordResetEmail(ctx context.Context, to, _, _ string) error {
	slog.Default().InfoContext(ctx, "password reset email suppressed",
		"service", "registry-auth",
		"module", "email",
		"layer", "adapter",
		"operation", "send_password_reset_email",
		"outcome", "skipped",
		"to", to,
	)
	return nil
}

func (s *NoopSender) SendNotificationEmail(ctx context.Context, to, subject, _ string) error {
	slog.Default().InfoContext(ctx, "notification email suppressed",
		"service", "registry-auth",
		"module", "email",
		"layer", "adapter",
		"operation", "send_notification_email",
		"outcome", "skipped",
		"to", to,
		"subject", subject,
	)
	return nil
}
