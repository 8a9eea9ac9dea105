package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/terraregistry/auth-service/internal/domain"
)

// Register creates a local account and issues its email verification token.
// Email delivery is fire-and-forget: registration never fails because the
// mail transport did.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return RegisterResponse{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	if ip := strings.TrimSpace(req.IPAddress); ip != "" {
		if err := s.enforceRateLimit(ctx, "register:ip:"+ip,
			s.cfg.RegisterRateLimitIPThreshold, s.cfg.RegisterRateLimitWindow); err != nil {
			return RegisterResponse{}, err
		}
	}
	if err := s.enforceRateLimit(ctx, "register:identifier:"+email,
		s.cfg.RegisterRateLimitIdentifierThreshold, s.cfg.RegisterRateLimitWindow); err != nil {
		return RegisterResponse{}, err
	}

	role := s.cfg.DefaultRole
	if trimmed := strings.ToLower(strings.TrimSpace(req.Role)); trimmed != "" {
		role = domain.Role(trimmed)
	}
	if !role.Valid() {
		return RegisterResponse{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
	}

	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return RegisterResponse{}, fmt.Errorf("%w: email already registered", domain.ErrDuplicateResource)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return RegisterResponse{}, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	user, err := s.users.Create(ctx, domain.User{
		Email:         email,
		PasswordHash:  passwordHash,
		Name:          strings.TrimSpace(req.Name),
		Company:       strings.TrimSpace(req.Company),
		Role:          role,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	token, err := s.emailTokens.Create(ctx, domain.EmailVerificationToken{
		UserID:    user.UserID,
		Token:     randomHex(32),
		ExpiresAt: now.Add(s.cfg.VerificationTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("create verification token: %w", err)
	}

	if err := s.email.SendVerificationEmail(ctx, user.Email, user.Name, token.Token); err != nil {
		slog.Default().WarnContext(ctx, "verification email delivery failed",
			"service", "registry-auth",
			"module", "application",
			"layer", "application",
			"operation", "register",
			"outcome", "warning",
			"user_id", user.UserID,
			"error", err,
		)
	}

	return RegisterResponse{User: user.Sanitized()}, nil
}

// VerifyEmail redeems a single-use verification token. The check order is
// fixed and each failure is a distinct, user-visible kind: unknown token,
// already used, expired, owner already verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}

	record, err := s.emailTokens.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return err
	}
	now := s.nowFn()
	if record.UsedAt != nil {
		return domain.ErrTokenConsumed
	}
	if !record.ExpiresAt.After(now) {
		return domain.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return domain.ErrAlreadyVerified
	}

	// The user flip and the token burn are one logical unit. The user write
	// goes first: if the burn then fails, a replay is still rejected by the
	// already-verified check above.
	user.EmailVerified = true
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.emailTokens.MarkUsed(ctx, record.TokenID, now)
}

// RequestPasswordReset issues a reset token when the account exists. The
// outcome is indistinguishable to the caller either way.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		// Do not leak whether the account exists.
		return nil
	}

	now := s.nowFn()
	token, err := s.resetTokens.Create(ctx, domain.PasswordResetToken{
		UserID:    user.UserID,
		Token:     randomHex(32),
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, user.Name, token.Token); err != nil {
		slog.Default().WarnContext(ctx, "password reset email delivery failed",
			"service", "registry-auth",
			"module", "application",
			"layer", "application",
			"operation", "password_reset_request",
			"outcome", "warning",
			"user_id", user.UserID,
			"error", err,
		)
	}
	return nil
}

// ResetPassword redeems a reset token, replaces the credential, and revokes
// every existing session for the account.
func (s *Service) ResetPassword(ctx context.Context, req PasswordResetRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	record, err := s.resetTokens.GetByToken(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	now := s.nowFn()
	if record.UsedAt != nil {
		return domain.ErrTokenConsumed
	}
	if !record.ExpiresAt.After(now) {
		return domain.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.resetTokens.MarkUsed(ctx, record.TokenID, now); err != nil {
		return err
	}
	return s.sessions.DeleteByUser(ctx, user.UserID)
}
