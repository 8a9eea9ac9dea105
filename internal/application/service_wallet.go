package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
)

// GenerateWalletChallenge issues a fresh single-use challenge for the user to
// sign with their wallet's private key.
func (s *Service) GenerateWalletChallenge(ctx context.Context, userID uuid.UUID) (WalletChallengeResponse, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return WalletChallengeResponse{}, err
	}

	challenge := s.challenges.Generate(userID)
	return WalletChallengeResponse{
		ChallengeID: challenge.ChallengeID,
		Message:     challenge.Message,
		ExpiresAt:   challenge.ExpiresAt,
	}, nil
}

// GenerateWalletLoginChallenge issues a login challenge for a wallet address
// without requiring a session, so a wallet works as a standalone credential
// channel. Unknown addresses still receive a challenge; the linkage check only
// happens when the signed proof comes back, so the response reveals nothing
// about which wallets are registered.
func (s *Service) GenerateWalletLoginChallenge(ctx context.Context, address string) (WalletChallengeResponse, error) {
	trimmed := strings.TrimSpace(address)
	if err := s.walletAuth.ValidateAddress(trimmed); err != nil {
		return WalletChallengeResponse{}, err
	}

	userID := uuid.Nil
	if wallet, err := s.wallets.GetByAddress(ctx, trimmed); err == nil {
		userID = wallet.UserID
	} else if !errors.Is(err, domain.ErrNotFound) {
		return WalletChallengeResponse{}, err
	}

	challenge := s.challenges.Generate(userID)
	return WalletChallengeResponse{
		ChallengeID: challenge.ChallengeID,
		Message:     challenge.Message,
		ExpiresAt:   challenge.ExpiresAt,
	}, nil
}

// verifyWalletProof runs the ordered signature gates. The challenge is
// consumed on the first terminal attempt, pass or fail, so a proof can never
// be replayed; an unknown and an expired challenge id are indistinguishable.
func (s *Service) verifyWalletProof(ctx context.Context, challengeID, address, signature, publicKey string) (domain.WalletChallenge, error) {
	challenge, ok := s.challenges.Consume(strings.TrimSpace(challengeID))
	if !ok {
		return domain.WalletChallenge{}, domain.ErrChallengeNotFound
	}

	if err := s.walletAuth.VerifySignature(challenge.Message, address, signature, publicKey); err != nil {
		slog.Default().WarnContext(ctx, "wallet proof rejected",
			"service", "registry-auth",
			"module", "application",
			"layer", "application",
			"operation", "verify_wallet_proof",
			"outcome", "rejected",
			"error", err,
		)
		return domain.WalletChallenge{}, err
	}
	return challenge, nil
}

// LinkWallet binds an external address to the account after a successful
// challenge proof. One wallet per user and one user per address.
func (s *Service) LinkWallet(ctx context.Context, req LinkWalletRequest) (domain.Wallet, error) {
	challenge, err := s.verifyWalletProof(ctx, req.ChallengeID, req.Address, req.Signature, req.PublicKey)
	if err != nil {
		return domain.Wallet{}, err
	}
	if challenge.UserID != req.UserID {
		return domain.Wallet{}, domain.ErrUnauthorized
	}
	if stake := strings.TrimSpace(req.StakeAddress); stake != "" {
		if err := s.walletAuth.ValidateStakeAddress(stake); err != nil {
			return domain.Wallet{}, err
		}
	}

	address := strings.TrimSpace(req.Address)

	if _, err := s.wallets.GetByUser(ctx, req.UserID); err == nil {
		return domain.Wallet{}, fmt.Errorf("%w: user already has a linked wallet", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Wallet{}, err
	}
	if existing, err := s.wallets.GetByAddress(ctx, address); err == nil {
		if existing.UserID != req.UserID {
			return domain.Wallet{}, fmt.Errorf("%w: wallet already linked to another account", domain.ErrConflict)
		}
		return domain.Wallet{}, fmt.Errorf("%w: wallet already linked", domain.ErrDuplicateResource)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Wallet{}, err
	}

	now := s.nowFn()
	verifiedAt := now
	wallet, err := s.wallets.Create(ctx, domain.Wallet{
		UserID:       req.UserID,
		Address:      address,
		StakeAddress: strings.TrimSpace(req.StakeAddress),
		PublicKey:    strings.TrimSpace(req.PublicKey),
		IsActive:     true,
		LinkedAt:     now,
		VerifiedAt:   &verifiedAt,
	})
	if err != nil {
		return domain.Wallet{}, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return domain.Wallet{}, err
	}
	user.WalletAddress = address
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return domain.Wallet{}, err
	}

	return wallet, nil
}

// WalletLogin authenticates via challenge proof instead of a password. It is
// a separate credential channel: password failure counters are untouched, but
// a locked account is still rejected.
func (s *Service) WalletLogin(ctx context.Context, req WalletLoginRequest) (AuthResponse, error) {
	if _, err := s.verifyWalletProof(ctx, req.ChallengeID, req.Address, req.Signature, req.PublicKey); err != nil {
		return AuthResponse{}, err
	}

	wallet, err := s.wallets.GetByAddress(ctx, strings.TrimSpace(req.Address))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AuthResponse{}, domain.ErrWalletNotLinked
		}
		return AuthResponse{}, err
	}
	if !wallet.IsActive {
		return AuthResponse{}, domain.ErrWalletNotLinked
	}

	user, err := s.users.GetByID(ctx, wallet.UserID)
	if err != nil {
		return AuthResponse{}, err
	}

	now := s.nowFn()
	if s.lockout.IsLocked(user, now) {
		return AuthResponse{}, &domain.AccountLockedError{LockedUntil: user.LockedUntil}
	}

	loginAt := now
	user.LastLoginAt = &loginAt
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
