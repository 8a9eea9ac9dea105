package http

import (
	"net/http"

	"github.com/terraregistry/auth-service/internal/application"
)

func (h *Handler) walletChallenge(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}

	res, err := h.service.GenerateWalletChallenge(r.Context(), claims.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "wallet_challenge", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) walletLink(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}

	var req application.LinkWalletRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "wallet_link", err)
		return
	}
	req.UserID = claims.UserID

	wallet, err := h.service.LinkWallet(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "wallet_link", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"wallet": wallet})
}

// walletLoginChallenge issues a login challenge keyed by wallet address. It is
// public: wallet login must work without a live session.
func (h *Handler) walletLoginChallenge(w http.ResponseWriter, r *http.Request) {
	var req application.WalletLoginChallengeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "wallet_login_challenge", err)
		return
	}

	res, err := h.service.GenerateWalletLoginChallenge(r.Context(), req.Address)
	if err != nil {
		writeMappedError(r.Context(), w, "wallet_login_challenge", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// walletVerify is the wallet login endpoint: a signed challenge exchanged for
// a session, no password involved.
func (h *Handler) walletVerify(w http.ResponseWriter, r *http.Request) {
	var req application.WalletLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "wallet_verify", err)
		return
	}
	if req.IPAddress == "" {
		req.IPAddress = readIP(r)
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	res, err := h.service.WalletLogin(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "wallet_verify", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
