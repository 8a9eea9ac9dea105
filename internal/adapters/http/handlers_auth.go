package http

import (
	"net/http"

	"github.com/terraregistry/auth-service/internal/application"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}
	if req.IPAddress == "" {
		req.IPAddress = readIP(r)
	}

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	if req.IPAddress == "" {
		req.IPAddress = readIP(r)
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// refresh accepts the refresh token in the body, falling back to the bearer
// header. The access-token auth middleware does not guard this route: a client
// with an expired access token must still be able to rotate.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "refresh", err)
		return
	}
	if req.RefreshToken == "" {
		if token, err := bearerTokenFromHeader(r.Header.Get("Authorization")); err == nil {
			req.RefreshToken = token
		}
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token")
		return
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}
	if err := h.service.Logout(r.Context(), claims.UserID); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) emailVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if r.Method == http.MethodGet || r.URL.Query().Get("token") != "" {
		req.Token = r.URL.Query().Get("token")
	} else if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "email_verify", err)
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		writeMappedError(r.Context(), w, "email_verify", err)
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

func (h *Handler) passwordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "password_reset_request", err)
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeMappedError(r.Context(), w, "password_reset_request", err)
		return
	}
	writeMessage(w, http.StatusOK, "If the email exists, a password reset link has been sent")
}

func (h *Handler) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req application.PasswordResetRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "password_reset", err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "password_reset", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successful. You can now login with your new password.")
}
