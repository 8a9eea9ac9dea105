package http

import (
	"encoding/json"
	"net/http"
)

// apiError is the error half of the auth API envelope. Code carries the
// stable machine vocabulary clients branch on (INVALID_CREDENTIALS,
// ACCOUNT_LOCKED, TOKEN_EXPIRED, ...); Message is human-readable and may
// change between releases.
type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeSuccess wraps a payload in the success envelope. Auth responses (user
// plus token pair) and wallet challenges all ride under the data key.
func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

// writeMessage is the success envelope for operations with no payload, such
// as logout and the deliberately uniform password-reset-request reply.
func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
