package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/clinvol/identity-service/internal/identity"
	"github.com/clinvol/identity-service/internal/logging"
)

// errorResponse is the canonical error envelope.
type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// kindCodes maps taxonomy kinds to wire codes. Every kind the service
// can surface appears here so clients can tell "retry" from "fix your
// input" from "contact support".
var kindCodes = []struct {
	kind   error
	code   string
	status int
}{
	{identity.ErrDuplicateAccount, "duplicate_account", http.StatusConflict},
	{identity.ErrAccountNotFound, "account_not_found", http.StatusNotFound},
	{identity.ErrUserNotFound, "user_not_found", http.StatusNotFound},
	{identity.ErrAccountUnconfirmed, "account_unconfirmed", http.StatusForbidden},
	{identity.ErrInvalidCredential, "invalid_credential", http.StatusUnauthorized},
	{identity.ErrTokenExpired, "token_expired", http.StatusUnauthorized},
	{identity.ErrInvalidToken, "invalid_token", http.StatusUnauthorized},
	{identity.ErrInvalidCode, "invalid_code", http.StatusBadRequest},
	{identity.ErrCodeExpired, "code_expired", http.StatusBadRequest},
	{identity.ErrWeakCredential, "weak_credential", http.StatusBadRequest},
	{identity.ErrTransport, "provider_unavailable", http.StatusBadGateway},
	{identity.ErrPersistence, "persistence_failure", http.StatusInternalServerError},
	{identity.ErrConfiguration, "configuration_error", http.StatusInternalServerError},
}

func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	code, status := "internal_error", http.StatusInternalServerError
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			code, status = kc.code, kc.status
			break
		}
	}

	requestID := logging.GetRequestID(r.Context())
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestId", requestID),
			zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Code:      code,
		Message:   err.Error(),
		RequestID: requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(errorResponse{
		Code:      "bad_request",
		Message:   message,
		RequestID: logging.GetRequestID(r.Context()),
	})
}
