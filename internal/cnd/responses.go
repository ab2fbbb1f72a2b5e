package cnd

// responses.go provides helper functions for sending HTTP responses from the CND API handlers.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/clearance-networks/cnd-service/internal/logger"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId,omitempty"`
}

// statusForCode maps error codes to HTTP statuses.
func statusForCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeIneligible:
		return http.StatusUnprocessableEntity
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeMalformedRequest:
		return http.StatusBadRequest
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeNotAvailable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithError maps err to an ErrorResponse and sends it.
//
// The full error detail is logged server-side; the client gets the sanitized
// message and code only.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := ErrCodeInternal
	message := "internal error"

	var cndErr *CNDError
	if errors.As(err, &cndErr) {
		code = cndErr.Code()
		message = cndErr.message
	}

	status := statusForCode(code)

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Warn("request failed",
		slog.String("error", err.Error()),
		slog.String("error_code", string(code)),
		slog.Int("status_code", status),
	)

	RespondWithJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// RespondWithJSON sends a JSON response with the given status code.
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// headers are already written - log and move on
			slog.Error("failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}
