package cnd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{
			name:       "not found",
			err:        NewNotFoundError("no certificate with code X"),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
		},
		{
			name:       "ineligible",
			err:        NewIneligibleError("unit has outstanding debts"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrCodeIneligible,
		},
		{
			name:       "rate limited",
			err:        NewRateLimitedError("too many identical requests"),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   ErrCodeRateLimited,
		},
		{
			name:       "malformed request",
			err:        NewMalformedRequestError("invalid unit ID"),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeMalformedRequest,
		},
		{
			name:       "request too large",
			err:        NewRequestTooLargeError("body exceeds limit"),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   ErrCodeRequestTooLarge,
		},
		{
			name:       "not available",
			err:        NewNotAvailableError("no stored document"),
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeNotAvailable,
		},
		{
			name:       "unclassified errors are internal",
			err:        errors.New("database exploded"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/api/cnd/validate/x", nil)

			RespondWithError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("could not decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if resp.Message == "" {
				t.Error("error response has no message")
			}
		})
	}
}

// internal errors must not leak their detail to the client
func TestRespondWithErrorSanitizesInternal(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	RespondWithError(w, r, errors.New("pq: connection refused host=10.0.0.5"))

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("could not decode error response: %v", err)
	}
	if resp.Message != "internal error" {
		t.Errorf("message = %q, want the sanitized placeholder", resp.Message)
	}
}

func TestHasCode(t *testing.T) {
	err := NewNotFoundError("missing")
	if !HasCode(err, ErrCodeNotFound) {
		t.Error("HasCode() = false for a matching code")
	}
	if HasCode(err, ErrCodeIneligible) {
		t.Error("HasCode() = true for a mismatched code")
	}
	if HasCode(errors.New("plain"), ErrCodeNotFound) {
		t.Error("HasCode() = true for a non-CNDError")
	}
	if !HasCode(fmt.Errorf("lookup: %w", err), ErrCodeNotFound) {
		t.Error("HasCode() = false for a wrapped CNDError")
	}
	if HasCode(nil, ErrCodeNotFound) {
		t.Error("HasCode() = true for nil")
	}
}

// wrapped causes survive errors.Is/As through the CNDError layer
func TestCNDErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapInternalError(cause, "failed to persist certificate record")

	if !errors.Is(err, cause) {
		t.Error("wrapped cause lost through CNDError")
	}
	if !HasCode(err, ErrCodeInternal) {
		t.Error("HasCode() = false for wrapped internal error")
	}
}
