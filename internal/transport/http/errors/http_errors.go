// Package errors renders API error bodies.
package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Error codes shared by every handler.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeTooFast       = "TOO_FAST"
	CodeInternal      = "INTERNAL_ERROR"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RateLimitError is the TOO_FAST body. CooldownUntil is the wall-clock
// moment the caller may swipe again.
type RateLimitError struct {
	Code          string     `json:"code"`
	Message       string     `json:"message"`
	RetryAfterSec int64      `json:"retry_after_sec"`
	CooldownUntil *time.Time `json:"cooldown_until"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, APIError{Code: code, Message: message})
}

// WriteTooFast answers 429 with both the Retry-After header and the body
// fields.
func WriteTooFast(w http.ResponseWriter, message string, retryAfterSec int64, now time.Time) {
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	until := now.UTC().Add(time.Duration(retryAfterSec) * time.Second)
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSec, 10))
	Write(w, http.StatusTooManyRequests, RateLimitError{
		Code:          CodeTooFast,
		Message:       message,
		RetryAfterSec: retryAfterSec,
		CooldownUntil: &until,
	})
}
