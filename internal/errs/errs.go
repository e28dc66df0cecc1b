// Package errs defines the service's error taxonomy: a single AppError shape
// carrying a wire-visible error code, a human message, optional structured
// details, and an HTTP-status hint used only by the demo transport.
package errs

import (
	"fmt"
	"net/http"
)

// Error codes (§7). These are the wire-visible error_code values.
const (
	CodeInvalidAttestationFormat = "INVALID_ATTESTATION_FORMAT"
	CodeReplayAttempt            = "REPLAY_ATTEMPT"
	CodeOverlappingPeriod        = "OVERLAPPING_PERIOD"
	CodeWageLimitExceeded        = "WAGE_LIMIT_EXCEEDED"
	CodeRateLimitExceeded        = "RATE_LIMIT_EXCEEDED"
	CodeHoursExceedLimit         = "HOURS_EXCEED_LIMIT"
	CodeHourlyRateBelowMinimum   = "HOURLY_RATE_BELOW_MINIMUM"
	CodeFuturePeriod             = "FUTURE_PERIOD"
	CodeWageCalculationMismatch  = "WAGE_CALCULATION_MISMATCH"
	CodeAttestationTooOld        = "ATTESTATION_TOO_OLD"
	CodeUnknownEmployer          = "UNKNOWN_EMPLOYER"
	CodeInvalidSignature         = "INVALID_SIGNATURE"
	CodeCanonicalizationFailed   = "CANONICALIZATION_FAILED"

	// Vault/Registry failure modes (§4.B, §4.C) that are not themselves §7
	// validator rejection codes but still need a stable wire identity.
	CodeDuplicateEmployer      = "DUPLICATE_EMPLOYER"
	CodeInvalidDigestLength    = "INVALID_DIGEST_LENGTH"
	CodeKeyGenerationExhausted = "KEY_GENERATION_EXHAUSTED"
	CodeAttestationNotFound    = "ATTESTATION_NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

// AppError is a structured, typed application error.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func newErr(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func InvalidAttestationFormat(reasons []string) *AppError {
	return newErr(CodeInvalidAttestationFormat, "attestation failed structural validation", http.StatusBadRequest).
		WithDetails(map[string]any{"reasons": reasons})
}

func ReplayAttempt(periodKey string) *AppError {
	return newErr(CodeReplayAttempt, "period nonce already used", http.StatusConflict).
		WithDetails(map[string]any{"period_key": periodKey})
}

func OverlappingPeriod(classification string) *AppError {
	return newErr(CodeOverlappingPeriod, "period overlaps an already-admitted period", http.StatusConflict).
		WithDetails(map[string]any{"classification": classification})
}

func WageLimitExceeded(amount, max int64) *AppError {
	return newErr(CodeWageLimitExceeded, "wage amount exceeds per-attestation maximum", http.StatusBadRequest).
		WithDetails(map[string]any{"wage_amount": amount, "max_wage_per_attestation": max})
}

func RateLimitExceeded(employerID string, limit int) *AppError {
	return newErr(CodeRateLimitExceeded, "daily attestation signing limit reached", http.StatusTooManyRequests).
		WithDetails(map[string]any{"employer_id": employerID, "daily_attestation_limit": limit})
}

func HoursExceedLimit(avg, max float64) *AppError {
	return newErr(CodeHoursExceedLimit, "average hours per day exceeds policy", http.StatusBadRequest).
		WithDetails(map[string]any{"avg_hours_per_day": avg, "max_hours_per_day": max})
}

func HourlyRateBelowMinimum(rate, min int64) *AppError {
	return newErr(CodeHourlyRateBelowMinimum, "hourly rate is below the policy minimum", http.StatusBadRequest).
		WithDetails(map[string]any{"hourly_rate": rate, "min_hourly_rate": min})
}

func FuturePeriod() *AppError {
	return newErr(CodeFuturePeriod, "period end is in the future and future attestations are disallowed", http.StatusBadRequest)
}

func WageCalculationMismatch(got, want int64) *AppError {
	return newErr(CodeWageCalculationMismatch, "wage amount does not match exact calculation", http.StatusBadRequest).
		WithDetails(map[string]any{"wage_amount": got, "expected": want})
}

func AttestationTooOld(age, max string) *AppError {
	return newErr(CodeAttestationTooOld, "attestation exceeds maximum age", http.StatusBadRequest).
		WithDetails(map[string]any{"age": age, "max_attestation_age": max})
}

func UnknownEmployer(employerID string) *AppError {
	return newErr(CodeUnknownEmployer, "employer id not registered", http.StatusNotFound).
		WithDetails(map[string]any{"employer_id": employerID})
}

func InvalidSignature() *AppError {
	return newErr(CodeInvalidSignature, "signature verification failed", http.StatusUnauthorized)
}

func CanonicalizationFailed(reason string) *AppError {
	return newErr(CodeCanonicalizationFailed, "value cannot be canonicalized", http.StatusInternalServerError).
		WithDetails(map[string]any{"reason": reason})
}

func DuplicateEmployer(employerID string) *AppError {
	return newErr(CodeDuplicateEmployer, "employer already has key material", http.StatusConflict).
		WithDetails(map[string]any{"employer_id": employerID})
}

func InvalidDigestLength(got int) *AppError {
	return newErr(CodeInvalidDigestLength, "digest must be exactly 32 bytes", http.StatusBadRequest).
		WithDetails(map[string]any{"length": got})
}

func KeyGenerationExhausted(employerID string) *AppError {
	return newErr(CodeKeyGenerationExhausted, "exceeded consecutive key generation rejections", http.StatusInternalServerError).
		WithDetails(map[string]any{"employer_id": employerID})
}

func AttestationNotFound(attestationID string) *AppError {
	return newErr(CodeAttestationNotFound, "attestation id not found", http.StatusNotFound).
		WithDetails(map[string]any{"attestation_id": attestationID})
}

func Internal(message string, err error) *AppError {
	return newErr(CodeInternal, message, http.StatusInternalServerError).WithError(err)
}

// IsAppError reports whether err is an *AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError converts err to *AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	ae, ok := err.(*AppError)
	return ae, ok
}

// HasCode reports whether err is an *AppError with the given code.
func HasCode(err error, code string) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Code == code
}
