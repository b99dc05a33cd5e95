package core

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common internal conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrStreamClosed is returned when attempting to use a closed stream.
	ErrStreamClosed = errors.New("stream is closed")
	// ErrNotConnected is returned when the websocket is not connected.
	ErrNotConnected = errors.New("websocket not connected")
	// ErrCircuitBreakerOpen is returned when the circuit breaker is open.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	// ErrNoCredentials is returned when no API credentials are configured.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrRequestCanceled is returned when an endpoint rule rejects a request.
	ErrRequestCanceled = errors.New("request canceled by endpoint rule")
	// ErrAmbiguousSubscription is returned when an inbound message cannot be
	// attributed to exactly one active subscription.
	ErrAmbiguousSubscription = errors.New("ambiguous subscription: message cannot be attributed")
)

// Error is the canonical error value returned in place of a result on any
// platform-reported or transport failure. It carries both the canonical
// classification and the raw platform diagnostics.
type Error struct {
	// Code is the canonical classification.
	Code ErrorCode `json:"code"`
	// Message is the canonical text plus raw platform diagnostics.
	Message string `json:"message"`
	// Platform identifies which exchange produced the error.
	Platform Platform `json:"platform_id"`
	// HTTPStatus is the HTTP status of the failed response, if any.
	HTTPStatus int `json:"http_status,omitempty"`
	// PlatformCode is the platform's own error code, kept raw so unmapped
	// codes stay visible for debugging.
	PlatformCode string `json:"platform_code,omitempty"`
	// PlatformMessage is the platform's own error text.
	PlatformMessage string `json:"platform_message,omitempty"`
	// Timestamp is when the error was observed.
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.PlatformCode != "" {
		return fmt.Sprintf("[%s] %s (%d/%s): %s",
			e.Platform, e.Code, e.HTTPStatus, e.PlatformCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s (%d): %s", e.Platform, e.Code, e.HTTPStatus, e.Message)
}

// NewError creates a canonical Error. When message is empty the canonical
// text for the code is used.
func NewError(platform Platform, code ErrorCode, message string) *Error {
	if message == "" {
		message = MessageByCode[code]
	}
	return &Error{
		Code:      code,
		Message:   message,
		Platform:  platform,
		Timestamp: time.Now(),
	}
}

// AppError wraps an internal failure (transport fault, malformed JSON) into
// the canonical taxonomy.
func AppError(platform Platform, err error) *Error {
	return NewError(platform, ErrCodeAppError, MessageByCode[ErrCodeAppError]+" "+err.Error())
}

// IsUnauthorized reports whether the error is a credential failure.
func IsUnauthorized(err error) bool {
	return IsErrorCode(err, ErrCodeUnauthorized)
}

// IsRateLimit reports whether the error is a rate limit violation.
// Callers should honor the session's recommended delay before retrying.
func IsRateLimit(err error) bool {
	return IsErrorCode(err, ErrCodeRateLimit)
}

// IsIPBan reports whether the requesting address has been banned.
func IsIPBan(err error) bool {
	return IsErrorCode(err, ErrCodeIPBan)
}

// IsWrongSymbol reports whether the error is an unknown trading pair.
func IsWrongSymbol(err error) bool {
	return IsErrorCode(err, ErrCodeWrongSymbol)
}
