package core

import "errors"

// ErrorCode is the canonical, machine-readable classification of a failure.
// Platform-specific error codes and HTTP statuses are translated into this
// taxonomy by each platform's converter.
type ErrorCode string

// Canonical error codes.
const (
	// ErrCodeUnauthorized indicates missing, invalid, or expired credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimit indicates the platform's rate limit was exceeded.
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT"
	// ErrCodeIPBan indicates the requesting address has been banned.
	ErrCodeIPBan ErrorCode = "IP_BAN"
	// ErrCodeWrongSymbol indicates an unknown or malformed trading pair.
	ErrCodeWrongSymbol ErrorCode = "WRONG_SYMBOL"
	// ErrCodeWrongLimit indicates an out-of-range limit parameter.
	ErrCodeWrongLimit ErrorCode = "WRONG_LIMIT"
	// ErrCodeWrongParam indicates an invalid request parameter.
	ErrCodeWrongParam ErrorCode = "WRONG_PARAM"
	// ErrCodeAppError indicates an internal failure in this layer.
	ErrCodeAppError ErrorCode = "APP_ERROR"
	// ErrCodeAppDBError indicates a storage failure in a collaborator.
	ErrCodeAppDBError ErrorCode = "APP_DB_ERROR"
	// ErrCodeMissRequiredParams indicates a required parameter was absent.
	ErrCodeMissRequiredParams ErrorCode = "MISS_REQ_PARAMS"
	// ErrCodeWrongURL indicates the request path does not exist.
	ErrCodeWrongURL ErrorCode = "WRONG_URL"
)

// MessageByCode holds the human-readable text attached to each canonical
// code when a platform supplies none of its own.
var MessageByCode = map[ErrorCode]string{
	ErrCodeUnauthorized:       "Unauthorized. Wrong or expired credentials.",
	ErrCodeRateLimit:          "Rate limit exceeded.",
	ErrCodeIPBan:              "IP address was banned.",
	ErrCodeWrongSymbol:        "Wrong symbol.",
	ErrCodeWrongLimit:         "Wrong limit.",
	ErrCodeWrongParam:         "Wrong parameter.",
	ErrCodeAppError:           "Application error.",
	ErrCodeAppDBError:         "Application database error.",
	ErrCodeMissRequiredParams: "Missing required parameters.",
	ErrCodeWrongURL:           "Wrong URL.",
}

// ErrorCodeByHTTPStatus translates bare HTTP statuses into canonical codes
// for platforms that report some failures without a body-level error code.
var ErrorCodeByHTTPStatus = map[int]ErrorCode{
	401: ErrCodeUnauthorized,
	404: ErrCodeWrongURL,
	418: ErrCodeIPBan,
	429: ErrCodeRateLimit,
}

// IsErrorCode reports whether err is a canonical *Error carrying the code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
