package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypePrivate     ErrorType = "private"
	ErrorTypeInvalid     ErrorType = "invalid"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Is matches errors of the same Type and Code so sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

var (
	// ErrProfileIsPrivate is returned when the analyzed profile is private
	ErrProfileIsPrivate = &Error{
		Type:    ErrorTypePrivate,
		Message: "profile is private",
		Code:    http.StatusForbidden,
	}

	// ErrProfilesAreIdentical is returned when the same profile is requested twice in one run
	ErrProfilesAreIdentical = &Error{
		Type:    ErrorTypeInvalid,
		Message: "profiles are identical",
		Code:    http.StatusBadRequest,
	}
)

// NewPrivateProfile returns ErrProfileIsPrivate annotated with the username
func NewPrivateProfile(username string) error {
	return &Error{
		Type:    ErrorTypePrivate,
		Message: fmt.Sprintf("profile %q is private", username),
		Code:    http.StatusForbidden,
	}
}

// IsPrivate reports whether err signals a private profile
func IsPrivate(err error) bool {
	return errors.Is(err, ErrProfileIsPrivate)
}

// FromStatusCode classifies an upstream HTTP status
func FromStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeUnknown
	default:
		return ""
	}
}

// IsRetryable checks if an error type is worth another attempt with a different key
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}
