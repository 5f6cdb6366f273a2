package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Configuration errors - missing or invalid configuration
	ErrorTypeConfig ErrorType = iota
	// Validation errors - invalid input data
	ErrorTypeValidation
	// Auth errors - the GitHub token was rejected or is missing
	ErrorTypeAuth
	// NotFound errors - the requested account or repository does not exist
	ErrorTypeNotFound
	// Network errors - network connectivity issues
	ErrorTypeNetwork
	// Storage errors - token store failures (keychain, bolt file)
	ErrorTypeStorage
	// External errors - GitHub API failures other than auth/not found
	ErrorTypeExternal
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - can continue with degraded functionality
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - significant issue, may impact functionality
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		severityString(e.Severity),
		typeString(e.Type),
		e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}

	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeAuth:
		return "AUTH"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeNetwork:
		return "NETWORK"
	case ErrorTypeStorage:
		return "STORAGE"
	case ErrorTypeExternal:
		return "EXTERNAL"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// ValidationError creates a validation error
func ValidationError(message string) *Error {
	return New(ErrorTypeValidation, SeverityHigh, message)
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...))
}

// AuthError wraps a rejected-credential failure. Login surfaces its message
// to the user verbatim.
func AuthError(err error, message string) *Error {
	if err == nil {
		return New(ErrorTypeAuth, SeverityHigh, message)
	}
	return Wrap(err, ErrorTypeAuth, SeverityHigh, message)
}

// NotFoundErrorf creates a not-found error with formatting
func NotFoundErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return New(ErrorTypeNotFound, SeverityMedium, fmt.Sprintf(format, args...))
	}
	return Wrap(err, ErrorTypeNotFound, SeverityMedium, fmt.Sprintf(format, args...))
}

// NetworkError wraps a network error
func NetworkError(err error, message string) *Error {
	return Wrap(err, ErrorTypeNetwork, SeverityHigh, message)
}

// StorageError wraps a token store error
func StorageError(err error, message string) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityHigh, message)
}

// ExternalError wraps an external service error
func ExternalError(err error, message string) *Error {
	return Wrap(err, ErrorTypeExternal, SeverityMedium, message)
}

// InternalError creates an internal error
func InternalError(message string) *Error {
	return New(ErrorTypeInternal, SeverityCritical, message)
}

// IsType reports whether any error in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, &Error{Type: errType})
}

// IsAuth reports whether err is a rejected-credential failure
func IsAuth(err error) bool {
	return IsType(err, ErrorTypeAuth)
}

// IsNotFound reports whether err means the account or repository is absent
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation reports whether err is caused by invalid input
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}
