package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeValidation indicates input validation errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNetwork indicates network-related errors, such as a failed dial
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeTransport indicates that an established connection is no longer usable
	ErrCodeTransport ErrorCode = "TRANSPORT"

	// ErrCodeExhausted indicates that every endpoint failed during one round-robin cycle
	ErrCodeExhausted ErrorCode = "EXHAUSTED"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeRPC indicates an error answered by the remote node
	ErrCodeRPC ErrorCode = "RPC"

	// ErrCodeTimeout indicates timeout errors
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// ClientError is an error raised by the orchestrator RPC client, optionally bound to an endpoint
type ClientError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Endpoint string                 `json:"endpoint,omitempty"`
	Severity Severity               `json:"severity"`
	Cause    error                  `json:"-"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// NewClientError creates a new ClientError
func NewClientError(code ErrorCode, endpoint, message string, cause error) *ClientError {
	return &ClientError{
		Code:     code,
		Message:  message,
		Endpoint: endpoint,
		Severity: determineSeverity(code),
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *ClientError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Endpoint != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Endpoint, e.Code, e.Severity, msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, msg)
}

// Unwrap returns the underlying cause
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *ClientError) WithContext(key string, value interface{}) *ClientError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the error is retryable
func (e *ClientError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeTransport, ErrCodeExhausted, ErrCodeTimeout:
		return true
	default:
		return false
	}
}

func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal, ErrCodeExhausted:
		return SeverityCritical
	case ErrCodeNetwork, ErrCodeTransport, ErrCodeTimeout:
		return SeverityMedium
	case ErrCodeRPC:
		return SeverityLow
	case ErrCodeValidation, ErrCodeConfig:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// ErrorGroup represents a collection of errors
type ErrorGroup struct {
	Errors []error
}

// NewErrorGroup creates a new error group
func NewErrorGroup() *ErrorGroup {
	return &ErrorGroup{
		Errors: make([]error, 0),
	}
}

// Add adds an error to the group
func (eg *ErrorGroup) Add(err error) {
	if err != nil {
		eg.Errors = append(eg.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (eg *ErrorGroup) HasErrors() bool {
	return len(eg.Errors) > 0
}

// Error implements the error interface
func (eg *ErrorGroup) Error() string {
	if len(eg.Errors) == 0 {
		return ""
	}
	if len(eg.Errors) == 1 {
		return eg.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred, last: %v", len(eg.Errors), eg.Errors[len(eg.Errors)-1])
}

// Unwrap exposes the grouped errors to errors.Is and errors.As
func (eg *ErrorGroup) Unwrap() []error {
	return eg.Errors
}

// NewValidationError creates a validation error
func NewValidationError(message string) *ClientError {
	return NewClientError(ErrCodeValidation, "", message, nil)
}

// NewNetworkError creates a network error
func NewNetworkError(endpoint, message string, cause error) *ClientError {
	return NewClientError(ErrCodeNetwork, endpoint, message, cause)
}

// NewTransportError creates a transport error
func NewTransportError(endpoint, message string, cause error) *ClientError {
	return NewClientError(ErrCodeTransport, endpoint, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *ClientError {
	return NewClientError(ErrCodeConfig, "", message, nil)
}

// NewRPCError creates an RPC error
func NewRPCError(method, message string, cause error) *ClientError {
	return NewClientError(ErrCodeRPC, "", message, cause).WithContext("method", method)
}
