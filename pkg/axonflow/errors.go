package axonflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes SDK errors. Only network and timeout errors are
// retried; every other category propagates on first occurrence.
type ErrorType string

const (
	ErrorTypeAuthentication  ErrorType = "authentication"
	ErrorTypePolicyViolation ErrorType = "policy_violation"
	ErrorTypeBudgetExceeded  ErrorType = "budget_exceeded"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeAPI             ErrorType = "api"
)

// Error is the SDK's typed error.
type Error struct {
	Type       ErrorType
	Message    string
	Policy     string // policy name, for policy violations and approvals
	Reason     string // block reason, for policy violations
	ContextID  string // policy context ID, for pending approvals
	StatusCode int
	Retryable  bool
	Err        error // underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewAuthenticationError creates an authentication error. Never retried.
func NewAuthenticationError(message string) *Error {
	return &Error{Type: ErrorTypeAuthentication, Message: message, StatusCode: http.StatusUnauthorized}
}

// NewPolicyViolationError creates a policy violation error carrying the
// policy name and block reason. Never retried.
func NewPolicyViolationError(message, policy, reason string) *Error {
	return &Error{Type: ErrorTypePolicyViolation, Message: message, Policy: policy, Reason: reason}
}

// NewApprovalPendingError creates an api error for a call held pending
// external approval. Never retried. The context ID identifies the
// approval so callers can resolve it out of band.
func NewApprovalPendingError(policy, reason, contextID string) *Error {
	message := "request requires approval"
	if policy != "" {
		message = fmt.Sprintf("request requires approval by policy %s", policy)
	}
	return &Error{Type: ErrorTypeAPI, Message: message, Policy: policy, Reason: reason, ContextID: contextID}
}

// NewBudgetExceededError creates a budget error. Never retried.
func NewBudgetExceededError(message string) *Error {
	return &Error{Type: ErrorTypeBudgetExceeded, Message: message, StatusCode: http.StatusPaymentRequired}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string, err error) *Error {
	return &Error{Type: ErrorTypeTimeout, Message: message, Retryable: true, Err: err}
}

// NewNetworkError creates a transient network error. Retried per policy.
func NewNetworkError(message string, err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: message, Retryable: true, Err: err}
}

// NewValidationError creates a validation error. Never retried.
func NewValidationError(message string) *Error {
	return &Error{Type: ErrorTypeValidation, Message: message}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string, statusCode int) *Error {
	return &Error{Type: ErrorTypeAPI, Message: message, StatusCode: statusCode}
}

// IsRetryable reports whether the retry loop may re-attempt after err.
func IsRetryable(err error) bool {
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return sdkErr.Retryable
	}
	return false
}

// IsPolicyViolation reports whether err is a policy violation.
func IsPolicyViolation(err error) bool {
	return isType(err, ErrorTypePolicyViolation)
}

// IsAuthentication reports whether err is an authentication error.
func IsAuthentication(err error) bool {
	return isType(err, ErrorTypeAuthentication)
}

// IsTimeout reports whether err is a timeout error.
func IsTimeout(err error) bool {
	return isType(err, ErrorTypeTimeout)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

func isType(err error, t ErrorType) bool {
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return sdkErr.Type == t
	}
	return false
}

// errorBody is the error payload shape the agent returns on failures.
type errorBody struct {
	Message     string `json:"message"`
	Error       string `json:"error"`
	Policy      string `json:"policy"`
	BlockReason string `json:"block_reason"`
}

// ErrorFromStatus maps a non-2xx agent response to a typed error.
func ErrorFromStatus(status int, body []byte) *Error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}

	switch {
	case status == http.StatusUnauthorized:
		if msg == "" {
			msg = "missing or invalid credentials"
		}
		return NewAuthenticationError(msg)
	case status == http.StatusPaymentRequired:
		if msg == "" {
			msg = "budget exceeded"
		}
		return NewBudgetExceededError(msg)
	case status == http.StatusForbidden:
		if msg == "" {
			msg = "request blocked by policy"
		}
		e := NewPolicyViolationError(msg, eb.Policy, eb.BlockReason)
		e.StatusCode = status
		return e
	case status == http.StatusRequestTimeout:
		return NewTimeoutError(fmt.Sprintf("HTTP %d: request timed out", status), nil)
	case status == http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "malformed request"
		}
		e := NewValidationError(msg)
		e.StatusCode = status
		return e
	case status == http.StatusTooManyRequests || status >= 500:
		e := NewNetworkError(fmt.Sprintf("HTTP %d: %s", status, msg), nil)
		e.StatusCode = status
		return e
	default:
		return NewAPIError(fmt.Sprintf("HTTP %d: %s", status, msg), status)
	}
}
