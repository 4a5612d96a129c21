package integration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Billing platform errors
	ErrBillingAuthFailed     = errors.New("integration: billing authentication failed")
	ErrBillingRequestFailed  = errors.New("integration: billing request failed")
	ErrBillingRejected       = errors.New("integration: billing platform rejected request")
	ErrBillingEntityNotFound = errors.New("integration: billing entity not found")

	// Commerce platform errors
	ErrCommerceRequestFailed = errors.New("integration: commerce request failed")

	// Sync errors
	ErrEntityInvalid = errors.New("integration: entity not eligible for sync")
)

// BillingError describes a failed call against the billing platform.
// Kind is one of ErrBillingAuthFailed, ErrBillingRequestFailed or ErrBillingRejected.
type BillingError struct {
	Kind       error
	Method     string
	Path       string
	StatusCode int
	// Payload is the raw response body returned by the billing platform, if any
	Payload string
	// Reason is the first human readable reason reported by the billing platform
	Reason string
	Err    error
}

func (e *BillingError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Method != "" {
		fmt.Fprintf(&b, ": %s %s", e.Method, e.Path)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the error kind and the underlying cause to errors.Is / errors.As.
func (e *BillingError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewRejectedError builds a DomainError style failure carrying the server-provided reason.
func NewRejectedError(method, path, reason string) *BillingError {
	return &BillingError{
		Kind:   ErrBillingRejected,
		Method: method,
		Path:   path,
		Reason: reason,
	}
}

// ReasonOf returns the billing platform's reason for err, or an empty string.
func ReasonOf(err error) string {
	var be *BillingError
	if errors.As(err, &be) {
		return be.Reason
	}
	return ""
}
