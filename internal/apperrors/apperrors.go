package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication       = errors.New("authentication failed")
	ErrAuthorization        = errors.New("access denied")
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrEntitlementExceeded  = errors.New("plan listing limit reached")
	ErrPaymentConfiguration = errors.New("payment gateway is not configured")
	ErrPaymentVerification  = errors.New("payment verification failed")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrAlreadyPaid          = errors.New("already paid")
	ErrConflict             = errors.New("conflicting update")
)

// Error carries one of the sentinel kinds above together with the operation
// that failed and a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind error, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind error, op, message string, err error) error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Authorization(op string) error {
	return New(ErrAuthorization, op, "Access denied.")
}

func NotFound(op, what string) error {
	return New(ErrNotFound, op, what+" not found.")
}

func Validation(op, message string) error {
	return New(ErrValidation, op, message)
}

// Message returns the user-facing message of err, or fallback when err does
// not carry one.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
