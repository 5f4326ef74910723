package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidTransition indicates a workflow or lifecycle graph violation.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrAuthorization indicates that an ownership or disposition check failed.
var ErrAuthorization = errors.New("not authorized")

// ErrUnbalancedJournal indicates that the postings of a journal do not sum to zero.
var ErrUnbalancedJournal = errors.New("journal postings do not balance to zero")

// ErrDuplicateRemittance indicates a remittance transaction key collision.
var ErrDuplicateRemittance = errors.New("remittance already recorded")

// ErrDuplicateRequest indicates a funds-transfer request GUID collision.
var ErrDuplicateRequest = errors.New("funds transfer request already exists")

// ErrConflict indicates that a concurrent write won the race. Callers may retry with fresh data.
var ErrConflict = errors.New("conflicting concurrent update")

// ErrInternal is used when the cause should not leak to the caller.
var ErrInternal = errors.New("internal error")

// AppError carries a status-like code and a message alongside the wrapped cause.
// errors.Is sees through it to the sentinel it wraps.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidationFailedError wraps ErrValidation with a message.
func NewValidationFailedError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrValidation)
}

// NewNotFoundError wraps ErrNotFound with a message.
func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

// NewConflictError wraps ErrConflict with a message.
func NewConflictError(message string) *AppError {
	return NewAppError(http.StatusConflict, message, ErrConflict)
}

// NewDuplicateError wraps ErrDuplicate with a message.
func NewDuplicateError(message string) *AppError {
	return NewAppError(http.StatusConflict, message, ErrDuplicate)
}

// NewInvalidTransitionError wraps ErrInvalidTransition with a message.
func NewInvalidTransitionError(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, message, ErrInvalidTransition)
}

// NewAuthorizationError wraps ErrAuthorization with a message.
func NewAuthorizationError(message string) *AppError {
	return NewAppError(http.StatusForbidden, message, ErrAuthorization)
}

// NewUnbalancedJournalError wraps ErrUnbalancedJournal with a message.
func NewUnbalancedJournalError(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, message, ErrUnbalancedJournal)
}

// NewDuplicateRemittanceError wraps ErrDuplicateRemittance with a message.
func NewDuplicateRemittanceError(message string) *AppError {
	return NewAppError(http.StatusConflict, message, ErrDuplicateRemittance)
}

// NewDuplicateRequestError wraps ErrDuplicateRequest with a message.
func NewDuplicateRequestError(message string) *AppError {
	return NewAppError(http.StatusConflict, message, ErrDuplicateRequest)
}

// NewInternalError wraps ErrInternal and the cause. The message is what callers
// should show; the cause stays available to errors.Is and errors.As.
func NewInternalError(message string, cause error) *AppError {
	err := ErrInternal
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrInternal, cause)
	}
	return NewAppError(http.StatusInternalServerError, message, err)
}

// IsRetryable reports whether the caller may retry the operation with fresh data.
// Only lost races qualify; every other kind is a business-rule violation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
