package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidAmount   = "INVALID_AMOUNT"
	ErrCodeInvalidState    = "INVALID_STATE"
	ErrCodeUnavailable     = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeUnknownMerchant = "UNKNOWN_MERCHANT"
)

func NewNotFoundError(kind, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %s not found", kind, id),
	}
}

func NewValidationError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

func NewInvalidAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %d", amount),
	}
}

func NewInvalidStateError(current, expected string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("invalid state: transaction is %s, expected %s", current, expected),
	}
}

func NewUnknownMerchantError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnknownMerchant,
		Message: fmt.Sprintf("merchant %s is not in the directory", id),
	}
}

func NewUnavailableError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnavailable,
		Message: "upstream request failed",
		Err:     err,
	}
}

func NewInternalError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound distinguishes a missing record from a transport failure.
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeNotFound)
}
