package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// AppError is the contract every typed error of this service implements.
// Handlers only need Category and HTTPStatus to translate errors to responses.
type AppError interface {
	Error() string
	Category() string
	HTTPStatus() int
}

// ValidationError represents malformed or incomplete operation data.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return e.Msg }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest }

func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError represents a dangling reference or missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound }

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidStateError represents an illegal status transition or a mutation of
// a terminal operation.
type InvalidStateError struct {
	Kind string
	From string
	To   string
	Msg  string
}

func (e *InvalidStateError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("illegal transition %s -> %s for %s", e.From, e.To, e.Kind)
}
func (e *InvalidStateError) Category() string { return "INVALID_STATE" }
func (e *InvalidStateError) HTTPStatus() int  { return http.StatusConflict }

func NewInvalidState(kind, from, to string) *InvalidStateError {
	return &InvalidStateError{Kind: kind, From: from, To: to}
}

func NewInvalidStatef(format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports the exact line that would drive stock negative.
type InsufficientStockError struct {
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Current    int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s at location %s (current: %d, requested: %d)",
		e.ProductID, e.LocationID, e.Current, e.Requested)
}
func (e *InsufficientStockError) Category() string { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) HTTPStatus() int  { return http.StatusUnprocessableEntity }

func NewInsufficientStock(productID, locationID uuid.UUID, current, requested int) *InsufficientStockError {
	return &InsufficientStockError{ProductID: productID, LocationID: locationID, Current: current, Requested: requested}
}

// ConflictError represents a lock/version conflict or a duplicate resource.
// Lock conflicts are retried a bounded number of times before surfacing.
type ConflictError struct {
	Msg       string
	Retryable bool
}

func (e *ConflictError) Error() string    { return e.Msg }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict }

func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func NewRetryableConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...), Retryable: true}
}

// InternalError wraps unexpected repository or infrastructure failures.
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError }
func (e *InternalError) Unwrap() error    { return e.Err }

func NewInternal(msg string, err error) *InternalError {
	return &InternalError{Msg: msg, Err: err}
}

// MapToHTTPStatus translates any error to (status, category, message) for the
// response envelope. Untyped errors fall back to a generic 500.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "An unexpected error occurred."
}
