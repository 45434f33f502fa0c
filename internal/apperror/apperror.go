package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain error categories. Handlers map these to
// HTTP status codes with errors.Is; no other layer knows about HTTP.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	// ErrEmptyCollection marks the "population itself is empty" outcome of
	// multi-random sampling. It maps to 404 like ErrNotFound but with a
	// different response body, which existing clients depend on.
	ErrEmptyCollection = errors.New("empty collection")
	// ErrInternal marks a defensive anomaly, e.g. a random-offset fetch
	// returning nothing even though the count said rows exist.
	ErrInternal = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func NotFoundID(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func EmptyCollection(message string) *AppError {
	return &AppError{
		Err:     ErrEmptyCollection,
		Message: message,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: message,
	}
}
