package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for the search platform.
var (
	// ErrNotFound signals that a catalog record or index document is absent.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput signals a malformed request or filter combination.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict signals that an index write carried a source version
	// older than the document already stored. The newer write has won; callers
	// normally drop this silently.
	ErrVersionConflict = errors.New("stale source version")

	// ErrEngineUnavailable signals a transient search engine fault. Search
	// callers must surface this explicitly rather than returning an empty
	// result set.
	ErrEngineUnavailable = errors.New("search engine unavailable")

	// ErrRebuildInProgress signals that a full reindex is already building a
	// shadow generation. At most one rebuild may run at a time.
	ErrRebuildInProgress = errors.New("reindex already in progress")

	// ErrRebuildFailed signals that a full reindex aborted before the alias
	// swap. The previously live generation keeps serving.
	ErrRebuildFailed = errors.New("reindex failed")

	// ErrInternal is the catch-all for unexpected faults.
	ErrInternal = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// EngineUnavailable creates a 503 error wrapping a transient engine fault.
func EngineUnavailable(err error) *AppError {
	return &AppError{
		Code:    "SEARCH_UNAVAILABLE",
		Message: "search is temporarily unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrEngineUnavailable, err),
	}
}

// RebuildInProgress creates a 409 error for a rejected concurrent reindex.
func RebuildInProgress() *AppError {
	return &AppError{
		Code:    "REINDEX_IN_PROGRESS",
		Message: "a full reindex is already running",
		Status:  http.StatusConflict,
		Err:     ErrRebuildInProgress,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRebuildInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
