package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the analysis and patch pipeline.
var (
	// ErrSyntax means the source text did not parse; no partial tree is produced.
	ErrSyntax = errors.New("syntax error")
	// ErrInvalidRange means a patch line range is outside the stored text.
	ErrInvalidRange = errors.New("invalid line range")
	// ErrUnknownFile means no source record exists for the requested file id.
	ErrUnknownFile = errors.New("unknown file")
	// ErrStaleRevision means the caller's revision token no longer matches the
	// stored record; the client must re-analyze before patching again.
	ErrStaleRevision = errors.New("stale revision")
	// ErrNotFound is a generic lookup miss (definition id, resource).
	ErrNotFound = errors.New("not found")
	// ErrTooLarge means the source exceeds the configured parse bound.
	ErrTooLarge = errors.New("source too large")
)

// Kind strings surfaced to API clients so failures stay machine-distinguishable.
const (
	KindSyntax        = "SyntaxFailure"
	KindInvalidRange  = "InvalidRange"
	KindUnknownFile   = "UnknownFile"
	KindStaleRevision = "StaleRevision"
	KindNotFound      = "NotFound"
	KindIOFailure     = "IOFailure"
	KindBadRequest    = "BadRequest"
)

// AppError carries an HTTP status, a stable error kind and a human-readable message.
type AppError struct {
	Code    int
	Kind    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// MapError maps a pipeline error to an AppError with an appropriate HTTP status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidRange):
		return NewAppError(http.StatusBadRequest, KindInvalidRange, err.Error(), err)
	case errors.Is(err, ErrUnknownFile):
		return NewAppError(http.StatusNotFound, KindUnknownFile, err.Error(), err)
	case errors.Is(err, ErrStaleRevision):
		return NewAppError(http.StatusConflict, KindStaleRevision, err.Error(), err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, KindNotFound, err.Error(), err)
	case errors.Is(err, ErrSyntax):
		return NewAppError(http.StatusUnprocessableEntity, KindSyntax, err.Error(), err)
	case errors.Is(err, ErrTooLarge):
		return NewAppError(http.StatusRequestEntityTooLarge, KindBadRequest, err.Error(), err)
	}

	return NewAppError(http.StatusInternalServerError, KindIOFailure, "Internal server error", err)
}
