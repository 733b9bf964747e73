package notes_errors

import (
	"errors"
	"net/http"
)

// Error kinds. Every failure surfaced by the content pipeline matches exactly
// one of these with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrStorage       = errors.New("blob write failed")
	ErrPersistence   = errors.New("metadata write failed")
	ErrCompensation  = errors.New("compensation failed")
	ErrQuery         = errors.New("query failed")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnavailable   = errors.New("service unavailable")
)

// Error pairs a kind with a human-readable message and the underlying cause.
// errors.Is matches both the kind and anything in the cause chain.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// KindOf returns the kind of the outermost *Error in err's chain, or nil.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong. Please try again."
}

func HTTPStatus(err error) int {
	switch kindOrSentinel(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict, ErrAlreadyExists:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrStorage:
		return http.StatusBadGateway
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Code(err error) string {
	switch kindOrSentinel(err) {
	case ErrValidation:
		return "VALIDATION_FAILED"
	case ErrUnauthorized:
		return "UNAUTHORIZED"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrConflict:
		return "CONFLICT"
	case ErrAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrRateLimited:
		return "RATE_LIMITED"
	case ErrStorage:
		return "STORAGE_FAILED"
	case ErrPersistence:
		return "PERSISTENCE_FAILED"
	case ErrQuery:
		return "QUERY_FAILED"
	case ErrUnavailable:
		return "UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

var sentinels = []error{
	ErrValidation, ErrUnauthorized, ErrNotFound, ErrConflict, ErrAlreadyExists,
	ErrRateLimited, ErrStorage, ErrPersistence, ErrQuery, ErrUnavailable,
}

// kindOrSentinel prefers the outermost typed kind; bare sentinels are matched in order.
func kindOrSentinel(err error) error {
	if kind := KindOf(err); kind != nil {
		return kind
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s
		}
	}
	return nil
}
