package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/fieldops/internal/repository"
)

// ValidationError: a required field is missing, an enum value is not one
// of the declared literals, or a cross-field rule is broken.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError: the addressed row or a referenced row does not exist.
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return e.Msg }

// AuthorizationError: the caller may not perform the action on this row.
type AuthorizationError struct{ Msg string }

func (e *AuthorizationError) Error() string { return e.Msg }

// ConflictError: the current state of the data rules the write out.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

func invalid(format string, a ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, a...)}
}

func notFound(format string, a ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, a...)}
}

func forbidden(format string, a ...any) error {
	return &AuthorizationError{Msg: fmt.Sprintf(format, a...)}
}

func conflict(format string, a ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, a...)}
}

// lift turns repository sentinels for the row (what, id) into the
// taxonomy above and passes other errors through.
func lift(err error, what string, id uint64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound("%s %d not found", what, id)
	case errors.Is(err, repository.ErrEmailExists):
		return conflict("email already exists")
	case errors.Is(err, repository.ErrConflict):
		return conflict("%s %d conflicts with current state", what, id)
	case errors.Is(err, repository.ErrForbidden):
		return forbidden("not allowed to modify %s %d", what, id)
	}
	return err
}
