// Package apperr defines the error kinds shared by the services and the
// HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid input")
)

// UserNotFoundError reports a user that could not be resolved. Key names the
// field that was looked up ("id" or "username").
type UserNotFoundError struct {
	Key   string
	Value string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user not found with %s: %s", e.Key, e.Value)
}

func (e *UserNotFoundError) Is(target error) bool { return target == ErrNotFound }

// UserNotFound is the error for a missing user id.
func UserNotFound(id string) error {
	return &UserNotFoundError{Key: "id", Value: id}
}

// CourseNotFoundError reports a course id that could not be resolved.
type CourseNotFoundError struct {
	ID string
}

func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("course not found with id: %s", e.ID)
}

func (e *CourseNotFoundError) Is(target error) bool { return target == ErrNotFound }

// CourseNotFound is the error for a missing course id.
func CourseNotFound(id string) error {
	return &CourseNotFoundError{ID: id}
}

// Invalid wraps a validation failure so it matches ErrInvalid.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}

// Conflictf builds an error matching ErrConflict.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// IsUserNotFound reports whether err is or wraps a UserNotFoundError.
func IsUserNotFound(err error) bool {
	var e *UserNotFoundError
	return errors.As(err, &e)
}

// IsCourseNotFound reports whether err is or wraps a CourseNotFoundError.
func IsCourseNotFound(err error) bool {
	var e *CourseNotFoundError
	return errors.As(err, &e)
}
