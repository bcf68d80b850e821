package service

import (
	"errors"
	"fmt"

	"today-planner/internal/repository"
)

var (
	// ErrNotFound means the id does not resolve or is not owned by the caller.
	ErrNotFound = repository.ErrNotFound

	ErrTaskNotFound     = fmt.Errorf("task %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)

	// ErrConflict is returned by Reorder when the Today list changed since the caller read it.
	ErrConflict = errors.New("today list changed since it was read")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// taskNotFound narrows a repository miss to ErrTaskNotFound.
func taskNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}
