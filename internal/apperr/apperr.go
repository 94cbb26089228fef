// Package apperr defines the error kinds shared across service boundaries.
// Callers classify failures with errors.Is and wrap these values with
// fmt.Errorf("%w: ...") to attach detail.
package apperr

import "errors"

var (
	// ErrNotFound covers missing files, assets, and users.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized covers bad credentials and invalid or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPermissionDenied covers unwritable target files and insufficient roles.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict covers duplicate usernames.
	ErrConflict = errors.New("already exists")

	// ErrValidation covers structurally invalid requests, such as an empty
	// update set.
	ErrValidation = errors.New("invalid input")
)
