// Package apperrors defines the sentinel errors shared by all domain
// services. Callers classify failures with errors.Is; services wrap these
// with fmt.Errorf("...: %w", err) to add context.
package apperrors

import "errors"

var (
	// ErrUnauthenticated is returned when an operation requires an active
	// session and none exists.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the caller is authenticated but not
	// entitled: wrong post owner, wrong message sender, chat target not
	// followed.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a referenced id is absent from its
	// collection.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUser is returned by registration when the email or
	// username is already taken.
	ErrDuplicateUser = errors.New("user already exists with this email or username")

	// ErrValidation is returned when registration input is missing
	// required fields.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidCredentials is returned by login on unknown email or
	// password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOperation is returned for logically impossible requests,
	// e.g. following yourself.
	ErrInvalidOperation = errors.New("invalid operation")
)
