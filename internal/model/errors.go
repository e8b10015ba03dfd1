// Error values shared across the catalog stores and handlers. These
// sentinels let the transport layer map failures onto HTTP statuses without
// inspecting error strings: ErrNotFound becomes 404, ErrInsufficientSeats
// 409, a ValidationError 400 and a PersistenceError 502.
package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced identifier is absent from the
// catalog's collections.
var ErrNotFound = errors.New("not found")

// ErrInsufficientSeats is returned when a booking would drive a showtime's
// available seat count below zero. The operation performs no mutation.
var ErrInsufficientSeats = errors.New("insufficient seats")

// ErrEmailExists is returned when a registration reuses an existing email.
var ErrEmailExists = errors.New("email already registered")

// ErrInvalidCredentials is returned on a failed login attempt. It does not
// distinguish an unknown email from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports a malformed or out-of-range request, detected
// before any mutation takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a failed durable write or network call. Op names
// the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
