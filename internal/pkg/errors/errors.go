package errors

import "errors"

// Application-wide sentinel errors
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned for missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks permission for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken is returned when a token or one-time code has expired.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict is returned on unique-constraint collisions (duplicate email, LRN).
	ErrConflict = errors.New("resource state conflict")

	// ErrTooManyRequests is returned when a cooldown or attempt limit is hit.
	ErrTooManyRequests = errors.New("too many requests")
)
