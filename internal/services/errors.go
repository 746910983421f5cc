package services

import "errors"

var (
	// ErrUnauthenticated means there is no live session.
	ErrUnauthenticated = errors.New("extrajob: not logged in")
	// ErrProfileRequired means the session exists but no profile row does yet.
	ErrProfileRequired = errors.New("extrajob: profile required")
	// ErrForbidden means the caller's role may not perform the action.
	ErrForbidden = errors.New("extrajob: forbidden")
	// ErrNotFound covers rows that are missing or outside the caller's scope.
	ErrNotFound = errors.New("extrajob: not found")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("extrajob: invalid input")
)
