package models

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidDateFormat  = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrMissingFields      = errors.New("required fields are missing")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = errors.New("not found")
	ErrNoFile             = errors.New("no file selected")
	ErrFileTooLarge       = errors.New("file too large")

	// ErrTransportFailure wraps mail delivery errors. It is logged and
	// reported, never returned to HTTP clients.
	ErrTransportFailure = errors.New("mail transport failure")
)
