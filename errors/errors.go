package errors

import "fmt"

var (
	// Core pipeline taxonomy. Persistence failures abort the operation,
	// delivery failures never do.
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrNotFound     = fmt.Errorf("not found")
	ErrConflict     = fmt.Errorf("concurrent creation conflict")
	ErrStorage      = fmt.Errorf("storage failure")

	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrConnectionSaturated = fmt.Errorf("connection send buffer saturated")
	ErrConnectionClosed    = fmt.Errorf("connection closed")

	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWordlists = fmt.Errorf("no censored words have been found")
)
