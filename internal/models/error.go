package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	// Token verification outcomes
	ErrInvalidToken  = errors.New("invalid token format")
	ErrTokenExpired  = errors.New("token has expired")
	ErrTokenNotFound = errors.New("token not found or expired")
	ErrTokenUsed     = errors.New("token has already been used")

	// Infrastructure faults are transient and may be retried
	ErrStoreUnavailable = errors.New("token store unavailable")
)
