package domain

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrConfiguration     = errors.New("invalid configuration")
	ErrStorage           = errors.New("storage failure")
	ErrInternal          = errors.New("internal failure")

	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("access forbidden")
)
