package entities

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("already exists")
	ErrInvalid       = errors.New("invalid input")
	ErrNotConfigured = errors.New("not configured")
)
