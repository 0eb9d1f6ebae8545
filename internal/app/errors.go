package app

import "errors"

var (
	ErrCredentialsRequired = errors.New("username and password required")

	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// It does not say which of the two was wrong.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	ErrBookFieldsRequired = errors.New("author or title required")
	ErrInvalidSize        = errors.New("size must be zero or positive")
	ErrBookIDRequired     = errors.New("book id required")
)
