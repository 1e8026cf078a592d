package blog

import "errors"

var (
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("post not found")
	ErrForbidden          = errors.New("not the owner of this post")
)

// ValidationError reports missing or malformed input. Its message is safe to
// show to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
