package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidInput   = errors.New("INVALID_REQUEST")
	ErrGameNotFound   = errors.New("GAME_NOT_FOUND")
	ErrUpstream       = errors.New("UPSTREAM_FAILURE")
	ErrInvalidToken   = errors.New("INVALID_TOKEN")
	ErrInvalidAPIKey  = errors.New("INVALID_API_KEY")
	ErrAPIKeyExpired  = errors.New("API_KEY_EXPIRED")
	ErrClientMismatch = errors.New("CLIENT_MISMATCH")
	ErrInvalidLogin   = errors.New("INVALID_CREDENTIALS")
	ErrInactiveAdmin  = errors.New("ACCOUNT_INACTIVE")
)

// DetailedError attaches a caller-facing message to one of the sentinel errors
// above. errors.Is matches the sentinel.
type DetailedError struct {
	Err     error
	Message string
}

func (e *DetailedError) Error() string { return e.Message }

func (e *DetailedError) Unwrap() error { return e.Err }

// WithMessage wraps sentinel with a descriptive message.
func WithMessage(sentinel error, message string) error {
	return &DetailedError{Err: sentinel, Message: message}
}
