package auth

import "errors"

// Codec level failures.  They never leave the auth package for access and
// refresh tokens: the resolver and the refresh flow fold them into
// ErrUnauthorized.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongScope   = errors.New("invalid scope for token")
)

// Errors surfaced to handlers.
var (
	ErrUnauthorized       = errors.New("could not validate credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrEmailTokenInvalid  = errors.New("invalid token for email verification")
	ErrVerificationFailed = errors.New("verification error")
	ErrEmailExists        = errors.New("account already exists")
	ErrStorageDisabled    = errors.New("avatar storage is not configured")
)
