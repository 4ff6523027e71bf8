package auth

import "errors"

var (
	ErrOTPNotFound    = errors.New("otp not found")
	ErrOTPMismatch    = errors.New("invalid otp")
	ErrOTPExpired     = errors.New("otp expired")
	ErrRateLimited    = errors.New("too many otp requests")
	ErrOAuthFailed    = errors.New("google authentication failed")
	ErrInvalidSession = errors.New("invalid session")
)
