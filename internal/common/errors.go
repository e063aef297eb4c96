package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Identity provider errors.
	ErrOtpDelivery    = errors.New("failed to send email OTP")
	ErrOtpRedemption  = errors.New("failed to verify OTP")
	ErrSessionExpired = errors.New("session expired")
	ErrInvalidToken   = errors.New("invalid token")

	// Profile errors.
	ErrProfileUpdate = errors.New("failed to update user profile")

	// Validation errors surfaced before any storage call.
	ErrFileTooLarge = errors.New("file too large")
	ErrNotAnImage   = errors.New("not an image file")
)
