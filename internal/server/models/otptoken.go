package models

import "time"

// OTPToken is a transient email passcode challenge. Only the code's
// bcrypt hash is stored; a token is redeemable exactly once and only
// before ExpiresAt. Only the newest unused token per account matters.
type OTPToken struct {
	ID         string
	AccountID  string
	SecretHash []byte
	Used       bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
