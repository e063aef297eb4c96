package models

import "time"

// Session is the credential pair issued after OTP redemption. Secret is
// opaque to callers; the browser holds it in the session cookie.
type Session struct {
	ID        string
	AccountID string
	Secret    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
