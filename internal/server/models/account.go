package models

import "time"

// Account is an identity-provider record, one per email. It exists
// independently of the User profile row: issuing an OTP for a new email
// creates the account, while the profile row is created by the user
// action layer.
type Account struct {
	ID        string
	Email     string
	CreatedAt time.Time
}
