// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the application profile row. At most one row exists per email
// and per account id; rows are created on first successful account
// creation and mutated only via profile update.
type User struct {
	ID        string
	FullName  string
	Email     string
	Avatar    string
	AccountID string
	CreatedAt time.Time
}

// UserUpdate describes a partial profile update. Nil fields are left
// untouched.
type UserUpdate struct {
	FullName *string
	Avatar   *string
}
