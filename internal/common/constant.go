// Package common contains shared constants and sentinel errors used across
// StoreIt components.
package common

// SessionCookieName is the cookie that carries the opaque session secret.
const SessionCookieName = "session-token"

// SignInPath is where the browser is sent after sign-out, unconditionally.
const SignInPath = "/sign-in"

// AvatarPlaceholderURL is assigned to new users until they upload an avatar.
const AvatarPlaceholderURL = "/assets/images/avatar-placeholder.png"

// MaxUploadSize caps both file uploads and avatar images (50MB).
const MaxUploadSize = 50 * 1024 * 1024

// TotalCapacity is the per-user storage allowance shown on the dashboard (2GB).
const TotalCapacity = 2 * 1024 * 1024 * 1024
