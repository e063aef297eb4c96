// Package services contains server-side business logic. This file implements
// UserService, which handles account creation, passcode sign-in, session
// resolution and profile updates.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/logging"
	"github.com/storeit-app/storeit/internal/server/blobstore"
	"github.com/storeit-app/storeit/internal/server/identity"
	"github.com/storeit-app/storeit/internal/server/models"
	"github.com/storeit-app/storeit/internal/server/repositories/repomanager"
)

// SignInResult carries the outcome of a sign-in attempt. An unknown email
// is not an error: AccountID stays empty and Err holds the message shown
// to the caller, and no passcode is sent.
type SignInResult struct {
	AccountID string
	Err       string
}

// ProfileUpdate carries the optional changes of a profile update. A nil
// Avatar and an empty FullName each leave the corresponding field as is.
type ProfileUpdate struct {
	FullName string
	Avatar   *AvatarUpload
}

// AvatarUpload is a new avatar image to be stored.
type AvatarUpload struct {
	ContentType string
	Data        []byte
}

// UserService provides the user-facing account operations:
// - CreateAccount: register (or re-invite) by email
// - SignIn: re-issue a passcode for an existing account
// - VerifySecret: redeem a passcode into a session
// - CurrentUser / SignOut / UpdateProfile: session-scoped operations
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	identity    identity.Provider
	blobs       blobstore.Store
	logger      logging.Logger
}

// NewUserService constructs a UserService using repositories, the identity
// provider and the blob store.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, p identity.Provider, blobs blobstore.Store, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		identity:    p,
		blobs:       blobs,
		logger:      logger,
	}
}

// CreateAccount registers a user by email, or re-invites an existing one.
// A passcode is always sent; the user row is inserted only when no row
// exists for the email yet, so repeated sign-ups stay idempotent. The
// passcode must be delivered before anything is written: a delivery
// failure aborts with ErrOtpDelivery and leaves no partial user behind.
func (s *UserService) CreateAccount(ctx context.Context, fullName string, email string) (string, error) {
	repo := s.repomanager.Users(s.db)

	existing, err := repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("error searching user: %v", err)
	}

	accountID, err := s.identity.CreateEmailToken(ctx, uuid.New().String(), email)
	if err != nil {
		s.logger.Error(ctx, "otp delivery failed", "email", email, "error", err)
		return "", common.ErrOtpDelivery
	}

	if existing == nil {
		user := &models.User{
			ID:        uuid.New().String(),
			FullName:  fullName,
			Email:     email,
			Avatar:    common.AvatarPlaceholderURL,
			AccountID: accountID,
		}
		if _, err := repo.Create(ctx, user); err != nil {
			return "", fmt.Errorf("error creating user: %v", err)
		}
	}

	return accountID, nil
}

// SignIn re-issues a passcode for the account behind email. An unknown
// email yields a SignInResult carrying the "User not found" message and
// no passcode is issued.
func (s *UserService) SignIn(ctx context.Context, email string) (*SignInResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &SignInResult{Err: "User not found"}, nil
		}
		return nil, fmt.Errorf("error searching user: %v", err)
	}

	accountID, err := s.identity.CreateEmailToken(ctx, user.AccountID, user.Email)
	if err != nil {
		s.logger.Error(ctx, "otp delivery failed", "email", email, "error", err)
		return nil, common.ErrOtpDelivery
	}

	return &SignInResult{AccountID: accountID}, nil
}

// VerifySecret redeems the account's pending passcode into a session.
// Every failure mode collapses into ErrOtpRedemption so the caller
// cannot distinguish a wrong code from a missing or expired one.
func (s *UserService) VerifySecret(ctx context.Context, accountID string, password string) (*models.Session, error) {
	session, err := s.identity.CreateSession(ctx, accountID, password)
	if err != nil {
		if errors.Is(err, common.ErrOtpRedemption) {
			return nil, err
		}
		s.logger.Error(ctx, "otp redemption failed", "account_id", accountID, "error", err)
		return nil, common.ErrOtpRedemption
	}
	return session, nil
}

// CurrentUser resolves the user behind a session secret. It never fails:
// an invalid, expired or orphaned session logs the cause and yields nil,
// which callers render as a signed-out state.
func (s *UserService) CurrentUser(ctx context.Context, sessionSecret string) *models.User {
	if sessionSecret == "" {
		return nil
	}

	account, err := s.identity.GetAccount(ctx, sessionSecret)
	if err != nil {
		s.logger.Warn(ctx, "session resolution failed", "error", err)
		return nil
	}

	user, err := s.repomanager.Users(s.db).GetByAccountID(ctx, account.ID)
	if err != nil {
		s.logger.Warn(ctx, "no user row for account", "account_id", account.ID, "error", err)
		return nil
	}

	return user
}

// SignOut destroys the session behind the secret. The error is returned
// for logging only; callers redirect to the sign-in page either way.
func (s *UserService) SignOut(ctx context.Context, sessionSecret string) error {
	if err := s.identity.DeleteSession(ctx, sessionSecret); err != nil {
		s.logger.Error(ctx, "sign-out failed", "error", err)
		return err
	}
	return nil
}

// UpdateProfile applies a partial update to the user identified by
// targetUserID. The caller must hold a session resolving to that same
// user; a missing or foreign session yields ErrorUnauthorized before
// anything is written. A new avatar is uploaded under a fresh blob id
// and the previous avatar object is left in place.
func (s *UserService) UpdateProfile(ctx context.Context, sessionSecret string, targetUserID string, upd ProfileUpdate) (*models.User, error) {
	current := s.CurrentUser(ctx, sessionSecret)
	if current == nil {
		return nil, common.ErrorUnauthorized
	}
	if current.ID != targetUserID {
		return nil, common.ErrorUnauthorized
	}

	rowUpd := models.UserUpdate{}
	if upd.FullName != "" {
		rowUpd.FullName = &upd.FullName
	}

	if upd.Avatar != nil {
		blobID := uuid.New().String()
		if err := s.blobs.Upload(ctx, blobID, upd.Avatar.ContentType, upd.Avatar.Data); err != nil {
			s.logger.Error(ctx, "avatar upload failed", "user_id", targetUserID, "error", err)
			return nil, common.ErrProfileUpdate
		}
		url := s.blobs.ObjectURL(blobID)
		rowUpd.Avatar = &url
	}

	user, err := s.repomanager.Users(s.db).Update(ctx, targetUserID, rowUpd)
	if err != nil {
		s.logger.Error(ctx, "profile update failed", "user_id", targetUserID, "error", err)
		return nil, common.ErrProfileUpdate
	}

	return user, nil
}
