// Package identity implements the identity provider: email one-time
// passcode issuance and redemption, plus session lifecycle. The user
// action layer consumes it through the Provider interface and never
// touches passcodes or session rows directly.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/dbx"
	"github.com/storeit-app/storeit/internal/server/auth"
	"github.com/storeit-app/storeit/internal/server/config"
	"github.com/storeit-app/storeit/internal/server/mail"
	"github.com/storeit-app/storeit/internal/server/models"
	"github.com/storeit-app/storeit/internal/server/repositories/repomanager"
)

// OTPLength is the number of decimal digits in an emailed passcode.
const OTPLength = 6

// Provider is the authentication surface consumed by the user action
// layer. It mirrors the four primitives of a hosted identity service:
// issue an email token, redeem it into a session, resolve the account
// behind a session secret, and destroy a session.
type Provider interface {
	// CreateEmailToken resolves (or creates) the account for email,
	// issues a fresh OTP challenge and delivers it. candidateID is used
	// as the account id only when no account exists for the email yet;
	// the returned id is stable per email either way.
	CreateEmailToken(ctx context.Context, candidateID string, email string) (string, error)

	// CreateSession redeems the newest unredeemed OTP challenge of the
	// account. The challenge is consumed exactly once.
	CreateSession(ctx context.Context, accountID string, secret string) (*models.Session, error)

	// GetAccount resolves the account behind a session secret.
	GetAccount(ctx context.Context, sessionSecret string) (*models.Account, error)

	// DeleteSession destroys the session behind a session secret.
	DeleteSession(ctx context.Context, sessionSecret string) error
}

// PostgresProvider implements Provider over the identity repositories.
type PostgresProvider struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	mailer          mail.Mailer
	secretKey       []byte
	otpValidity     time.Duration
	sessionValidity time.Duration
}

// NewPostgresProvider constructs a provider using repositories, the OTP
// mailer, and server config.
func NewPostgresProvider(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, cfg *config.Config) *PostgresProvider {
	return &PostgresProvider{
		db:              db,
		repomanager:     m,
		mailer:          mailer,
		secretKey:       []byte(cfg.SecretKey),
		otpValidity:     cfg.OTPValidityDuration,
		sessionValidity: cfg.SessionValidityDuration,
	}
}

func (p *PostgresProvider) CreateEmailToken(ctx context.Context, candidateID string, email string) (string, error) {
	account, err := p.repomanager.Accounts(p.db).GetOrCreate(ctx, candidateID, email)
	if err != nil {
		return "", fmt.Errorf("error resolving account: %w", err)
	}

	code, err := common.MakeRandDigitString(OTPLength)
	if err != nil {
		return "", common.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", common.ErrorInternal
	}

	repo := p.repomanager.OTPTokens(p.db)
	if err := repo.Create(ctx, uuid.New().String(), account.ID, hash, p.otpValidity); err != nil {
		return "", fmt.Errorf("error storing otp challenge: %w", err)
	}

	if err := p.mailer.SendOTP(ctx, email, code); err != nil {
		return "", fmt.Errorf("error delivering otp: %w", err)
	}

	return account.ID, nil
}

func (p *PostgresProvider) CreateSession(ctx context.Context, accountID string, secret string) (*models.Session, error) {
	token, err := p.repomanager.OTPTokens(p.db).FindLatest(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrOtpRedemption
		}
		return nil, fmt.Errorf("error searching otp challenge: %w", err)
	}
	if token.ExpiresAt.Before(time.Now()) {
		return nil, common.ErrOtpRedemption
	}
	if bcrypt.CompareHashAndPassword(token.SecretHash, []byte(secret)) != nil {
		return nil, common.ErrOtpRedemption
	}

	session := &models.Session{
		ID:        uuid.New().String(),
		AccountID: accountID,
		ExpiresAt: time.Now().Add(p.sessionValidity),
	}

	if err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := p.repomanager.OTPTokens(tx).MarkUsed(ctx, token.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrOtpRedemption
			}
			return err
		}
		return p.repomanager.Sessions(tx).Create(ctx, session)
	}); err != nil {
		return nil, err
	}

	session.Secret, err = auth.GenerateSessionToken(session.ID, p.secretKey)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return session, nil
}

func (p *PostgresProvider) GetAccount(ctx context.Context, sessionSecret string) (*models.Account, error) {
	sessionID, err := auth.GetSessionIDFromToken(sessionSecret, p.secretKey)
	if err != nil {
		return nil, err
	}

	session, err := p.repomanager.Sessions(p.db).GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ExpiresAt.Before(time.Now()) {
		return nil, common.ErrSessionExpired
	}

	return p.repomanager.Accounts(p.db).GetByID(ctx, session.AccountID)
}

func (p *PostgresProvider) DeleteSession(ctx context.Context, sessionSecret string) error {
	sessionID, err := auth.GetSessionIDFromToken(sessionSecret, p.secretKey)
	if err != nil {
		return err
	}
	return p.repomanager.Sessions(p.db).Delete(ctx, sessionID)
}
