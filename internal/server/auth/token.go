// Package auth mints and verifies the signed session secrets handed to
// the browser. The secret is an HS256 token carrying only the session id;
// expiry lives on the session row, not in the token.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/storeit-app/storeit/internal/common"
)

// Claims includes the registered claims plus the session identifier.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// GenerateSessionToken signs a token for sessionID with secretKey.
func GenerateSessionToken(sessionID string, secretKey []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSessionIDFromToken verifies the signature and returns the embedded
// session id, or common.ErrInvalidToken.
func GetSessionIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.SessionID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.SessionID, nil
}
