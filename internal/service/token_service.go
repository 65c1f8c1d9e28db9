package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes.
const (
	TokenPurposeReset  = "password-reset"
	TokenPurposeInvite = "register-invite"
)

// LinkClaims is the payload of signed links sent by email.
type LinkClaims struct {
	Purpose string `json:"purpose"`
	// RecordID is the database record the link redeems: the invitation id
	// or the password-reset token hash.
	RecordID string `json:"record_id"`
	jwt.RegisteredClaims
}

// TokenService signs and validates email-link tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService returns configured token service.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GenerateLink issues a signed token for an email link.
func (t *TokenService) GenerateLink(purpose, recordID string, expiresIn time.Duration) (string, error) {
	if recordID == "" {
		return "", errors.New("token: record id is required")
	}

	now := time.Now().UTC()
	claims := LinkClaims{
		Purpose:  purpose,
		RecordID: recordID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateLink verifies a signed email-link token for the given purpose and
// returns the record id it redeems.
func (t *TokenService) ValidateLink(tokenString, purpose string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LinkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*LinkClaims)
	if !ok || !token.Valid {
		return "", errors.New("token: invalid claims")
	}
	if claims.Purpose != purpose {
		return "", errors.New("token: purpose mismatch")
	}
	return claims.RecordID, nil
}
