package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultCookieName = "dharmagate_session"
	DefaultIssuer     = "dharmagate"
)

// Claims is the cookie payload. The session ID travels as jti; the identity
// fields mirror the server-side session record for display only.
type Claims struct {
	UserID   int64  `json:"uid"`
	FullName string `json:"name"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) SessionID() string {
	return c.ID
}

func NewRandomSecretB64(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeSecret accepts a base64url secret or, failing that, raw text. Short
// secrets are zero-padded to 16 bytes.
func DecodeSecret(secretText string) []byte {
	raw, err := base64.RawURLEncoding.DecodeString(secretText)
	if err != nil {
		raw = []byte(secretText)
	}
	if len(raw) < 16 {
		pad := make([]byte, 16)
		copy(pad, raw)
		raw = pad
	}
	return raw
}

// SignSession issues a token without an expiry; the session ends when the
// server-side record is deleted.
func SignSession(secret []byte, sessionID string, userID int64, fullName, email string) (string, error) {
	if sessionID == "" {
		return "", errors.New("empty session id")
	}
	claims := Claims{
		UserID:   userID,
		FullName: fullName,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       sessionID,
			Issuer:   DefaultIssuer,
			Subject:  email,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

func ParseSession(secret []byte, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithIssuer(DefaultIssuer))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
