// Package token issues and verifies the short-lived HS256 token returned for
// each processed upload. Expiry is enforced by the consumer (Verify), not by
// the archive.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is how long an upload token stays valid.
const TTL = time.Hour

var (
	ErrMissingSecret = errors.New("token signing secret is not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims describe one processed upload.
type Claims struct {
	Filename   string `json:"filename"`
	UploadTime int64  `json:"uploadTime"`
	jwt.RegisteredClaims
}

// Issuer signs upload claims with a single symmetric key. The key must come
// from configuration; construction fails without one so a missing secret is
// a startup error, never a silently unsigned token.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer builds an Issuer from the configured secret.
func NewIssuer(secret string) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs claims for filename. The expiry is exactly UploadTime + TTL.
func (i *Issuer) Issue(filename string) (string, error) {
	now := i.now().UTC()
	claims := Claims{
		Filename:   filename,
		UploadTime: now.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
func (i *Issuer) Verify(raw string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
