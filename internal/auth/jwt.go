// Package auth verifies identity tokens issued by the hosted auth backend and
// maps them to ledger scopes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"maasser/internal/storage"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the registered claims; Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier checks HS256 tokens and returns the scope they grant.
type Verifier struct {
	secret    []byte
	allowDemo bool
	now       func() time.Time
}

// NewVerifier returns a verifier. With an empty secret every token is
// rejected, so only demo access remains.
func NewVerifier(secret []byte, allowDemo bool) *Verifier {
	return &Verifier{secret: secret, allowDemo: allowDemo, now: time.Now}
}

func (v *Verifier) AllowDemo() bool { return v.allowDemo }

// Verify parses token and returns its subject as scope.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	if len(v.secret) == 0 {
		return "", ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}

	scope := claims.Subject
	if scope == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if err := (storage.Key{Collection: storage.Incomes, Scope: scope}).Validate(); err != nil {
		return "", fmt.Errorf("%w: unusable subject", ErrInvalidToken)
	}
	return scope, nil
}

// GenerateToken mints a token for subject, valid for validity.
func GenerateToken(subject string, secret []byte, validity time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	})
	return token.SignedString(secret)
}
