// Package auth issues and verifies HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/terra-clan/learning-engine/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrInvalidRole  = errors.New("invalid role")
)

// Claims is the token payload. Subject carries the student ID.
type Claims struct {
	Name   string      `json:"name"`
	Avatar string      `json:"avatar,omitempty"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a shared secret
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for the principal
func (i *Issuer) Issue(p *models.Principal) (string, error) {
	if p.Role != models.RoleStudent && p.Role != models.RoleAdmin {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, p.Role)
	}

	now := i.now()
	claims := Claims{
		Name:   p.Name,
		Avatar: p.Avatar,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses a token and returns the principal it names
func (i *Issuer) Verify(tokenString string) (*models.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role != models.RoleStudent && claims.Role != models.RoleAdmin {
		return nil, ErrInvalidRole
	}

	p := &models.Principal{
		ID:     claims.Subject,
		Name:   claims.Name,
		Avatar: claims.Avatar,
		Role:   claims.Role,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
