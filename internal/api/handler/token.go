// Package handler provides HTTP handlers for the API.
package handler

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/internal/api/middleware"
)

const defaultTokenExpiry = 10 * time.Hour

// Claims represents JWT claims
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates session tokens. The signing key is fixed
// at construction.
type TokenService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service signing with secret
func NewTokenService(secret string, expiry time.Duration) *TokenService {
	if expiry <= 0 {
		expiry = defaultTokenExpiry
	}
	return &TokenService{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue signs a token for email and role. It returns the token and its expiry.
func (s *TokenService) Issue(email, role string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}
	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    consts.ServiceName,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken implements middleware.TokenValidator
func (s *TokenService) ValidateToken(tokenString string) (*middleware.Identity, error) {
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, jwt.ErrSignatureInvalid
	}
	return &middleware.Identity{Email: claims.Email, Role: claims.Role}, nil
}
