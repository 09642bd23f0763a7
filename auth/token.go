package auth

import (
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"time"
	"tutor-realtime/domain"
	"tutor-realtime/errors"
)

const issuer = "tutor-realtime"

// CustomClaims defines the structure of the data stored inside the JWT.
// The user id travels in the standard "sub" claim.
type CustomClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 access tokens with a shared secret.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

// GenerateToken creates a signed JWT for a specific user.
func (t *Tokens) GenerateToken(userID domain.UserID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (t *Tokens) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.ErrUnauthenticated
	}
	return claims, nil
}

// Authenticate resolves a bearer credential to the user it was issued for.
func (t *Tokens) Authenticate(tokenString string) (domain.UserID, error) {
	claims, err := t.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return domain.UserID(claims.Subject), nil
}
