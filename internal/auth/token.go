// Package auth issues and verifies access tokens and carries the verified
// identity through request contexts.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"spendly/internal/core"
)

const issuer = "spendly"

// Identity is the verified caller handed to the ledger services.
type Identity struct {
	UserID   int64
	Email    string
	Username string
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer for secret with the given token lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for u.
func (i *Issuer) Issue(u core.User) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(u.ID, 10),
		"email":    u.Email,
		"username": u.Username,
		"jti":      uuid.NewString(),
		"iss":      issuer,
		"iat":      now.Unix(),
		"exp":      now.Add(i.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the identity it carries. Any failure
// is reported as core.ErrUnauthorized.
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return Identity{}, core.Unauthorized("Could not validate credentials")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, core.Unauthorized("Could not validate credentials")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, core.Unauthorized("Could not validate credentials")
	}

	email, _ := claims["email"].(string)
	username, _ := claims["username"].(string)
	return Identity{UserID: id, Email: email, Username: username}, nil
}
