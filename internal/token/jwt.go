package token // package token issues and verifies the three JWT classes used by the service

import (
	"crypto/rand" // secure random number generation for activation codes
	"errors"
	"fmt"
	"math/big" // uniform random integers without modulo bias
	"time"     // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalid is returned for any token that fails signature, expiry or
// claim-shape checks.  Callers decide what invalid implies for their own
// state (usually a 400 with a generic message).
var ErrInvalid = errors.New("invalid token")

// Issuer signs and verifies access, refresh and activation tokens.  Each
// class has its own secret: an access-token compromise cannot mint refresh
// tokens, and rotation can be staged independently per class.  Access and
// refresh tokens are stateless `{id}` claims; the activation token carries
// the whole pending registration so no user row exists before activation.
type Issuer struct {
	AccessSecret     string
	RefreshSecret    string
	ActivationSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	ActivationTTL    time.Duration
}

// PendingUser is the not-yet-persisted registration embedded in an
// activation token.  Password travels in plain form inside the signed
// token; it is hashed only when the user row is finally created.
type PendingUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignAccessToken builds and signs a short-lived HS256 JWT for a user.
func (i Issuer) SignAccessToken(userID string) (string, error) {
	return i.sign(userID, i.AccessSecret, i.AccessTTL)
}

// SignRefreshToken builds and signs a long-lived HS256 JWT for a user.
func (i Issuer) SignRefreshToken(userID string) (string, error) {
	return i.sign(userID, i.RefreshSecret, i.RefreshTTL)
}

func (i Issuer) sign(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"id":  userID,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyAccessToken checks signature and expiry and returns the user id.
func (i Issuer) VerifyAccessToken(raw string) (string, error) {
	return i.verifyID(raw, i.AccessSecret)
}

// VerifyRefreshToken checks signature and expiry and returns the user id.
// Signature validity alone does not make a refresh token usable: the caller
// must still find a live session-cache entry for the returned id.
func (i Issuer) VerifyRefreshToken(raw string) (string, error) {
	return i.verifyID(raw, i.RefreshSecret)
}

func (i Issuer) verifyID(raw, secret string) (string, error) {
	claims, err := parse(raw, secret)
	if err != nil {
		return "", err
	}
	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return "", ErrInvalid
	}
	return id, nil
}

// SignActivationToken embeds the pending registration and its 4-digit code
// into a short-lived HS256 JWT.  The token is single-use only by expiry: a
// replay inside the window is cut off by the duplicate-email check once the
// first activation has persisted the user.
func (i Issuer) SignActivationToken(u PendingUser, code string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"user":           map[string]string{"name": u.Name, "email": u.Email, "password": u.Password},
		"activationCode": code,
		"exp":            now.Add(i.ActivationTTL).Unix(),
		"iat":            now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(i.ActivationSecret))
}

// VerifyActivationToken returns the embedded pending user and code.
func (i Issuer) VerifyActivationToken(raw string) (PendingUser, string, error) {
	claims, err := parse(raw, i.ActivationSecret)
	if err != nil {
		return PendingUser{}, "", err
	}
	code, ok := claims["activationCode"].(string)
	if !ok || code == "" {
		return PendingUser{}, "", ErrInvalid
	}
	userMap, ok := claims["user"].(map[string]any)
	if !ok {
		return PendingUser{}, "", ErrInvalid
	}
	u := PendingUser{}
	if v, ok := userMap["name"].(string); ok {
		u.Name = v
	}
	if v, ok := userMap["email"].(string); ok {
		u.Email = v
	}
	if v, ok := userMap["password"].(string); ok {
		u.Password = v
	}
	if u.Email == "" {
		return PendingUser{}, "", ErrInvalid
	}
	return u, code, nil
}

// parse validates an HS256 token against the secret and returns its claims.
// Tokens signed with any other method are rejected.
func parse(raw, secret string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalid
	}
	return claims, nil
}

// NewActivationCode returns a random 4-digit code as a string ("1000"-"9999").
func NewActivationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}
