// ABOUTME: Session identity taken from the client's JWT
// ABOUTME: Unverified parse for server-issued tokens, HS256 verification when a secret is configured

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claim names carried by session tokens.
const (
	ClaimEventID   = "event_id"
	ClaimSessionID = "session_id"
)

// Identity is who the client is acting as.
type Identity struct {
	UserID    string
	EventID   string
	SessionID string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Parse extracts the identity from a token without checking its signature.
// The client never holds the server's signing key; the token is only used
// to scope local state. Expired tokens are still rejected.
func Parse(tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := identityFromClaims(claims)
	if err != nil {
		return Identity{}, err
	}
	if !id.ExpiresAt.IsZero() && !time.Now().Before(id.ExpiresAt) {
		return Identity{}, ErrExpiredToken
	}
	return id, nil
}

// Verify validates an HS256 token with secret and extracts the identity.
func Verify(tokenString string, secret []byte) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return identityFromClaims(claims)
}

// Sign creates an HS256 token for id that expires after ttl. Used by local
// tooling to mint development sessions.
func Sign(id Identity, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":          id.UserID,
		ClaimEventID:   id.EventID,
		ClaimSessionID: id.SessionID,
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	var id Identity

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	id.UserID = sub

	if id.EventID, err = stringClaim(claims, ClaimEventID); err != nil {
		return Identity{}, err
	}
	if id.SessionID, err = stringClaim(claims, ClaimSessionID); err != nil {
		return Identity{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, name string) (string, error) {
	v, ok := claims[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingClaim, name)
	}
	return v, nil
}
