// ABOUTME: Unit tests for session identity parsing and verification
// ABOUTME: Tests valid, tampered, expired, and incomplete tokens

package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-key-for-jwt-signing")

func testIdentity() Identity {
	return Identity{UserID: "user-1", EventID: "event-1", SessionID: "sess-1"}
}

func TestSignAndVerify(t *testing.T) {
	token, err := Sign(testIdentity(), testSecret, time.Hour)
	require.NoError(t, err)

	id, err := Verify(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "event-1", id.EventID)
	assert.Equal(t, "sess-1", id.SessionID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
}

func TestParse_IgnoresSignature(t *testing.T) {
	token, err := Sign(testIdentity(), []byte("server-only-secret"), time.Hour)
	require.NoError(t, err)

	id, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)

	_, err = Verify(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	token, err := Sign(testIdentity(), testSecret, -time.Hour)
	require.NoError(t, err)

	_, err = Verify(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestInvalidToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not-a-jwt-token"},
		{name: "malformed JWT", token: "header.payload.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)

			_, err = Verify(tt.token, testSecret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMissingClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{
			name:   "no subject",
			claims: jwt.MapClaims{ClaimEventID: "event-1", ClaimSessionID: "sess-1"},
			want:   "sub",
		},
		{
			name:   "no event",
			claims: jwt.MapClaims{"sub": "user-1", ClaimSessionID: "sess-1"},
			want:   ClaimEventID,
		},
		{
			name:   "no session",
			claims: jwt.MapClaims{"sub": "user-1", ClaimEventID: "event-1"},
			want:   ClaimSessionID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString(testSecret)
			require.NoError(t, err)

			_, err = Verify(token, testSecret)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingClaim))
			assert.Contains(t, err.Error(), tt.want)

			_, err = Parse(token)
			assert.ErrorIs(t, err, ErrMissingClaim)
		})
	}
}

func TestNoExpiry(t *testing.T) {
	claims := jwt.MapClaims{"sub": "user-1", ClaimEventID: "event-1", ClaimSessionID: "sess-1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	id, err := Parse(token)
	require.NoError(t, err)
	assert.True(t, id.ExpiresAt.IsZero())
}

func TestVerify_RejectsNonHMAC(t *testing.T) {
	claims := jwt.MapClaims{"sub": "user-1", ClaimEventID: "event-1", ClaimSessionID: "sess-1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = Verify(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
