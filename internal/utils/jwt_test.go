package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJWTRoundTrip(t *testing.T) {
	token, sessionID, err := GenerateJWT(42, "alice", "secret")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, sessionID)

	claims, err := ParseJWT(token, "secret")
	assert.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, sessionID, claims.ID)
}

func TestJWTWrongSecretRejected(t *testing.T) {
	token, _, err := GenerateJWT(42, "alice", "secret")
	assert.NoError(t, err)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestJWTGarbageRejected(t *testing.T) {
	_, err := ParseJWT("not-a-token", "secret")
	assert.Error(t, err)
}

func TestJWTSessionIDsAreUnique(t *testing.T) {
	_, first, err := GenerateJWT(1, "alice", "secret")
	assert.NoError(t, err)
	_, second, err := GenerateJWT(1, "alice", "secret")
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)
}
