package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter22")
	assert.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword(hash, ""))
}

func TestCheckPasswordBadHash(t *testing.T) {
	// A stored value that is not a bcrypt hash never verifies
	assert.False(t, CheckPassword("plaintext-oops", "plaintext-oops"))
}
