package utils

import (
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// HashPassword hashes a plaintext password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost) // Hash with default cost
	if err != nil {
		return "", err // Return error if hashing fails
	}
	return string(hash), nil // Return the hash as a string
}

// CheckPassword verifies a plaintext password against a stored hash.
// Every credential check in the system goes through here: login, the
// per-transfer step-up proof, and nothing compares passwords inline.
func CheckPassword(hash, password string) bool {
	// bcrypt comparison is constant-time over the derived key
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
