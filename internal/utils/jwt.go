package utils

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // UUIDs for the session ID claim
)

// SessionTTL bounds both the token lifetime and the Redis session entry
const SessionTTL = 24 * time.Hour

// JWT Claims
type Claims struct {
	UserID               uint   `json:"user_id"`  // Custom claim for user ID
	Username             string `json:"username"` // Custom claim for username
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a JWT token for a given user; the ID claim doubles as
// the session registry key so logout can revoke the token
func GenerateJWT(userID uint, username, secret string) (token string, sessionID string, err error) {
	sessionID = uuid.NewString() // Random session identifier (jti)
	// Set token claims
	claims := Claims{
		UserID:   userID,   // Custom claim for user ID
		Username: username, // Custom claim for username
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,                                      // Session identifier
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(SessionTTL)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(time.Now()),                 // Issued at current time
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	token, err = t.SignedString([]byte(secret))            // Sign the token with the secret
	return token, sessionID, err
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	})
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}
