package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"party_credits/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// SessionCookie is the name of the cookie carrying the session token
const SessionCookie = "session"

// SessionKey builds the Redis registry key for a session ID; the auth
// handlers use the same format when registering and revoking sessions
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// AuthMiddleware validates the session token from the cookie or the
// Authorization header, confirms the session has not been revoked, and
// exposes the caller's identity to downstream handlers
func AuthMiddleware(secret string, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := "" // Raw token string
		// Prefer the browser session cookie
		if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
			tokenStr = cookie
		} else if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ") // Fall back to bearer token
		}
		// Browser callers get redirected to the login page, like any
		// unauthenticated page hit
		if tokenStr == "" {
			abortUnauthenticated(c)
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil {
			// If parsing fails, reject the request
			abortUnauthenticated(c)
			return
		}
		// Revoked sessions are deleted from the registry on logout; a
		// nil client disables the registry (tokens then live to expiry)
		if rdb != nil {
			if err := rdb.Get(c.Request.Context(), SessionKey(claims.ID)).Err(); err != nil {
				abortUnauthenticated(c)
				return
			}
		}
		c.Set("userID", claims.UserID)     // Store userID in context
		c.Set("username", claims.Username) // Store username in context
		c.Set("sessionID", claims.ID)      // Store session ID in context
		c.Next()                           // Proceed to the next handler
	}
}

// abortUnauthenticated rejects the request: JSON 401 for API calls,
// login-page redirect for everything else
func abortUnauthenticated(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Redirect(http.StatusFound, "/login.html") // Send browsers to the login page
	c.Abort()
}
