package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"party_credits/internal/domain"     // Importing domain models
	"party_credits/internal/middleware" // Session cookie name and registry keys
	"party_credits/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// LoginRequest is the login form posted by the login page
type LoginRequest struct {
	Username string `form:"username" binding:"required"` // Username must be provided
	Password string `form:"password" binding:"required"` // Password must be provided
}

// LoginHandler authenticates a user, registers the session, and redirects
// to the dashboard. Failures redirect back to the login page with an error
// flag for the page to display.
func LoginHandler(db *gorm.DB, rdb *redis.Client, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind form request to struct
		if err := c.ShouldBind(&req); err != nil {
			// If binding fails, bounce back to the login page
			c.Redirect(http.StatusFound, "/login.html?error=1")
			return
		}
		var account domain.Account // Fetch account from database
		if err := db.Where("username = ?", strings.ToLower(req.Username)).First(&account).Error; err != nil {
			// If account not found, bounce back to the login page
			c.Redirect(http.StatusFound, "/login.html?error=1")
			return
		}
		// Compare provided password with stored hash
		if !utils.CheckPassword(account.Password, req.Password) {
			c.Redirect(http.StatusFound, "/login.html?error=1")
			return
		}
		// Generate session token
		token, sessionID, err := utils.GenerateJWT(account.ID, account.Username, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.String(http.StatusInternalServerError, "Failed to create session")
			return
		}
		// Register the session so logout can revoke it
		ctx := c.Request.Context()
		if err := utils.SetCache(ctx, rdb, middleware.SessionKey(sessionID), account.Username, utils.SessionTTL); err != nil {
			logrus.WithFields(logrus.Fields{
				"username": account.Username, // Account that logged in
				"error":    err.Error(),      // Redis error
			}).Error("Failed to register session")
			c.String(http.StatusInternalServerError, "Failed to create session")
			return
		}
		// Set the session cookie and send the browser to the dashboard
		c.SetCookie(middleware.SessionCookie, token, int(utils.SessionTTL.Seconds()), "/", "", false, true)
		c.Redirect(http.StatusFound, "/dashboard.html")
	}
}

// LogoutHandler revokes the session and clears the cookie
func LogoutHandler(rdb *redis.Client, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Best effort: revoke the session registry entry if the cookie
		// still parses
		if cookie, err := c.Cookie(middleware.SessionCookie); err == nil && cookie != "" {
			if claims, err := utils.ParseJWT(cookie, jwtSecret); err == nil {
				_ = utils.DeleteCache(c.Request.Context(), rdb, middleware.SessionKey(claims.ID))
			}
		}
		// Clear the cookie and send the browser to the login page
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
		c.Redirect(http.StatusFound, "/login.html")
	}
}
