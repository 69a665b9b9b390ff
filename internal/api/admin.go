package api

import (
	"errors"   // Sentinel error matching
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"party_credits/internal/domain" // Importing domain models
	"party_credits/internal/ledger" // Ledger service
	"party_credits/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

const leaderboardCacheKey = "admin:leaderboard"

// AddUserRequest is the administrative account-creation body
type AddUserRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AddUserHandler provisions a new account with the configured starting
// balance
func AddUserHandler(svc *ledger.Service, rdb *redis.Client, startingCredits int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Lowercase usernames to keep the unique index case-insensitive
		username := strings.ToLower(req.Username)
		if _, err := svc.CreateAccount(username, req.Password, startingCredits); err != nil {
			if errors.Is(err, ledger.ErrDuplicateUsername) {
				// Duplicate username, return bad request
				c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
		_ = utils.DeleteCache(c.Request.Context(), rdb, leaderboardCacheKey) // Invalidate leaderboard cache
		// Log provisioning
		logrus.WithFields(logrus.Fields{
			"username": username,        // New account
			"credits":  startingCredits, // Starting balance
		}).Info("Account provisioned")
		c.JSON(http.StatusCreated, gin.H{"message": "User added successfully"})
	}
}

// ModCreditsRequest is the relative balance-adjustment body
type ModCreditsRequest struct {
	Username string `json:"username" binding:"required"` // Target username
	Amount   int64  `json:"amount" binding:"required"`   // Signed credit delta
}

// ModCreditsHandler applies a signed delta to an account's balance. This
// path bypasses the no-negative invariant and appends no transaction
// record.
func ModCreditsHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ModCreditsRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := svc.AdjustBalance(req.Username, req.Amount); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				// Unknown username, return bad request
				c.JSON(http.StatusBadRequest, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update credits"})
			return
		}
		// Invalidate the account and leaderboard caches
		ctx := c.Request.Context()
		_ = utils.DeleteCache(ctx, rdb, accountCacheKey(req.Username))
		_ = utils.DeleteCache(ctx, rdb, leaderboardCacheKey)
		c.JSON(http.StatusOK, gin.H{"message": "Credits updated"})
	}
}

// SetCreditsRequest is the absolute balance-set body
type SetCreditsRequest struct {
	Username string `json:"username" binding:"required"` // Target username
	Credits  *int64 `json:"credits" binding:"required"`  // New absolute balance; pointer so zero is valid
}

// SetCreditsHandler overwrites an account's balance with an exact value
func SetCreditsHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetCreditsRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := svc.SetBalance(req.Username, *req.Credits); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				// Unknown username, return bad request
				c.JSON(http.StatusBadRequest, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update credits"})
			return
		}
		// Invalidate the account and leaderboard caches
		ctx := c.Request.Context()
		_ = utils.DeleteCache(ctx, rdb, accountCacheKey(req.Username))
		_ = utils.DeleteCache(ctx, rdb, leaderboardCacheKey)
		c.JSON(http.StatusOK, gin.H{"message": "Credits updated successfully"})
	}
}

// DeleteUserRequest is the administrative account-removal body
type DeleteUserRequest struct {
	Username string `json:"username" binding:"required"` // Target username
}

// DeleteUserHandler removes an account
func DeleteUserHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DeleteUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := svc.DeleteAccount(req.Username); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				// Unknown username, return bad request
				c.JSON(http.StatusBadRequest, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
		// Invalidate the account and leaderboard caches
		ctx := c.Request.Context()
		_ = utils.DeleteCache(ctx, rdb, accountCacheKey(req.Username))
		_ = utils.DeleteCache(ctx, rdb, leaderboardCacheKey)
		// Log removal
		logrus.WithFields(logrus.Fields{
			"username": req.Username, // Removed account
		}).Info("Account deleted")
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}

// LeaderboardHandler returns all accounts ordered by balance descending
func LeaderboardHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var cached []domain.LeaderboardEntry
		// Try to get from cache
		if found, err := utils.GetCache(ctx, rdb, leaderboardCacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"leaderboard": cached, "cached": true})
			return
		}
		entries, err := svc.Leaderboard()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
			return
		}
		_ = utils.SetCache(ctx, rdb, leaderboardCacheKey, entries, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries, "cached": false})
	}
}

// ListTransactionsHandler returns the audit trail, with optional filtering
// by username or date range, newest first
func ListTransactionsHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// Build cache key from all query params
		var keyParts []string // Parts of the cache key
		// Append each query parameter to the key parts
		for _, k := range []string{"username", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, "")) // Append key-value pair
		}
		// Join key parts to form the final cache key
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total number of transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // List of transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total number of transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,                // Indicate response is from cache
			})
			return
		}
		page := 1      // Default page number
		pageSize := 20 // Default page size
		// Check and set page number from query params
		if p := c.Query("page"); p != "" {
			// If valid, set page number
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		filter := ledger.TransactionFilter{
			Username: c.Query("username"), // Match sender or receiver
			From:     c.Query("from"),     // Start date filter
			To:       c.Query("to"),       // End date filter
		}
		txs, total, err := svc.Transactions(filter, page, pageSize)
		if err != nil {
			// If fetching fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"transactions": txs,        // List of transactions
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total number of transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}
