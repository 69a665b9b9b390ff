package api

import (
	"errors"   // Sentinel error matching
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"party_credits/internal/domain" // Importing domain models
	"party_credits/internal/ledger" // Ledger service
	"party_credits/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// accountCacheKey is the cache key for a single account's info
func accountCacheKey(username string) string {
	return "account:" + username
}

// GetUserHandler returns the caller's username and credit balance
func GetUserHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString("username") // Principal set by the auth middleware
		ctx := c.Request.Context()
		cacheKey := accountCacheKey(username)
		var cached domain.LeaderboardEntry // Username + balance shape
		// Try to get from cache
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"username": cached.Username, "credits": cached.Balance})
			return
		}
		// If not in cache, fetch from DB
		account, err := svc.Account(username)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				// Session references a deleted account
				c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch account"})
			return
		}
		entry := domain.LeaderboardEntry{Username: account.Username, Balance: account.Balance}
		_ = utils.SetCache(ctx, rdb, cacheKey, entry, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"username": account.Username, "credits": account.Balance})
	}
}

// ListUsersHandler returns the usernames of every other account, for the
// dashboard's receiver picker
func ListUsersHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString("username") // Principal set by the auth middleware
		ctx := c.Request.Context()
		cacheKey := "usernames:except:" + username
		var cached []string
		// Try to get from cache; the list only changes on provisioning, so
		// TTL expiry is the only invalidation
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"users": cached, "cached": true})
			return
		}
		usernames, err := svc.OtherUsernames(username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, usernames, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"users": usernames, "cached": false})
	}
}

// TransferRequest is the transfer form posted by the dashboard
type TransferRequest struct {
	Receiver string `form:"receiver" binding:"required"` // Target username
	Amount   string `form:"amount" binding:"required"`   // Credit amount, parsed below
	Password string `form:"password" binding:"required"` // Step-up credential proof
}

// TransferHandler moves credits from the authenticated caller to another
// account. Rejections return a client-error status with a short reason; a
// storage failure means the whole unit rolled back and is logged loudly.
func TransferHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		sender := c.GetString("username") // Principal set by the auth middleware
		var req TransferRequest           // Bind form request to struct
		if err := c.ShouldBind(&req); err != nil {
			// If binding fails, return bad request
			c.String(http.StatusBadRequest, "Invalid request")
			return
		}
		// Reject non-numeric amounts before touching the ledger
		amount, err := strconv.ParseInt(req.Amount, 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, ledger.ErrInvalidAmount.Error())
			return
		}
		_, err = svc.Transfer(sender, req.Receiver, amount, req.Password)
		if err != nil {
			status := transferStatus(err)
			if status == http.StatusInternalServerError {
				// Storage failure mid-unit: everything rolled back, but
				// this must not pass silently
				logrus.WithFields(logrus.Fields{
					"sender":   sender,       // Sender username
					"receiver": req.Receiver, // Receiver username
					"amount":   amount,       // Requested credits
					"error":    err.Error(),  // Error message
				}).Error("Transfer failed")
				c.String(status, "Transfer failed")
				return
			}
			c.String(status, err.Error())
			return
		}
		// Invalidate both parties' cached balances
		ctx := c.Request.Context()
		_ = utils.DeleteCache(ctx, rdb, accountCacheKey(sender))
		_ = utils.DeleteCache(ctx, rdb, accountCacheKey(req.Receiver))
		// Send the browser back to the dashboard
		c.Redirect(http.StatusFound, "/dashboard.html")
	}
}

// transferStatus maps ledger rejections to HTTP statuses
func transferStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrSelfTransfer):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrAuthenticationFailed),
		errors.Is(err, ledger.ErrUnknownSender),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrUnknownReceiver):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
