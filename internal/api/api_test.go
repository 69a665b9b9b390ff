package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"party_credits/internal/api"
	"party_credits/internal/domain"
	"party_credits/internal/ledger"
	"party_credits/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

// newTestRouter wires the full HTTP surface over an in-memory database,
// mirroring the server entrypoint. The nil Redis client disables caching
// and the session registry.
func newTestRouter(t *testing.T) (*gin.Engine, *ledger.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.Account{}, &domain.Transaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc := ledger.New(db)

	r := gin.New()
	r.POST("/login", api.LoginHandler(db, nil, testSecret))
	r.GET("/logout", api.LogoutHandler(nil, testSecret))
	userGroup := r.Group("/api")
	userGroup.Use(middleware.AuthMiddleware(testSecret, nil))
	userGroup.GET("/user", api.GetUserHandler(svc, nil))
	userGroup.GET("/users", api.ListUsersHandler(svc, nil))
	userGroup.POST("/transfer", api.TransferHandler(svc, nil))
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(testSecret, nil), middleware.AdminOnlyMiddleware(db))
	adminGroup.POST("/adduser", api.AddUserHandler(svc, nil, 100))
	adminGroup.POST("/modcredits", api.ModCreditsHandler(svc, nil))
	adminGroup.POST("/setcredits", api.SetCreditsHandler(svc, nil))
	adminGroup.POST("/deleteuser", api.DeleteUserHandler(svc, nil))
	adminGroup.GET("/leaderboard", api.LeaderboardHandler(svc, nil))
	adminGroup.GET("/transactions", api.ListTransactionsHandler(svc, nil))
	return r, svc
}

// seedAccount provisions an account, optionally with the admin role
func seedAccount(t *testing.T, svc *ledger.Service, username, password string, balance int64, admin bool) {
	t.Helper()
	account, err := svc.CreateAccount(username, password, balance)
	assert.NoError(t, err)
	if admin {
		// Tests flip the role directly; normally cmd/adduser does this
		assert.NoError(t, svc.SetRole(account.Username, "admin"))
	}
}

// login performs the form login and returns the session cookie
func login(t *testing.T, r *gin.Engine, username, password string) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard.html", w.Header().Get("Location"))
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.SessionCookie && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// doForm posts a form with the session cookie attached
func doForm(r *gin.Engine, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doJSON sends a JSON request with the session cookie attached
func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginRedirects(t *testing.T) {
	r, svc := newTestRouter(t)
	seedAccount(t, svc, "alice", "alicepass", 100, false)

	// Correct credentials land on the dashboard with a session cookie
	login(t, r, "alice", "alicepass")

	// Wrong credentials bounce back to the login page with the error flag
	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	w := doForm(r, "/login", form, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login.html?error=1", w.Header().Get("Location"))
}

func TestAPIRequiresSession(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserInfoAndUserList(t *testing.T) {
	r, svc := newTestRouter(t)
	seedAccount(t, svc, "alice", "alicepass", 100, false)
	seedAccount(t, svc, "bob", "bobpass", 10, false)
	cookie := login(t, r, "alice", "alicepass")

	w := doJSON(t, r, http.MethodGet, "/api/user", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	var info struct {
		Username string `json:"username"`
		Credits  int64  `json:"credits"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, int64(100), info.Credits)

	w = doJSON(t, r, http.MethodGet, "/api/users", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Users []string `json:"users"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{"bob"}, list.Users)
}

func TestTransferEndpoint(t *testing.T) {
	r, svc := newTestRouter(t)
	seedAccount(t, svc, "alice", "alicepass", 100, false)
	seedAccount(t, svc, "bob", "bobpass", 10, false)
	cookie := login(t, r, "alice", "alicepass")

	// Valid transfer redirects to the dashboard
	form := url.Values{"receiver": {"bob"}, "amount": {"30"}, "password": {"alicepass"}}
	w := doForm(r, "/api/transfer", form, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard.html", w.Header().Get("Location"))
	alice, _ := svc.Account("alice")
	bob, _ := svc.Account("bob")
	assert.Equal(t, int64(70), alice.Balance)
	assert.Equal(t, int64(40), bob.Balance)

	// Wrong step-up password is forbidden and mutates nothing
	form.Set("password", "wrong")
	w = doForm(r, "/api/transfer", form, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	alice, _ = svc.Account("alice")
	assert.Equal(t, int64(70), alice.Balance)

	// Overspending is forbidden
	form.Set("password", "alicepass")
	form.Set("amount", "1000")
	w = doForm(r, "/api/transfer", form, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient")

	// Non-numeric and non-positive amounts are bad requests
	for _, amount := range []string{"abc", "0", "-5", "1.5"} {
		form.Set("amount", amount)
		w = doForm(r, "/api/transfer", form, cookie)
		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %q", amount)
	}

	// Unknown receiver is rejected, sender keeps the credits
	form.Set("amount", "10")
	form.Set("receiver", "ghost")
	w = doForm(r, "/api/transfer", form, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
	alice, _ = svc.Account("alice")
	assert.Equal(t, int64(70), alice.Balance)
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	r, svc := newTestRouter(t)
	seedAccount(t, svc, "alice", "alicepass", 100, false)
	cookie := login(t, r, "alice", "alicepass")

	w := doJSON(t, r, http.MethodPost, "/api/admin/modcredits",
		gin.H{"username": "alice", "amount": 5}, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	alice, _ := svc.Account("alice")
	assert.Equal(t, int64(100), alice.Balance)
}

func TestAdminFlow(t *testing.T) {
	r, svc := newTestRouter(t)
	seedAccount(t, svc, "root", "rootpass", 0, true)
	seedAccount(t, svc, "bob", "bobpass", 40, false)
	cookie := login(t, r, "root", "rootpass")

	// Provision a user with the default starting balance
	w := doJSON(t, r, http.MethodPost, "/api/admin/adduser",
		gin.H{"username": "Dave", "password": "davepass"}, cookie)
	assert.Equal(t, http.StatusCreated, w.Code)
	dave, err := svc.Account("dave")
	assert.NoError(t, err)
	assert.Equal(t, int64(100), dave.Balance)

	// Duplicate usernames are rejected
	w = doJSON(t, r, http.MethodPost, "/api/admin/adduser",
		gin.H{"username": "dave", "password": "davepass"}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Relative adjustment; no audit-trail record for admin mutations
	w = doJSON(t, r, http.MethodPost, "/api/admin/modcredits",
		gin.H{"username": "bob", "amount": 5}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	bob, _ := svc.Account("bob")
	assert.Equal(t, int64(45), bob.Balance)
	txs, total, err := svc.Transactions(ledger.TransactionFilter{}, 1, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, txs)

	// Absolute set
	w = doJSON(t, r, http.MethodPost, "/api/admin/setcredits",
		gin.H{"username": "bob", "credits": 7}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	bob, _ = svc.Account("bob")
	assert.Equal(t, int64(7), bob.Balance)

	// Unknown targets are client errors
	w = doJSON(t, r, http.MethodPost, "/api/admin/setcredits",
		gin.H{"username": "ghost", "credits": 7}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Leaderboard is ordered by balance descending
	w = doJSON(t, r, http.MethodGet, "/api/admin/leaderboard", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	var lb struct {
		Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &lb))
	assert.Equal(t, []domain.LeaderboardEntry{
		{Username: "dave", Balance: 100},
		{Username: "bob", Balance: 7},
		{Username: "root", Balance: 0},
	}, lb.Leaderboard)

	// Delete and confirm
	w = doJSON(t, r, http.MethodPost, "/api/admin/deleteuser",
		gin.H{"username": "dave"}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	_, err = svc.Account("dave")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
