package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/bookkeeper-server/internal/api"
	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/repository"
	"github.com/rongwang/bookkeeper-server/internal/service"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key"

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Repository  *repository.MemoryRepository
	Service     service.Service
	JWTSecret   []byte
	TestUserID  string
	TestUserJWT string
	TestBookID  string
}

// SetupTestContext creates a new test context backed by the in-memory
// repository. Each call gets a fresh store, a registered user and that
// user's initial book.
func SetupTestContext(t *testing.T) *TestContext {
	repo := repository.NewMemoryRepository()
	svc := service.NewDefaultService(repo, testJWTSecret)

	handler := api.NewHandler(svc)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(testJWTSecret))
		c.Next()
	})

	handler.SetupRoutes(router)

	// Register the test user through the service so the initial book and
	// settings are bootstrapped the same way they are in production.
	auth, err := svc.SignUp(context.Background(), models.SignUpRequest{
		Email:    "testuser@example.com",
		Password: "testpassword",
		Name:     "Test User",
	})
	require.NoError(t, err, "Failed to create test user")

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "testuser@example.com",
		Password: "testpassword",
	})
	require.NoError(t, err, "Failed to log in test user")

	bookID, err := repo.GetActiveBook(context.Background(), auth.UserID)
	require.NoError(t, err, "Failed to look up test user's book")

	return &TestContext{
		Router:      router,
		Repository:  repo,
		Service:     svc,
		JWTSecret:   []byte(testJWTSecret),
		TestUserID:  auth.UserID,
		TestUserJWT: login.Token,
		TestBookID:  bookID,
	}
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(tc *TestContext) {
	if tc.Service != nil {
		tc.Service.Close()
	}
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
