package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rongwang/bookkeeper-server/internal/api/testutils"
	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSignup(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Successful signup
	signupReq := models.SignUpRequest{
		Email:    "newuser@example.com",
		Password: "Password123",
		Name:     "New User",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/signup",
		signupReq,
		nil,
	)

	assert.Equal(t, http.StatusCreated, w.Code)

	var authResp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &authResp))
	assert.Equal(t, "success", authResp.Status)
	assert.NotEmpty(t, authResp.UserID)

	// Test case 2: Duplicate email
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/signup",
		signupReq,
		nil,
	)

	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 3: Invalid request (missing required fields)
	invalidReq := models.SignUpRequest{
		Email: "invalid@example.com",
		// Missing password and name
	}

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/signup",
		invalidReq,
		nil,
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupBootstrapsBookAndSettings(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// The test user is created through SignUp, so it should already have
	// "Book 1" and the default settings document.
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/books",
		nil,
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var bookResp models.BookListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &bookResp))
	assert.Len(t, bookResp.Books, 1)
	assert.Equal(t, "Book 1", bookResp.Books[0].Name)
	assert.Equal(t, bookResp.Books[0].ID, bookResp.ActiveBookID)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/settings",
		nil,
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var settingsResp models.SettingsResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &settingsResp))

	var doc map[string]interface{}
	assert.NoError(t, json.Unmarshal(settingsResp.Settings, &doc))
	assert.Equal(t, "dark", doc["theme"])
	assert.Equal(t, "INR", doc["defaultCurrency"])
}

func TestLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Successful login
	loginReq := models.LoginRequest{
		Email:    "testuser@example.com",
		Password: "testpassword",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		loginReq,
		nil,
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var authResp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &authResp))
	assert.Equal(t, "success", authResp.Status)
	assert.NotEmpty(t, authResp.Token)

	// Test case 2: Wrong password
	loginReq.Password = "wrongpassword"
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		loginReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 3: Unknown email
	loginReq = models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "testpassword",
	}
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		loginReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// No Authorization header
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/books",
		nil,
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed token
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/books",
		nil,
		testutils.AuthHeaders("not-a-jwt"),
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
