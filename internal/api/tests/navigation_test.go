package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/rongwang/bookkeeper-server/internal/api/testutils"
	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type navState struct {
	View      string `json:"view"`
	AccountID string `json:"accountId"`
	ParentID  string `json:"parentId"`
}

func getNavigation(t *testing.T, tc *testutils.TestContext) (navState, string) {
	t.Helper()

	w := testutils.PerformRequest(
		tc.Router,
		http.MethodGet,
		"/api/navigation",
		nil,
		testutils.AuthHeaders(tc.TestUserJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.NavigationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	var state navState
	require.NoError(t, json.Unmarshal(resp.State, &state))
	return state, resp.HeaderColor
}

func dispatch(t *testing.T, tc *testutils.TestContext, req models.DispatchRequest) (navState, string, int) {
	t.Helper()

	w := testutils.PerformRequest(
		tc.Router,
		http.MethodPost,
		"/api/navigation/dispatch",
		req,
		testutils.AuthHeaders(tc.TestUserJWT),
	)
	if w.Code != http.StatusOK {
		return navState{}, "", w.Code
	}

	var resp models.NavigationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	var state navState
	require.NoError(t, json.Unmarshal(resp.State, &state))
	return state, resp.HeaderColor, w.Code
}

func TestNavigationInitialState(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	state, color := getNavigation(t, testCtx)
	assert.Equal(t, "list", state.View)
	assert.Empty(t, state.AccountID)
	assert.Equal(t, "#4CAF50", color)
}

func TestNavigationDrillDownAndBack(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	assets := createAccount(t, testCtx, models.CreateAccountRequest{
		Name:        "Assets",
		AccountType: models.AccountTypeAsset,
	})
	bank := createAccount(t, testCtx, models.CreateAccountRequest{
		Name:        "Bank",
		AccountType: models.AccountTypeBank,
		ParentID:    &assets.ID,
	})

	// Drill two levels down; the header follows the top-level ancestor
	state, color, code := dispatch(t, testCtx, models.DispatchRequest{Action: "select", AccountID: assets.ID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "sub-accounts", state.View)
	assert.Equal(t, assets.ID, state.AccountID)
	assert.Equal(t, "#2196F3", color)

	state, color, code = dispatch(t, testCtx, models.DispatchRequest{Action: "select", AccountID: bank.ID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, bank.ID, state.AccountID)
	assert.Equal(t, "#2196F3", color)

	// Back climbs one level at a time
	state, _, _ = dispatch(t, testCtx, models.DispatchRequest{Action: "back"})
	assert.Equal(t, "sub-accounts", state.View)
	assert.Equal(t, assets.ID, state.AccountID)

	state, color, _ = dispatch(t, testCtx, models.DispatchRequest{Action: "back"})
	assert.Equal(t, "list", state.View)
	assert.Equal(t, "#4CAF50", color)

	// Selecting an unknown account is a no-op
	state, _, code = dispatch(t, testCtx, models.DispatchRequest{Action: "select", AccountID: "missing"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "list", state.View)
}

func TestNavigationSaveReturnsToParent(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	assets := createAccount(t, testCtx, models.CreateAccountRequest{
		Name:        "Assets",
		AccountType: models.AccountTypeAsset,
	})

	// Drill into Assets and open the create form; the pending parent is
	// the viewed account.
	_, _, code := dispatch(t, testCtx, models.DispatchRequest{Action: "select", AccountID: assets.ID})
	require.Equal(t, http.StatusOK, code)

	state, _, code := dispatch(t, testCtx, models.DispatchRequest{Action: "add"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "create", state.View)
	assert.Equal(t, assets.ID, state.ParentID)

	// Saving lands on the parent's sub-account view
	createAccount(t, testCtx, models.CreateAccountRequest{
		Name:        "Cash",
		AccountType: models.AccountTypeCash,
		ParentID:    &assets.ID,
	})

	state, _ = getNavigation(t, testCtx)
	assert.Equal(t, "sub-accounts", state.View)
	assert.Equal(t, assets.ID, state.AccountID)
}

func TestNavigationSaveTopLevelReturnsToList(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, _, code := dispatch(t, testCtx, models.DispatchRequest{Action: "add"})
	require.Equal(t, http.StatusOK, code)

	createAccount(t, testCtx, models.CreateAccountRequest{
		Name:        "Income",
		AccountType: models.AccountTypeIncome,
	})

	state, _ := getNavigation(t, testCtx)
	assert.Equal(t, "list", state.View)
}

func TestNavigationDeleteOfViewedAccount(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	assets := createAccount(t, testCtx, models.CreateAccountRequest{
		Name:        "Assets",
		AccountType: models.AccountTypeAsset,
	})
	bank := createAccount(t, testCtx, models.CreateAccountRequest{
		Name:        "Bank",
		AccountType: models.AccountTypeBank,
		ParentID:    &assets.ID,
	})

	// View the child, then cascade-delete its ancestor
	_, _, code := dispatch(t, testCtx, models.DispatchRequest{Action: "select", AccountID: bank.ID})
	require.Equal(t, http.StatusOK, code)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodDelete,
		fmt.Sprintf("/api/books/%s/accounts/%s", testCtx.TestBookID, assets.ID),
		nil,
		testutils.AuthHeaders(testCtx.TestUserJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	state, color := getNavigation(t, testCtx)
	assert.Equal(t, "list", state.View)
	assert.Equal(t, "#4CAF50", color)
}

func TestNavigationSettingsFlow(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	state, _, code := dispatch(t, testCtx, models.DispatchRequest{Action: "open-settings"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "settings", state.View)

	state, _, code = dispatch(t, testCtx, models.DispatchRequest{Action: "open-settings-page", Page: "books"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "settings-books", state.View)

	// Back from a sub-page returns to the settings root
	state, _, _ = dispatch(t, testCtx, models.DispatchRequest{Action: "back"})
	assert.Equal(t, "settings", state.View)

	state, _, _ = dispatch(t, testCtx, models.DispatchRequest{Action: "close-settings"})
	assert.Equal(t, "list", state.View)
}

func TestNavigationInvalidActions(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, _, code := dispatch(t, testCtx, models.DispatchRequest{Action: "teleport"})
	assert.Equal(t, http.StatusBadRequest, code)

	// select without accountId
	_, _, code = dispatch(t, testCtx, models.DispatchRequest{Action: "select"})
	assert.Equal(t, http.StatusBadRequest, code)

	// open-settings-page without page
	_, _, code = dispatch(t, testCtx, models.DispatchRequest{Action: "open-settings-page"})
	assert.Equal(t, http.StatusBadRequest, code)
}
