package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fintrack/internal/config"
	"fintrack/internal/importer"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/services"
	"fintrack/internal/testutil"
	"fintrack/internal/validator"
)

const pipelineKey = "pipeline-test-key"

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

type capturingMailer struct {
	links []string
}

func (m *capturingMailer) SendPasswordReset(_ *models.User, link string) error {
	m.links = append(m.links, link)
	return nil
}

// testApp holds the full application stack for end-to-end tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Mailer *capturingMailer
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		Env:                  "test",
		PublicBaseURL:        "http://fintrack.test",
		JWTSecret:            "router-test-secret",
		JWTExpirationDur:     time.Hour,
		JWTRefreshExpiration: 24 * time.Hour,
		PipelineAPIKey:       pipelineKey,
		ImportMaxBytes:       1 << 20,
	}
	config.Set(cfg)

	db := testutil.SetupTestDB(t)
	mailer := &capturingMailer{}
	return &testApp{DB: db, Router: New(cfg, db, services.WithMailer(mailer)), Mailer: mailer}
}

func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) upload(t *testing.T, token, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/v1/transactions/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result), "body: %s", rec.Body.String())
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %s", rec.Body.String())
	return errObj["code"].(string)
}

// registerUser registers a user and returns the access token and user ID.
func (app *testApp) registerUser(t *testing.T, username string) (string, uint) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@test.com","password":"password123","first_name":"Test"}`, username, username)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), uint(user["id"].(float64))
}

// categoryID returns the ID of the user's category called name.
func (app *testApp) categoryID(t *testing.T, token, name string) uint {
	t.Helper()
	rec := app.request("GET", "/api/v1/categories?page_size=100", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, item := range parseJSON(t, rec)["data"].([]interface{}) {
		c := item.(map[string]interface{})
		if c["name"] == name {
			return uint(c["id"].(float64))
		}
	}
	t.Fatalf("category %q not found", name)
	return 0
}

func TestHealth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", parseJSON(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	app := setupApp(t)

	rec := app.request("OPTIONS", "/api/v1/transactions", "", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := setupApp(t)

	for _, path := range []string{"/api/v1/profile", "/api/v1/transactions", "/api/v1/summary", "/api/v1/categories"} {
		rec := app.request("GET", path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAuthFlow_RegisterLoginProfile(t *testing.T) {
	app := setupApp(t)

	_, userID := app.registerUser(t, "alice")
	require.NotZero(t, userID)

	rec := app.request("POST", "/api/v1/auth/login", `{"username":"alice","password":"password123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := parseJSON(t, rec)
	access := login["access_token"].(string)

	rec = app.request("GET", "/api/v1/profile", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@test.com", user["email"])

	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, login["refresh_token"]), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, parseJSON(t, rec)["access_token"])
}

func TestAuthFlow_DuplicateUsername(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "bob")

	rec := app.request("POST", "/api/v1/auth/register",
		`{"username":"bob","email":"other@test.com","password":"password123"}`, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_USERNAME", errorCode(t, rec))
}

func TestAuthFlow_Lockout(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "carol")

	for i := 0; i < 5; i++ {
		rec := app.request("POST", "/api/v1/auth/login", `{"username":"carol","password":"wrong-password"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := app.request("POST", "/api/v1/auth/login", `{"username":"carol","password":"password123"}`, "")
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "ACCOUNT_LOCKED", errorCode(t, rec))
}

func TestAuthFlow_PasswordReset(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "dave")

	rec := app.request("POST", "/api/v1/auth/password-reset", `{"email":"dave@test.com"}`, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, app.Mailer.links, 1)

	link := app.Mailer.links[0]
	require.True(t, strings.HasPrefix(link, "http://fintrack.test/reset-password?token="), link)
	token := strings.TrimPrefix(link, "http://fintrack.test/reset-password?token=")

	body := fmt.Sprintf(`{"token":%q,"password":"brand-new-pass"}`, token)
	rec = app.request("POST", "/api/v1/auth/password-reset/confirm", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.request("POST", "/api/v1/auth/password-reset/confirm", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "reset token must not be reusable")

	rec = app.request("POST", "/api/v1/auth/login", `{"username":"dave","password":"brand-new-pass"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.request("POST", "/api/v1/auth/password-reset", `{"email":"nobody@test.com"}`, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, app.Mailer.links, 1)
}

func TestTransactionFlow_CRUDAndSummary(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "erin")
	salary := app.categoryID(t, token, "Salary")
	food := app.categoryID(t, token, "Food & Dining")

	create := func(categoryID uint, txType string, amount float64, date string) uint {
		body := fmt.Sprintf(`{"category_id":%d,"transaction_type":%q,"amount":%v,"date":%q}`, categoryID, txType, amount, date)
		rec := app.request("POST", "/api/v1/transactions", body, token)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		txn := parseJSON(t, rec)["transaction"].(map[string]interface{})
		return uint(txn["id"].(float64))
	}

	create(salary, "credit", 3000, "2024-01-31")
	create(food, "debit", 45.5, "2024-01-15")
	lunch := create(food, "debit", 12.25, "2024-03-02")
	create(food, "debit", 20, "2023-12-30")

	rec := app.request("GET", "/api/v1/summary/years", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{float64(2024), float64(2023)}, parseJSON(t, rec)["years"])

	rec = app.request("GET", "/api/v1/summary", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	result := parseJSON(t, rec)
	selection := result["selection"].(map[string]interface{})
	assert.Equal(t, float64(2024), selection["year"])
	assert.Equal(t, float64(0), selection["month"])
	summary := result["summary"].(map[string]interface{})
	totals := summary["totals_by_type"].(map[string]interface{})
	assert.InDelta(t, 57.75, totals["debit"].(float64), 1e-9)
	assert.InDelta(t, 3000, totals["credit"].(float64), 1e-9)
	assert.Equal(t, float64(3), summary["count"])
	assert.Len(t, summary["by_month"].([]interface{}), 12)

	rec = app.request("GET", "/api/v1/summary?year=2024&month=3", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	summary = parseJSON(t, rec)["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["count"])

	rec = app.request("GET", "/api/v1/transactions?year=2024&type=debit", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	page := parseJSON(t, rec)
	assert.Equal(t, float64(2), page["total_items"])
	first := page["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(lunch), first["id"], "newest first")

	rec = app.request("PUT", fmt.Sprintf("/api/v1/transactions/%d", lunch), `{"date":"2022-06-01"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := parseJSON(t, rec)["transaction"].(map[string]interface{})
	assert.Equal(t, float64(2022), updated["fiscal_year"])
	assert.Equal(t, float64(6), updated["month"])

	rec = app.request("DELETE", fmt.Sprintf("/api/v1/categories/%d", food), "", token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.request("DELETE", fmt.Sprintf("/api/v1/transactions/%d", lunch), "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.request("GET", fmt.Sprintf("/api/v1/transactions/%d", lunch), "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var audits int64
	require.NoError(t, app.DB.Model(&models.AuditLog{}).Where("action = ?", services.ActionDeleteTransaction).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestTransactionFlow_OtherUsersDataIsHidden(t *testing.T) {
	app := setupApp(t)
	owner, _ := app.registerUser(t, "frank")
	intruder, _ := app.registerUser(t, "grace")
	cat := app.categoryID(t, owner, "Travel")

	rec := app.request("POST", "/api/v1/transactions",
		fmt.Sprintf(`{"category_id":%d,"transaction_type":"debit","amount":99,"date":"2024-05-05"}`, cat), owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	txnID := uint(parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(float64))

	rec = app.request("GET", fmt.Sprintf("/api/v1/transactions/%d", txnID), "", intruder)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request("POST", "/api/v1/transactions",
		fmt.Sprintf(`{"category_id":%d,"transaction_type":"debit","amount":1}`, cat), intruder)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request("GET", "/api/v1/summary?year=2024", "", intruder)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	assert.Equal(t, float64(0), summary["count"])
}

func TestImportFlow(t *testing.T) {
	app := setupApp(t)
	token, userID := app.registerUser(t, "heidi")
	other, _ := app.registerUser(t, "ivan")
	food := app.categoryID(t, token, "Food & Dining")
	foreign := app.categoryID(t, other, "Food & Dining")

	csv := "Amount,Date (YYYY-MM-DD),Category ID,Description,Transaction Type\n" +
		fmt.Sprintf("12.50,2024-02-10,%d,groceries,debit\n", food) +
		fmt.Sprintf("8,2024-02-30,%d,bad date,debit\n", food) +
		fmt.Sprintf(",2024-02-11,%d,blank amount,debit\n", food) +
		fmt.Sprintf("5,2024-02-12,%d,not mine,debit\n", foreign)

	rec := app.upload(t, token, "feb.csv", csv)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := parseJSON(t, rec)
	assert.Equal(t, float64(1), report["success_count"])
	assert.Equal(t, []interface{}{
		"Row 3: Invalid date format. Use YYYY-MM-DD",
		fmt.Sprintf("Row 5: Category ID %d not found or doesn't belong to you", foreign),
	}, report["errors"])

	var count int64
	require.NoError(t, app.DB.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	rec = app.upload(t, token, "feb.txt", csv)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FILE", errorCode(t, rec))

	rec = app.upload(t, token, "missing.csv", "Amount,Category ID\n1,2\n")
	require.Equal(t, http.StatusOK, rec.Code)
	report = parseJSON(t, rec)
	assert.Equal(t, float64(0), report["success_count"])
	assert.Len(t, report["errors"], 1)

	rec = app.request("GET", "/api/v1/transactions/export?year=2024", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	table, err := importer.ReadXLSX(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "12.5", table.Rows[0][0])

	rec = app.request("GET", "/api/v1/transactions/import/template", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transaction_template.xlsx")
}

func TestPipelineImport(t *testing.T) {
	app := setupApp(t)
	token, userID := app.registerUser(t, "judy")
	salary := app.categoryID(t, token, "Salary")
	path := fmt.Sprintf("/api/pipeline/users/%d/transactions/import", userID)
	body := fmt.Sprintf(`{"header":["Amount","Date (YYYY-MM-DD)","Category ID","Transaction Type"],"rows":[["2500","2025-01-31","%d","credit"]]}`, salary)

	rec := app.request("POST", path, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_API_KEY", errorCode(t, rec))

	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", pipelineKey)
	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), parseJSON(t, rec)["success_count"])

	rec = app.request("GET", "/api/v1/summary/years", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{float64(2025)}, parseJSON(t, rec)["years"])
}
