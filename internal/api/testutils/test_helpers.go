package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"github.com/anbuselvan/assetsync/internal/api"
	"github.com/anbuselvan/assetsync/internal/config"
	"github.com/anbuselvan/assetsync/internal/excel"
	"github.com/anbuselvan/assetsync/internal/models"
	"github.com/anbuselvan/assetsync/internal/repository"
	"github.com/anbuselvan/assetsync/internal/service"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router    *gin.Engine
	Repo      repository.Repository
	Service   service.Service
	Syncer    *excel.Synchronizer
	UsersDB   *sqlx.DB
	ExcelPath string
	BackupDir string
	AdminJWT  string
	UserJWT   string
}

// SetupTestContext wires a full router over temp spreadsheet and database
// files. The fixture spreadsheet has one asset table (tags A123 and B456)
// and one table without an asset_tag column.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Store.ExcelPath = filepath.Join(dir, "assets.xlsx")
	cfg.Store.AssetsDBPath = filepath.Join(dir, "assets.db")
	cfg.Store.UsersDBPath = filepath.Join(dir, "users.db")
	cfg.Store.BackupDir = filepath.Join(dir, "backups")
	cfg.Auth.JWTSecret = "test-secret-key"
	cfg.Auth.TokenTTL = 30 * time.Minute

	writeFixtureWorkbook(t, cfg.Store.ExcelPath)

	usersDB, err := config.OpenUsersDatabase(cfg)
	assert.NoError(t, err, "Failed to set up test users database")
	t.Cleanup(func() { usersDB.Close() })

	repo := repository.NewSQLiteUserRepository(usersDB)
	assert.NoError(t, repo.Bootstrap(context.Background()), "Failed to bootstrap users database")

	created, err := repo.CreateUser(context.Background(),
		"testuser", "testpassword", "Test User", "testuser@example.com", models.RoleUser)
	assert.NoError(t, err, "Failed to create test user")
	assert.True(t, created)

	syncer, err := excel.NewSynchronizer(cfg.Store.ExcelPath, cfg.Store.AssetsDBPath, cfg.Store.BackupDir)
	assert.NoError(t, err, "Failed to set up synchronizer")

	svc := service.NewDefaultService(repo, syncer, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	handler := api.NewHandler(svc)

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	router.Use(api.RequestID())
	handler.SetupRoutes(router)

	return &TestContext{
		Router:    router,
		Repo:      repo,
		Service:   svc,
		Syncer:    syncer,
		UsersDB:   usersDB,
		ExcelPath: cfg.Store.ExcelPath,
		BackupDir: cfg.Store.BackupDir,
		AdminJWT:  loginAs(t, svc, "admin", "admin123"),
		UserJWT:   loginAs(t, svc, "testuser", "testpassword"),
	}
}

func writeFixtureWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	assert.NoError(t, f.SetSheetName(f.GetSheetName(0), "Assets"))
	rows := [][]interface{}{
		{"Asset Tag", "User Name", "Department", "Location"},
		{"A123", "Priya", "Finance", "Chennai"},
		{"B456", "Ravi", "HR", "Madurai"},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		assert.NoError(t, err)
		assert.NoError(t, f.SetSheetRow("Assets", cell, &rows[i]))
	}

	_, err := f.NewSheet("Sites")
	assert.NoError(t, err)
	sites := [][]interface{}{
		{"Location", "Region"},
		{"Chennai", "South"},
	}
	for i := range sites {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		assert.NoError(t, err)
		assert.NoError(t, f.SetSheetRow("Sites", cell, &sites[i]))
	}

	assert.NoError(t, f.SaveAs(path))
}

func loginAs(t *testing.T, svc service.Service, username, password string) string {
	t.Helper()

	resp, err := svc.Login(context.Background(),
		models.TokenRequest{Username: username, Password: password})
	assert.NoError(t, err, "Failed to log in as %s", username)
	return resp.AccessToken
}

// PerformRequest executes a JSON HTTP request against the router
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

// PerformFormRequest executes a form-encoded HTTP request against the router
func PerformFormRequest(r http.Handler, method, path string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
