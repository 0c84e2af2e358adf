package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"sangha/backend/config"
	"sangha/backend/models"
	"sangha/backend/routes"
	"sangha/backend/services"
	"sangha/backend/utils"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

type testApp struct {
	app   *fiber.App
	db    *gorm.DB
	cache *services.Cache
	cfg   *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dir := t.TempDir()

	cfg := &config.Config{
		JWTSecret:           "testsecret",
		ServerPort:          "8080",
		CachePath:           filepath.Join(dir, "cache.db"),
		RolloverIntervalSec: 30,
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "store.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	cache, err := services.OpenCache(cfg.CachePath)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	logger := log.New(io.Discard, "", 0)
	clock := fixedClock{t: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)}

	ledger := services.NewHistoryLedger(db, cache, clock, logger)
	stats := services.NewStatsAggregator(db, cache, ledger, clock, logger)
	// Drain remote writes before t.TempDir removal runs.
	t.Cleanup(ledger.Flush)
	t.Cleanup(stats.Flush)
	weekly := services.NewWeeklyTracker(db, cache, clock, logger)
	ranking := services.NewRankingCalculator(db, stats, clock, logger)

	app := fiber.New()
	routes.SetupRoutes(app, db, cfg, routes.Deps{
		Stats:   stats,
		Ledger:  ledger,
		Weekly:  weekly,
		Ranking: ranking,
		Clock:   clock,
	})

	return &testApp{app: app, db: db, cache: cache, cfg: cfg}
}

// request performs a JSON request against the app and decodes the response
// body into a generic map.
func (ta *testApp) request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// registerAndLogin creates a member through the API and returns its token.
func (ta *testApp) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	status, body := ta.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"username":     username,
		"email":        username + "@example.com",
		"password":     "password",
		"display_name": username,
	})
	require.Equal(t, http.StatusOK, status)

	token, ok := body["token"].(string)
	require.True(t, ok, "register response must contain a token")
	return token
}

// loginAdmin seeds an admin user directly and logs in through the API.
func (ta *testApp) loginAdmin(t *testing.T) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	require.NoError(t, err)
	admin := models.User{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         "admin",
		DisplayName:  "Admin",
	}
	require.NoError(t, ta.db.Create(&admin).Error)

	status, body := ta.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": "admin",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, status)
	return body["token"].(string)
}

// data unwraps the success envelope used by most endpoints.
func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, fmt.Sprintf("expected data envelope, got %v", body))
	return d
}
