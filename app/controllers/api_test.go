package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/typix-ai/Typix/app/controllers"
	"github.com/typix-ai/Typix/app/repository"
	"github.com/typix-ai/Typix/internal/pkg/database"
	"github.com/typix-ai/Typix/internal/pkg/generate"
	"github.com/typix-ai/Typix/internal/pkg/router"
	"github.com/typix-ai/Typix/internal/pkg/subscription"
)

const testWebhookSecret = "route-test-secret"

type stubCheckout struct{}

func (stubCheckout) CreateCheckout(_ context.Context, _ subscription.CreateCheckoutRequest) (string, error) {
	return "https://checkout.test/session", nil
}

type stubProvider struct{}

func (stubProvider) Generate(_ context.Context, _ generate.GenerateRequest) (*generate.GenerateResult, error) {
	return &generate.GenerateResult{ImageURL: "https://cdn.test/image.png"}, nil
}

var (
	appOnce sync.Once
	testApp *fiber.App
)

// The repository factory and the service singletons are process-wide, so all
// route tests share one app and keep apart via distinct users.
func testSetup(t *testing.T) *fiber.App {
	t.Helper()

	appOnce.Do(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		if err != nil {
			panic(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			panic(err)
		}
		sqlDB.SetMaxOpenConns(1)
		if err := database.Migrate(db); err != nil {
			panic(err)
		}

		database.SetDB(db)
		repository.InitializeFactory(db)

		subSvc := subscription.NewService(subscription.NewRepository(db), subscription.DefaultCatalog(), stubCheckout{}, subscription.Config{
			CreemAPIKey:        "test-api-key",
			CreemWebhookSecret: testWebhookSecret,
			AppURL:             "https://typix.test",
		})
		genSvc := generate.NewService(db, subSvc, stubProvider{})
		controllers.InitServices(subSvc, genSvc)

		app := fiber.New()
		router.InstallRouter(app)

		testApp = app
	})
	return testApp
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func registerUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"name":     "Route Tester",
		"email":    email,
		"password": "secret-password",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	apiKey, _ := body["api_key"].(string)
	require.NotEmpty(t, apiKey)
	return apiKey
}

func TestRegisterLoginAndUsage(t *testing.T) {
	app := testSetup(t)
	apiKey := registerUser(t, app, "flow@typix.test")

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/subscription/usage", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(30), body["remaining_credits"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/subscription/usage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email":    "flow@typix.test",
		"password": "secret-password",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated, _ := body["api_key"].(string)
	require.NotEmpty(t, rotated)
	assert.NotEqual(t, apiKey, rotated)

	// The old key stops working after rotation.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/subscription/usage", nil, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutRoute(t *testing.T) {
	app := testSetup(t)
	apiKey := registerUser(t, app, "checkout@typix.test")

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/subscription/checkout", map[string]any{
		"plan_id": "prod_14WmWICabykLJ50OMzjDp9",
	}, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://checkout.test/session", body["checkout_url"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/subscription/checkout", map[string]any{
		"plan_id": "prod_unknown",
	}, map[string]string{"X-API-Key": apiKey})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_parameter", body["error"])
}

func TestWebhookRoute(t *testing.T) {
	app := testSetup(t)
	apiKey := registerUser(t, app, "webhook@typix.test")

	payload := map[string]any{
		"eventType": "checkout.completed",
		"object": map[string]any{
			"id":       "sess_route_1",
			"customer": map[string]any{"email": "webhook@typix.test"},
			"product":  map[string]any{"id": "prod_14WmWICabykLJ50OMzjDp9"},
			"order": map[string]any{
				"id":          "ord_route_1",
				"transaction": "tx_route_1",
				"amount_paid": 1000,
				"currency":    "USD",
				"type":        "recurring",
			},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	signature := subscription.ComputeWebhookSignature(raw, testWebhookSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/creem", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("creem-signature", signature)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The registration credits expire and the plan grant replaces them.
	usageResp, usage := doJSON(t, app, http.MethodGet, "/api/v1/subscription/usage", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, usageResp.StatusCode)
	assert.Equal(t, float64(150), usage["remaining_credits"])
	assert.Equal(t, "basic", usage["tier"])

	ordersResp, orders := doJSON(t, app, http.MethodGet, "/api/v1/subscription/orders", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, ordersResp.StatusCode)
	assert.Len(t, orders["orders"], 1)
}

func TestWebhookRouteBadSignature(t *testing.T) {
	app := testSetup(t)

	raw := []byte(`{"eventType":"checkout.completed","object":{"customer":{"email":"x@typix.test"},"product":{"id":"prod_14WmWICabykLJ50OMzjDp9"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/creem", bytes.NewReader(raw))
	req.Header.Set("creem-signature", "deadbeef")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateRoute(t *testing.T) {
	app := testSetup(t)
	apiKey := registerUser(t, app, fmt.Sprintf("gen%d@typix.test", 1))

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/generate", map[string]any{
		"prompt": "a lighthouse at dusk",
	}, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "https://cdn.test/image.png", body["result_url"])

	usageResp, usage := doJSON(t, app, http.MethodGet, "/api/v1/subscription/usage", nil, map[string]string{"X-API-Key": apiKey})
	require.Equal(t, http.StatusOK, usageResp.StatusCode)
	assert.Equal(t, float64(29), usage["remaining_credits"])
}
