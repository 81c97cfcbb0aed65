package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func checkHealth(t *testing.T, h *HealthHandler) (int, OverallHealth) {
	t.Helper()
	app := fiber.New()
	app.Get("/v1/health", h.HandleHealth)
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil))
	require.NoError(t, err)
	var body OverallHealth
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthStartingUntilReady(t *testing.T) {
	ok := checkFunc(func(context.Context) error { return nil })
	h := NewHealthHandler(map[string]Checker{"redis": ok, "storage": ok})

	code, body := checkHealth(t, h)
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "starting", body.OverallStatus)

	h.SetReady()
	code, body = checkHealth(t, h)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", body.OverallStatus)
	assert.Len(t, body.Components, 2)
}

func TestHealthReportsFailingComponent(t *testing.T) {
	h := NewHealthHandler(map[string]Checker{
		"redis":   checkFunc(func(context.Context) error { return nil }),
		"storage": checkFunc(func(context.Context) error { return errors.New("read-only filesystem") }),
		"absent":  nil,
	})
	h.SetReady()

	code, body := checkHealth(t, h)
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body.OverallStatus)
	assert.Equal(t, "ok", body.Components["redis"].Status)
	assert.Equal(t, "read-only filesystem", body.Components["storage"].Error)
	assert.NotContains(t, body.Components, "absent")
}
