package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalique/botflow/pkg/channels/gochannel"
	"github.com/chalique/botflow/pkg/eventbus"
	"github.com/chalique/botflow/pkg/gateway"
	"github.com/chalique/botflow/pkg/persistence/file"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.Default()
	persistence := file.NewPersistence(t.TempDir())

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	api := NewAPI(
		logger,
		persistence,
		bus,
		gateway.NewTelegram("https://api.telegram.example", logger),
		nil,
		nil,
	)

	return api.App()
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Botflow API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
