package handler_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/config"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/handler"
)

type fakeHealthSource struct {
	mu         sync.Mutex
	latest     dto.HealthStatus
	hasLatest  bool
	checked    dto.HealthStatus
	checkCalls int
	updates    chan dto.HealthStatus
}

func (f *fakeHealthSource) Latest() (dto.HealthStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.hasLatest
}

func (f *fakeHealthSource) Check(context.Context) dto.HealthStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkCalls++
	return f.checked
}

func (f *fakeHealthSource) Subscribe() (<-chan dto.HealthStatus, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = make(chan dto.HealthStatus, 1)
	return f.updates, func() {}
}

func (f *fakeHealthSource) publish(status dto.HealthStatus) {
	f.mu.Lock()
	ch := f.updates
	f.mu.Unlock()
	ch <- status
}

func healthyStatus() dto.HealthStatus {
	probe := dto.ProbeResult{OK: true, LatencyMS: 1.5}
	return dto.HealthStatus{
		OK:        true,
		Status:    "healthy",
		Details:   dto.HealthDetails{Connection: probe, Write: probe, EmptyRead: probe, ExistingRead: probe},
		CheckedAt: time.Now().UTC(),
	}
}

func testConfig() config.Config {
	return config.Config{AppName: "Waqf API", AppEnv: "test"}
}

func newHealthApp(source handler.HealthSource) *fiber.App {
	app := fiber.New()
	handler.NewHealthHandler(testConfig(), source, "ready", zerolog.Nop()).Register(app.Group("/api/v1/health"))
	return app
}

func TestHealthCheck(t *testing.T) {
	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(testConfig()))

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                   `json:"success"`
		Data    handler.HealthResponse `json:"data"`
	}
	decodeResponse(t, resp, &payload)
	assert.True(t, payload.Success)
	assert.Equal(t, "ok", payload.Data.Status)
	assert.Equal(t, "Waqf API", payload.Data.Service)
	assert.Equal(t, "test", payload.Data.Environment)
	assert.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
}

func TestHealthDashboardDisabled(t *testing.T) {
	app := fiber.New()
	handler.NewHealthHandler(testConfig(), nil, "disabled", zerolog.Nop()).Register(app.Group("/api/v1/health"))

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/health/backend", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.HealthDashboard `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "disabled", body.Data.Status)
	require.Equal(t, "disabled", body.Data.SatelliteStatus)
	require.Nil(t, body.Data.Backend)
}

func TestHealthDashboardUsesLatestUnlessRefreshed(t *testing.T) {
	source := &fakeHealthSource{latest: healthyStatus(), hasLatest: true, checked: healthyStatus()}
	app := newHealthApp(source)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/health/backend", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 0, source.checkCalls)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/v1/health/backend?refresh=true", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, source.checkCalls)
}

func TestHealthDashboardDegraded(t *testing.T) {
	degraded := healthyStatus()
	degraded.OK = false
	degraded.Status = "degraded"
	degraded.Details.Write = dto.ProbeResult{Error: "permission denied"}

	source := &fakeHealthSource{checked: degraded}
	app := newHealthApp(source)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/health/backend", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Success bool                `json:"success"`
		Data    dto.HealthDashboard `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "degraded", body.Data.Status)
	require.NotNil(t, body.Data.Backend)
	require.Equal(t, "permission denied", body.Data.Backend.Details.Write.Error)
	require.Equal(t, 1, source.checkCalls)
}

func TestHealthStreamRequiresUpgrade(t *testing.T) {
	app := newHealthApp(&fakeHealthSource{})

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/health/stream", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHealthStreamDeliversUpdates(t *testing.T) {
	source := &fakeHealthSource{latest: healthyStatus(), hasLatest: true}
	app := newHealthApp(source)

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(baseURL, "http")+"/api/v1/health/stream", nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var first dto.HealthStatus
	require.NoError(t, conn.ReadJSON(&first))
	require.True(t, first.OK)
	require.Equal(t, "healthy", first.Status)

	degraded := healthyStatus()
	degraded.OK = false
	degraded.Status = "degraded"
	source.publish(degraded)

	var second dto.HealthStatus
	require.NoError(t, conn.ReadJSON(&second))
	require.False(t, second.OK)
	require.Equal(t, "degraded", second.Status)
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}
