package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/config"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/observability"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

// HealthSource provides backend health results.
type HealthSource interface {
	Latest() (dto.HealthStatus, bool)
	Check(ctx context.Context) dto.HealthStatus
	Subscribe() (<-chan dto.HealthStatus, func())
}

// HealthHandler serves the backend health dashboard and its live stream.
type HealthHandler struct {
	cfg             config.Config
	monitor         HealthSource
	satelliteStatus string
	startedAt       time.Time
	pingInterval    time.Duration
	logger          zerolog.Logger
}

// NewHealthHandler constructs the handler. monitor is nil when the backend is disabled.
func NewHealthHandler(cfg config.Config, monitor HealthSource, satelliteStatus string, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		cfg:             cfg,
		monitor:         monitor,
		satelliteStatus: satelliteStatus,
		startedAt:       time.Now(),
		pingInterval:    30 * time.Second,
		logger:          logger.With().Str("component", "health_handler").Logger(),
	}
}

// Register attaches routes.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("", HealthCheck(h.cfg))
	router.Get("/backend", h.dashboard)
	router.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/stream", websocket.New(h.stream))
}

func (h *HealthHandler) dashboard(c *fiber.Ctx) error {
	payload := dto.HealthDashboard{
		Status:          "disabled",
		Service:         h.cfg.AppName,
		Environment:     h.cfg.AppEnv,
		SatelliteStatus: h.satelliteStatus,
		UptimeSeconds:   int64(time.Since(h.startedAt).Seconds()),
	}

	if h.monitor == nil {
		return utils.OK(c, payload, "backend disabled", nil)
	}

	status, ok := h.monitor.Latest()
	if !ok || c.QueryBool("refresh", false) {
		status = h.monitor.Check(requestContext(c))
	}
	payload.Status = status.Status
	payload.Backend = &status
	payload.LastChecked = &status.CheckedAt

	if !status.OK {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
			Success: false,
			Data:    payload,
			Message: "backend degraded",
		})
	}
	return utils.OK(c, payload, "backend healthy", nil)
}

func (h *HealthHandler) stream(conn *websocket.Conn) {
	defer conn.Close()

	if h.monitor == nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "backend disabled"))
		return
	}

	observability.HealthStreamClients().Inc()
	defer observability.HealthStreamClients().Dec()

	updates, cancel := h.monitor.Subscribe()
	defer cancel()

	if latest, ok := h.monitor.Latest(); ok {
		if err := conn.WriteJSON(latest); err != nil {
			return
		}
	}

	// Reads detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case status, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(status); err != nil {
				h.logger.Debug().Err(err).Msg("health stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
