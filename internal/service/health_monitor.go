package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/observability"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"

	healthMissingKey    = "non_existent_key"
	healthCheckActor    = "system"
	healthCheckDeadline = 10 * time.Second
)

// HealthMonitor periodically probes the document store and keeps the latest result.
type HealthMonitor struct {
	store    docstore.Store
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu          sync.RWMutex
	latest      *dto.HealthStatus
	subscribers map[chan dto.HealthStatus]struct{}
	scheduler   *cron.Cron
}

// NewHealthMonitor constructs a monitor. The interval defaults to 30s.
func NewHealthMonitor(store docstore.Store, interval time.Duration, logger zerolog.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthMonitor{
		store:       store,
		interval:    interval,
		logger:      logger.With().Str("component", "health_monitor").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
		subscribers: make(map[chan dto.HealthStatus]struct{}),
	}
}

// Start runs one check immediately and then every interval until Stop or ctx is done.
func (m *HealthMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.scheduler != nil {
		m.mu.Unlock()
		return errors.New("health monitor already started")
	}
	scheduler := cron.New()
	m.scheduler = scheduler
	m.mu.Unlock()

	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", m.interval), func() {
		m.Check(ctx)
	}); err != nil {
		m.mu.Lock()
		m.scheduler = nil
		m.mu.Unlock()
		return fmt.Errorf("schedule health check: %w", err)
	}

	m.Check(ctx)
	scheduler.Start()

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	m.logger.Info().Dur("interval", m.interval).Msg("health monitor started")
	return nil
}

// Stop cancels the schedule and waits for a running check to finish.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	scheduler := m.scheduler
	m.scheduler = nil
	m.mu.Unlock()

	if scheduler == nil {
		return
	}
	<-scheduler.Stop().Done()
	m.logger.Info().Msg("health monitor stopped")
}

// Check runs the four backend probes once and records the result.
func (m *HealthMonitor) Check(ctx context.Context) dto.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckDeadline)
	defer cancel()

	details := dto.HealthDetails{
		Connection: m.probe(ctx, "connection", func(ctx context.Context) error {
			_, _, err := m.store.Get(ctx, models.CollectionAdmins, models.HealthCheckKey)
			return err
		}),
		Write: m.probe(ctx, "write", func(ctx context.Context) error {
			doc, err := docstore.NewDocument(models.CollectionAdminAudit, models.HealthCheckKey, models.AuditEntry{
				ID:          models.HealthCheckKey,
				Action:      models.AuditHealthCheck,
				PerformedBy: healthCheckActor,
				Timestamp:   m.now(),
			})
			if err != nil {
				return err
			}
			_, err = m.store.Set(docstore.WithCaller(ctx, healthCheckActor), doc)
			return err
		}),
		EmptyRead: m.probe(ctx, "empty_read", func(ctx context.Context) error {
			_, found, err := m.store.Get(ctx, models.CollectionAdmins, healthMissingKey)
			if err != nil {
				return err
			}
			if found {
				return errors.New("expected no document for missing key")
			}
			return nil
		}),
		ExistingRead: m.probe(ctx, "existing_read", func(ctx context.Context) error {
			_, found, err := m.store.Get(ctx, models.CollectionAdminAudit, models.HealthCheckKey)
			if err != nil {
				return err
			}
			if !found {
				return errors.New("health check document not readable after write")
			}
			return nil
		}),
	}

	status := dto.HealthStatus{
		OK:        details.Connection.OK && details.Write.OK && details.EmptyRead.OK && details.ExistingRead.OK,
		Details:   details,
		CheckedAt: m.now(),
	}
	status.Status = healthStatusDegraded
	if status.OK {
		status.Status = healthStatusHealthy
		observability.BackendHealthy().Set(1)
		observability.BackendChecks().WithLabelValues("healthy").Inc()
	} else {
		observability.BackendHealthy().Set(0)
		observability.BackendChecks().WithLabelValues("degraded").Inc()
		m.logger.Error().Interface("details", details).Msg("backend health check failed")
	}

	m.record(status)
	return status
}

// Latest returns the most recent result, if any check has run.
func (m *HealthMonitor) Latest() (dto.HealthStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return dto.HealthStatus{}, false
	}
	return *m.latest, true
}

// Subscribe delivers every future result. Slow subscribers miss results rather than block checks.
func (m *HealthMonitor) Subscribe() (<-chan dto.HealthStatus, func()) {
	ch := make(chan dto.HealthStatus, 1)

	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
}

func (m *HealthMonitor) probe(ctx context.Context, name string, fn func(context.Context) error) dto.ProbeResult {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	result := dto.ProbeResult{OK: err == nil, LatencyMS: float64(elapsed.Microseconds()) / 1000}
	observability.BackendProbeLatency().WithLabelValues(name).Set(elapsed.Seconds())
	if err != nil {
		result.Error = err.Error()
		observability.BackendProbeUp().WithLabelValues(name).Set(0)
		m.logger.Error().Err(err).Str("probe", name).Msg("backend probe failed")
		return result
	}
	observability.BackendProbeUp().WithLabelValues(name).Set(1)
	return result
}

func (m *HealthMonitor) record(status dto.HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latest = &status
	for ch := range m.subscribers {
		select {
		case ch <- status:
		default:
		}
	}
}
