// Package satellite opens the backend used by the API: the document store, its cache and the event bus.
package satellite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/waqf-api/internal/config"
	"github.com/noah-isme/waqf-api/internal/database"
	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
)

// Status reports whether the backend is usable.
type Status string

const (
	StatusReady    Status = "ready"
	StatusDisabled Status = "disabled"
)

// Phase names the initialization step that failed.
type Phase string

const (
	PhaseConfig    Phase = "config"
	PhaseSatellite Phase = "satellite"
	PhaseComplete  Phase = "complete"
)

// InitError is returned when the connection cannot be established.
type InitError struct {
	Phase    Phase
	Attempts int
	Err      error
}

func (e *InitError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("satellite init failed in %s phase after %d attempts: %v", e.Phase, e.Attempts, e.Err)
	}
	return fmt.Sprintf("satellite init failed in %s phase: %v", e.Phase, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Options configures Open.
type Options struct {
	SatelliteID    string
	Optional       bool
	DatabaseDriver string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	CacheTTL       time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	ClientName     string

	dial func(driver, dsn string) (*gorm.DB, error)
}

// OptionsFromConfig maps application configuration onto connection options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		SatelliteID:    cfg.SatelliteID,
		Optional:       cfg.SatelliteOptional,
		DatabaseDriver: cfg.DatabaseDriver,
		DatabaseURL:    cfg.DatabaseURL,
		RedisURL:       cfg.RedisURL,
		NATSURL:        cfg.NATSURL,
		CacheTTL:       cfg.CacheTTL,
		MaxRetries:     cfg.InitMaxRetries,
		RetryDelay:     cfg.InitRetryDelay,
		ClientName:     cfg.AppName,
	}
}

// Connection is the process-wide handle on the backend. It is created once by Open and
// passed explicitly to the components that need it.
type Connection struct {
	ID     string
	Status Status
	Phase  Phase
	DB     *gorm.DB
	Store  docstore.Store
	Redis  *redis.Client
	NATS   *nats.Conn

	logger zerolog.Logger
}

// Open connects to the backend, retrying up to MaxRetries times with RetryDelay between attempts.
// A missing satellite id yields a disabled connection when Optional is set and an error otherwise.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Connection, error) {
	log := logger.With().Str("component", "satellite").Logger()

	if opts.SatelliteID == "" {
		if opts.Optional {
			log.Warn().Msg("satellite id not configured, backend disabled")
			return &Connection{Status: StatusDisabled, Phase: PhaseConfig, logger: log}, nil
		}
		return nil, &InitError{Phase: PhaseConfig, Err: config.ErrMissingSatelliteID}
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.dial == nil {
		opts.dial = database.Open
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		conn, err := connect(ctx, opts, log)
		if err == nil {
			conn.Phase = PhaseComplete
			log.Info().Str("satellite_id", opts.SatelliteID).Int("attempt", attempt).Msg("satellite connected")
			return conn, nil
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", opts.MaxRetries).Msg("satellite connection attempt failed")

		if attempt == opts.MaxRetries {
			break
		}

		timer := time.NewTimer(opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &InitError{Phase: PhaseSatellite, Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return nil, &InitError{Phase: PhaseSatellite, Attempts: opts.MaxRetries, Err: lastErr}
}

func connect(ctx context.Context, opts Options, log zerolog.Logger) (*Connection, error) {
	db, err := opts.dial(opts.DatabaseDriver, opts.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := docstore.Migrate(db.WithContext(ctx)); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate documents: %w", err)
	}

	conn := &Connection{
		ID:     opts.SatelliteID,
		Status: StatusReady,
		Phase:  PhaseSatellite,
		DB:     db,
		logger: log,
	}

	if opts.RedisURL != "" {
		client, err := database.ConnectRedis(ctx, opts.RedisURL)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn.Redis = client
	}

	if opts.NATSURL != "" {
		nc, err := database.ConnectNATS(opts.NATSURL, opts.ClientName)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn.NATS = nc
	}

	store := docstore.NewGormStore(db, Rules(), log)
	conn.Store = docstore.NewCachedStore(store, conn.Redis, docstore.CacheOptions{
		TTL:         opts.CacheTTL,
		Prefix:      "docstore:" + opts.SatelliteID,
		Collections: []string{models.CollectionAdmins, models.CollectionCauses, models.CollectionWaqfs},
	}, log)

	return conn, nil
}

// Ready reports whether the backend can serve requests.
func (c *Connection) Ready() bool {
	return c != nil && c.Status == StatusReady && c.Store != nil
}

// Close releases every client held by the connection.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}

	var errs []error
	if c.NATS != nil {
		if err := c.NATS.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("drain nats: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.DB != nil {
		if err := closeDB(c.DB); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("resolve sql db: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
