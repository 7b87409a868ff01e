// pkg/source/source.go
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/config"
	"github.com/survstats/survpipe/pkg/model"
)

// Source fetches a declared dataset from an external data repository
type Source interface {
	// Fetch returns the dataset described by the schema
	Fetch(ctx context.Context, schema *model.DatasetSchema) (*model.Dataset, error)

	// Close releases any resources held by the source
	Close() error
}

// NewSource creates the source selected by the configuration
func NewSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Source, error) {
	switch cfg.SourceKind {
	case "csv":
		return NewCSVSource(cfg.DataDir, logger), nil
	case "postgres":
		logger.Info("Creating PostgreSQL source")
		src, err := NewPostgresSource(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL source: %w", err)
		}
		return src, nil
	case "snowflake":
		logger.Info("Creating Snowflake source")
		src, err := NewSnowflakeSource(ctx, cfg.Snowflake, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Snowflake source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.SourceKind)
	}
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sql.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := db.Stats()
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConnections),
	)
}
