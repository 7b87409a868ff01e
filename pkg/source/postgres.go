// pkg/source/postgres.go
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/config"
	"github.com/survstats/survpipe/pkg/model"
)

// PostgresSource fetches datasets from PostgreSQL tables
type PostgresSource struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresSource creates and validates a new PostgreSQL source
func NewPostgresSource(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresSource, error) {
	log := logger.Named("postgres-source")

	// Log connection attempt (without credentials)
	log.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Verify connection
	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to PostgreSQL: %v", model.ErrDataUnavailable, err)
	}

	LogConnectionStats(log, cfg.Database, db.DB)

	return &PostgresSource{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// Fetch reads the dataset table declared by the schema
func (s *PostgresSource) Fetch(ctx context.Context, schema *model.DatasetSchema) (*model.Dataset, error) {
	s.logger.Info("Fetching dataset table",
		zap.String("dataset", schema.Name),
		zap.String("schema", s.cfg.Schema),
		zap.String("table", schema.Name))

	ds, err := queryDataset(ctx, s.db, s.cfg.Schema, schema, s.cfg.QueryTimeout)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Dataset loaded",
		zap.String("dataset", ds.Name),
		zap.Int("rows", ds.NumRows()),
		zap.Int("columns", ds.NumCols()))

	return ds, nil
}

// Close closes the connection and releases resources
func (s *PostgresSource) Close() error {
	s.logger.Debug("Closing PostgreSQL source")
	return s.db.Close()
}
