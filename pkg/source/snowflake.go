// pkg/source/snowflake.go
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/config"
	"github.com/survstats/survpipe/pkg/model"
)

// SnowflakeSource fetches datasets from Snowflake tables
type SnowflakeSource struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// NewSnowflakeSource creates and validates a new Snowflake source
func NewSnowflakeSource(ctx context.Context, cfg *config.SnowflakeConfig, logger *zap.Logger) (*SnowflakeSource, error) {
	log := logger.Named("snowflake-source")

	// Build the DSN with Snowflake's DSN builder
	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        cfg.Schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	// Log connection attempt (without credentials)
	log.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sqlx.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
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
	if err := PingWithTimeout(ctx, db.DB, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to Snowflake: %v", model.ErrDataUnavailable, err)
	}

	LogConnectionStats(log, cfg.Database, db.DB)

	return &SnowflakeSource{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// Fetch reads the dataset table declared by the schema
func (s *SnowflakeSource) Fetch(ctx context.Context, schema *model.DatasetSchema) (*model.Dataset, error) {
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
func (s *SnowflakeSource) Close() error {
	s.logger.Debug("Closing Snowflake source")
	return s.db.Close()
}
