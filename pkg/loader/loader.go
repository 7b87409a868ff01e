// pkg/loader/loader.go
package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/model"
	"github.com/survstats/survpipe/pkg/source"
)

// Loader resolves dataset identifiers against the schema registry and
// fetches rows through the configured source
type Loader struct {
	src    source.Source
	logger *zap.Logger
}

// NewLoader creates a new Loader instance
func NewLoader(src source.Source, logger *zap.Logger) (*Loader, error) {
	if src == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Loader{
		src:    src,
		logger: logger.Named("loader"),
	}, nil
}

// Load fetches the named dataset with its declared schema
func (l *Loader) Load(ctx context.Context, name string) (*model.Dataset, *model.DatasetSchema, error) {
	schema, err := Schema(name)
	if err != nil {
		return nil, nil, err
	}

	l.logger.Info("Loading dataset",
		zap.String("dataset", name),
		zap.Int("declaredColumns", len(schema.Variables)))

	ds, err := l.src.Fetch(ctx, schema)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch dataset %s: %w", name, err)
	}

	l.logger.Info("Dataset ready",
		zap.String("dataset", name),
		zap.Int("rows", ds.NumRows()),
		zap.Int("missingCells", ds.MissingCells()))

	return ds, schema, nil
}
