// pkg/source/table.go
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/survstats/survpipe/pkg/model"
)

// queryDataset pulls every declared column of the dataset table and coerces
// the scanned values against the schema. Shared by the database sources.
func queryDataset(
	ctx context.Context,
	db *sqlx.DB,
	dbSchema string,
	schema *model.DatasetSchema,
	timeout time.Duration,
) (*model.Dataset, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cols := make([]string, len(schema.Variables))
	for i, v := range schema.Variables {
		cols[i] = quoteIdent(v.Name)
	}
	// Schema.Source names the csv file; database sources use the dataset
	// identifier as the table name
	query := fmt.Sprintf("SELECT %s FROM %s.%s",
		strings.Join(cols, ", "),
		quoteIdent(dbSchema),
		quoteIdent(schema.Name))

	rows, err := db.QueryxContext(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query for %s failed: %v", model.ErrDataUnavailable, schema.Name, err)
	}
	defer rows.Close()

	// Per-column working level tables seeded from the declared levels
	levels := make([][]string, len(schema.Variables))
	for i, v := range schema.Variables {
		levels[i] = append([]string(nil), v.Levels...)
	}

	columnValues := make([][]float64, len(schema.Variables))
	rowCount := 0
	for rows.Next() {
		scanned, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d of %s: %w", rowCount, schema.Name, err)
		}
		if len(scanned) != len(schema.Variables) {
			return nil, fmt.Errorf("row %d of %s has %d columns, expected %d",
				rowCount, schema.Name, len(scanned), len(schema.Variables))
		}

		for i := range schema.Variables {
			val, err := coerceScanned(scanned[i], &schema.Variables[i], &levels[i])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", rowCount, err)
			}
			columnValues[i] = append(columnValues[i], val)
		}
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s: %v", model.ErrDataUnavailable, schema.Name, err)
	}
	if rowCount == 0 {
		return nil, fmt.Errorf("%w: table %s is empty", model.ErrDataUnavailable, schema.Name)
	}

	columns := make([]model.Column, len(schema.Variables))
	for i, v := range schema.Variables {
		columns[i] = model.Column{
			Name:   v.Name,
			Kind:   v.Kind,
			Values: columnValues[i],
		}
		if v.Kind == model.KindFactor {
			columns[i].Levels = levels[i]
		}
	}

	return model.NewDataset(schema.Name, columns)
}

// quoteIdent quotes a SQL identifier, doubling embedded quotes
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
