// pkg/source/values.go
package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/survstats/survpipe/pkg/model"
)

// isNA determines if a raw cell should be treated as missing
func isNA(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "NA", "na", "NaN", "nan", "null", "NULL", ".":
		return true
	}
	return false
}

// parseCell converts a raw string cell to the column's float representation.
// Missing markers become NaN. Factor labels not declared in the schema are
// appended to the working level table so the cleaner can still inspect them.
func parseCell(raw string, v *model.Variable, levels *[]string) (float64, error) {
	if isNA(raw) {
		return math.NaN(), nil
	}

	raw = strings.TrimSpace(raw)

	if v.Kind == model.KindNumeric {
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as numeric for %s: %w", raw, v.Name, err)
		}
		return val, nil
	}

	// Factor: resolve the label against the working level table
	for i, l := range *levels {
		if strings.EqualFold(l, raw) {
			return float64(i), nil
		}
	}
	*levels = append(*levels, raw)
	return float64(len(*levels) - 1), nil
}

// coerceScanned converts a database-scanned value to the column's float
// representation using the same rules as parseCell
func coerceScanned(value interface{}, v *model.Variable, levels *[]string) (float64, error) {
	if value == nil {
		return math.NaN(), nil
	}

	switch val := value.(type) {
	case float64:
		if v.Kind == model.KindFactor {
			return coerceFactorCode(val, v, levels)
		}
		return val, nil
	case float32:
		return coerceScanned(float64(val), v, levels)
	case int64:
		return coerceScanned(float64(val), v, levels)
	case int:
		return coerceScanned(float64(val), v, levels)
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseCell(string(val), v, levels)
	case string:
		return parseCell(val, v, levels)
	default:
		return 0, fmt.Errorf("unsupported scanned type %T for column %s", value, v.Name)
	}
}

// coerceFactorCode accepts a numeric level code from a database source,
// validating it against the working level table
func coerceFactorCode(code float64, v *model.Variable, levels *[]string) (float64, error) {
	idx := int(code)
	if float64(idx) != code || idx < 0 || idx >= len(*levels) {
		return 0, fmt.Errorf("factor code %v out of range for %s (%d levels)", code, v.Name, len(*levels))
	}
	return code, nil
}

// buildDataset assembles a model.Dataset from raw records (header excluded)
// validated against the declared schema. Records are row-major with cells
// ordered by header.
func buildDataset(schema *model.DatasetSchema, header []string, records [][]string) (*model.Dataset, error) {
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	columns := make([]model.Column, 0, len(schema.Variables))
	for i := range schema.Variables {
		v := &schema.Variables[i]

		idx, ok := colIdx[strings.ToLower(v.Name)]
		if !ok {
			return nil, fmt.Errorf("%w: dataset %s is missing declared column %s",
				model.ErrDataUnavailable, schema.Name, v.Name)
		}

		levels := append([]string(nil), v.Levels...)
		values := make([]float64, len(records))
		for r, record := range records {
			if idx >= len(record) {
				return nil, fmt.Errorf("%w: row %d of dataset %s has %d cells, expected at least %d",
					model.ErrDataUnavailable, r, schema.Name, len(record), idx+1)
			}
			val, err := parseCell(record[idx], v, &levels)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", r, err)
			}
			values[r] = val
		}

		col := model.Column{
			Name:   v.Name,
			Kind:   v.Kind,
			Values: values,
		}
		if v.Kind == model.KindFactor {
			col.Levels = levels
		}
		columns = append(columns, col)
	}

	return model.NewDataset(schema.Name, columns)
}
