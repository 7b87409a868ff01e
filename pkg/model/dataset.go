// pkg/model/dataset.go
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ColumnKind distinguishes numeric measurements from coded factor levels
type ColumnKind int

const (
	// KindNumeric is a continuous or integer-valued measurement
	KindNumeric ColumnKind = iota
	// KindFactor is a categorical variable stored as level codes
	KindFactor
)

// String returns a string representation of the column kind
func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindFactor:
		return "factor"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Column is a single variable of the dataset. Values are stored as float64
// with NaN marking a missing cell; factor columns store the index into Levels.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []float64
	Levels []string // factor level labels indexed by code; nil for numeric
}

// IsMissing reports whether the cell at row i is missing
func (c *Column) IsMissing(i int) bool {
	return math.IsNaN(c.Values[i])
}

// MissingCount returns the number of missing cells in the column
func (c *Column) MissingCount() int {
	count := 0
	for _, v := range c.Values {
		if math.IsNaN(v) {
			count++
		}
	}
	return count
}

// Label renders the cell at row i for human-readable output
func (c *Column) Label(i int) string {
	v := c.Values[i]
	if math.IsNaN(v) {
		return "NA"
	}
	if c.Kind == KindFactor {
		code := int(v)
		if code >= 0 && code < len(c.Levels) {
			return c.Levels[code]
		}
		return fmt.Sprintf("level(%d)", code)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// LevelCode returns the code for a factor level label, or -1 if unknown.
// Matching is case-insensitive to tolerate source casing differences.
func (c *Column) LevelCode(label string) int {
	for i, l := range c.Levels {
		if strings.EqualFold(l, label) {
			return i
		}
	}
	return -1
}

// clone returns a deep copy of the column
func (c *Column) clone() Column {
	out := Column{
		Name: c.Name,
		Kind: c.Kind,
	}
	out.Values = make([]float64, len(c.Values))
	copy(out.Values, c.Values)
	if c.Levels != nil {
		out.Levels = make([]string, len(c.Levels))
		copy(out.Levels, c.Levels)
	}
	return out
}

// Dataset is an ordered collection of columns sharing a fixed row count
type Dataset struct {
	Name    string
	Columns []Column
	rows    int
}

// NewDataset creates a dataset and validates that all columns share the
// same length
func NewDataset(name string, columns []Column) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, errors.New("dataset requires at least one column")
	}

	rows := len(columns[0].Values)
	for _, col := range columns {
		if len(col.Values) != rows {
			return nil, fmt.Errorf("column %s has %d rows, expected %d",
				col.Name, len(col.Values), rows)
		}
	}

	return &Dataset{
		Name:    name,
		Columns: columns,
		rows:    rows,
	}, nil
}

// NumRows returns the number of rows in the dataset
func (d *Dataset) NumRows() int {
	return d.rows
}

// NumCols returns the number of columns in the dataset
func (d *Dataset) NumCols() int {
	return len(d.Columns)
}

// Column returns the column with the given name (case-insensitive)
// or nil if not found
func (d *Dataset) Column(name string) *Column {
	for i := range d.Columns {
		if strings.EqualFold(d.Columns[i].Name, name) {
			return &d.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in dataset order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// MissingCells returns the total number of missing cells across all columns
func (d *Dataset) MissingCells() int {
	total := 0
	for i := range d.Columns {
		total += d.Columns[i].MissingCount()
	}
	return total
}

// MissingFraction returns the fraction of cells that are missing
func (d *Dataset) MissingFraction() float64 {
	cells := d.rows * len(d.Columns)
	if cells == 0 {
		return 0
	}
	return float64(d.MissingCells()) / float64(cells)
}

// Clone returns a deep copy of the dataset sharing no storage with the
// original
func (d *Dataset) Clone() *Dataset {
	columns := make([]Column, len(d.Columns))
	for i := range d.Columns {
		columns[i] = d.Columns[i].clone()
	}
	return &Dataset{
		Name:    d.Name,
		Columns: columns,
		rows:    d.rows,
	}
}

// ReplaceColumn substitutes the column with the same name, preserving its
// position in the dataset
func (d *Dataset) ReplaceColumn(col Column) error {
	if len(col.Values) != d.rows {
		return fmt.Errorf("replacement column %s has %d rows, expected %d",
			col.Name, len(col.Values), d.rows)
	}
	for i := range d.Columns {
		if strings.EqualFold(d.Columns[i].Name, col.Name) {
			d.Columns[i] = col
			return nil
		}
	}
	return fmt.Errorf("column %s not present in dataset %s", col.Name, d.Name)
}
