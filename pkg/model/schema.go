// pkg/model/schema.go
package model

import "strings"

// DatasetSchema declares the structure of a named dataset: its variables,
// their kinds and factor levels. The loader validates fetched data against
// the declared schema before handing it to the pipeline.
type DatasetSchema struct {
	Name      string     // Dataset identifier
	Source    string     // Logical source location (file name or table)
	Variables []Variable // Variable declarations in column order
}

// Variable represents the declared metadata for one dataset column
type Variable struct {
	Name   string     // Column name
	Kind   ColumnKind // numeric or factor
	Levels []string   // Declared factor levels, reference level first
	Doc    string     // Short human-readable description
}

// Variable returns the declared variable by name (case-insensitive).
// Returns nil if not declared.
func (s *DatasetSchema) Variable(name string) *Variable {
	for i := range s.Variables {
		if strings.EqualFold(s.Variables[i].Name, name) {
			return &s.Variables[i]
		}
	}
	return nil
}

// VariableNames returns the declared variable names in column order
func (s *DatasetSchema) VariableNames() []string {
	names := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		names[i] = v.Name
	}
	return names
}
