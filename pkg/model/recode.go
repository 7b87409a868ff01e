// pkg/model/recode.go
package model

import (
	"time"
)

// RecodeOperation represents a single outcome recode performed by the cleaner
type RecodeOperation struct {
	Dataset       string    // Dataset identifier
	ColumnName    string    // Column that was recoded
	Row           int       // Row index of the recoded cell
	OriginalValue string    // Original category label
	NewValue      string    // New value after recoding
	Rule          string    // Recode rule applied (e.g. "substring_dead")
	Reason        string    // Reason for the recode (e.g. "collapse_cause_of_death")
	RecodedAt     time.Time // When the recode occurred
}
