// pkg/cleaner/operations.go
package cleaner

import (
	"fmt"
	"strings"
	"time"

	"github.com/survstats/survpipe/pkg/model"
)

// classifyOutcome maps a cause-of-death label to the binary event indicator.
// The rule is a fixed substring match: "dead" anywhere in the label means the
// event occurred, "alive" means the observation was censored. "dead" is
// checked first so the mapping is deterministic for any label. Any other
// label is an error, never a silent missing value.
func classifyOutcome(label string) (float64, string, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))

	switch {
	case strings.Contains(normalized, "dead"):
		return 1, "substring_dead", nil
	case strings.Contains(normalized, "alive"):
		return 0, "substring_alive", nil
	default:
		return 0, "", fmt.Errorf("%w: %q matches neither \"dead\" nor \"alive\"",
			model.ErrUnrecognizedCategory, label)
	}
}

// recodeClock stamps audit records; a variable so tests can pin it
var recodeClock = time.Now
