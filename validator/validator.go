package validator

import (
	"fmt"
	"sort"

	"github.com/naturalnetworks/sungrow-bridge/config"
	"github.com/naturalnetworks/sungrow-bridge/sungrow"
)

// Set checks numeric readings against configured ranges. Violations are
// reported as warnings; they never abort a cycle and never drop a reading.
type Set struct {
	rules []config.RangeRule
}

// New creates a validator set from the configured rules.
func New(rules []config.RangeRule) *Set {
	return &Set{rules: rules}
}

// Check returns one warning per out-of-range reading. Readings that are
// missing or non-numeric (including the unavailable sentinel) are skipped.
func (s *Set) Check(readings map[string]sungrow.Reading) []string {
	var warnings []string
	for _, rule := range s.rules {
		r, ok := readings[rule.Reading]
		if !ok {
			continue
		}
		value, ok := numericValue(r.Value)
		if !ok {
			continue
		}
		if value < rule.Min || value > rule.Max {
			warnings = append(warnings,
				fmt.Sprintf("%s = %g outside [%g, %g]", rule.Reading, value, rule.Min, rule.Max))
		}
	}
	sort.Strings(warnings)
	return warnings
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
