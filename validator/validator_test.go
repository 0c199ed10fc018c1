package validator

import (
	"strings"
	"testing"

	"github.com/naturalnetworks/sungrow-bridge/config"
	"github.com/naturalnetworks/sungrow-bridge/sungrow"
)

func TestCheckFlagsOutOfRange(t *testing.T) {
	s := New([]config.RangeRule{
		{Reading: "total_active_power", Min: 0, Max: 10000},
		{Reading: "grid_frequency", Min: 45, Max: 55},
	})

	readings := map[string]sungrow.Reading{
		"total_active_power": {Value: 15000.0, Desc: "Active Power (W)"},
		"grid_frequency":     {Value: 50.02, Desc: "Grid Frequency (Hz)"},
	}

	warnings := s.Check(readings)
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "total_active_power") {
		t.Fatalf("unexpected warning: %s", warnings[0])
	}
}

func TestCheckSkipsMissingAndNonNumeric(t *testing.T) {
	s := New([]config.RangeRule{
		{Reading: "battery_soc", Min: 0, Max: 100},
		{Reading: "not_polled", Min: 0, Max: 1},
		{Reading: "status", Min: 0, Max: 1},
	})

	readings := map[string]sungrow.Reading{
		"battery_soc": {Value: sungrow.Unavailable, Desc: "Battery SOC (%)"},
		"status":      {Value: "Running", Desc: "Status"},
	}

	if warnings := s.Check(readings); len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}

func TestCheckBoundsInclusive(t *testing.T) {
	s := New([]config.RangeRule{{Reading: "soc", Min: 0, Max: 100}})

	readings := map[string]sungrow.Reading{"soc": {Value: 100.0, Desc: "SOC (%)"}}
	if warnings := s.Check(readings); len(warnings) != 0 {
		t.Fatalf("boundary value must pass, got %v", warnings)
	}

	readings["soc"] = sungrow.Reading{Value: 100.1, Desc: "SOC (%)"}
	if warnings := s.Check(readings); len(warnings) != 1 {
		t.Fatalf("expected 1 warning just past the boundary, got %v", warnings)
	}
}
