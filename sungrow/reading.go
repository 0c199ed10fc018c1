package sungrow

// Unavailable is the sentinel the inverter reports for measurements it has no
// current value for (e.g. battery fields on a non-hybrid unit).
const Unavailable = "--"

// Reading is one named measurement from a poll. Value is a float64 for
// numeric measurements, otherwise the raw string (including the Unavailable
// sentinel). Desc is the human-readable label, unit appended in parentheses.
type Reading struct {
	Value interface{}
	Desc  string
}
