package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders a payload as a single-line brace-delimited record, e.g.
//
//	{"sensorID": "host-a", "timecollected": 1700000000, "Active_Power": 1523.4, "Status": "Running"}
//
// Values of integer or float type, and strings that are all digits after
// removing at most one decimal point, are emitted as bare numerals; anything
// else is trimmed, escaped and quoted. Output is byte-identical for a given
// payload.
func Serialize(p *Payload) string {
	var b strings.Builder
	b.WriteString("{")

	for i, key := range p.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		value, _ := p.Get(key)
		b.WriteString(`"`)
		b.WriteString(escapeString(key))
		b.WriteString(`": `)
		b.WriteString(renderValue(value))
	}

	b.WriteString("}")
	return b.String()
}

func renderValue(value interface{}) string {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if isNumericString(s) {
			return s
		}
		return `"` + escapeString(s) + `"`
	default:
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if isNumericString(s) {
			return s
		}
		return `"` + escapeString(s) + `"`
	}
}

// formatFloat keeps a decimal point so a whole-number float stays
// distinguishable from an integer (1500.0, not 1500).
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// isNumericString reports whether s consists entirely of digits after
// removing at most one decimal point.
func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	s = strings.Replace(s, ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// escapeString escapes backslashes, quotes and control characters so an
// embedded quote in a label or value cannot corrupt the record.
func escapeString(s string) string {
	if !strings.ContainsAny(s, "\\\"\n\r\t") && !hasControl(s) {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func hasControl(s string) bool {
	for _, r := range s {
		if r < 0x20 {
			return true
		}
	}
	return false
}
