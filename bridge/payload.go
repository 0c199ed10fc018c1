package bridge

import (
	"regexp"
	"sort"
	"strings"

	"github.com/naturalnetworks/sungrow-bridge/sungrow"
)

// Fixed field names present in every payload.
const (
	FieldSensorID      = "sensorID"
	FieldTimeCollected = "timecollected"
)

// Payload is the flat record published each cycle: insertion-ordered field
// name to value. A repeated Set overwrites the value but keeps the field's
// original position.
type Payload struct {
	keys   []string
	values map[string]interface{}
}

// NewPayload returns an empty payload.
func NewPayload() *Payload {
	return &Payload{values: make(map[string]interface{})}
}

// Set adds or overwrites a field.
func (p *Payload) Set(key string, value interface{}) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for key.
func (p *Payload) Get(key string) (interface{}, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the field names in insertion order.
func (p *Payload) Keys() []string {
	return p.keys
}

// Len returns the number of fields.
func (p *Payload) Len() int {
	return len(p.keys)
}

// Matches any parenthesis along with whitespace butting up against it, so
// "Active Power (W)" sanitizes to Active_PowerW rather than Active_Power_W.
var parenPattern = regexp.MustCompile(`\s*[()]`)

// SanitizeLabel turns a display label into a payload field name: parentheses
// are stripped, interior spaces become underscores, surrounding whitespace is
// trimmed. Idempotent: sanitizing a sanitized label is a no-op.
func SanitizeLabel(label string) string {
	s := strings.TrimSpace(label)
	s = parenPattern.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, " ", "_")
}

// BuildPayload assembles the record for one cycle: the two fixed fields
// followed by one field per reading, keyed by sanitized label. Readings are
// inserted in sorted name order so the output is deterministic. Two labels
// sanitizing to the same field name silently overwrite, last writer wins.
// A reading holding the unavailable sentinel is substituted with integer 0.
func BuildPayload(readings map[string]sungrow.Reading, identity string, now int64) *Payload {
	p := NewPayload()
	p.Set(FieldSensorID, identity)
	p.Set(FieldTimeCollected, now)

	names := make([]string, 0, len(readings))
	for name := range readings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := readings[name]
		value := r.Value
		if s, ok := value.(string); ok && s == sungrow.Unavailable {
			value = 0
		}
		p.Set(SanitizeLabel(r.Desc), value)
	}

	return p
}
