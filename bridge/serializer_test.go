package bridge

import (
	"testing"

	"github.com/naturalnetworks/sungrow-bridge/sungrow"
)

func TestSerializeEndToEnd(t *testing.T) {
	readings := map[string]sungrow.Reading{
		"p1": {Value: 1500.0, Desc: "Active Power (W)"},
		"p2": {Value: sungrow.Unavailable, Desc: "Status"},
	}

	got := Serialize(BuildPayload(readings, "node1", 1700000000))
	want := `{"sensorID": "node1", "timecollected": 1700000000, "Active_PowerW": 1500.0, "Status": 0}`
	if got != want {
		t.Fatalf("serialized record mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestSerializeNumericString(t *testing.T) {
	p := NewPayload()
	p.Set("a", "123.4")
	p.Set("b", 123.4)

	got := Serialize(p)
	want := `{"a": 123.4, "b": 123.4}`
	if got != want {
		t.Fatalf("numeric-looking string must serialize unquoted:\n got %s\nwant %s", got, want)
	}
}

func TestSerializeQuotedString(t *testing.T) {
	p := NewPayload()
	p.Set("status", "  Running ")

	got := Serialize(p)
	want := `{"status": "Running"}`
	if got != want {
		t.Fatalf("expected trimmed quoted string:\n got %s\nwant %s", got, want)
	}
}

func TestSerializeEscapesEmbeddedQuotes(t *testing.T) {
	p := NewPayload()
	p.Set("note", `say "hi"`)

	got := Serialize(p)
	want := `{"note": "say \"hi\""}`
	if got != want {
		t.Fatalf("embedded quotes must be escaped:\n got %s\nwant %s", got, want)
	}
}

func TestSerializeEmptyPayload(t *testing.T) {
	if got := Serialize(NewPayload()); got != "{}" {
		t.Fatalf("expected {}, got %s", got)
	}
}

func TestSerializeDeterministic(t *testing.T) {
	readings := map[string]sungrow.Reading{
		"p1": {Value: 1523.4, Desc: "Active Power (W)"},
		"p2": {Value: "Running", Desc: "Status"},
		"p3": {Value: 49.98, Desc: "Grid Frequency (Hz)"},
		"p4": {Value: sungrow.Unavailable, Desc: "Battery SOC (%)"},
	}

	first := Serialize(BuildPayload(readings, "node1", 1700000000))
	for i := 0; i < 10; i++ {
		if again := Serialize(BuildPayload(readings, "node1", 1700000000)); again != first {
			t.Fatalf("output not deterministic:\nfirst %s\nagain %s", first, again)
		}
	}
}

func TestIsNumericString(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"123", true},
		{"123.4", true},
		{"123.", true},
		{".5", true},
		{"1.2.3", false},
		{"-1", false},
		{"", false},
		{".", false},
		{"Running", false},
		{"12a", false},
	}

	for _, c := range cases {
		if got := isNumericString(c.in); got != c.want {
			t.Fatalf("isNumericString(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
