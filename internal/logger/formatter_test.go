package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func writeEvent(t *testing.T, fields map[string]interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	w := NewFixedFormatWriter(&buf)

	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	n, err := w.Write(data)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Write returned %d, want %d", n, len(data))
	}
	return buf.String()
}

func TestFixedFormatWriter_BasicMessage(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{
		"level":     "info",
		"time":      "2026-10-15T09:12:03+02:00",
		"component": "installer",
		"message":   "Descriptor written",
		"label":     "com.thumbtack.autoresponder",
	})

	if !strings.HasPrefix(line, "2026-10-15 09:12:03.000") {
		t.Errorf("timestamp mismatch: got %q", line)
	}
	if !strings.Contains(line, "[INF]") {
		t.Errorf("level not found: %q", line)
	}
	if !strings.Contains(line, "[installer ]") {
		t.Errorf("component not padded: %q", line)
	}
	if !strings.Contains(line, "Descriptor written label=com.thumbtack.autoresponder\n") {
		t.Errorf("message or extra field missing: %q", line)
	}
}

func TestFixedFormatWriter_DropsCallerQuotesErrors(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{
		"level":     "warn",
		"time":      "2026-10-15T09:12:03.530Z",
		"component": "supervisor",
		"message":   "Unregister failed, continuing",
		"caller":    "installer/installer.go:88",
		"error":     "exit status 5",
	})

	if !strings.Contains(line, "[WRN]") {
		t.Errorf("warn level not found: %q", line)
	}
	if strings.Contains(line, "caller=") {
		t.Errorf("caller should be excluded: %q", line)
	}
	if !strings.Contains(line, `error="exit status 5"`) {
		t.Errorf("error field not quoted: %q", line)
	}
}

func TestFixedFormatWriter_LongComponentTruncated(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{
		"level":     "info",
		"time":      "2026-10-15T09:12:03Z",
		"component": "very-long-component",
		"message":   "x",
	})
	if !strings.Contains(line, "[very-long-]") {
		t.Errorf("component not truncated: %q", line)
	}
}

func TestFixedFormatWriter_NoExtraFields(t *testing.T) {
	line := writeEvent(t, map[string]interface{}{
		"level":   "info",
		"time":    "2026-10-15T09:12:03Z",
		"message": "Removed",
	})
	if !strings.HasSuffix(line, "] Removed\n") {
		t.Errorf("unexpected trailing content: %q", line)
	}
}

func TestFixedFormatWriter_InvalidJSONPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	w := NewFixedFormatWriter(&buf)

	input := []byte("plain text\n")
	n, err := w.Write(input)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(input) {
		t.Errorf("Write returned %d, want %d", n, len(input))
	}
	if buf.String() != "plain text\n" {
		t.Errorf("invalid JSON not passed through: %q", buf.String())
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"offset", "2026-10-15T09:12:03+09:00", "2026-10-15 09:12:03.000"},
		{"utc", "2026-10-15T09:12:03Z", "2026-10-15 09:12:03.000"},
		{"millis", "2026-10-15T09:12:03.123-05:00", "2026-10-15 09:12:03.123"},
		{"nanos truncated", "2026-10-15T09:12:03.123456789Z", "2026-10-15 09:12:03.123"},
		{"short fraction", "2026-10-15T09:12:03.1Z", "2026-10-15 09:12:03.100"},
		{"empty", "", "                       "},
		{"garbage", "yesterday", "                       "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTimestamp(tt.input)
			if got != tt.want {
				t.Errorf("formatTimestamp(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatExtra_Sorted(t *testing.T) {
	got := formatExtra(map[string]interface{}{
		"z": "last",
		"a": "first",
		"m": 3.0,
	})
	if got != "a=first m=3 z=last" {
		t.Errorf("formatExtra not sorted: %q", got)
	}
}

func TestFormatExtra_Empty(t *testing.T) {
	if got := formatExtra(map[string]interface{}{}); got != "" {
		t.Errorf("empty fields should return empty string: %q", got)
	}
}
