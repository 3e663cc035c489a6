package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupWritesRenamedJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "settled", Env: "test", Output: &buf})
	logger.Info("claim paid", "kind", "claim")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for _, key := range []string{"timestamp", "severity", "message", "service", "env", "kind"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("missing key %q in %v", key, line)
		}
	}
	if line["severity"] != "INFO" || line["service"] != "settled" {
		t.Fatalf("unexpected fields %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != slog.LevelDebug || ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}

func TestMaskField(t *testing.T) {
	if attr := MaskField("token", "secret"); attr.Value.String() != RedactedValue {
		t.Fatalf("token should be masked")
	}
	if attr := MaskField("reason", "cooldown_active"); attr.Value.String() != "cooldown_active" {
		t.Fatalf("allowlisted key should pass through")
	}
}

func TestMaskDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://settle:hunter2@db:5432/journal":            "postgres://settle:xxxxx@db:5432/journal",
		"host=db user=settle password=hunter2 sslmode=disable": "host=db user=settle password=[REDACTED] sslmode=disable",
		"file:settled-journal.db":                              "file:settled-journal.db",
	}
	for in, want := range cases {
		if got := MaskDSN(in); got != want {
			t.Fatalf("MaskDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
