package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, Options{Level: "info", Format: "json"}), "engine")
	log.Info().Str("user", "u1").Msg("action applied")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "engine" {
		t.Errorf("expected component engine, got %v", line["component"])
	}
	if line["user"] != "u1" {
		t.Errorf("expected user u1, got %v", line["user"])
	}
	if line["level"] != "info" {
		t.Errorf("expected level info, got %v", line["level"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "warn", Format: "json"})
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info event should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn event should be written")
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "loud"})
	log.Debug().Msg("debug")
	log.Info().Msg("info")

	out := buf.String()
	if strings.Contains(out, `"debug"`) {
		t.Error("debug should be filtered by the info fallback")
	}
	if !strings.Contains(out, `"info"`) {
		t.Error("info should be written")
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "info", Format: "console"})
	log.Info().Msg("pretty")

	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("console output should not be JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "pretty") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}
