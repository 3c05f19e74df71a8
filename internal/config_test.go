package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoadConfigDefaults tests that a minimal config gets all defaults applied.
func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
line:
  channel_secret: secret
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes != 1<<20 {
		t.Fatalf("expected default max body, got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Line.Path != "/webhooks/line" {
		t.Fatalf("expected default path, got %s", cfg.Line.Path)
	}
	if len(cfg.Line.Events) != 1 || cfg.Line.Events[0] != "message" {
		t.Fatalf("expected default events [message], got %v", cfg.Line.Events)
	}
	if cfg.Line.BinaryProperty != "data" || cfg.Line.TopicPrefix != "line" {
		t.Fatalf("unexpected line defaults: %+v", cfg.Line)
	}
	if cfg.Line.ContentTimeoutMS != 30000 {
		t.Fatalf("expected default content timeout, got %d", cfg.Line.ContentTimeoutMS)
	}
	if cfg.Watermill.Driver != "gochannel" {
		t.Fatalf("expected default driver gochannel, got %s", cfg.Watermill.Driver)
	}
	if cfg.Watermill.RiverQueue.Queue != "default" || cfg.Watermill.RiverQueue.MaxAttempts != 25 {
		t.Fatalf("unexpected riverqueue defaults: %+v", cfg.Watermill.RiverQueue)
	}
	if cfg.Watermill.PublishRetry.Attempts != 3 || cfg.Watermill.PublishRetry.DelayMS != 500 {
		t.Fatalf("unexpected publish retry defaults: %+v", cfg.Watermill.PublishRetry)
	}
}

// TestLoadConfigExpandsEnv tests environment variable expansion in the YAML.
func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "from-env")
	path := writeConfig(t, `
line:
  channel_secret: ${LINE_CHANNEL_SECRET}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Line.ChannelSecret != "from-env" {
		t.Fatalf("expected env expansion, got %q", cfg.Line.ChannelSecret)
	}
}

// TestLoadConfigRules tests rule parsing, including the scalar emit form.
func TestLoadConfigRules(t *testing.T) {
	path := writeConfig(t, `
line:
  channel_secret: secret
rules:
  - when: 'eventType == "message"'
    emit: inbox
  - when: '  eventType == "follow"  '
    emit:
      - " crm.contacts "
      - audit
    drivers: [kafka, " sql "]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Rules))
	}
	if len(cfg.Rules[0].Emit) != 1 || cfg.Rules[0].Emit[0] != "inbox" {
		t.Fatalf("expected scalar emit parsed as single topic, got %v", cfg.Rules[0].Emit)
	}
	if cfg.Rules[1].When != `eventType == "follow"` {
		t.Fatalf("expected trimmed when, got %q", cfg.Rules[1].When)
	}
	if cfg.Rules[1].Emit[0] != "crm.contacts" || cfg.Rules[1].Emit[1] != "audit" {
		t.Fatalf("expected trimmed emit topics, got %v", cfg.Rules[1].Emit)
	}
	if len(cfg.Rules[1].Drivers) != 2 || cfg.Rules[1].Drivers[1] != "sql" {
		t.Fatalf("expected trimmed drivers, got %v", cfg.Rules[1].Drivers)
	}
}

// TestLoadConfigInvalidRule tests that a rule without when or emit is rejected.
func TestLoadConfigInvalidRule(t *testing.T) {
	path := writeConfig(t, `
line:
  channel_secret: secret
rules:
  - when: 'eventType == "message"'
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for rule without emit")
	}
}

// TestLoadConfigMissingFile tests the error for a missing config file.
func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
