package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	// The API key placeholder is not validated; everything else must pass.
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Pipeline.GenerationModel != "gpt-4-turbo" {
		t.Errorf("unexpected generation model: %s", cfg.Pipeline.GenerationModel)
	}
	if cfg.Pipeline.ClassificationTemperature != 0 {
		t.Errorf("classification temperature must default to 0")
	}
	if cfg.Pipeline.HistorySize != 10 || cfg.Pipeline.SessionTimeoutMinutes != 15 {
		t.Errorf("unexpected windowing defaults: size=%d timeout=%d",
			cfg.Pipeline.HistorySize, cfg.Pipeline.SessionTimeoutMinutes)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SALESBOT_TEST_KEY", "sk-123")

	got := ExpandEnvVars(`{"apiKey":"${SALESBOT_TEST_KEY}"}`)
	if got != `{"apiKey":"sk-123"}` {
		t.Errorf("expected substitution, got %s", got)
	}

	got = ExpandEnvVars(`${SALESBOT_UNSET_VAR:-fallback}`)
	if got != "fallback" {
		t.Errorf("expected default value, got %q", got)
	}

	got = ExpandEnvVars(`${SALESBOT_UNSET_VAR}`)
	if got != "" {
		t.Errorf("unset var without default should resolve empty, got %q", got)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Defaults()
	cfg.Pipeline.HistorySize = 25
	cfg.API.Port = 9191
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Pipeline.HistorySize != 25 {
		t.Errorf("historySize not preserved: %d", loaded.Pipeline.HistorySize)
	}
	if loaded.API.Port != 9191 {
		t.Errorf("api port not preserved: %d", loaded.API.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_Rejects(t *testing.T) {
	cfg := Defaults()
	cfg.Pipeline.HistorySize = 0
	if err := Validate(cfg); err == nil {
		t.Error("zero history size should fail validation")
	}

	cfg = Defaults()
	cfg.Twilio.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Error("enabled twilio without credentials should fail validation")
	}

	cfg = Defaults()
	cfg.Pipeline.GenerationTemperature = 3.5
	if err := Validate(cfg); err == nil {
		t.Error("out-of-range temperature should fail validation")
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")
	if err := Save(path, Defaults()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
}
