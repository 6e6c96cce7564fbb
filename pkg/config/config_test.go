package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formflow.yaml")
	doc := `
api:
  base_url: https://governance.example.com/api
  timeout: 5s
  headers:
    X-Tenant: acme
autosave:
  delay: 2s
  flush_on_close: false
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FORMFLOW_API_TOKEN", "secret")
	t.Setenv("FORMFLOW_AUTOSAVE_DELAY", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := &Config{
		API: APIConfig{
			BaseURL: "https://governance.example.com/api",
			Token:   "secret",
			Timeout: 5 * time.Second,
			Headers: map[string]string{"X-Tenant": "acme"},
		},
		Autosave: AutosaveConfig{Delay: 250 * time.Millisecond},
		Logging:  LoggingConfig{Level: "debug", Format: "json"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("FORMFLOW_API_TIMEOUT", "soon")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "FORMFLOW_API_TIMEOUT") {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestValidateReportsFields(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "not a url"
	cfg.Logging.Level = "loud"
	cfg.Metrics.Addr = "nope"

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	for _, want := range []string{"Config.API.BaseURL", "Config.Logging.Level", "Config.Metrics.Addr"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Metrics.Addr = "127.0.0.1:9090"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}
