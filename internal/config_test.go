package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/databrowser/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestEngineConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if !cfg.Engine.KeepInvisible {
		t.Error("keep_invisible should default to true")
	}
}

func TestEngineConfig_SweepInterval(t *testing.T) {
	cases := []struct {
		interval time.Duration
		ok       bool
	}{
		{0, true},
		{time.Minute, true},
		{500 * time.Millisecond, false},
		{-time.Second, false},
	}
	for _, tc := range cases {
		cfg := EngineConfig{SweepInterval: tc.interval}
		err := cfg.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("interval %v: err = %v, want ok=%v", tc.interval, err, tc.ok)
		}
	}
}

func TestEngineConfig_NegativeMaxViews(t *testing.T) {
	cfg := EngineConfig{MaxViews: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative max_views should fail validation")
	}
}

func TestFullConfig_LoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("DATABROWSER_TOKEN", "s3cret")
	content := `app:
  log_level: debug
  http:
    port: 9090
workspace:
  path: /srv/data
catalog:
  path: /srv/catalog.db
auth:
  mode: token
  token: ${DATABROWSER_TOKEN}
engine:
  strict_contracts: true
  sweep_interval: 30s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Workspace.Path != "/srv/data" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if !cfg.Engine.StrictContracts || cfg.Engine.SweepInterval != 30*time.Second {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if !cfg.Engine.KeepInvisible || cfg.Engine.MaxViews != 64 {
		t.Errorf("engine defaults lost: %+v", cfg.Engine)
	}
}
