package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuildOverrides(t *testing.T) {
	o, err := buildOverrides("debug", "text", []string{"1111", "/tmp/db.save"})
	if err != nil {
		t.Fatalf("buildOverrides: %v", err)
	}
	want := map[string]any{
		"log.level":    "debug",
		"log.format":   "text",
		"server.addr":  ":1111",
		"storage.path": "/tmp/db.save",
	}
	for k, v := range want {
		if o[k] != v {
			t.Errorf("%s = %v, want %v", k, o[k], v)
		}
	}

	if o, _ := buildOverrides("", "", nil); len(o) != 0 {
		t.Errorf("no flags should give no overrides, got %v", o)
	}
	for _, args := range [][]string{{"http"}, {"70000"}, {"1", "a", "b"}} {
		if _, err := buildOverrides("", "", args); err == nil {
			t.Errorf("buildOverrides(%q) should fail", args)
		}
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "minidb.yaml")
	yaml := "server:\n  addr: 127.0.0.1:2222\n  grace_period: 9s\nlog:\n  level: warn\n"
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MINIDB_SERVER__GRACE_PERIOD", "3s")
	t.Setenv("MINIDB_SERVER__IDLE_TIMEOUT", "1m")

	overrides, err := buildOverrides("error", "", []string{"3333", filepath.Join(dir, "db.save")})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(file, overrides)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Server.Addr != ":3333" {
		t.Errorf("addr = %q, want positional port", cfg.Server.Addr)
	}
	if cfg.Server.GracePeriod != 9*time.Second {
		t.Errorf("grace_period = %v, want file value 9s", cfg.Server.GracePeriod)
	}
	if cfg.Server.IdleTimeout != time.Minute {
		t.Errorf("idle_timeout = %v, want env value 1m", cfg.Server.IdleTimeout)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log.level = %q, want flag value", cfg.Log.Level)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("read_timeout = %v, want default", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	overrides := map[string]any{"storage.format": "xml"}
	if _, err := loadConfig("", overrides); err == nil {
		t.Error("invalid format should fail verification")
	}
}
