package main

import (
	"path/filepath"
	"strings"
	"testing"

	"k21/internal/config"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLIEnv(t, "")

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists || cfg.Capture.FPS != 1 {
		t.Fatalf("unexpected sample config: exists=%v fps=%v", exists, cfg.Capture.FPS)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateWithoutFile(t *testing.T) {
	env := setupCLIEnv(t, "")
	missing := filepath.Join(env.baseDir, "missing.toml")
	out, _, err := runCLI(t, nil, "--config", missing, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "defaults were used")
}

func TestConfigShowRedactsAPIKey(t *testing.T) {
	env := setupCLIEnv(t, "\n[vision]\napi_key = \"sk-secret\"\n")
	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-secret") {
		t.Fatalf("api key leaked:\n%s", out)
	}
	requireContains(t, out, redacted)
	requireContains(t, out, "[pipeline]")
}
