package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HTTPAddress != ":8080" || cfg.FeedAddress != ":7400" || cfg.ReplayWindow != 2*time.Minute {
		t.Errorf("defaults = %+v", cfg)
	}

	if cfg.Faucet {
		t.Error("faucet enabled by default")
	}
}

func TestParseConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultd.yaml")
	body := "data: /var/lib/vault\nhttp: \":9000\"\nfeed: \"\"\nrate_limit: 5\nreplay_window: 30s\nfaucet: true\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseConfig([]string{"-config", path, "-http", ":9100"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DataPath != "/var/lib/vault" {
		t.Errorf("data = %q", cfg.DataPath)
	}

	if cfg.HTTPAddress != ":9100" {
		t.Errorf("flag did not override file: http = %q", cfg.HTTPAddress)
	}

	if cfg.FeedAddress != "" || cfg.RateLimit != 5 || cfg.ReplayWindow != 30*time.Second || !cfg.Faucet {
		t.Errorf("file values not applied: %+v", cfg)
	}

	if cfg.RateBurst != 40 {
		t.Errorf("unset key lost its default: burst = %d", cfg.RateBurst)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("htp: \":1\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := parseConfig([]string{"-config", unknown}); err == nil {
		t.Error("unknown key accepted")
	}

	if _, err := parseConfig([]string{"-config", filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Error("missing file accepted")
	}

	if _, err := parseConfig([]string{"-rate-burst", "many"}); err == nil {
		t.Error("bad flag value accepted")
	}
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	first, err := loadOrGenerateKey(path)
	if err != nil {
		t.Fatal(err)
	}

	second, err := loadOrGenerateKey(path)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("reloaded key differs from generated key")
	}

	if err := os.WriteFile(path, []byte("short"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := loadOrGenerateKey(path); err == nil {
		t.Error("short key accepted")
	}
}
