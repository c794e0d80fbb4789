package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the node configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string `yaml:"data"`

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string `yaml:"http"`

	// FeedAddress is the QUIC pricing feed address. Empty disables the feed.
	FeedAddress string `yaml:"feed"`

	// KeyPath is the path to the Ed25519 private key file.
	KeyPath string `yaml:"key"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// RateLimit is signed requests per second per signer. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the per-signer bucket size.
	RateBurst int `yaml:"rate_burst"`

	// ReplayWindow is the accepted clock skew of signed requests.
	ReplayWindow time.Duration `yaml:"replay_window"`

	// FeedDedupTTL is how long identical feed reports are suppressed.
	FeedDedupTTL time.Duration `yaml:"feed_dedup_ttl"`

	// Faucet enables the dev bank faucet.
	Faucet bool `yaml:"faucet"`

	// PrivateKey is the node's Ed25519 key, loaded from KeyPath.
	PrivateKey ed25519.PrivateKey `yaml:"-"`
}

func defaultConfig() *Config {
	return &Config{
		DataPath:     "./data",
		HTTPAddress:  ":8080",
		FeedAddress:  ":7400",
		LogLevel:     "info",
		RateLimit:    20,
		RateBurst:    40,
		ReplayWindow: 2 * time.Minute,
		FeedDedupTTL: 5 * time.Minute,
	}
}

// parseConfig reads flags, then the optional YAML file, then re-applies the
// flags so that explicit flags win over the file.
func parseConfig(args []string) (*Config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("vaultd", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Data directory path")
	fs.StringVar(&cfg.HTTPAddress, "http", cfg.HTTPAddress, "HTTP API address")
	fs.StringVar(&cfg.FeedAddress, "feed", cfg.FeedAddress, "QUIC pricing feed address (empty disables)")
	fs.StringVar(&cfg.KeyPath, "key", cfg.KeyPath, "Ed25519 private key path (generates new if missing)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Signed requests per second per signer (0 disables)")
	fs.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "Per-signer burst")
	fs.DurationVar(&cfg.ReplayWindow, "replay-window", cfg.ReplayWindow, "Accepted skew of signed request timestamps")
	fs.DurationVar(&cfg.FeedDedupTTL, "feed-dedup-ttl", cfg.FeedDedupTTL, "Duplicate feed report window")
	fs.BoolVar(&cfg.Faucet, "faucet", cfg.Faucet, "Enable the dev bank faucet")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath == "" {
		return cfg, nil
	}

	if err := loadConfigFile(configPath, cfg); err != nil {
		return nil, err
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadConfigFile decodes a YAML file over cfg. Unknown keys are rejected.
func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config:\n%w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s:\n%w", path, err)
	}

	return nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
