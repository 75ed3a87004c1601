package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

const (
	configSubdir   = "config"
	configFileName = "orchestrator_config.json"
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if len(cfg.RPCURLs) == 0 {
		return fmt.Errorf("at least one rpc url is required")
	}
	for _, raw := range cfg.RPCURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid rpc url %q: %w", raw, err)
		}
		switch u.Scheme {
		case "ws", "wss", "http", "https":
		default:
			return fmt.Errorf("unsupported rpc url scheme %q in %q", u.Scheme, raw)
		}
	}

	if cfg.Transport == "" {
		cfg.Transport = TransportWebsocket
	}
	if cfg.Transport != TransportWebsocket && cfg.Transport != TransportGeth {
		return fmt.Errorf("transport must be 'ws' or 'geth'")
	}

	// Set defaults for worker config
	if cfg.RequestQueueSize == 0 {
		cfg.RequestQueueSize = 100
	}
	if cfg.RequestQueueSize < 0 {
		return fmt.Errorf("request queue size must be positive")
	}
	if cfg.DialTimeoutSeconds == 0 {
		cfg.DialTimeoutSeconds = 10
	}

	if cfg.WSPingIntervalSeconds == 0 {
		cfg.WSPingIntervalSeconds = 15
	}

	// Set defaults for reconnection policy
	if cfg.ReconnectCycles == 0 {
		cfg.ReconnectCycles = 1
	}
	if cfg.ReconnectCycles < 0 || cfg.ReconnectBackoffMs < 0 {
		return fmt.Errorf("reconnect cycles and backoff must not be negative")
	}

	// Set defaults for keepalive
	if cfg.KeepaliveIntervalSeconds < 0 {
		return fmt.Errorf("keepalive interval must not be negative")
	}
	if cfg.KeepaliveMethod == "" {
		cfg.KeepaliveMethod = "system_health"
	}

	// Set defaults for query server
	if cfg.QueryServerPort == 0 {
		cfg.QueryServerPort = 8080
	}

	return nil
}

// Validate checks cfg and fills in defaults for unset fields.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

// Save writes the given config to <basePath>/config/orchestrator_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, configFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads, validates and returns the config from <basePath>/config/orchestrator_config.json.
func Load(basePath string) (Config, error) {
	configFile := filepath.Join(basePath, configSubdir, configFileName)
	data, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}
