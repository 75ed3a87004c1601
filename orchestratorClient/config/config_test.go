package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name        string
		config      *Config
		expectError bool
		errorMsg    string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "Valid config with all fields",
			config: &Config{
				LogLevel:                 2,
				LogFormat:                "json",
				RPCURLs:                  []string{"ws://a:9944", "wss://b:443"},
				Transport:                TransportGeth,
				RequestQueueSize:         16,
				DialTimeoutSeconds:       3,
				ReconnectCycles:          4,
				ReconnectBackoffMs:       250,
				KeepaliveIntervalSeconds: 15,
				KeepaliveMethod:          "chain_getHead",
				QueryServerPort:          9000,
				WSPingIntervalSeconds:    -1,
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, TransportGeth, cfg.Transport)
				assert.Equal(t, time.Duration(0), cfg.WSPingInterval())
				assert.Equal(t, 16, cfg.RequestQueueSize)
				assert.Equal(t, 250*time.Millisecond, cfg.ReconnectBackoff())
				assert.Equal(t, 15*time.Second, cfg.KeepaliveInterval())
			},
		},
		{
			name: "Config with defaults applied",
			config: &Config{
				LogLevel:  1,
				LogFormat: "console",
				RPCURLs:   []string{"ws://a:9944"},
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, TransportWebsocket, cfg.Transport)
				assert.Equal(t, 100, cfg.RequestQueueSize)
				assert.Equal(t, 10*time.Second, cfg.DialTimeout())
				assert.Equal(t, 1, cfg.ReconnectCycles)
				assert.Equal(t, time.Duration(0), cfg.ReconnectBackoff())
				assert.Equal(t, time.Duration(0), cfg.KeepaliveInterval())
				assert.Equal(t, "system_health", cfg.KeepaliveMethod)
				assert.Equal(t, 8080, cfg.QueryServerPort)
				assert.Equal(t, 15*time.Second, cfg.WSPingInterval())
			},
		},
		{
			name:        "Invalid log level (negative)",
			config:      &Config{LogLevel: -1, LogFormat: "json", RPCURLs: []string{"ws://a"}},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name:        "Invalid log format",
			config:      &Config{LogLevel: 2, LogFormat: "xml", RPCURLs: []string{"ws://a"}},
			expectError: true,
			errorMsg:    "log format must be 'json' or 'console'",
		},
		{
			name:        "Empty rpc urls",
			config:      &Config{LogLevel: 1, LogFormat: "json"},
			expectError: true,
			errorMsg:    "at least one rpc url is required",
		},
		{
			name:        "Unsupported url scheme",
			config:      &Config{LogLevel: 1, LogFormat: "json", RPCURLs: []string{"ftp://a"}},
			expectError: true,
			errorMsg:    "unsupported rpc url scheme",
		},
		{
			name:        "Unknown transport",
			config:      &Config{LogLevel: 1, LogFormat: "json", RPCURLs: []string{"ws://a"}, Transport: "grpc"},
			expectError: true,
			errorMsg:    "transport must be 'ws' or 'geth'",
		},
		{
			name:        "Negative reconnect cycles",
			config:      &Config{LogLevel: 1, LogFormat: "json", RPCURLs: []string{"ws://a"}, ReconnectCycles: -1},
			expectError: true,
			errorMsg:    "reconnect cycles and backoff must not be negative",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateConfig(tc.config)
			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorMsg)
				return
			}
			require.NoError(t, err)
			if tc.validate != nil {
				tc.validate(t, tc.config)
			}
		})
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"ws://127.0.0.1:9944"}, cfg.RPCURLs)
	assert.Equal(t, TransportWebsocket, cfg.Transport)
	assert.Equal(t, 100, cfg.RequestQueueSize)
	assert.Equal(t, 1, cfg.ReconnectCycles)
	require.NoError(t, validateConfig(cfg))
}

func TestSaveAndLoad(t *testing.T) {
	home := t.TempDir()

	cfg := &Config{
		LogLevel:  0,
		LogFormat: "json",
		RPCURLs:   []string{"ws://one:9944", "ws://two:9944"},
	}
	require.NoError(t, Save(cfg, home))

	info, err := os.Stat(filepath.Join(home, configSubdir, configFileName))
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	loaded, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, cfg.RPCURLs, loaded.RPCURLs)
	assert.Equal(t, 100, loaded.RequestQueueSize)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("invalid json", func(t *testing.T) {
		home := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(home, configSubdir), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(home, configSubdir, configFileName), []byte("{"), 0o600))

		_, err := Load(home)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal config")
	})

	t.Run("invalid values", func(t *testing.T) {
		home := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(home, configSubdir), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(home, configSubdir, configFileName), []byte(`{"log_format":"json"}`), 0o600))

		_, err := Load(home)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}
