package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// SDKUserAgent identifies this client on HTTP and WebSocket requests.
var SDKUserAgent = fmt.Sprintf("InterverseSDK-Go/1.0 (%s; %s)", runtime.GOOS, runtime.GOARCH)

// Config holds the full SDK configuration. Loaded once at bootstrap;
// secrets can be overridden via environment variables afterwards.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Node struct {
		URL    string `yaml:"url"`
		GameID string `yaml:"game_id"`
		APIKey string `yaml:"api_key"`
	} `yaml:"node"`

	Stream struct {
		ReadTimeoutSec  int `yaml:"read_timeout_sec"`
		PingIntervalSec int `yaml:"ping_interval_sec"`
		InboxSize       int `yaml:"inbox_size"`
	} `yaml:"stream"`

	Request struct {
		TimeoutSec int     `yaml:"timeout_sec"`
		MaxBurst   int     `yaml:"max_burst"`
		PerSecond  float64 `yaml:"per_second"`
	} `yaml:"request"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"` // empty: resolved under the workspace dir
	} `yaml:"storage"`

	Watcher struct {
		Enabled         bool     `yaml:"enabled"`
		PollIntervalSec int      `yaml:"poll_interval_sec"`
		Addresses       []string `yaml:"addresses"`
	} `yaml:"watcher"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides for secrets, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	// The API key may live in a secrets file next to the main config.
	if cfg.Node.APIKey == "" {
		secretPath := filepath.Join(filepath.Dir(path), "secrets.yaml")
		if _, statErr := os.Stat(secretPath); statErr == nil {
			sec, err := LoadSecretConfig(secretPath)
			if err != nil {
				return nil, err
			}
			MergeSecrets(&cfg, sec)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv lets deployments keep the API key out of the yaml file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("INTERVERSE_NODE_URL"); v != "" {
		cfg.Node.URL = v
	}
	if v := os.Getenv("INTERVERSE_GAME_ID"); v != "" {
		cfg.Node.GameID = v
	}
	if v := os.Getenv("INTERVERSE_API_KEY"); v != "" {
		cfg.Node.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Stream.ReadTimeoutSec <= 0 {
		cfg.Stream.ReadTimeoutSec = 60
	}
	if cfg.Stream.PingIntervalSec <= 0 {
		cfg.Stream.PingIntervalSec = 30
	}
	if cfg.Stream.InboxSize <= 0 {
		cfg.Stream.InboxSize = 1024
	}
	if cfg.Request.TimeoutSec <= 0 {
		cfg.Request.TimeoutSec = 30
	}
	if cfg.Request.MaxBurst <= 0 {
		cfg.Request.MaxBurst = DefaultMaxBurst
	}
	if cfg.Request.PerSecond <= 0 {
		cfg.Request.PerSecond = DefaultPerSecond
	}
	if cfg.Watcher.PollIntervalSec <= 0 {
		cfg.Watcher.PollIntervalSec = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate reports configuration errors before any network activity.
func (c *Config) Validate() error {
	if c.Node.URL == "" {
		return fmt.Errorf("node.url is required")
	}
	if c.Node.GameID == "" {
		return fmt.Errorf("node.game_id is required")
	}
	if c.Node.APIKey == "" {
		return fmt.Errorf("node.api_key is required (yaml, secrets file, or INTERVERSE_API_KEY)")
	}
	return nil
}
