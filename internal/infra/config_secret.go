package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SecretConfig matches the structure of secrets/<env>.yaml, which holds the
// node API key outside the main config so it never lands in version control.
type SecretConfig struct {
	Node struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"node"`
}

// LoadSecretConfig loads the API key from a separate yaml file.
// It returns an error if the file is missing (fail fast).
func LoadSecretConfig(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret config: %w", err)
	}

	var cfg SecretConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse secret config: %w", err)
	}

	return &cfg, nil
}

// MergeSecrets copies secret values into the main config unless the main
// config (or an environment override) already provided them.
func MergeSecrets(cfg *Config, sec *SecretConfig) {
	if cfg.Node.APIKey == "" && sec != nil {
		cfg.Node.APIKey = sec.Node.APIKey
	}
}
