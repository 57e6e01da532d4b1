package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the optional remote store connection. An empty URL
// or Enabled=false means the app runs local-only.
type ServerConfig struct {
	URL      string `yaml:"url"`
	Enabled  bool   `yaml:"enabled"`
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
}

// Client is the on-device configuration.
type Client struct {
	StorePath string       `yaml:"store_path"`
	Server    ServerConfig `yaml:"server"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "scribble.yml"
	}
	return filepath.Join(home, ".config", "scribble", "config.yml")
}

func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "scribble.db"
	}
	return filepath.Join(home, ".local", "share", "scribble", "notes.db")
}

// LoadClient reads the config file, applying defaults. A missing file is
// not an error; it yields the defaults.
func LoadClient(path string) (*Client, error) {
	cfg := &Client{
		StorePath: DefaultStorePath(),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath()
	}
	if cfg.StorePath[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.StorePath = filepath.Join(home, cfg.StorePath[1:])
	}

	return cfg, nil
}

// Save writes the config back, creating the directory when needed.
func (c *Client) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
