// Package config loads the TOML configuration for a savesync profile.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Vault   VaultConfig   `toml:"vault"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

type VaultConfig struct {
	DataDir        string `toml:"data_dir"`
	Password       string `toml:"password"`
	Encrypt        bool   `toml:"encrypt"`
	DeviceName     string `toml:"device_name"`
	IdentityFile   string `toml:"identity_file"`
	ValidateDevice bool   `toml:"validate_device"`
	Workers        int    `toml:"workers"`
}

type StorageConfig struct {
	Backend    string `toml:"backend"`     // "bolt" or "dir"
	LocalPath  string `toml:"local_path"`  // defaults under data_dir
	RemotePath string `toml:"remote_path"` // empty disables the remote replica
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Vault: VaultConfig{
			DataDir:      "~/.savesync",
			IdentityFile: "device.id",
			Workers:      4,
		},
		Storage: StorageConfig{
			Backend: "bolt",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config file over the defaults. If path is empty, the
// default location is tried and missing files just yield the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = expandHome("~/.savesync/config.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints before the config is used.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "bolt", "dir":
	default:
		return fmt.Errorf("storage.backend must be \"bolt\" or \"dir\", got %q", c.Storage.Backend)
	}
	if c.Vault.Encrypt && c.Vault.Password == "" {
		return fmt.Errorf("vault.password is required when vault.encrypt is set")
	}
	if c.Vault.Workers < 0 {
		return fmt.Errorf("vault.workers must not be negative, got %d", c.Vault.Workers)
	}
	if c.Vault.IdentityFile == "" {
		return fmt.Errorf("vault.identity_file must not be empty")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

// ExpandHome resolves a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
