package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/3cpo-dev/sweep/internal/dispatch"
	"github.com/3cpo-dev/sweep/internal/inventory"
	"github.com/3cpo-dev/sweep/internal/transport"
	"github.com/3cpo-dev/sweep/internal/transport/sshexec"
)

// Config is the sweep configuration file.
type Config struct {
	Inventory inventory.Config `yaml:"inventory"`
	Transport struct {
		Backend string                     `yaml:"backend"`
		Func    transport.SubprocessConfig `yaml:"func"`
		SSH     sshexec.Config             `yaml:"ssh"`
	} `yaml:"transport"`
	Defaults struct {
		Forks          int    `yaml:"forks"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Selector       string `yaml:"selector"`
	} `yaml:"defaults"`
	History struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"history"`
	Telemetry struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"telemetry"`
}

// HistoryEnabled reports whether runs are journaled; on unless disabled.
func (c Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	var cfg Config
	cfg.Transport.Backend = "func"
	cfg.Transport.Func.Command = transport.DefaultTransmitCommand
	cfg.Defaults.Forks = dispatch.DefaultForks
	cfg.Defaults.TimeoutSeconds = dispatch.DefaultTimeout
	cfg.Defaults.Selector = "status:allocated size:3000"
	cfg.History.Path = filepath.Join(stateDir(), "history.db")
	return cfg
}

func configDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "sweep")
}

func stateDir() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "sweep")
}

// LoadConfig reads YAML configuration from a path over the defaults. If
// path is empty, it resolves $XDG_CONFIG_HOME/sweep/config.yaml or
// ~/.config/sweep/config.yaml, and a missing file there is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = filepath.Join(configDir(), "config.yaml")
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("open config: %w", err)
	}

	// Merge secrets from secrets.env if present to avoid storing credentials in YAML
	secrets, _ := LoadSecretsEnv("")
	for _, k := range []string{"SWEEP_INVENTORY_USER", "SWEEP_INVENTORY_PASSWORD"} {
		if v := os.Getenv(k); v != "" {
			secrets[k] = v
		}
	}
	if v := secrets["SWEEP_INVENTORY_USER"]; v != "" {
		cfg.Inventory.Username = v
	}
	if v := secrets["SWEEP_INVENTORY_PASSWORD"]; v != "" {
		cfg.Inventory.Password = v
	}
	return cfg, nil
}
