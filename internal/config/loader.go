package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the directory name under ~/.config
	ConfigDir = "reactor"
)

// ConfigFiles are tried in order; the first one present wins.
var ConfigFiles = []string{"config.yaml", "config.yml", "config.json"}

// FileSystem abstracts file operations for testability
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
}

// ConfigFileReader implements FileSystem using the real OS for config loading
type ConfigFileReader struct{}

func (ConfigFileReader) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (ConfigFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader handles configuration loading with injected dependencies
type Loader struct {
	fs FileSystem

	// environ replaces the process environment when non-nil
	environ map[string]string
}

// NewLoader creates a production Loader using the real filesystem and environment
func NewLoader() *Loader {
	return &Loader{fs: ConfigFileReader{}}
}

// NewLoaderWithFS creates a Loader with a custom filesystem and environment (for testing)
func NewLoaderWithFS(fs FileSystem, environ map[string]string) *Loader {
	if environ == nil {
		environ = map[string]string{}
	}
	return &Loader{fs: fs, environ: environ}
}

// Load reads configuration from ~/.config/reactor/config.{yaml,yml,json},
// merges it over the defaults and applies REACTOR_* environment overrides.
// Returns default config if no dotfile exists.
// Returns error only for parse errors, permission issues, or validation failures.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if homeDir, err := l.fs.UserHomeDir(); err == nil {
		dir := filepath.Join(homeDir, ".config", ConfigDir)
		for _, name := range ConfigFiles {
			found, err := l.merge(cfg, filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			if found {
				break
			}
		}
	}

	return l.finish(cfg)
}

// LoadFile reads configuration from an explicit path. The file must exist.
func (l *Loader) LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	found, err := l.merge(cfg, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
	}
	return l.finish(cfg)
}

// merge decodes the file at path over cfg. Present keys overwrite defaults
// (even if zero), while missing keys leave the defaults untouched.
func (l *Loader) merge(cfg *Config, path string) (bool, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return false, fmt.Errorf("parse config %s: %w", path, err)
	}
	return true, nil
}

func (l *Loader) finish(cfg *Config) (*Config, error) {
	opts := env.Options{}
	if l.environ != nil {
		opts.Environment = l.environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is a convenience function using the default loader
func Load() (*Config, error) {
	return NewLoader().Load()
}
