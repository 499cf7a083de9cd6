package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the tool's settings: where state lives, where exports
// land by default, and named source connections so commands can say
// --source warehouse instead of pasting a full URL.
type Config struct {
	DataDir   string       `yaml:"dataDir"`
	OutputDir string       `yaml:"outputDir"`
	Sources   []Connection `yaml:"sources"`
}

// Connection is a named source location.
type Connection struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
}

// Default returns a Config rooted under the user's home directory.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:   filepath.Join(home, ".fcexport"),
		OutputDir: filepath.Join(home, "exports"),
	}
}

// Load reads a YAML config file, filling in defaults for absent keys.
// A missing file is not an error: the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	defaults := Default()
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}
	return cfg, nil
}

// Resolve maps a named connection to its location. Anything that is
// not a configured name passes through unchanged.
func (c Config) Resolve(nameOrLocation string) string {
	for _, conn := range c.Sources {
		if conn.Name == nameOrLocation {
			return conn.Location
		}
	}
	return nameOrLocation
}

// DBPath is the SQLite file holding saved jobs and run logs.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "fcexport.db")
}
