// Package config loads the shell's optional configuration file, which
// overrides the embedded defaults for the prompt, background job
// queue, and history file location.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigYAML []byte

// Config holds everything read from the configuration file.
type Config struct {
	Prompt          string `json:"prompt" validate:"required"`
	QueueCaptureDir string `json:"queue_capture_dir" validate:"required"`
	MaxQueueDepth   int    `json:"max_queue_depth" validate:"gte=0"`
	HistoryFile     string `json:"history_file"`
}

// Default returns the configuration baked into the binary.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultConfigYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded default is invalid: %v", err))
	}
	return cfg
}

// Load reads and validates the configuration file at path on fs. An
// empty path, or a path that does not exist, is not an error: Load
// falls back to Default.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the struct tags on Config.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// ResolveQueueCaptureDir returns the directory background job output
// files are written to, falling back to the OS temp directory.
func (c *Config) ResolveQueueCaptureDir() string {
	if c.QueueCaptureDir == "" {
		return os.TempDir()
	}
	return filepath.Clean(c.QueueCaptureDir)
}
