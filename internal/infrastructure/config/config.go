package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Editor    EditorConfig
	Transport TransportConfig
	Logging   LogConfig
	Metrics   MetricsConfig
}

// EditorConfig describes the child editor process. The child must speak
// length-prefixed frames in the transport codec on stdout. The default
// nvim --embed speaks msgpack-rpc, so it has to be reached through an
// adapter executable named by Path or Name.
type EditorConfig struct {
	Path    string            `envconfig:"EDITORHOST_EDITOR_PATH"`
	Name    string            `envconfig:"EDITORHOST_EDITOR_NAME" default:"nvim"`
	Args    []string          `envconfig:"EDITORHOST_EDITOR_ARGS" default:"--embed"`
	Env     map[string]string `envconfig:"EDITORHOST_EDITOR_ENV"`
	Profile string            `envconfig:"EDITORHOST_PROFILE"`
}

// TransportConfig holds read loop and buffering configuration.
type TransportConfig struct {
	RingCapacity  int           `envconfig:"EDITORHOST_RING_CAPACITY" default:"65536"`
	ReadChunk     int           `envconfig:"EDITORHOST_READ_CHUNK" default:"16384"`
	ArenaBlock    int           `envconfig:"EDITORHOST_ARENA_BLOCK" default:"65536"`
	MaxFrame      int           `envconfig:"EDITORHOST_MAX_FRAME" default:"16777216"`
	Codec         string        `envconfig:"EDITORHOST_CODEC" default:"cbor"`
	ShutdownGrace time.Duration `envconfig:"EDITORHOST_SHUTDOWN_GRACE" default:"5s"`
	Poison        bool          `envconfig:"EDITORHOST_POISON" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// MetricsConfig holds metrics exposition configuration.
type MetricsConfig struct {
	Address string `envconfig:"EDITORHOST_METRICS_ADDR"`
}

// Load loads configuration from environment variables and applies the
// launch profile, if one is named.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Editor.Profile != "" {
		profile, err := LoadProfile(cfg.Editor.Profile)
		if err != nil {
			return nil, err
		}
		cfg.ApplyProfile(profile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			Name: "nvim",
			Args: []string{"--embed"},
		},
		Transport: TransportConfig{
			RingCapacity:  64 * 1024,
			ReadChunk:     16 * 1024,
			ArenaBlock:    64 * 1024,
			MaxFrame:      16 * 1024 * 1024,
			Codec:         "cbor",
			ShutdownGrace: 5 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Validate checks that the configuration can start a session.
func (c *Config) Validate() error {
	var errs []error
	if c.Editor.Path == "" && c.Editor.Name == "" {
		errs = append(errs, errors.New("editor path or name is required"))
	}
	if c.Transport.RingCapacity < 0 {
		errs = append(errs, fmt.Errorf("ring capacity must not be negative: %d", c.Transport.RingCapacity))
	}
	if c.Transport.ReadChunk <= 0 {
		errs = append(errs, fmt.Errorf("read chunk must be positive: %d", c.Transport.ReadChunk))
	}
	if c.Transport.ArenaBlock < 0 {
		errs = append(errs, fmt.Errorf("arena block must not be negative: %d", c.Transport.ArenaBlock))
	}
	if c.Transport.MaxFrame <= 0 {
		errs = append(errs, fmt.Errorf("max frame must be positive: %d", c.Transport.MaxFrame))
	}
	switch c.Transport.Codec {
	case "cbor", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown codec %q", c.Transport.Codec))
	}
	return errors.Join(errs...)
}
