// Package config provides 12-factor configuration management for editorhost.
//
// Configuration is loaded from environment variables with sensible defaults.
// A launch profile file (YAML or TOML) can describe the editor to embed and
// is applied on top of the environment.
//
// Configuration Sections:
//   - Editor: which executable to spawn, its arguments and env overlay
//   - Transport: read buffer, arena and framing limits
//   - Logging: Log level and output format
//   - Metrics: Prometheus exposition address
//
// Example Usage:
//
//	cfg, err := config.Load()
//	fmt.Printf("embedding %s %v\n", cfg.Editor.Name, cfg.Editor.Args)
//
// Environment Variables:
//   - EDITORHOST_EDITOR_PATH, EDITORHOST_EDITOR_NAME, EDITORHOST_EDITOR_ARGS,
//     EDITORHOST_EDITOR_ENV, EDITORHOST_PROFILE
//   - EDITORHOST_RING_CAPACITY, EDITORHOST_READ_CHUNK, EDITORHOST_ARENA_BLOCK,
//     EDITORHOST_MAX_FRAME, EDITORHOST_CODEC, EDITORHOST_SHUTDOWN_GRACE,
//     EDITORHOST_POISON
//   - LOG_LEVEL, LOG_DEV
//   - EDITORHOST_METRICS_ADDR
package config
