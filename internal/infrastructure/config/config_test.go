package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Editor config
	assert.Equal(t, "nvim", cfg.Editor.Name)
	assert.Equal(t, []string{"--embed"}, cfg.Editor.Args)
	assert.Empty(t, cfg.Editor.Path)

	// Transport config
	assert.Equal(t, 65536, cfg.Transport.RingCapacity)
	assert.Equal(t, 16384, cfg.Transport.ReadChunk)
	assert.Equal(t, 65536, cfg.Transport.ArenaBlock)
	assert.Equal(t, 16*1024*1024, cfg.Transport.MaxFrame)
	assert.Equal(t, "cbor", cfg.Transport.Codec)
	assert.Equal(t, 5*time.Second, cfg.Transport.ShutdownGrace)
	assert.False(t, cfg.Transport.Poison)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	for _, key := range []string{"EDITORHOST_EDITOR_NAME", "EDITORHOST_PROFILE", "LOG_LEVEL", "LOG_DEV"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Transport, cfg.Transport)
	assert.Equal(t, Default().Editor.Args, cfg.Editor.Args)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"EDITORHOST_EDITOR_PATH":    "/opt/nvim/bin/nvim",
		"EDITORHOST_EDITOR_ARGS":    "--embed,--clean",
		"EDITORHOST_EDITOR_ENV":     "NVIM_APPNAME:editorhost,TERM:dumb",
		"EDITORHOST_RING_CAPACITY":  "4096",
		"EDITORHOST_READ_CHUNK":     "1024",
		"EDITORHOST_CODEC":          "json",
		"EDITORHOST_SHUTDOWN_GRACE": "250ms",
		"EDITORHOST_POISON":         "true",
		"EDITORHOST_METRICS_ADDR":   "127.0.0.1:9102",
		"LOG_LEVEL":                 "debug",
		"LOG_DEV":                   "true",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/nvim/bin/nvim", cfg.Editor.Path)
	assert.Equal(t, []string{"--embed", "--clean"}, cfg.Editor.Args)
	assert.Equal(t, map[string]string{"NVIM_APPNAME": "editorhost", "TERM": "dumb"}, cfg.Editor.Env)
	assert.Equal(t, 4096, cfg.Transport.RingCapacity)
	assert.Equal(t, 1024, cfg.Transport.ReadChunk)
	assert.Equal(t, "json", cfg.Transport.Codec)
	assert.Equal(t, 250*time.Millisecond, cfg.Transport.ShutdownGrace)
	assert.True(t, cfg.Transport.Poison)
	assert.Equal(t, "127.0.0.1:9102", cfg.Metrics.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("EDITORHOST_CODEC", "msgpack")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "msgpack")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"path without name", func(c *Config) { c.Editor.Name = ""; c.Editor.Path = "/bin/vi" }, ""},
		{"no editor", func(c *Config) { c.Editor.Name = "" }, "editor path or name"},
		{"zero read chunk", func(c *Config) { c.Transport.ReadChunk = 0 }, "read chunk"},
		{"negative ring", func(c *Config) { c.Transport.RingCapacity = -1 }, "ring capacity"},
		{"negative arena", func(c *Config) { c.Transport.ArenaBlock = -1 }, "arena block"},
		{"zero max frame", func(c *Config) { c.Transport.MaxFrame = 0 }, "max frame"},
		{"unknown codec", func(c *Config) { c.Transport.Codec = "xml" }, "unknown codec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseProfile(t *testing.T) {
	yamlProfile := []byte(`
name: vim
args: ["--embed", "-u", "NONE"]
env:
  NVIM_APPNAME: editorhost
`)
	tomlProfile := []byte(`
name = "vim"
args = ["--embed", "-u", "NONE"]

[env]
NVIM_APPNAME = "editorhost"
`)

	tests := []struct {
		name string
		data []byte
		ext  string
	}{
		{"yaml", yamlProfile, ".yaml"},
		{"yml", yamlProfile, ".YML"},
		{"toml", tomlProfile, ".toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProfile(tt.data, tt.ext)
			require.NoError(t, err)
			assert.Equal(t, "vim", p.Name)
			assert.Empty(t, p.Path)
			assert.Equal(t, []string{"--embed", "-u", "NONE"}, p.Args)
			assert.Equal(t, map[string]string{"NVIM_APPNAME": "editorhost"}, p.Env)
		})
	}

	_, err := ParseProfile([]byte("{}"), ".json")
	assert.Error(t, err)
}

func TestApplyProfile(t *testing.T) {
	cfg := Default()
	cfg.Editor.Env = map[string]string{"TERM": "dumb", "NVIM_APPNAME": "old"}

	cfg.ApplyProfile(&Profile{
		Path: "/usr/local/bin/nvim",
		Env:  map[string]string{"NVIM_APPNAME": "editorhost"},
	})

	assert.Equal(t, "/usr/local/bin/nvim", cfg.Editor.Path)
	assert.Equal(t, "nvim", cfg.Editor.Name, "empty fields are left alone")
	assert.Equal(t, []string{"--embed"}, cfg.Editor.Args)
	assert.Equal(t, map[string]string{"TERM": "dumb", "NVIM_APPNAME": "editorhost"}, cfg.Editor.Env)
}

func TestLoadAppliesProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"vi\"\nargs = [\"-e\"]\n"), 0o600))
	t.Setenv("EDITORHOST_PROFILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "vi", cfg.Editor.Name)
	assert.Equal(t, []string{"-e"}, cfg.Editor.Args)
}

func TestLoadMissingProfile(t *testing.T) {
	t.Setenv("EDITORHOST_PROFILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
