package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Profile is a launch profile describing the editor to embed.
//
//	# editor.yaml
//	name: nvim
//	args: ["--embed", "--clean"]
//	env:
//	  NVIM_APPNAME: editorhost
type Profile struct {
	Path string            `yaml:"path" toml:"path"`
	Name string            `yaml:"name" toml:"name"`
	Args []string          `yaml:"args" toml:"args"`
	Env  map[string]string `yaml:"env" toml:"env"`
}

// LoadProfile reads a YAML (.yaml, .yml) or TOML (.toml) profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data, filepath.Ext(path))
}

// ParseProfile decodes a profile in the format named by ext.
func ParseProfile(data []byte, ext string) (*Profile, error) {
	var p Profile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse YAML profile: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse TOML profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q", ext)
	}
	return &p, nil
}

// ApplyProfile overrides editor settings with the non-empty fields of p.
// Profile env entries are merged over the configured overlay.
func (c *Config) ApplyProfile(p *Profile) {
	if p.Path != "" {
		c.Editor.Path = p.Path
	}
	if p.Name != "" {
		c.Editor.Name = p.Name
	}
	if len(p.Args) > 0 {
		c.Editor.Args = append([]string(nil), p.Args...)
	}
	if len(p.Env) > 0 {
		if c.Editor.Env == nil {
			c.Editor.Env = make(map[string]string, len(p.Env))
		}
		for k, v := range p.Env {
			c.Editor.Env[k] = v
		}
	}
}
