// Package main is the entry point for editorhost.
//
// editorhost spawns an embedded editor, reads length-prefixed CBOR or JSON
// frames from the editor's stdout, and logs what the editor sends. It is the
// reference consumer of the transport packages.
//
// The default executable is nvim --embed, which speaks unframed msgpack-rpc.
// Run it behind an adapter that re-frames its output and name the adapter
// with -path or -name; pointed at nvim directly the session stops on the
// first read with a frame-too-large error that says so.
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - A YAML or TOML launch profile
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Embed nvim through a framing adapter found on PATH
//	./editorhost -name nvim-cbor-adapter
//
//	# Explicit executable, JSON framing, metrics endpoint
//	./editorhost -path /opt/editorhost/bin/json-editor -codec json -metrics 127.0.0.1:9102
//
//	# Development mode (colored logs, debug level)
//	./editorhost -dev
package main
