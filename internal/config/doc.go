// Package config loads, normalizes, and validates the TOML configuration
// for the vidgate daemon and CLI.
package config
