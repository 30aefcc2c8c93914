// Package config provides configuration structures and utilities for TorBot.
// It holds crawl settings from command-line flags, the optional .torbot
// YAML file with per-site overrides, and proxy defaults from a .env file.
package config
