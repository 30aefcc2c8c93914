package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed template.yaml
var configTemplate []byte

// ErrConfigExists is returned by WriteTemplate when the file exists and
// force is false.
var ErrConfigExists = errors.New("configuration file already exists")

// Template returns the commented configuration file template.
func Template() []byte {
	out := make([]byte, len(configTemplate))
	copy(out, configTemplate)
	return out
}

// WriteTemplate writes the template to path, creating parent
// directories. An existing file is only replaced when force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use -f to overwrite)", ErrConfigExists, path)
		}
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, configTemplate, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}
