package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

const (
	dirPerms  = 0o750
	filePerms = 0o644
)

// defaultTemplate is written by WriteDefault. Values match DefaultConfig.
const defaultTemplate = `{
  // Number of buffer instances.
  "count": %d,
  // Bytes per instance. 0 means the built-in default.
  "capacity": %d,
  // Identifier of the first instance.
  "base": 0,
  // Allow at most one open session per instance.
  "single_open": false,
  // debug, info, warn or error.
  "log_level": "warn"
  // Optional per-instance overrides, one entry per instance:
  // "instances": [{"capacity": 128, "perm": "ro", "serial": "dev-0"}]
}
`

// DefaultFile returns the commented default config file content.
func DefaultFile() string {
	d := DefaultConfig()

	return fmt.Sprintf(defaultTemplate, d.Count, d.Capacity)
}

// WriteDefault writes the default config to path atomically. An existing
// file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		_, statErr := os.Stat(path)
		if statErr == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	mkdirErr := os.MkdirAll(filepath.Dir(path), dirPerms)
	if mkdirErr != nil {
		return fmt.Errorf("failed to create config directory: %w", mkdirErr)
	}

	writeErr := atomic.WriteFile(path, strings.NewReader(DefaultFile()))
	if writeErr != nil {
		return fmt.Errorf("failed to write config file: %w", writeErr)
	}

	// Set file permissions (atomic.WriteFile doesn't set them for new files)
	chmodErr := os.Chmod(path, filePerms)
	if chmodErr != nil {
		return fmt.Errorf("failed to set file permissions: %w", chmodErr)
	}

	return nil
}

// Format renders the resolved config as indented JSON.
func Format(cfg Config) (string, error) {
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	return string(out), nil
}
