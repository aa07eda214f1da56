// Package fileutil holds the atomic JSON file helpers shared by the file-backed stores.
package fileutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteJSON marshals v and writes it to path through a temporary file and rename,
// so readers never observe a partially written document.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary file for %s: %w", path, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}

	return nil
}

// ReadJSON unmarshals the document at path into v.
// It returns false without error when the file does not exist.
func ReadJSON(path string, v any) (bool, error) {
	// #nosec G304 -- path is built from the configured data directory and a connection id
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return true, nil
}

// ConnectionDir returns the per-connection directory under base.
// Connection ids are cleaned so they cannot escape base.
func ConnectionDir(base, connectionID string) (string, error) {
	if connectionID == "" || connectionID == "." || connectionID == ".." ||
		filepath.Base(connectionID) != connectionID {
		return "", fmt.Errorf("invalid connection id %q", connectionID)
	}
	return filepath.Join(base, connectionID), nil
}
