package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"pom_automation/domain/interfaces"
)

const stateFile = "storage_state.json"

type browserState struct {
	statePath string
}

// NewBrowserState - creates session state storage under dir
func NewBrowserState(dir string) (interfaces.SessionStore, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		dir = filepath.Join(homeDir, ".pom_automation")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &browserState{
		statePath: filepath.Join(dir, stateFile),
	}, nil
}

// SaveState - writes the state atomically
func (s *browserState) SaveState(state []byte) error {
	tmp := s.statePath + ".tmp"
	if err := os.WriteFile(tmp, state, 0o600); err != nil {
		return fmt.Errorf("failed to write browser state: %w", err)
	}
	if err := os.Rename(tmp, s.statePath); err != nil {
		return fmt.Errorf("failed to save browser state: %w", err)
	}
	return nil
}

// LoadState - loads the state from file
func (s *browserState) LoadState() ([]byte, bool, error) {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read browser state: %w", err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

// Clear - removes the saved state
func (s *browserState) Clear() error {
	if err := os.Remove(s.statePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear browser state: %w", err)
	}
	return nil
}
