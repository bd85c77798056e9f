package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - PATHKIT_CONFIG_PATH: config file location (default: ~/.config/pathkit.toml)
//   - PATHKIT_STATE_DIR: base directory for pathkit state (default: ~/.local/share/pathkit)
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome("PATHKIT_CONFIG_PATH", ".config", "pathkit.toml")
	if err != nil {
		return nil, err
	}

	stateDir, err := fromEnvOrHome("PATHKIT_STATE_DIR", ".local", "share", "pathkit")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"state_dir":   stateDir,
		"log_dir":     filepath.Join(stateDir, "log"),
	}, nil
}

// fromEnvOrHome returns the value of the environment variable key, falling
// back to the given path under the user's home directory.
func fromEnvOrHome(key string, elem ...string) (string, error) {
	if path := os.Getenv(key); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
