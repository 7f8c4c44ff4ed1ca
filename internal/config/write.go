package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the storyarc config directory path.
// Uses $XDG_CONFIG_HOME/storyarc if set, otherwise ~/.config/storyarc.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "storyarc")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "storyarc")
}

// WriteDefault writes a default config.toml pointing at dataPath.
// Returns the config file path. Skips if config.toml already exists.
func WriteDefault(dataPath string) (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	portablePath := CompressHome(dataPath)

	content := fmt.Sprintf(`user_id = "local"
data_path = %q

[clustering]
window_hours = 48
min_cluster_size = 2
shared_ref_threshold = 2

[model]
enabled = false
timeout_seconds = 30
provider = "openai"
model = "grok-3-mini-fast"
api_key_env = "XAI_API_KEY"
base_url = "https://api.x.ai/v1"
redact = true

[gate]
participation_ratio = 0.5

[credits]
starting_balance = 50

[credits.costs]
interview_answer = 1
resume_bullet = 1
cover_paragraph = 1
promotion_packet = 3
interview_prep = 3
portfolio_brief = 2

[persona]
name = ""
role = ""
company = ""

[export]
dir = "~/storyarc-exports"
compress = true
`, portablePath)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

// CompressHome replaces a home-directory prefix with ~ for portability.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+string(os.PathSeparator)) {
		return "~" + path[len(home):]
	}
	return path
}
