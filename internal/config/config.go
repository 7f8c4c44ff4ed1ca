package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all storyarc configuration.
type Config struct {
	UserID   string `toml:"user_id"`
	DataPath string `toml:"data_path"`

	Clustering ClusteringConfig `toml:"clustering"`
	Model      ModelConfig      `toml:"model"`
	Gate       GateConfig       `toml:"gate"`
	Credits    CreditsConfig    `toml:"credits"`
	Persona    PersonaConfig    `toml:"persona"`
	Export     ExportConfig     `toml:"export"`
}

type ClusteringConfig struct {
	WindowHours        int `toml:"window_hours"`
	MinClusterSize     int `toml:"min_cluster_size"`
	SharedRefThreshold int `toml:"shared_ref_threshold"`
}

type ModelConfig struct {
	Enabled        bool   `toml:"enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	APIKeyEnv      string `toml:"api_key_env"`
	BaseURL        string `toml:"base_url"`
	Redact         bool   `toml:"redact"`
}

type GateConfig struct {
	// ParticipationRatio is the minimum fraction of cluster activities
	// that must appear as evidence across a narrative's sections.
	ParticipationRatio float64 `toml:"participation_ratio"`
}

type CreditsConfig struct {
	StartingBalance int            `toml:"starting_balance"`
	Costs           map[string]int `toml:"costs"`
}

type PersonaConfig struct {
	Name    string `toml:"name"`
	Role    string `toml:"role"`
	Company string `toml:"company"`
}

type ExportConfig struct {
	Dir      string `toml:"dir"`
	Compress bool   `toml:"compress"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserID:   "local",
		DataPath: "~/.local/share/storyarc",
		Clustering: ClusteringConfig{
			WindowHours:        48,
			MinClusterSize:     2,
			SharedRefThreshold: 2,
		},
		Model: ModelConfig{
			Enabled:        false,
			TimeoutSeconds: 30,
			Provider:       "openai",
			Model:          "grok-3-mini-fast",
			APIKeyEnv:      "XAI_API_KEY",
			BaseURL:        "https://api.x.ai/v1",
			Redact:         true,
		},
		Gate: GateConfig{
			ParticipationRatio: 0.5,
		},
		Credits: CreditsConfig{
			StartingBalance: 50,
			Costs: map[string]int{
				"interview_answer": 1,
				"resume_bullet":    1,
				"cover_paragraph":  1,
				"promotion_packet": 3,
				"interview_prep":   3,
				"portfolio_brief":  2,
			},
		},
		Persona: PersonaConfig{},
		Export: ExportConfig{
			Dir:      "~/storyarc-exports",
			Compress: true,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	paths := configPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	cfg.DataPath = expandHome(cfg.DataPath)
	cfg.Export.Dir = expandHome(cfg.Export.Dir)

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "storyarc", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "storyarc", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// DBPath returns the SQLite database path inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataPath, "storyarc.db")
}

// Cost returns the credit cost for a derivation type, falling back to 1
// for types missing from the config map.
func (c Config) Cost(derivationType string) int {
	if cost, ok := c.Credits.Costs[derivationType]; ok {
		return cost
	}
	return 1
}
