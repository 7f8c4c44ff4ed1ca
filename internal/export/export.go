// Package export writes a user's stories and derivations to a
// zstd-compressed JSON bundle for backup or hand-off to other tools.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/jmhart/storyarc/internal/store"
)

// Bundle is the export file's JSON shape.
type Bundle struct {
	ExportedAt  time.Time          `json:"exported_at"`
	UserID      string             `json:"user_id"`
	Stories     []store.Story      `json:"stories"`
	Derivations []store.Derivation `json:"derivations"`
}

// Write collects the user's stories and derivations and writes them to
// destDir as storyarc-export-YYYY-MM-DD.json(.zst). Returns the written
// path.
func Write(s *store.Store, userID, destDir string, compress bool) (string, error) {
	stories, err := s.ListStories(userID)
	if err != nil {
		return "", err
	}
	derivations, err := s.ListDerivations(userID)
	if err != nil {
		return "", err
	}

	bundle := Bundle{
		ExportedAt:  time.Now(),
		UserID:      userID,
		Stories:     stories,
		Derivations: derivations,
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := "storyarc-export-" + time.Now().Format("2006-01-02") + ".json"
	path := filepath.Join(destDir, name)
	if !compress {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("write export: %w", err)
		}
		return path, nil
	}

	path += ".zst"
	dest, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	defer dest.Close()

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return "", fmt.Errorf("compress export: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("finalize compression: %w", err)
	}

	return path, nil
}

// Read loads an export bundle, transparently decompressing .zst files.
func Read(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}

	if filepath.Ext(path) == ".zst" {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer decoder.Close()
		data, err = decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress export: %w", err)
		}
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return &bundle, nil
}
