// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/codegraph/pkg/helix"
	"github.com/kraklabs/codegraph/pkg/ingestion"
)

// ConfigFileName is the project configuration file, looked up in the
// directory being ingested.
const ConfigFileName = ".codegraph.yaml"

// Config holds the codegraph project configuration loaded from
// .codegraph.yaml.
type Config struct {
	// Project is the name used for the root node in the graph store.
	// Defaults to the base name of the ingested directory.
	Project string `yaml:"project"`

	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// StoreConfig configures the graph store connection.
type StoreConfig struct {
	// URL is the HelixDB base URL.
	URL string `yaml:"url"`
}

// EmbeddingConfig configures embedding generation.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: "placeholder" or "ollama".
	Provider string `yaml:"provider"`

	// BaseURL is the Ollama URL (ollama provider only).
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the embedding model name (ollama provider only).
	Model string `yaml:"model,omitempty"`

	// Dimensions is the embedding vector size.
	Dimensions int `yaml:"dimensions"`
}

// IngestionConfig configures the ingestion pipeline.
type IngestionConfig struct {
	// Workers is the walker pool size. Zero means auto (half the CPUs,
	// capped at 8).
	Workers int `yaml:"workers,omitempty"`

	// EmbedWorkers is the embedding queue pool size.
	EmbedWorkers int `yaml:"embed_workers,omitempty"`

	// MaxDepth bounds entity decomposition.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Ignore holds extra gitignore-style patterns applied to every
	// directory, on top of the built-in defaults and any .gitignore
	// files found in the tree.
	Ignore []string `yaml:"ignore,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults for the
// given project name.
func DefaultConfig(project string) *Config {
	return &Config{
		Project: project,
		Store: StoreConfig{
			URL: helix.DefaultBaseURL,
		},
		Embedding: EmbeddingConfig{
			Provider:   "placeholder",
			Dimensions: ingestion.DefaultEmbeddingDimensions,
		},
		Ingestion: IngestionConfig{
			MaxDepth: ingestion.DefaultMaxDepth,
		},
	}
}

// ConfigPath returns the path of the configuration file for a directory.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// LoadConfig loads the configuration from the given path. With an empty
// path it looks for .codegraph.yaml in the current directory and falls
// back to defaults when the file does not exist.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine current directory: %w", err)
		}
		path = ConfigPath(cwd)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the user's own flags
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cwd, _ := os.Getwd()
			return DefaultConfig(filepath.Base(cwd)), nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// applyConfigDefaults fills empty fields with defaults so a partial
// config file stays valid.
func applyConfigDefaults(cfg *Config) {
	if cfg.Project == "" {
		cwd, _ := os.Getwd()
		cfg.Project = filepath.Base(cwd)
	}
	if cfg.Store.URL == "" {
		cfg.Store.URL = helix.DefaultBaseURL
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "placeholder"
	}
	if cfg.Embedding.Dimensions <= 0 {
		cfg.Embedding.Dimensions = ingestion.DefaultEmbeddingDimensions
	}
	if cfg.Ingestion.MaxDepth <= 0 {
		cfg.Ingestion.MaxDepth = ingestion.DefaultMaxDepth
	}
}

// SaveConfig writes the configuration as YAML to the given path.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
