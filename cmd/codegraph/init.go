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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive        bool
	project, storeURL            string
	embeddingProvider, ollamaURL string
	embeddingModel               string
}

// runInit executes the 'init' CLI command, creating a .codegraph.yaml
// configuration file in the current directory.
//
// Flags:
//   - --force: Overwrite existing configuration (default: false)
//   - -y: Non-interactive mode, use all defaults (default: false)
//   - --project: Project name (default: directory name)
//   - --store-url: HelixDB base URL
//   - --embedding-provider: Embedding provider (placeholder, ollama)
//   - --ollama-url: Ollama URL (ollama provider only)
//   - --embedding-model: Embedding model name (ollama provider only)
//
// Examples:
//
//	codegraph init                     Interactive setup
//	codegraph init -y                  Use all defaults
//	codegraph init --store-url http://helix:6969
func runInit(args []string) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", configPath)
		os.Exit(1)
	}

	cfg := createInitConfig(cwd, flags)

	if !flags.nonInteractive {
		runInteractiveConfig(bufio.NewReader(os.Stdin), cfg)
	}

	if err := SaveConfig(cfg, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created %s\n", configPath)
	printNextSteps()
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.project, "project", "", "Project name")
	fs.StringVar(&f.storeURL, "store-url", "", "HelixDB base URL")
	fs.StringVar(&f.embeddingProvider, "embedding-provider", "", "Embedding provider (placeholder, ollama)")
	fs.StringVar(&f.ollamaURL, "ollama-url", "", "Ollama URL (ollama provider only)")
	fs.StringVar(&f.embeddingModel, "embedding-model", "", "Embedding model name (ollama provider only)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph init [options]

Creates the .codegraph.yaml configuration file.

Examples:
  codegraph init                              # Interactive setup
  codegraph init -y                           # Non-interactive with defaults
  codegraph init --store-url http://helix:6969
  codegraph init --embedding-provider ollama --embedding-model nomic-embed-text

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func createInitConfig(cwd string, f initFlags) *Config {
	project := f.project
	if project == "" {
		project = filepath.Base(cwd)
	}
	cfg := DefaultConfig(project)
	if f.storeURL != "" {
		cfg.Store.URL = f.storeURL
	}
	if f.embeddingProvider != "" {
		cfg.Embedding.Provider = f.embeddingProvider
	}
	if f.ollamaURL != "" {
		cfg.Embedding.BaseURL = f.ollamaURL
	}
	if f.embeddingModel != "" {
		cfg.Embedding.Model = f.embeddingModel
	}
	return cfg
}

func runInteractiveConfig(reader *bufio.Reader, cfg *Config) {
	fmt.Println("codegraph Project Configuration")
	fmt.Println("===============================")
	fmt.Println()

	cfg.Project = prompt(reader, "Project name", cfg.Project)
	cfg.Store.URL = prompt(reader, "HelixDB URL", cfg.Store.URL)

	fmt.Println()
	fmt.Println("Embedding Providers: placeholder, ollama")
	cfg.Embedding.Provider = prompt(reader, "Embedding provider", cfg.Embedding.Provider)
	if cfg.Embedding.Provider == "ollama" {
		cfg.Embedding.BaseURL = prompt(reader, "Ollama URL", "http://localhost:11434")
		cfg.Embedding.Model = prompt(reader, "Embedding model", "nomic-embed-text")
	}
	fmt.Println()
}

func printNextSteps() {
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .codegraph.yaml if needed")
	fmt.Println("  2. Run 'codegraph ingest' to ingest this directory")
	fmt.Println("  3. Run 'codegraph status' to verify the graph")
}

// prompt displays an interactive prompt and reads user input from stdin.
//
// If the user presses Enter without providing input, the defaultValue is
// returned.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}
