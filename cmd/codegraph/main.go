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

// Package main implements the codegraph CLI for ingesting codebases into
// a HelixDB graph store.
//
// Usage:
//
//	codegraph init                 Create .codegraph.yaml configuration
//	codegraph ingest [path]        Ingest a codebase into the graph store
//	codegraph status [--json]      List ingested roots
//	codegraph version              Show version information
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags holds flags shared by all commands.
type GlobalFlags struct {
	// Quiet suppresses progress output.
	Quiet bool

	// NoColor disables colored output.
	NoColor bool
}

// main is the entry point for the codegraph CLI.
//
// It parses global flags and dispatches to command handlers.
//
// Global flags:
//   - --config: Path to .codegraph.yaml (default: ./.codegraph.yaml)
//   - --no-color: Disable colored output
//   - -q, --quiet: Suppress progress output
//   - --version: Display version information and exit
//
// Commands:
//   - init: Create .codegraph.yaml configuration
//   - ingest: Ingest a codebase into the graph store
//   - status: List roots present in the graph store
//   - version: Show version information
func main() {
	fs := flag.NewFlagSet("codegraph", flag.ExitOnError)
	fs.SetInterspersed(false)

	var globals GlobalFlags
	showVersion := fs.Bool("version", false, "Show version and exit")
	configPath := fs.String("config", "", "Path to .codegraph.yaml (default: ./.codegraph.yaml)")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `codegraph - codebase ingestion for HelixDB

codegraph walks a codebase, parses source files with Tree-sitter, and
writes the resulting folder/file/entity graph to a HelixDB instance,
with embeddings attached to top-level code entities.

Usage:
  codegraph <command> [options]

Commands:
  init       Create .codegraph.yaml configuration
  ingest     Ingest a codebase into the graph store
  status     List roots present in the graph store
  version    Show version information

Global Options:
  --config     Path to .codegraph.yaml
  --no-color   Disable colored output
  -q, --quiet  Suppress progress output
  --version    Show version and exit

Examples:
  codegraph init                       Create configuration interactively
  codegraph ingest                     Ingest the current directory
  codegraph ingest /path/to/repo       Ingest a specific directory
  codegraph ingest --workers 4         Limit the walker pool
  codegraph status --json              List roots as JSON

Getting Started:
  1. Start HelixDB (default: http://localhost:6969)
  2. Initialize configuration:  codegraph init
  3. Ingest your codebase:      codegraph ingest
  4. Verify the graph:          codegraph status

Environment Variables:
  OLLAMA_BASE_URL    Ollama URL (default: http://localhost:11434)
  OLLAMA_EMBED_MODEL Embedding model (default: nomic-embed-text)

For detailed command help: codegraph <command> --help

`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	ui.InitColors(globals.NoColor)

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "ingest":
		runIngest(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath)
	case "version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fs.Usage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("codegraph version %s\n", version)
	fmt.Printf("commit: %s\n", commit)
	fmt.Printf("built: %s\n", date)
}
