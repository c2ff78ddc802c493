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
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/helix"
)

// StatusResult represents the store status for JSON output.
type StatusResult struct {
	StoreURL  string       `json:"store_url"`
	Connected bool         `json:"connected"`
	Roots     []helix.Root `json:"roots"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, listing the roots present
// in the graph store.
//
// Flags:
//   - --store-url: HelixDB base URL (default: from config)
//   - --json: Output results as JSON (default: false)
//
// Examples:
//
//	codegraph status           Display formatted status
//	codegraph status --json    Output as JSON for programmatic use
func runStatus(args []string, configPath string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	storeURL := fs.String("store-url", "", "HelixDB base URL")
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph status [options]

Lists the roots present in the graph store.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load codegraph configuration",
			err.Error(),
			"Run 'codegraph init' to create a valid .codegraph.yaml",
			err,
		), *jsonOutput)
	}
	if *storeURL != "" {
		cfg.Store.URL = *storeURL
	}

	result := &StatusResult{
		StoreURL:  cfg.Store.URL,
		Timestamp: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := helix.NewClient(cfg.Store.URL, slog.Default())
	roots, err := client.Roots(ctx)
	if err != nil {
		result.Connected = false
		result.Error = err.Error()
		if *jsonOutput {
			_ = output.JSON(result)
			os.Exit(errors.ExitNetwork)
		}
		errors.FatalError(errors.NewNetworkError(
			"Cannot reach the graph store",
			err.Error(),
			fmt.Sprintf("Start HelixDB or point --store-url at a running instance (tried %s)", cfg.Store.URL),
			err,
		), false)
	}

	result.Connected = true
	result.Roots = roots

	if *jsonOutput {
		if err := output.JSON(result); err != nil {
			errors.FatalError(err, true)
		}
		return
	}
	printStatus(result)
}

// printStatus prints the store status as formatted text to stdout.
func printStatus(result *StatusResult) {
	ui.Header("codegraph Store Status")
	fmt.Printf("%s %s\n", ui.Label("Store URL:"), ui.DimText(result.StoreURL))
	fmt.Println()

	if len(result.Roots) == 0 {
		fmt.Println("No roots ingested yet.")
		fmt.Println("Run 'codegraph ingest' to ingest a codebase.")
		return
	}

	fmt.Printf("Roots: %s\n", ui.CountText(len(result.Roots)))
	for _, root := range result.Roots {
		fmt.Printf("  %s  %s", root.ID, root.Name)
		if root.ExtractedAt != "" {
			fmt.Printf("  %s", ui.DimText(root.ExtractedAt))
		}
		fmt.Println()
	}
}
