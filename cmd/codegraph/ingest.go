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
	goerrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/helix"
	"github.com/kraklabs/codegraph/pkg/ingestion"
)

// IngestReport is the ingestion result for JSON output.
type IngestReport struct {
	RootID           string `json:"root_id"`
	Folders          int64  `json:"folders"`
	Files            int64  `json:"files"`
	DuplicateFiles   int64  `json:"duplicate_files"`
	UnsupportedFiles int64  `json:"unsupported_files"`
	SuperEntities    int64  `json:"super_entities"`
	SubEntities      int64  `json:"sub_entities"`
	EmbeddedChunks   int64  `json:"embedded_chunks"`
	ParseErrors      int64  `json:"parse_errors"`
	StoreErrors      int64  `json:"store_errors"`
	TaskErrors       int64  `json:"task_errors"`
	EmbedErrors      int64  `json:"embed_errors"`
	Duration         string `json:"duration"`
}

// runIngest executes the 'ingest' CLI command, walking a codebase and
// writing its graph to the store.
//
// The positional argument is the directory to ingest (default: current
// directory). Configuration comes from .codegraph.yaml, overridable per
// flag.
//
// Flags:
//   - --name: Root node name (default: config project name)
//   - --store-url: HelixDB base URL (default: from config)
//   - --workers: Walker pool size (default: auto)
//   - --embed-workers: Embedding queue pool size (default: 2)
//   - --max-depth: Entity decomposition depth bound (default: 2)
//   - --embedding-provider: placeholder or ollama (default: from config)
//   - --ignore: Extra ignore pattern, repeatable
//   - --json: Output the result as JSON
//   - --debug: Enable debug logging
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	codegraph ingest                     Ingest the current directory
//	codegraph ingest /srv/checkouts/api  Ingest a specific directory
//	codegraph ingest --workers 4 --embed-workers 8
//	codegraph ingest --ignore 'vendor/' --ignore '*.gen.go'
func runIngest(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	name := fs.String("name", "", "Root node name (default: config project name)")
	storeURL := fs.String("store-url", "", "HelixDB base URL")
	workers := fs.Int("workers", 0, "Walker pool size (0 = auto)")
	embedWorkers := fs.Int("embed-workers", 0, "Embedding queue pool size")
	maxDepth := fs.Int("max-depth", 0, "Entity decomposition depth bound")
	embeddingProvider := fs.String("embedding-provider", "", "Embedding provider (placeholder, ollama)")
	ignore := fs.StringArray("ignore", nil, "Extra ignore pattern (repeatable)")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph ingest [options] [path]

Walks the given directory (default: current directory), parses source
files with Tree-sitter, and writes the folder/file/entity graph to the
configured HelixDB instance.

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
	applyIngestOverrides(cfg, *name, *storeURL, *workers, *embedWorkers, *maxDepth, *embeddingProvider, *ignore)

	// Setup logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Resolve the directory to ingest
	dir := "."
	if rest := fs.Args(); len(rest) > 0 {
		dir = rest[0]
	}

	// Start Prometheus metrics endpoint (optional)
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	if cfg.Embedding.Provider == "ollama" {
		if cfg.Embedding.BaseURL != "" {
			os.Setenv("OLLAMA_BASE_URL", cfg.Embedding.BaseURL)
		}
		if cfg.Embedding.Model != "" {
			os.Setenv("OLLAMA_EMBED_MODEL", cfg.Embedding.Model)
		}
	}

	provider, err := ingestion.CreateEmbeddingProvider(cfg.Embedding.Provider, cfg.Embedding.Dimensions, logger)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot create embedding provider",
			err.Error(),
			"Set embedding.provider to 'placeholder' or 'ollama' in .codegraph.yaml",
			err,
		), *jsonOutput)
	}

	store := helix.NewClient(cfg.Store.URL, logger)

	// Wire the embedding queue into a progress bar
	progress := NewProgressConfig(globals, *jsonOutput)
	bar := NewProgressBar(progress, 1, "embedding")

	orchCfg := ingestion.Config{
		Name:                cfg.Project,
		Workers:             cfg.Ingestion.Workers,
		EmbedWorkers:        cfg.Ingestion.EmbedWorkers,
		MaxDepth:            cfg.Ingestion.MaxDepth,
		ExtraIgnorePatterns: cfg.Ingestion.Ignore,
		Logger:              logger,
	}
	if bar != nil {
		orchCfg.OnEmbedProgress = func(done, total int64) {
			bar.ChangeMax64(total)
			_ = bar.Set64(done)
		}
	}

	orch := ingestion.NewOrchestrator(store, provider, orchCfg)

	logger.Info("ingest.starting",
		"name", cfg.Project,
		"path", dir,
		"store_url", cfg.Store.URL,
		"embedding_provider", cfg.Embedding.Provider,
	)

	result, err := orch.Run(ctx, dir)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		errors.FatalError(ingestError(err, cfg.Store.URL), *jsonOutput)
	}

	report := &IngestReport{
		RootID:           result.RootID,
		Folders:          result.Folders,
		Files:            result.Files,
		DuplicateFiles:   result.DuplicateFiles,
		UnsupportedFiles: result.UnsupportedFiles,
		SuperEntities:    result.SuperEntities,
		SubEntities:      result.SubEntities,
		EmbeddedChunks:   result.EmbeddedChunks,
		ParseErrors:      result.ParseErrors,
		StoreErrors:      result.StoreErrors,
		TaskErrors:       result.TaskErrors,
		EmbedErrors:      result.EmbedErrors,
		Duration:         result.Duration.String(),
	}

	if *jsonOutput {
		if err := output.JSON(report); err != nil {
			errors.FatalError(err, true)
		}
		return
	}
	printIngestReport(report)
}

// applyIngestOverrides applies command-line flags over the loaded
// configuration. Empty or zero flag values leave the config untouched.
func applyIngestOverrides(cfg *Config, name, storeURL string, workers, embedWorkers, maxDepth int, provider string, ignore []string) {
	if name != "" {
		cfg.Project = name
	}
	if storeURL != "" {
		cfg.Store.URL = storeURL
	}
	if workers > 0 {
		cfg.Ingestion.Workers = workers
	}
	if embedWorkers > 0 {
		cfg.Ingestion.EmbedWorkers = embedWorkers
	}
	if maxDepth > 0 {
		cfg.Ingestion.MaxDepth = maxDepth
	}
	if provider != "" {
		cfg.Embedding.Provider = provider
	}
	cfg.Ingestion.Ignore = append(cfg.Ingestion.Ignore, ignore...)
}

// ingestError wraps a pipeline failure in a UserError with an exit code
// matching the failure category.
func ingestError(err error, storeURL string) error {
	switch {
	case goerrors.Is(err, fs.ErrNotExist):
		return errors.NewNotFoundError(
			"Ingestion root not found",
			err.Error(),
			"Check the path or clone the repository first",
		)
	case goerrors.Is(err, fs.ErrPermission):
		return errors.NewPermissionError(
			"Cannot read the ingestion root",
			err.Error(),
			"Fix the directory permissions and retry",
			err,
		)
	default:
		return errors.NewStoreError(
			"Ingestion failed",
			err.Error(),
			fmt.Sprintf("Check that HelixDB is reachable at %s and retry", storeURL),
			err,
		)
	}
}

// printIngestReport prints the ingestion summary to stdout.
func printIngestReport(r *IngestReport) {
	fmt.Println()
	ui.Successf("Ingestion complete in %s", r.Duration)
	fmt.Printf("%s %s\n", ui.Label("Root ID:"), r.RootID)
	fmt.Println()

	fmt.Println("Graph:")
	fmt.Printf("  Folders:        %s\n", ui.CountText(int(r.Folders)))
	fmt.Printf("  Files:          %s\n", ui.CountText(int(r.Files)))
	fmt.Printf("  Super Entities: %s\n", ui.CountText(int(r.SuperEntities)))
	fmt.Printf("  Sub Entities:   %s\n", ui.CountText(int(r.SubEntities)))
	fmt.Printf("  Embeddings:     %s\n", ui.CountText(int(r.EmbeddedChunks)))

	if r.DuplicateFiles > 0 || r.UnsupportedFiles > 0 {
		fmt.Println("\nSkipped:")
		if r.DuplicateFiles > 0 {
			fmt.Printf("  Duplicates:     %d\n", r.DuplicateFiles)
		}
		if r.UnsupportedFiles > 0 {
			fmt.Printf("  Unsupported:    %d\n", r.UnsupportedFiles)
		}
	}

	if r.ParseErrors > 0 {
		ui.Warningf("Parse errors: %d", r.ParseErrors)
	}
	if r.StoreErrors > 0 {
		ui.Warningf("Store errors: %d", r.StoreErrors)
	}
	if r.TaskErrors > 0 {
		ui.Warningf("Task errors: %d", r.TaskErrors)
	}
	if r.EmbedErrors > 0 {
		ui.Warningf("Embedding errors: %d", r.EmbedErrors)
	}
}
