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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kraklabs/codegraph/pkg/helix"
)

// maxPoolWorkers caps the walk pool regardless of CPU count.
const maxPoolWorkers = 8

// DefaultWorkerCount is half the CPUs, capped at maxPoolWorkers, at least 1.
func DefaultWorkerCount() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	if n > maxPoolWorkers {
		n = maxPoolWorkers
	}
	return n
}

// Config controls one ingestion run.
type Config struct {
	// Name is the root node name. Empty selects the absolute root path.
	Name string

	// Workers bounds concurrent walk tasks. <= 0 selects DefaultWorkerCount.
	Workers int

	// EmbedWorkers bounds the embedding pool. <= 0 selects 2.
	EmbedWorkers int

	// MaxDepth bounds entity decomposition. <= 0 selects DefaultMaxDepth.
	MaxDepth int

	// ExtraIgnorePatterns are appended to the built-in default patterns.
	ExtraIgnorePatterns []string

	// OnEmbedProgress, when set, is called periodically while the embed
	// queue drains, with finished and total job counts.
	OnEmbedProgress func(done, total int64)

	Logger *slog.Logger
}

// Result summarizes a completed run.
type Result struct {
	RootID           string
	Folders          int64
	Files            int64
	DuplicateFiles   int64
	UnsupportedFiles int64
	ParseErrors      int64
	StoreErrors      int64
	TaskErrors       int64
	SuperEntities    int64
	SubEntities      int64
	EmbeddedChunks   int64
	EmbedErrors      int64
	Duration         time.Duration
}

// Orchestrator walks a source tree and writes its code graph to a Store.
//
// Concurrency model: every directory and every file is a task in its own
// goroutine, gated by a weighted semaphore of Workers slots. A directory
// task holds its slot only while scanning and creating child folder nodes;
// it releases it before awaiting children, so recursive dispatch cannot
// exhaust the pool. Parent-before-child store ordering holds because a
// container node is always created in the dispatching task before the task
// that fills it starts.
type Orchestrator struct {
	cfg      Config
	store    Store
	resolver *IgnoreResolver
	scanner  *Scanner
	dedup    *Deduplicator
	provider EmbeddingProvider
	logger   *slog.Logger

	sem      *semaphore.Weighted
	queue    *EmbedQueue
	maxDepth int
	workers  int

	folders       atomic.Int64
	files         atomic.Int64
	duplicates    atomic.Int64
	unsupported   atomic.Int64
	parseErrors   atomic.Int64
	storeErrors   atomic.Int64
	taskErrors    atomic.Int64
	superEntities atomic.Int64
	subEntities   atomic.Int64
}

// NewOrchestrator creates an orchestrator writing to store, embedding with
// provider. A nil provider selects the placeholder.
func NewOrchestrator(store Store, provider EmbeddingProvider, cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = NewPlaceholderEmbeddingProvider(0)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkerCount()
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	resolver := NewIgnoreResolver(cfg.ExtraIgnorePatterns, logger)
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		scanner:  NewScanner(resolver, logger),
		dedup:    NewDeduplicator(),
		provider: provider,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(workers)),
		maxDepth: maxDepth,
		workers:  workers,
	}
}

// Run ingests the tree rooted at root. Only root validation and root node
// creation are fatal; everything below is per-task, logged and counted.
func (o *Orchestrator) Run(ctx context.Context, root string) (*Result, error) {
	start := time.Now()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", abs)
	}

	coll := o.resolver.Seed(abs)
	if o.resolver.Ignored(coll, abs, filepath.Dir(abs), true) {
		return nil, fmt.Errorf("root directory is ignored: %s", abs)
	}

	embedWorkers := o.cfg.EmbedWorkers
	if embedWorkers <= 0 {
		embedWorkers = 2
	}
	o.queue = NewEmbedQueue(ctx, o.store, o.provider, embedWorkers, o.logger)

	o.logger.Info("ingest.run.start",
		"root", abs,
		"workers", o.workers,
		"embed_workers", embedWorkers,
		"max_depth", o.maxDepth,
	)

	rootName := o.cfg.Name
	if rootName == "" {
		rootName = abs
	}
	rootID, err := o.store.CreateRoot(ctx, rootName)
	if err != nil {
		o.queue.Drain()
		return nil, &StoreWriteError{Op: "createRoot", Path: abs, Err: err}
	}
	o.logger.Info("ingest.root.create", "root_id", rootID, "name", rootName)

	o.populate(ctx, abs, abs, rootID, true, coll)

	o.logger.Info("ingest.embed.drain.start", "pending", o.queue.Pending())
	done := make(chan struct{})
	if o.cfg.OnEmbedProgress != nil {
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					o.cfg.OnEmbedProgress(o.queue.Completed()+o.queue.Failed(), o.queue.Enqueued())
				}
			}
		}()
	}
	o.queue.Drain()
	close(done)

	result := &Result{
		RootID:           rootID,
		Folders:          o.folders.Load(),
		Files:            o.files.Load(),
		DuplicateFiles:   o.duplicates.Load(),
		UnsupportedFiles: o.unsupported.Load(),
		ParseErrors:      o.parseErrors.Load(),
		StoreErrors:      o.storeErrors.Load(),
		TaskErrors:       o.taskErrors.Load(),
		SuperEntities:    o.superEntities.Load(),
		SubEntities:      o.subEntities.Load(),
		EmbeddedChunks:   o.queue.Completed(),
		EmbedErrors:      o.queue.Failed(),
		Duration:         time.Since(start),
	}
	recordRunDuration(result.Duration)

	o.logger.Info("ingest.run.complete",
		"root_id", rootID,
		"folders", result.Folders,
		"files", result.Files,
		"duplicates", result.DuplicateFiles,
		"unsupported", result.UnsupportedFiles,
		"parse_errors", result.ParseErrors,
		"store_errors", result.StoreErrors,
		"super_entities", result.SuperEntities,
		"sub_entities", result.SubEntities,
		"embedded_chunks", result.EmbeddedChunks,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// populate runs one directory task: resolve rules, scan, create child
// folder containers, dispatch child tasks, await files, await subtrees.
// parentID is the already-created container for dir's own children.
func (o *Orchestrator) populate(ctx context.Context, root, dir, parentID string, isSuper bool, coll RuleCollection) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return
	}
	released := false
	release := func() {
		if !released {
			released = true
			o.sem.Release(1)
		}
	}
	defer release()

	coll = o.resolver.Augment(coll, dir)

	subdirs, files, err := o.scanner.Scan(dir, root, coll)
	if err != nil {
		o.taskErrors.Add(1)
		recordTaskError()
		o.logger.Error("ingest.dir.error", "dir", dir, "error", err)
		return
	}

	var dirWG sync.WaitGroup
	for _, name := range subdirs {
		sub := filepath.Join(dir, name)

		var folderID string
		var createErr error
		if isSuper {
			folderID, createErr = o.store.CreateSuperFolder(ctx, parentID, name)
		} else {
			folderID, createErr = o.store.CreateSubFolder(ctx, parentID, name)
		}
		if createErr != nil {
			o.storeErrors.Add(1)
			recordStoreError()
			op := "createSubFolder"
			if isSuper {
				op = "createSuperFolder"
			}
			o.logger.Error("ingest.folder.error", "dir", sub,
				"error", &StoreWriteError{Op: op, Path: sub, Err: createErr})
			continue
		}
		o.folders.Add(1)
		recordFolder()
		o.logger.Debug("ingest.folder.create", "dir", sub, "folder_id", folderID)

		dirWG.Add(1)
		go func(sub, folderID string) {
			defer dirWG.Done()
			o.populate(ctx, root, sub, folderID, false, coll)
		}(sub, folderID)
	}

	var fileWG sync.WaitGroup
	for _, name := range files {
		fileWG.Add(1)
		go func(name string) {
			defer fileWG.Done()
			if err := o.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer o.sem.Release(1)
			if err := o.ingestFile(ctx, dir, name, parentID, isSuper); err != nil {
				o.taskErrors.Add(1)
				recordTaskError()
				o.logger.Error("ingest.file.error", "path", filepath.Join(dir, name), "error", err)
			}
		}(name)
	}

	// Free the slot before blocking; the children need it.
	release()
	fileWG.Wait()
	dirWG.Wait()
}

// ingestFile runs one file task: language lookup, dedup, parse, node
// creation, entity decomposition, embed submission. Unsupported and
// duplicate files are outcomes, not errors.
func (o *Orchestrator) ingestFile(ctx context.Context, dir, name, parentID string, isSuper bool) error {
	path := filepath.Join(dir, name)

	lang := LanguageForFile(name)
	if lang == nil {
		o.unsupported.Add(1)
		recordUnsupported()
		o.logger.Debug("ingest.file.skip.unsupported", "path", path)
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	if o.dedup.SeenOrAdd(content) {
		o.duplicates.Add(1)
		recordDuplicate()
		o.logger.Info("ingest.file.skip.duplicate", "path", path)
		return nil
	}

	start := time.Now()
	tree, err := parseSource(ctx, lang, content)
	if err != nil {
		o.parseErrors.Add(1)
		recordParseError()
		o.logger.Warn("ingest.file.parse_error", "path", path,
			"error", &ParseError{Path: path, Err: err})
		return nil
	}
	defer tree.Close()

	fileEntity := Decompose(tree.RootNode(), content, 1)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	var fileID string
	var createErr error
	op := "createFile"
	if isSuper {
		op = "createSuperFile"
		fileID, createErr = o.store.CreateSuperFile(ctx, parentID, name, ext, fileEntity.Text)
	} else {
		fileID, createErr = o.store.CreateFile(ctx, parentID, name, ext, fileEntity.Text)
	}
	if createErr != nil {
		o.storeErrors.Add(1)
		recordStoreError()
		return &StoreWriteError{Op: op, Path: path, Err: createErr}
	}

	for _, super := range fileEntity.Children {
		superID, err := o.store.CreateSuperEntity(ctx, fileID, super.Payload())
		if err != nil {
			o.storeErrors.Add(1)
			recordStoreError()
			o.logger.Warn("ingest.entity.error", "path", path,
				"error", &StoreWriteError{Op: "createSuperEntity", Path: path, Err: err})
			continue
		}
		o.superEntities.Add(1)
		recordSuperEntity()

		for _, chunk := range ChunkText(super.Text) {
			o.queue.Enqueue(superID, chunk)
		}

		o.createSubEntities(ctx, path, superID, super, 1)
	}

	o.files.Add(1)
	recordFileIngested(time.Since(start))
	o.logger.Debug("ingest.file.complete", "path", path,
		"super_entities", len(fileEntity.Children))
	return nil
}

// createSubEntities inserts one level of children under parentID with a
// single bulk call, then recurses per child. depth is the level being
// created, counted from the super entity at 0; nothing is created at or
// beyond the depth bound.
func (o *Orchestrator) createSubEntities(ctx context.Context, path, parentID string, parent *Entity, depth int) {
	if depth >= o.maxDepth || len(parent.Children) == 0 {
		return
	}

	batch := make([]helix.SubEntityPayload, 0, len(parent.Children))
	for _, child := range parent.Children {
		batch = append(batch, helix.SubEntityPayload{ParentID: parentID, EntityPayload: child.Payload()})
	}

	ids, err := o.store.CreateSubEntities(ctx, batch)
	if err != nil {
		o.storeErrors.Add(1)
		recordStoreError()
		o.logger.Warn("ingest.entities.error", "path", path,
			"error", &StoreWriteError{Op: "createSubEntity", Path: path, Err: err})
		return
	}
	if len(ids) != len(batch) {
		o.storeErrors.Add(1)
		recordStoreError()
		o.logger.Warn("ingest.entities.id_mismatch", "path", path,
			"want", len(batch), "got", len(ids))
		return
	}
	o.subEntities.Add(int64(len(ids)))
	recordSubEntities(len(ids))

	for i, child := range parent.Children {
		o.createSubEntities(ctx, path, ids[i], child, depth+1)
	}
}
