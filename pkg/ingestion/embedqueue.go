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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// embedJob is one chunk waiting for a vector.
type embedJob struct {
	entityID string
	chunk    string
}

// EmbedQueue decouples embedding from the filesystem walk. Walk workers
// enqueue chunks as super entities are created; a separate worker pool
// embeds them and writes the vectors back. A failed job is logged and
// counted, never retried.
type EmbedQueue struct {
	store    Store
	provider EmbeddingProvider
	logger   *slog.Logger

	jobs chan embedJob
	wg   sync.WaitGroup

	enqueued  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewEmbedQueue starts workers consuming the queue. ctx bounds every embed
// and store call the workers make.
func NewEmbedQueue(ctx context.Context, store Store, provider EmbeddingProvider, workers int, logger *slog.Logger) *EmbedQueue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &EmbedQueue{
		store:    store,
		provider: provider,
		logger:   logger,
		jobs:     make(chan embedJob, 256),
	}
	for w := 0; w < workers; w++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	return q
}

func (q *EmbedQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for job := range q.jobs {
		if ctx.Err() != nil {
			q.failed.Add(1)
			continue
		}
		start := time.Now()
		vector, err := q.provider.Embed(ctx, job.chunk)
		if err != nil {
			q.failed.Add(1)
			recordEmbedError()
			q.logger.Warn("ingest.embed.error", "entity_id", job.entityID, "error", err)
			continue
		}
		if err := q.store.EmbedSuperEntity(ctx, job.entityID, vector); err != nil {
			q.failed.Add(1)
			recordEmbedError()
			q.logger.Warn("ingest.embed.store_error", "entity_id", job.entityID, "error", err)
			continue
		}
		q.completed.Add(1)
		recordEmbedding(time.Since(start))
	}
}

// Enqueue submits one chunk for embedding. Blocks when the buffer is full,
// which throttles the walk instead of growing memory without bound.
func (q *EmbedQueue) Enqueue(entityID, chunk string) {
	q.enqueued.Add(1)
	q.jobs <- embedJob{entityID: entityID, chunk: chunk}
}

// Drain closes the queue and waits until every submitted job is finished.
// Call exactly once, after the last Enqueue.
func (q *EmbedQueue) Drain() {
	close(q.jobs)
	q.wg.Wait()
}

// Enqueued returns how many jobs were submitted.
func (q *EmbedQueue) Enqueued() int64 { return q.enqueued.Load() }

// Completed returns how many jobs produced a stored vector.
func (q *EmbedQueue) Completed() int64 { return q.completed.Load() }

// Failed returns how many jobs failed to embed or store.
func (q *EmbedQueue) Failed() int64 { return q.failed.Load() }

// Pending returns the jobs submitted but not yet finished.
func (q *EmbedQueue) Pending() int64 {
	return q.enqueued.Load() - q.completed.Load() - q.failed.Load()
}
