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

// Package ingestion walks a source tree and writes its code graph to a
// store.
//
// # Pipeline Overview
//
// One run proceeds in four stages, the middle two fully parallel:
//
//  1. Filtering: cascading .gitignore resolution, built-in defaults first
//  2. Walking: bounded worker pool over directories and files
//  3. Decomposition: tree-sitter parse, depth-bounded entity extraction
//  4. Embedding: chunked super-entity text through an async embed queue
//
// The resulting graph is Root -> Folder* -> File -> Entity*, with
// embedding vectors attached to top-level ("super") entities.
//
// # Ordering Guarantees
//
// Every node is created before any node that references it: a folder's
// container exists before its children dispatch, a file node exists before
// its entities, a super entity before its sub-entity batches. Sibling
// entities carry 1-based source order, and bulk sub-entity inserts return
// IDs pairing positionally with their batch.
//
// # Deduplication
//
// File content is fingerprinted (SHA-1) once per run; the first file with a
// given content wins and later occurrences are skipped. The winner under
// concurrency is whichever worker fingerprints first, which is accepted:
// duplicate content produces one File node either way.
//
// # Quick Start
//
//	store := helix.NewClient("http://localhost:6969", logger)
//	orch := ingestion.NewOrchestrator(store, nil, ingestion.Config{})
//	result, err := orch.Run(ctx, "/path/to/repo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("ingested %d files, %d entities\n",
//	    result.Files, result.SuperEntities+result.SubEntities)
//
// # Failure Policy
//
// Errors are scoped to the task that hit them. A directory that cannot be
// scanned loses its subtree; a file that cannot be read or parsed is
// skipped; a failed store write drops that node's subtree. Nothing is
// retried, siblings continue, and only root creation aborts the run.
// Prometheus metrics and the Result struct report all counts.
package ingestion
