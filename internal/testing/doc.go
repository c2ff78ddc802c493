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

// Package testing provides test helpers for codegraph tests.
//
// The central helper is MemStore, an in-memory graph store recorder that
// implements the ingestion.Store interface. It validates the pipeline's
// ordering contract at insert time: a node created with an unknown parent
// ID fails the call, so any parent-before-child violation surfaces as a
// store error in the test.
//
// # Quick Start
//
//	func TestIngest(t *testing.T) {
//	    store := cgtesting.NewMemStore()
//	    root := cgtesting.WriteTree(t, map[string]string{
//	        "main.py":     "def f():\n    pass\n",
//	        "pkg/util.py": "x = 1\n",
//	    })
//
//	    orch := ingestion.NewOrchestrator(store, nil, ingestion.Config{Workers: 2})
//	    result, err := orch.Run(context.Background(), root)
//	    require.NoError(t, err)
//	    require.Len(t, store.NodesByKind(cgtesting.KindFile), 2)
//	}
//
// WriteTree builds a throwaway fixture tree under t.TempDir(); files whose
// path contains directories are created with their parents.
package testing
