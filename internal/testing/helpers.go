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

package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kraklabs/codegraph/pkg/helix"
	"github.com/kraklabs/codegraph/pkg/ingestion"
)

var _ ingestion.Store = (*MemStore)(nil)

// Node kinds recorded by MemStore.
const (
	KindRoot   = "root"
	KindFolder = "folder"
	KindFile   = "file"
	KindEntity = "entity"
)

// Node is one recorded graph node.
type Node struct {
	ID        string
	Kind      string
	ParentID  string
	Name      string
	Extension string
	Text      string

	// Super marks nodes attached directly to the root (super folders,
	// super files) and top-level entities.
	Super bool

	// Entity holds the payload for KindEntity nodes.
	Entity helix.EntityPayload
}

// MemStore is an in-memory graph store recorder for tests.
//
// Every create validates that the referenced parent already exists, so
// an insertion-order violation surfaces as a store error in the test.
// MemStore is safe for concurrent use, like the real client.
type MemStore struct {
	mu      sync.Mutex
	seq     int
	nodes   map[string]*Node
	order   []string
	vectors map[string][][]float64
	failOps map[string]error
}

// NewMemStore creates an empty recorder.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes:   make(map[string]*Node),
		vectors: make(map[string][][]float64),
		failOps: make(map[string]error),
	}
}

// FailOn makes every subsequent call of the named operation (createRoot,
// createFile, createSubEntity, ...) return err. Useful for exercising
// the pipeline's continue-on-error paths.
func (s *MemStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOps[op] = err
}

func (s *MemStore) create(op string, n *Node) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps[op]; err != nil {
		return "", err
	}
	if n.ParentID != "" {
		if _, ok := s.nodes[n.ParentID]; !ok {
			return "", fmt.Errorf("%s: unknown parent %q", op, n.ParentID)
		}
	}
	s.seq++
	n.ID = fmt.Sprintf("%s-%d", n.Kind, s.seq)
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	return n.ID, nil
}

// CreateRoot implements ingestion.Store.
func (s *MemStore) CreateRoot(_ context.Context, name string) (string, error) {
	return s.create("createRoot", &Node{Kind: KindRoot, Name: name})
}

// CreateSuperFolder implements ingestion.Store.
func (s *MemStore) CreateSuperFolder(_ context.Context, rootID, name string) (string, error) {
	return s.create("createSuperFolder", &Node{Kind: KindFolder, ParentID: rootID, Name: name, Super: true})
}

// CreateSubFolder implements ingestion.Store.
func (s *MemStore) CreateSubFolder(_ context.Context, folderID, name string) (string, error) {
	return s.create("createSubFolder", &Node{Kind: KindFolder, ParentID: folderID, Name: name})
}

// CreateSuperFile implements ingestion.Store.
func (s *MemStore) CreateSuperFile(_ context.Context, rootID, name, extension, text string) (string, error) {
	return s.create("createSuperFile", &Node{Kind: KindFile, ParentID: rootID, Name: name, Extension: extension, Text: text, Super: true})
}

// CreateFile implements ingestion.Store.
func (s *MemStore) CreateFile(_ context.Context, folderID, name, extension, text string) (string, error) {
	return s.create("createFile", &Node{Kind: KindFile, ParentID: folderID, Name: name, Extension: extension, Text: text})
}

// CreateSuperEntity implements ingestion.Store.
func (s *MemStore) CreateSuperEntity(_ context.Context, fileID string, entity helix.EntityPayload) (string, error) {
	return s.create("createSuperEntity", &Node{Kind: KindEntity, ParentID: fileID, Name: entity.Kind, Entity: entity, Super: true})
}

// CreateSubEntities implements ingestion.Store.
func (s *MemStore) CreateSubEntities(_ context.Context, batch []helix.SubEntityPayload) ([]string, error) {
	ids := make([]string, 0, len(batch))
	for _, item := range batch {
		id, err := s.create("createSubEntity", &Node{Kind: KindEntity, ParentID: item.ParentID, Name: item.Kind, Entity: item.EntityPayload})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EmbedSuperEntity implements ingestion.Store.
func (s *MemStore) EmbedSuperEntity(_ context.Context, entityID string, vector []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOps["embedSuperEntity"]; err != nil {
		return err
	}
	if _, ok := s.nodes[entityID]; !ok {
		return fmt.Errorf("embedSuperEntity: unknown entity %q", entityID)
	}
	s.vectors[entityID] = append(s.vectors[entityID], vector)
	return nil
}

// Node returns the recorded node with the given ID, or nil.
func (s *MemStore) Node(id string) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes[id]
}

// NodesByKind returns the recorded nodes of one kind in insertion order.
func (s *MemStore) NodesByKind(kind string) []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Node
	for _, id := range s.order {
		if n := s.nodes[id]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// ChildrenOf returns the recorded children of a node in insertion order.
func (s *MemStore) ChildrenOf(parentID string) []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Node
	for _, id := range s.order {
		if n := s.nodes[id]; n.ParentID == parentID {
			out = append(out, n)
		}
	}
	return out
}

// Vectors returns the embedding vectors stored for an entity.
func (s *MemStore) Vectors(entityID string) [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vectors[entityID]
}

// VectorCount returns the total number of stored vectors.
func (s *MemStore) VectorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, vecs := range s.vectors {
		total += len(vecs)
	}
	return total
}

// EntityDepth returns how many entity ancestors an entity has. A super
// entity has depth 0.
func (s *MemStore) EntityDepth(entityID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	depth := 0
	n := s.nodes[entityID]
	for n != nil {
		parent := s.nodes[n.ParentID]
		if parent == nil || parent.Kind != KindEntity {
			break
		}
		depth++
		n = parent
	}
	return depth
}

// WriteTree materializes files under a fresh t.TempDir().
//
// Keys are slash-separated relative paths; parent directories are
// created as needed. Returns the tree root.
//
// Example:
//
//	root := testing.WriteTree(t, map[string]string{
//	    "main.py":     "def f():\n    pass\n",
//	    "pkg/util.py": "x = 1\n",
//	})
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return root
}
