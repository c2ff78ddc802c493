// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ingestion

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/codegraph/pkg/helix"
)

// DefaultMaxDepth bounds entity decomposition. Super entities sit at depth
// 0; no entity is created at a depth greater than or equal to the bound.
const DefaultMaxDepth = 2

// Entity is a syntax-tree node lifted into the graph model. Children keep
// source order; Order is the 1-based position among siblings.
type Entity struct {
	Kind      string
	StartByte uint32
	EndByte   uint32
	Order     int
	Text      string
	Children  []*Entity
}

// Payload converts the entity to its store representation, children
// excluded.
func (e *Entity) Payload() helix.EntityPayload {
	return helix.EntityPayload{
		Kind:      e.Kind,
		StartByte: e.StartByte,
		EndByte:   e.EndByte,
		Order:     e.Order,
		Text:      e.Text,
	}
}

// Decompose mirrors a tree-sitter node, recursively, into an Entity. All
// children are kept, named and anonymous alike; filtering is a store-side
// concern. order is the 1-based sibling position of node itself.
func Decompose(node *sitter.Node, source []byte, order int) *Entity {
	e := &Entity{
		Kind:      node.Type(),
		StartByte: node.StartByte(),
		EndByte:   node.EndByte(),
		Order:     order,
		Text:      node.Content(source),
	}
	count := int(node.ChildCount())
	if count > 0 {
		e.Children = make([]*Entity, 0, count)
		for i := 0; i < count; i++ {
			e.Children = append(e.Children, Decompose(node.Child(i), source, i+1))
		}
	}
	return e
}
