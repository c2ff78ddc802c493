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

	"github.com/kraklabs/codegraph/pkg/helix"
)

// Store is the write surface of the code graph. helix.Client is the
// production implementation; tests substitute an in-memory recorder.
//
// Every method that creates a node returns the store-assigned ID of that
// node. Callers rely on two contracts:
//
//   - Parent IDs passed in must already exist; the pipeline only ever
//     hands a method an ID returned by an earlier call.
//   - CreateSubEntities returns IDs in batch order, one per payload.
type Store interface {
	// CreateRoot registers an ingestion root for the given path.
	CreateRoot(ctx context.Context, name string) (string, error)

	// CreateSuperFolder creates a folder node attached directly to the root.
	CreateSuperFolder(ctx context.Context, rootID, name string) (string, error)

	// CreateSubFolder creates a folder node nested under another folder.
	CreateSubFolder(ctx context.Context, folderID, name string) (string, error)

	// CreateSuperFile creates a file node attached directly to the root.
	CreateSuperFile(ctx context.Context, rootID, name, extension, text string) (string, error)

	// CreateFile creates a file node under a folder.
	CreateFile(ctx context.Context, folderID, name, extension, text string) (string, error)

	// CreateSuperEntity creates a top-level entity under a file node.
	CreateSuperEntity(ctx context.Context, fileID string, entity helix.EntityPayload) (string, error)

	// CreateSubEntities bulk-inserts one level of child entities.
	CreateSubEntities(ctx context.Context, batch []helix.SubEntityPayload) ([]string, error)

	// EmbedSuperEntity attaches an embedding vector to a super entity.
	// Called once per chunk; a super entity may carry several vectors.
	EmbedSuperEntity(ctx context.Context, entityID string, vector []float64) error
}

// helix.Client must satisfy the pipeline's store contract.
var _ Store = (*helix.Client)(nil)
