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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/helix"
)

// TestMemStore_ParentValidation verifies the insert-time ordering contract.
func TestMemStore_ParentValidation(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	// Unknown parents fail every create.
	_, err := store.CreateSuperFolder(ctx, "missing", "pkg")
	assert.Error(t, err)
	_, err = store.CreateFile(ctx, "missing", "a.py", "py", "")
	assert.Error(t, err)
	_, err = store.CreateSuperEntity(ctx, "missing", helix.EntityPayload{})
	assert.Error(t, err)
	err = store.EmbedSuperEntity(ctx, "missing", []float64{0.1})
	assert.Error(t, err)

	// A proper chain succeeds.
	rootID, err := store.CreateRoot(ctx, "proj")
	require.NoError(t, err)
	folderID, err := store.CreateSuperFolder(ctx, rootID, "pkg")
	require.NoError(t, err)
	fileID, err := store.CreateFile(ctx, folderID, "a.py", "py", "x = 1\n")
	require.NoError(t, err)
	entityID, err := store.CreateSuperEntity(ctx, fileID, helix.EntityPayload{Kind: "module", Order: 1})
	require.NoError(t, err)
	require.NoError(t, store.EmbedSuperEntity(ctx, entityID, []float64{0.1}))
}

func TestMemStore_CreateSubEntities(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	rootID, err := store.CreateRoot(ctx, "proj")
	require.NoError(t, err)
	fileID, err := store.CreateSuperFile(ctx, rootID, "a.py", "py", "")
	require.NoError(t, err)
	superID, err := store.CreateSuperEntity(ctx, fileID, helix.EntityPayload{Kind: "module", Order: 1})
	require.NoError(t, err)

	ids, err := store.CreateSubEntities(ctx, []helix.SubEntityPayload{
		{ParentID: superID, EntityPayload: helix.EntityPayload{Kind: "a", Order: 1}},
		{ParentID: superID, EntityPayload: helix.EntityPayload{Kind: "b", Order: 2}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	children := store.ChildrenOf(superID)
	require.Len(t, children, 2)
	assert.Equal(t, "a", children[0].Entity.Kind)
	assert.Equal(t, 1, store.EntityDepth(ids[0]))
	assert.Equal(t, 0, store.EntityDepth(superID))

	// A batch referencing an unknown parent fails wholesale.
	_, err = store.CreateSubEntities(ctx, []helix.SubEntityPayload{
		{ParentID: "missing", EntityPayload: helix.EntityPayload{Kind: "c", Order: 1}},
	})
	assert.Error(t, err)
}

func TestMemStore_Accessors(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	rootID, _ := store.CreateRoot(ctx, "proj")
	fileID, _ := store.CreateSuperFile(ctx, rootID, "a.py", "py", "")
	entityID, _ := store.CreateSuperEntity(ctx, fileID, helix.EntityPayload{Kind: "module", Order: 1})
	_ = store.EmbedSuperEntity(ctx, entityID, []float64{0.1})
	_ = store.EmbedSuperEntity(ctx, entityID, []float64{0.2})

	assert.Len(t, store.NodesByKind(KindRoot), 1)
	assert.Len(t, store.NodesByKind(KindFile), 1)
	assert.Len(t, store.Vectors(entityID), 2)
	assert.Equal(t, 2, store.VectorCount())
	assert.NotNil(t, store.Node(fileID))
	assert.Nil(t, store.Node("missing"))
}

func TestMemStore_FailOn(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	boom := errors.New("boom")
	store.FailOn("createRoot", boom)
	_, err := store.CreateRoot(ctx, "proj")
	assert.ErrorIs(t, err, boom)
}

func TestWriteTree(t *testing.T) {
	root := WriteTree(t, map[string]string{
		"main.py":          "def f():\n    pass\n",
		"pkg/deep/util.py": "x = 1\n",
	})

	data, err := os.ReadFile(filepath.Join(root, "main.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "def f()")

	_, err = os.Stat(filepath.Join(root, "pkg", "deep", "util.py"))
	assert.NoError(t, err)
}
