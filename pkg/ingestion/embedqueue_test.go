package ingestion_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cgtesting "github.com/kraklabs/codegraph/internal/testing"
	"github.com/kraklabs/codegraph/pkg/helix"
	"github.com/kraklabs/codegraph/pkg/ingestion"
)

// failingProvider errors on every chunk.
type failingProvider struct{}

func (failingProvider) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("provider down")
}

func seedSuperEntity(t *testing.T, store *cgtesting.MemStore) string {
	t.Helper()

	ctx := context.Background()
	rootID, err := store.CreateRoot(ctx, "test")
	require.NoError(t, err)
	fileID, err := store.CreateSuperFile(ctx, rootID, "f.py", "py", "x = 1\n")
	require.NoError(t, err)
	entityID, err := store.CreateSuperEntity(ctx, fileID, helix.EntityPayload{Kind: "module", Order: 1, Text: "x = 1\n"})
	require.NoError(t, err)
	return entityID
}

func TestEmbedQueue_DrainCompletesAllJobs(t *testing.T) {
	store := cgtesting.NewMemStore()
	entityID := seedSuperEntity(t, store)

	q := ingestion.NewEmbedQueue(context.Background(), store, ingestion.NewPlaceholderEmbeddingProvider(8), 4, nil)
	for i := 0; i < 20; i++ {
		q.Enqueue(entityID, fmt.Sprintf("chunk %d", i))
	}
	q.Drain()

	assert.Equal(t, int64(20), q.Enqueued())
	assert.Equal(t, int64(20), q.Completed())
	assert.Zero(t, q.Failed())
	assert.Zero(t, q.Pending())
	assert.Len(t, store.Vectors(entityID), 20)
}

func TestEmbedQueue_ProviderFailureCounted(t *testing.T) {
	store := cgtesting.NewMemStore()
	entityID := seedSuperEntity(t, store)

	q := ingestion.NewEmbedQueue(context.Background(), store, failingProvider{}, 2, nil)
	q.Enqueue(entityID, "chunk")
	q.Enqueue(entityID, "chunk")
	q.Drain()

	assert.Zero(t, q.Completed())
	assert.Equal(t, int64(2), q.Failed())
	assert.Empty(t, store.Vectors(entityID))
}

func TestEmbedQueue_StoreFailureCounted(t *testing.T) {
	store := cgtesting.NewMemStore()
	entityID := seedSuperEntity(t, store)
	store.FailOn("embedSuperEntity", errors.New("store down"))

	q := ingestion.NewEmbedQueue(context.Background(), store, ingestion.NewPlaceholderEmbeddingProvider(8), 1, nil)
	q.Enqueue(entityID, "chunk")
	q.Drain()

	assert.Zero(t, q.Completed())
	assert.Equal(t, int64(1), q.Failed())
}

func TestEmbedQueue_CancelledContextFailsRemaining(t *testing.T) {
	store := cgtesting.NewMemStore()
	entityID := seedSuperEntity(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := ingestion.NewEmbedQueue(ctx, store, ingestion.NewPlaceholderEmbeddingProvider(8), 2, nil)
	q.Enqueue(entityID, "chunk")
	q.Drain()

	assert.Zero(t, q.Completed())
	assert.Equal(t, int64(1), q.Failed())
}
