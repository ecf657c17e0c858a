package sink

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/embedding"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/vectorstore"
)

// zeroBackoff retries immediately, keeping retry tests fast and deterministic.
func zeroBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)
}

type fakeEmbedder struct {
	mu         sync.Mutex
	batchLimit int
	calls      [][]string
	failFirstN int
	permanent  bool
}

func (f *fakeEmbedder) BatchLimit() int { return f.batchLimit }

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{}, texts...))
	attempt := len(f.calls)
	f.mu.Unlock()

	if attempt <= f.failFirstN {
		if f.permanent {
			return nil, errors.New("embedding: bad request")
		}
		return nil, &embedding.TransientError{Cause: errors.New("embedding: timeout")}
	}

	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

type fakeStore struct {
	mu         sync.Mutex
	batchLimit int
	upserted   []vectorstore.Record
	calls      int
	failFirstN int
}

func (f *fakeStore) BatchLimit() int { return f.batchLimit }

func (f *fakeStore) UpsertBatch(ctx context.Context, records []vectorstore.Record) error {
	f.mu.Lock()
	f.calls++
	attempt := f.calls
	f.mu.Unlock()

	if attempt <= f.failFirstN {
		return &vectorstore.TransientError{Cause: errors.New("vectorstore: timeout")}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, records...)
	return nil
}

func decodedStream(texts ...string) iter.Seq2[chunk.Decoded, error] {
	return func(yield func(chunk.Decoded, error) bool) {
		var offset uint64
		for _, text := range texts {
			c := chunk.NewDecoded(text, offset)
			offset = c.End
			if !yield(c, nil) {
				return
			}
		}
	}
}

func TestSink_Run_BatchesAndUpsertsWithComputedIDs(t *testing.T) {
	embedder := &fakeEmbedder{batchLimit: 2}
	store := &fakeStore{batchLimit: 2}
	s, err := New(embedder, store, 4)
	require.NoError(t, err)

	doc := Document{
		Chunks:   decodedStream("ab", "cd", "ef"),
		Prefix:   "doc-1",
		Metadata: map[string]any{"source": "doc-1.txt"},
	}

	require.NoError(t, s.Run(icontext.Background(), doc))

	require.Len(t, store.upserted, 3)
	ids := make([]string, len(store.upserted))
	for i, rec := range store.upserted {
		ids[i] = rec.ID
		assert.Equal(t, map[string]any{"source": "doc-1.txt"}, rec.Metadata)
	}
	assert.Equal(t, []string{"doc-1:0-2", "doc-1:2-4", "doc-1:4-6"}, ids)
}

func TestSink_Run_BatchSizeDefaultsToProviderMin(t *testing.T) {
	embedder := &fakeEmbedder{batchLimit: 3}
	store := &fakeStore{batchLimit: 2}
	s, err := New(embedder, store, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, s.batchSize)
}

func TestNew_RejectsBatchSizeAboveProviderLimit(t *testing.T) {
	embedder := &fakeEmbedder{batchLimit: 3}
	store := &fakeStore{batchLimit: 2}
	_, err := New(embedder, store, 1, WithBatchSize(3))
	assert.Error(t, err)
}

func TestNew_RejectsNonPositiveConcurrency(t *testing.T) {
	embedder := &fakeEmbedder{batchLimit: 3}
	store := &fakeStore{batchLimit: 2}
	_, err := New(embedder, store, 0)
	assert.Error(t, err)
}

func TestSink_Run_RetriesTransientEmbeddingFailures(t *testing.T) {
	embedder := &fakeEmbedder{batchLimit: 10, failFirstN: 2}
	store := &fakeStore{batchLimit: 10}
	s, err := New(embedder, store, 1)
	require.NoError(t, err)
	s.embedBackoff = zeroBackoff

	doc := Document{Chunks: decodedStream("ab"), Prefix: "doc"}
	require.NoError(t, s.Run(icontext.Background(), doc))
	require.Len(t, store.upserted, 1)

	embedder.mu.Lock()
	defer embedder.mu.Unlock()
	assert.GreaterOrEqual(t, len(embedder.calls), 3, "should have retried past the first two transient failures")
}

func TestSink_Run_PermanentEmbeddingFailureAbortsWithoutExhaustingRetries(t *testing.T) {
	embedder := &fakeEmbedder{batchLimit: 10, failFirstN: 1, permanent: true}
	store := &fakeStore{batchLimit: 10}
	s, err := New(embedder, store, 1)
	require.NoError(t, err)

	doc := Document{Chunks: decodedStream("ab"), Prefix: "doc"}
	runErr := s.Run(icontext.Background(), doc)
	require.Error(t, runErr)
	embedder.mu.Lock()
	defer embedder.mu.Unlock()
	assert.Len(t, embedder.calls, 1, "a permanent failure must not be retried")
}

func TestSink_Run_PropagatesStreamError(t *testing.T) {
	embedder := &fakeEmbedder{batchLimit: 10}
	store := &fakeStore{batchLimit: 10}
	s, err := New(embedder, store, 1)
	require.NoError(t, err)

	boom := errors.New("boom")
	broken := func(yield func(chunk.Decoded, error) bool) {
		if !yield(chunk.Decoded{}, boom) {
			return
		}
	}

	runErr := s.Run(icontext.Background(), Document{Chunks: broken, Prefix: "doc"})
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, boom)
}

func TestSink_Run_MultipleDocumentsKeepDistinctPrefixes(t *testing.T) {
	embedder := &fakeEmbedder{batchLimit: 10}
	store := &fakeStore{batchLimit: 10}
	s, err := New(embedder, store, 2)
	require.NoError(t, err)

	docs := []Document{
		{Chunks: decodedStream("a"), Prefix: "doc-a"},
		{Chunks: decodedStream("b"), Prefix: "doc-b"},
	}
	require.NoError(t, s.Run(icontext.Background(), docs...))

	require.Len(t, store.upserted, 2)
	ids := map[string]bool{}
	for _, rec := range store.upserted {
		ids[rec.ID] = true
	}
	assert.True(t, ids["doc-a:0-1"])
	assert.True(t, ids["doc-b:0-1"])
}
