// Package sink drains a decoded chunk stream into an embedding provider and
// a vector store: chunks are batched, embedded, and upserted concurrently,
// bounded by a configured concurrency cap.
//
// Batch-boundary bookkeeping follows
// _examples/original_source/gpt_retrieval/document/chunk/stream/processing.py
// (embed_and_upsert_decoded_chunk_stream): vector id prefixes and metadata
// are associated per document rather than threaded through the stream
// itself, so a document's chunks share one prefix/metadata pair across
// however many batches they're split into.
package sink

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"

	"github.com/callumcurtis/llm-retrieval-stack/internal/channelmetrics"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/stream"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/embedding"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/vectorstore"
)

// Document pairs a decoded chunk stream with the vector-store identity its
// chunks should be upserted under: every vector produced from Chunks gets
// the id "{Prefix}:{chunk.Start}-{chunk.End}" and Metadata attached.
type Document struct {
	Chunks   stream.Decoded
	Prefix   string
	Metadata map[string]any
}

// Sink batches, embeds, and upserts decoded chunk streams.
type Sink struct {
	embedClient embedding.Client
	storeClient vectorstore.Client

	maxConcurrentBatches int
	batchSize            int

	embedBackoff  func() backoff.BackOff
	upsertBackoff func() backoff.BackOff

	metrics channelmetrics.MetricsCollector
}

// Option configures a Sink constructed by New.
type Option func(*Sink) error

// WithBatchSize overrides the sink's batch size. It must not exceed
// min(embedClient.BatchLimit(), storeClient.BatchLimit()); New validates
// this once both clients and the override are known.
func WithBatchSize(n int) Option {
	return func(s *Sink) error {
		if n <= 0 {
			return fmt.Errorf("sink: batch_size must be positive, got %d", n)
		}
		s.batchSize = n
		return nil
	}
}

// WithMetricsCollector instruments the sink's internal batch queue with the
// given collector (e.g. a prometheus.MetricsCollector). Without this
// option, metrics are recorded into a no-op collector.
func WithMetricsCollector(m channelmetrics.MetricsCollector) Option {
	return func(s *Sink) error { s.metrics = m; return nil }
}

// New builds a Sink. maxConcurrentBatches bounds how many batches are
// in-flight (embedding + upsert) at once; it must be positive.
func New(embedClient embedding.Client, storeClient vectorstore.Client, maxConcurrentBatches int, opts ...Option) (*Sink, error) {
	if maxConcurrentBatches <= 0 {
		return nil, fmt.Errorf("sink: max_concurrent_batches must be positive, got %d", maxConcurrentBatches)
	}

	s := &Sink{
		embedClient:          embedClient,
		storeClient:          storeClient,
		maxConcurrentBatches: maxConcurrentBatches,
		embedBackoff:         defaultEmbedBackoff,
		upsertBackoff:        defaultUpsertBackoff,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	maxBatchSize := min(embedClient.BatchLimit(), storeClient.BatchLimit())
	if s.batchSize == 0 {
		s.batchSize = maxBatchSize
	}
	if s.batchSize > maxBatchSize {
		return nil, fmt.Errorf("sink: batch_size %d exceeds provider limit %d", s.batchSize, maxBatchSize)
	}

	return s, nil
}

// defaultEmbedBackoff is the §4.8/§7 schedule for embedding calls: min 1s,
// max 20s, 6 attempts.
func defaultEmbedBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(newExponentialBackoff(), 5)
}

// defaultUpsertBackoff is the §4.8/§7 schedule for upsert calls: min 1s,
// max 20s, 3 attempts.
func defaultUpsertBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(newExponentialBackoff(), 2)
}

func newExponentialBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 20 * time.Second
	return b
}

// batch is one sink unit of work: a contiguous run of a document's chunks,
// no larger than the sink's batch size.
type batch struct {
	chunks   []chunk.Decoded
	prefix   string
	metadata map[string]any
}

// Run drains every document's chunk stream to completion, embedding and
// upserting in batches. It returns the first terminal error encountered
// across all batches (errgroup cancels the shared context on first error,
// so in-flight batches stop early but may still report their own errors).
func (s *Sink) Run(ctx icontext.Context, docs ...Document) error {
	g, stdGCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrentBatches)
	gCtx := icontext.WithLogger(stdGCtx, ctx.Logger())

	queue := channelmetrics.NewObservableChan(make(chan struct{}, s.maxConcurrentBatches), s.metrics)
	defer queue.Close()

docs:
	for _, doc := range docs {
		for b, err := range s.batches(doc) {
			if err != nil {
				g.Go(func() error { return err })
				break docs
			}

			if err := queue.Send(gCtx, struct{}{}); err != nil {
				break docs
			}

			g.Go(func() error {
				defer queue.Recv(gCtx)
				return s.runBatch(gCtx, b)
			})
		}
	}

	return g.Wait()
}

// batches splits doc.Chunks into groups of at most s.batchSize, stopping
// (and yielding the error) at the first stream error.
func (s *Sink) batches(doc Document) func(func(batch, error) bool) {
	return func(yield func(batch, error) bool) {
		current := make([]chunk.Decoded, 0, s.batchSize)
		flush := func() bool {
			if len(current) == 0 {
				return true
			}
			b := batch{chunks: current, prefix: doc.Prefix, metadata: doc.Metadata}
			current = make([]chunk.Decoded, 0, s.batchSize)
			return yield(b, nil)
		}

		for c, err := range doc.Chunks {
			if err != nil {
				yield(batch{}, err)
				return
			}
			current = append(current, c)
			if len(current) == s.batchSize {
				if !flush() {
					return
				}
			}
		}
		flush()
	}
}

// runBatch embeds and upserts a single batch, retrying each call per the
// configured backoff schedules. A backoff.Permanent error (anything other
// than embedding.TransientError/vectorstore.TransientError) aborts
// immediately without exhausting the schedule.
func (s *Sink) runBatch(ctx icontext.Context, b batch) error {
	if len(b.chunks) == 0 {
		return nil
	}

	texts := make([]string, len(b.chunks))
	for i, c := range b.chunks {
		texts[i] = c.Text
	}

	var embeddings [][]float32
	embedAttempt := 0
	embedErr := backoff.Retry(func() error {
		embedAttempt++
		vectors, err := s.embedClient.EmbedBatch(ctx, texts)
		if err != nil {
			var transient *embedding.TransientError
			if !isTransient(err, &transient) {
				return backoff.Permanent(err)
			}
			ctx.Logger().V(1).Info("retrying embedding batch", "attempt", embedAttempt, "error", err.Error())
			return err
		}
		embeddings = vectors
		return nil
	}, backoff.WithContext(s.embedBackoff(), ctx))
	if embedErr != nil {
		embedErr = fmt.Errorf("sink: embedding batch: %w", embedErr)
		ctx.Logger().Error(embedErr, "embedding batch failed", "attempts", embedAttempt)
		return embedErr
	}

	records := make([]vectorstore.Record, len(b.chunks))
	for i, c := range b.chunks {
		records[i] = vectorstore.Record{
			ID:       fmt.Sprintf("%s:%d-%d", b.prefix, c.Start, c.End),
			Vector:   embeddings[i],
			Metadata: b.metadata,
		}
	}

	upsertAttempt := 0
	upsertErr := backoff.Retry(func() error {
		upsertAttempt++
		err := s.storeClient.UpsertBatch(ctx, records)
		if err != nil {
			var transient *vectorstore.TransientError
			if !isTransient(err, &transient) {
				return backoff.Permanent(err)
			}
			ctx.Logger().V(1).Info("retrying upsert batch", "attempt", upsertAttempt, "error", err.Error())
			return err
		}
		return nil
	}, backoff.WithContext(s.upsertBackoff(), ctx))
	if upsertErr != nil {
		upsertErr = fmt.Errorf("sink: upserting batch: %w", upsertErr)
		ctx.Logger().Error(upsertErr, "upserting batch failed", "attempts", upsertAttempt)
		return upsertErr
	}

	return nil
}

// isTransient reports whether err (or something it wraps) is a
// *embedding.TransientError/*vectorstore.TransientError, writing the match
// into target the way errors.As does. Declared generically over the two
// provider packages' otherwise-identical TransientError types so runBatch
// doesn't need two near-duplicate retry loops.
func isTransient[T error](err error, target *T) bool {
	for err != nil {
		if t, ok := err.(T); ok {
			*target = t
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
