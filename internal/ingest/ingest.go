// Package ingest supplies the (bytes, start_offset) source the pipeline
// head consumes: a fixed-size byte-range partitioner over an io.Reader,
// grounded in and adapted from internal/common/chunker.go's ChunkReader. It
// stands in for the real upstream object-store partitioner so the pipeline
// is runnable end-to-end without one.
package ingest

import (
	"context"
	"io"
	"iter"

	"github.com/callumcurtis/llm-retrieval-stack/internal/buffers/pool"
	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"
)

// DefaultChunkSize mirrors the teacher's ChunkSize constant: the byte
// length of each partition this package produces when reading a document
// in order.
const DefaultChunkSize = 10 * 1024

// PartitionRange is an explicit, already-offset byte range of a document,
// for callers that need to construct out-of-order, overlapping, or
// non-contiguous partition sequences directly — the scenarios the
// pipeline's contiguity handling exists for — rather than reading a
// document start-to-end.
type PartitionRange struct {
	Data  []byte
	Start uint64
}

// Partitions reads r to completion in order, yielding fixed-size
// (data, start) pairs with contiguous, ascending offsets starting at 0. The
// final partition may be shorter than chunkSize. A non-positive chunkSize
// falls back to DefaultChunkSize.
//
// The result is consumable directly by
// stream.EncodedBuilder.AppendWrappedStarts.
// Partitions reads each fixed-size range into a buffer checked out of the
// shared buffer pool (internal/buffers/pool), the same reuse mechanism the
// teacher uses to avoid a fresh allocation per read, and hands the caller an
// owned copy before returning the buffer to the pool.
func Partitions(r io.Reader, chunkSize int) iter.Seq2[[]byte, uint64] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return func(yield func([]byte, uint64) bool) {
		ctx := icontext.AddLogger(context.Background())
		bufPool := pool.GetSharedBufferPool()
		var offset uint64
		for {
			buf := bufPool.Get(ctx)
			_, err := io.CopyN(buf, r, int64(chunkSize))
			n := buf.Len()
			var data []byte
			if n > 0 {
				data = append([]byte(nil), buf.Bytes()...)
			}
			bufPool.Put(buf)
			if n > 0 {
				if !yield(data, offset) {
					return
				}
				offset += uint64(n)
			}
			if err != nil {
				// io.EOF (clean end) or io.ErrUnexpectedEOF (a final
				// short read) both terminate the sequence cleanly. Any
				// other read error is logged, not propagated, the same
				// way the teacher's ChunkReader only logs read errors
				// rather than returning them, since the resulting
				// partial chunk is still usable by the partition-damage
				// healers downstream.
				if err != io.EOF && err != io.ErrUnexpectedEOF {
					ctx.Logger().Error(err, "ingest: partition read failed")
				}
				return
			}
		}
	}
}

// FromRanges turns an explicit list of partitions into the same
// (data, start) sequence Partitions produces, in the order given —
// including out-of-order, overlapping, or gapped orderings — for tests and
// callers exercising the pipeline's contiguity handling directly.
func FromRanges(ranges []PartitionRange) iter.Seq2[[]byte, uint64] {
	return func(yield func([]byte, uint64) bool) {
		for _, p := range ranges {
			if !yield(p.Data, p.Start) {
				return
			}
		}
	}
}
