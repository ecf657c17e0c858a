package stream

import (
	"iter"

	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk"
)

// EncodedBuilder accumulates sources of an Encoded stream and exposes them
// as a single construct-then-consume sequence.
type EncodedBuilder struct {
	sources []Encoded
	started bool
}

// NewEncodedBuilder returns an empty builder.
func NewEncodedBuilder() *EncodedBuilder {
	return &EncodedBuilder{}
}

// Append adds an already-chunked Encoded stream to the end of the builder.
// It fails once the builder's Seq has begun iterating.
func (b *EncodedBuilder) Append(s Encoded) error {
	if b.started {
		return ErrAlreadyConsumed
	}
	b.sources = append(b.sources, s)
	return nil
}

// AppendWrapped wraps a raw byte-slice sequence with contiguous offset
// numbering starting at start, and appends it.
func (b *EncodedBuilder) AppendWrapped(raw iter.Seq[[]byte], start uint64) error {
	return b.Append(WrapEncoded(raw, start))
}

// AppendWrappedStarts wraps a raw byte-slice sequence paired with explicit
// per-chunk start offsets (the "parallel iterator of explicit starts" mode),
// and appends it.
func (b *EncodedBuilder) AppendWrappedStarts(raw iter.Seq2[[]byte, uint64]) error {
	return b.Append(WrapEncodedStarts(raw))
}

// Seq returns the concatenation of all appended sources, in the order they
// were appended. Once the returned stream begins iterating, the builder is
// marked as started and further Append calls fail.
func (b *EncodedBuilder) Seq() Encoded {
	return func(yield func(chunk.Encoded, error) bool) {
		b.started = true
		for _, s := range b.sources {
			stopped := false
			s(func(c chunk.Encoded, err error) bool {
				if !yield(c, err) {
					stopped = true
					return false
				}
				return true
			})
			if stopped {
				return
			}
		}
	}
}

// WrapEncoded converts a raw byte-slice sequence into an Encoded stream,
// numbering chunks contiguously from start (each next start equals the
// previous end).
func WrapEncoded(raw iter.Seq[[]byte], start uint64) Encoded {
	return func(yield func(chunk.Encoded, error) bool) {
		next := start
		for data := range raw {
			c := chunk.NewEncoded(data, next)
			next = c.End
			if !yield(c, nil) {
				return
			}
		}
	}
}

// WrapEncodedStarts converts a raw byte-slice sequence paired with explicit
// start offsets into an Encoded stream. Use this for sparse, out-of-order,
// or otherwise non-contiguous partitions (the common case when partitions
// arrive from an upstream object store).
func WrapEncodedStarts(raw iter.Seq2[[]byte, uint64]) Encoded {
	return func(yield func(chunk.Encoded, error) bool) {
		for data, start := range raw {
			if !yield(chunk.NewEncoded(data, start), nil) {
				return
			}
		}
	}
}
