package stream

import (
	"iter"

	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk"
)

// DecodedBuilder accumulates sources of a Decoded stream, construct-then-
// consume only, mirroring EncodedBuilder.
type DecodedBuilder struct {
	sources []Decoded
	started bool
}

// NewDecodedBuilder returns an empty builder.
func NewDecodedBuilder() *DecodedBuilder {
	return &DecodedBuilder{}
}

// Append adds an already-chunked Decoded stream. It fails once the
// builder's Seq has begun iterating.
func (b *DecodedBuilder) Append(s Decoded) error {
	if b.started {
		return ErrAlreadyConsumed
	}
	b.sources = append(b.sources, s)
	return nil
}

// AppendWrapped wraps a raw string sequence with contiguous offset
// numbering (each next start equals the previous end, in encoded bytes).
func (b *DecodedBuilder) AppendWrapped(raw iter.Seq[string], start uint64) error {
	return b.Append(WrapDecoded(raw, start))
}

// AppendWrappedStarts wraps a raw string sequence paired with explicit
// per-chunk start offsets, and appends it.
func (b *DecodedBuilder) AppendWrappedStarts(raw iter.Seq2[string, uint64]) error {
	return b.Append(WrapDecodedStarts(raw))
}

// Seq returns the concatenation of all appended sources, in append order.
func (b *DecodedBuilder) Seq() Decoded {
	return func(yield func(chunk.Decoded, error) bool) {
		b.started = true
		for _, s := range b.sources {
			stopped := false
			s(func(c chunk.Decoded, err error) bool {
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

// WrapDecoded converts a raw string sequence into a Decoded stream,
// numbering chunks contiguously from start.
func WrapDecoded(raw iter.Seq[string], start uint64) Decoded {
	return func(yield func(chunk.Decoded, error) bool) {
		next := start
		for text := range raw {
			c := chunk.NewDecoded(text, next)
			next = c.End
			if !yield(c, nil) {
				return
			}
		}
	}
}

// WrapDecodedStarts converts a raw string sequence paired with explicit
// start offsets into a Decoded stream.
func WrapDecodedStarts(raw iter.Seq2[string, uint64]) Decoded {
	return func(yield func(chunk.Decoded, error) bool) {
		for text, start := range raw {
			if !yield(chunk.NewDecoded(text, start), nil) {
				return
			}
		}
	}
}

// Collect drains a Decoded stream into a slice, stopping at the first
// error. Intended for tests and small fixtures; pipeline consumers should
// range over the stream directly instead.
func Collect(s Decoded) ([]chunk.Decoded, error) {
	var out []chunk.Decoded
	for c, err := range s {
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// CollectEncoded is the Encoded-stream analogue of Collect.
func CollectEncoded(s Encoded) ([]chunk.Encoded, error) {
	var out []chunk.Encoded
	for c, err := range s {
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}
