// Package stream defines the lazy, single-pass chunk streams that flow
// between pipeline stages.
//
// The source system modeled streams as mutable objects supporting
// append-while-iterating. Per the redesign guidance that pattern is
// error-prone in a systems language; streams here are construct-then-consume
// only — sources are appended to a Builder, and once the builder's stream
// has started being ranged over, further appends fail. Each stage is a
// plain function from one stream type to another (an iterator adaptor),
// composed by a pipeline builder rather than an inheritance chain.
package stream

import (
	"errors"
	"iter"

	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk"
)

// ErrAlreadyConsumed is returned by Append once the builder's stream has
// started being iterated.
var ErrAlreadyConsumed = errors.New("stream: cannot append after iteration has started")

// Encoded is a lazy sequence of encoded chunks. The error is non-nil only
// when the underlying byte source itself failed (e.g. a read error from the
// ingest side); it is not used for UTF-8 validity, which is the decode
// healer's concern.
type Encoded = iter.Seq2[chunk.Encoded, error]

// Decoded is a lazy sequence of decoded chunks. A non-nil error is fatal —
// per spec, a DecodeError terminates the stream — and ranging should stop
// at the first one.
type Decoded = iter.Seq2[chunk.Decoded, error]
