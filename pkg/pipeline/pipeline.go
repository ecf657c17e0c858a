// Package pipeline composes the chunk-transformation stages (decode
// healing, word healing, token-bounded resizing) into a single Encoded-to-
// Decoded transformation, so callers don't wire pkg/chunk/healer and
// pkg/chunk/resize together by hand.
//
// Per the "decorator/inheritance chain -> stage trait" redesign note, the
// pipeline is not an object stages are appended onto; it is a plain
// function built from other plain functions, each already an iterator
// adaptor over stream.Encoded/stream.Decoded.
package pipeline

import (
	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/healer"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/resize"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/stream"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/tokenizer"
)

// Option configures Transform and NewBuilder.
type Option func(*config)

type config struct {
	wordHealerOpts []healer.WordHealerOption
	resizeOpts     []resize.Option
}

// WithWordHealerOptions forwards opts to the word-healing stage.
func WithWordHealerOptions(opts ...healer.WordHealerOption) Option {
	return func(c *config) { c.wordHealerOpts = append(c.wordHealerOpts, opts...) }
}

// WithResizeOptions forwards opts to the resize stage (token bounds,
// tokenizer, preferred delimiters).
func WithResizeOptions(opts ...resize.Option) Option {
	return func(c *config) { c.resizeOpts = append(c.resizeOpts, opts...) }
}

// WithTokenizer is shorthand for WithResizeOptions(resize.WithTokenizer(t)).
// Without it, the resize stage falls back to the process-wide
// tokenizer.Shared() instance (see resize.ByNumTokens).
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return WithResizeOptions(resize.WithTokenizer(t))
}

// WithTokenBounds is shorthand for WithResizeOptions(resize.WithTokenBounds(min, max)).
func WithTokenBounds(min, max int) Option {
	return WithResizeOptions(resize.WithTokenBounds(min, max))
}

// Transform runs the full decode-heal -> word-heal -> resize chain over an
// encoded chunk stream, producing the token-bounded decoded chunk stream
// the sink consumes. ctx's logger receives each stage's contiguity-gap and
// error diagnostics.
func Transform(ctx icontext.Context, in stream.Encoded, opts ...Option) stream.Decoded {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	decoded := healer.DecodeSplitCharacters(ctx, in)
	healed := healer.HealSplitWords(ctx, decoded, cfg.wordHealerOpts...)
	return resize.ByNumTokens(ctx, healed, cfg.resizeOpts...)
}

// Builder accumulates encoded chunk sources the way stream.EncodedBuilder
// does, then produces the fully transformed Decoded stream in one call —
// a convenience for callers (the CLI) assembling a document's partitions
// from several append calls before transforming.
type Builder struct {
	encoded *stream.EncodedBuilder
	opts    []Option
}

// NewBuilder returns an empty Builder. opts are applied to every Transform
// call produced by Seq.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{encoded: stream.NewEncodedBuilder(), opts: opts}
}

// Append adds an already-chunked Encoded stream. It fails once Seq has
// begun iterating, mirroring stream.EncodedBuilder.Append.
func (b *Builder) Append(s stream.Encoded) error {
	return b.encoded.Append(s)
}

// Seq returns the transformed Decoded stream over everything appended so
// far. Once the returned stream begins iterating, the builder is marked as
// started and further Append calls fail.
func (b *Builder) Seq(ctx icontext.Context) stream.Decoded {
	return Transform(ctx, b.encoded.Seq(), b.opts...)
}
