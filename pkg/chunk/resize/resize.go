// Package resize implements the final pipeline stage: resizing a healed
// decoded chunk stream into chunks bounded by a minimum and maximum BPE
// token count.
package resize

import (
	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/stream"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/seq"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/tokenizer"
)

const (
	// DefaultMinTokensPerChunk is the minimum token count a resized chunk
	// must reach before it is emitted, except for a short tail that is
	// discarded rather than emitted below this bound.
	DefaultMinTokensPerChunk = 50
	// DefaultMaxTokensPerChunk bounds how many tokens a single resized chunk
	// may contain before it is split at a preferred delimiter (or, absent
	// one, at the raw token boundary).
	DefaultMaxTokensPerChunk = 200
	// DefaultPreferredDelimiters are the characters preferred as a split
	// point: each head of at most max tokens is cut after the last of them
	// when the part up to the cut still has at least min tokens.
	DefaultPreferredDelimiters = ".!?\n"
)

// Option configures ByNumTokens.
type Option func(*config)

type config struct {
	min, max            int
	tokenizer           tokenizer.Tokenizer
	preferredDelimiters map[rune]struct{}
}

// WithTokenBounds overrides the default minimum/maximum tokens per chunk.
func WithTokenBounds(min, max int) Option {
	return func(c *config) { c.min, c.max = min, max }
}

// WithTokenizer supplies the tokenizer used to count and split tokens,
// injected rather than referencing a package-level singleton.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(c *config) { c.tokenizer = t }
}

// WithPreferredDelimiters overrides the characters preferred as a split
// point (see ByNumTokens).
func WithPreferredDelimiters(chars string) Option {
	return func(c *config) { c.preferredDelimiters = seq.RuneSet(chars) }
}

// ByNumTokens resizes a healed decoded chunk stream so every emitted chunk
// (except possibly a final sub-minimum tail, which is discarded) has between
// min and max tokens, inclusive. Tokens are taken in heads of at most max
// tokens, and each head is cut after its last preferred delimiter when the
// part up to and including that delimiter still has at least min tokens
// (whether or not the input chunk exceeded max); the rest is carried into
// the next head. Undersized chunks are carried forward and fused with the
// next chunk if it is contiguous.
//
// When no tokenizer is supplied via WithTokenizer, tokenizer.Shared() is used.
func ByNumTokens(ctx icontext.Context, in stream.Decoded, opts ...Option) stream.Decoded {
	cfg := config{
		min:                 DefaultMinTokensPerChunk,
		max:                 DefaultMaxTokensPerChunk,
		preferredDelimiters: seq.RuneSet(DefaultPreferredDelimiters),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(chunk.Decoded, error) bool) {
		if cfg.tokenizer == nil {
			var err error
			cfg.tokenizer, err = tokenizer.Shared()
			if err != nil {
				yield(chunk.Decoded{}, err)
				return
			}
		}

		var leftover []uint32
		var leftoverByteLen uint64
		var nextStart uint64

		for c, err := range in {
			if err != nil {
				yield(chunk.Decoded{}, err)
				return
			}

			if c.Start != nextStart+leftoverByteLen {
				if leftoverByteLen > 0 {
					ctx.Logger().V(1).Info("resize stage resyncing on contiguity gap",
						"dropped_leftover_bytes", leftoverByteLen, "expected_start", nextStart+leftoverByteLen, "got_start", c.Start)
				}
				leftover = nil
				leftoverByteLen = 0
				nextStart = c.Start
			}

			chunkTokens, encErr := cfg.tokenizer.Encode(c.Text, false)
			if encErr != nil {
				yield(chunk.Decoded{}, encErr)
				return
			}

			tokens := make([]uint32, 0, len(leftover)+len(chunkTokens))
			tokens = append(tokens, leftover...)
			tokens = append(tokens, chunkTokens...)
			nTokens := len(tokens)

			if nTokens < cfg.min {
				leftover = tokens
				leftoverByteLen, err = cachedByteLen(cfg.tokenizer, leftover)
				if err != nil {
					yield(chunk.Decoded{}, err)
					return
				}
				continue
			}

			for nTokens >= cfg.min {
				take := cfg.max
				if take > len(tokens) {
					take = len(tokens)
				}
				resizedTokens := tokens[:take]
				tokens = tokens[take:]
				nTokens -= len(resizedTokens)

				resizedText, decErr := cfg.tokenizer.Decode(resizedTokens)
				if decErr != nil {
					yield(chunk.Decoded{}, decErr)
					return
				}

				runes := []rune(resizedText)
				preferredIdx := seq.IndexAny(runes, cfg.preferredDelimiters, 0, len(runes), true)

				if preferredIdx >= 0 {
					textToDelimiter := string(runes[:preferredIdx+1])
					tokensToDelimiter, err := cfg.tokenizer.Encode(textToDelimiter, false)
					if err != nil {
						yield(chunk.Decoded{}, err)
						return
					}
					if len(tokensToDelimiter) >= cfg.min {
						textAfterDelimiter := string(runes[preferredIdx+1:])
						resizedText = textToDelimiter
						// Re-encode the remainder instead of slicing
						// resizedTokens, since the delimiter-bounded
						// encoding cannot be compared token-for-token
						// against the original full-chunk encoding.
						tokensAfterDelimiter, err := cfg.tokenizer.Encode(textAfterDelimiter, false)
						if err != nil {
							yield(chunk.Decoded{}, err)
							return
						}
						rest := make([]uint32, 0, len(tokensAfterDelimiter)+len(tokens))
						rest = append(rest, tokensAfterDelimiter...)
						rest = append(rest, tokens...)
						tokens = rest
						nTokens += len(tokensAfterDelimiter)
					}
				}

				end := nextStart + uint64(len(resizedText))
				out := chunk.NewDecodedSpan(resizedText, nextStart, end)
				nextStart = end
				if !yield(out, nil) {
					return
				}
			}

			leftover = tokens
			leftoverByteLen, err = cachedByteLen(cfg.tokenizer, leftover)
			if err != nil {
				yield(chunk.Decoded{}, err)
				return
			}
		}
		// End of stream: any remaining leftover is a sub-minimum tail with
		// no contiguous successor to fuse with, and is discarded.
	}
}

// cachedByteLen decodes tokens once to obtain the encoded byte length the
// next iteration's contiguity check needs, so that length is computed
// exactly once per leftover change rather than on every comparison.
func cachedByteLen(t tokenizer.Tokenizer, tokens []uint32) (uint64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	text, err := t.Decode(tokens)
	if err != nil {
		return 0, err
	}
	return uint64(len(text)), nil
}
