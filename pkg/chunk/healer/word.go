package healer

import (
	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/stream"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/seq"
)

// DefaultWordDelimiters mirrors the original implementation's default word
// boundary set: space, common sentence punctuation, an em dash, and the
// ASCII whitespace control characters.
const DefaultWordDelimiters = " .,;:!?-—\t\n\r\f\v"

// WordHealerOption configures HealSplitWords.
type WordHealerOption func(*wordHealerConfig)

type wordHealerConfig struct {
	delimiters map[rune]struct{}
}

// WithWordDelimiters overrides the default delimiter set.
func WithWordDelimiters(chars string) WordHealerOption {
	return func(c *wordHealerConfig) {
		c.delimiters = seq.RuneSet(chars)
	}
}

// HealSplitWords moves words split across contiguous chunks entirely onto
// the next chunk: the text after a chunk's last delimiter is carried onto the
// next contiguous chunk. A chunk (with any carried text) that contains no
// delimiter at all is emitted whole, so it can still end mid-word. A word
// that cannot be healed because its right (or, when resynchronizing, left)
// neighbor is missing or non-contiguous is silently dropped.
func HealSplitWords(ctx icontext.Context, in stream.Decoded, opts ...WordHealerOption) stream.Decoded {
	cfg := wordHealerConfig{delimiters: seq.RuneSet(DefaultWordDelimiters)}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(chunk.Decoded, error) bool) {
		var prefix string
		var prefixLen uint64
		var nextStart uint64

		for c, err := range in {
			if err != nil {
				yield(chunk.Decoded{}, err)
				return
			}

			contiguous := c.Start == nextStart+prefixLen
			if !contiguous {
				if prefixLen > 0 {
					ctx.Logger().V(1).Info("word healer resyncing on contiguity gap",
						"dropped_prefix_bytes", prefixLen, "expected_start", nextStart+prefixLen, "got_start", c.Start)
				}
				prefix = ""
				prefixLen = 0
				nextStart = c.Start
			}

			text := []rune(prefix + c.Text)
			lastDelim := seq.IndexAny(text, cfg.delimiters, 0, len(text), true)

			missingPrefix := !contiguous && nextStart > 0
			firstDelim := -1
			if missingPrefix {
				firstDelim = seq.IndexAny(text, cfg.delimiters, 0, len(text), false)
			}

			prefix = ""
			prefixLen = 0
			end := c.End

			if lastDelim != -1 {
				newPrefix := string(text[lastDelim+1:])
				prefix = newPrefix
				prefixLen = uint64(len(newPrefix))
				end = c.End - prefixLen
				text = text[:lastDelim+1]
			}

			start := nextStart
			if missingPrefix && firstDelim > 0 {
				// Advance past the leading partial word that has no left
				// neighbor to attach to; it is unrecoverable.
				droppedBytes := uint64(len(string(text[:firstDelim])))
				start = nextStart + droppedBytes
				text = text[firstDelim:]
			}

			emitted := string(text)
			if emitted != "" && !isAllWhitespace(emitted) {
				if !yield(chunk.NewDecodedSpan(emitted, start, end), nil) {
					return
				}
			}

			nextStart = end
		}
		// End of stream: any held-back prefix has no right neighbor to
		// attach to and is dropped, same as an interior contiguity gap.
	}
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			continue
		default:
			return false
		}
	}
	return true
}
