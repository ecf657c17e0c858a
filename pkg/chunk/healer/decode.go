// Package healer implements the two partition-damage healers of the
// pipeline: the split-character healer (UTF-8 decode with truncation
// healing) and the split-word healer.
package healer

import (
	gounicode "unicode/utf8"

	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/stream"
	utf8primitives "github.com/callumcurtis/llm-retrieval-stack/pkg/utf8"
)

// DecodeError is returned by DecodeSplitCharacters when a chunk contains
// bytes that cannot be valid UTF-8 and are not a trailing truncation. It is
// fatal for the stream: the caller must stop consuming on receipt.
type DecodeError struct {
	// Start is the byte offset, within the original document, of the start
	// of the chunk that failed to decode.
	Start uint64
	// Offset is the byte offset within the chunk's bytes at which decoding
	// first failed.
	Offset int
}

func (e *DecodeError) Error() string {
	return "healer: invalid UTF-8 byte sequence"
}

// DecodeSplitCharacters decodes a stream of encoded chunks into a stream of
// decoded text chunks, healing characters split across contiguous
// partitions by carrying incomplete trailing bytes forward to the next
// chunk. If the next chunk is not contiguous with the carry (a gap, missing
// partition, or reordering), the carry is silently discarded and decoding
// resynchronizes on the new chunk's stated start.
//
// Interior bytes that are invalid UTF-8 (not a trailing truncation) produce
// a fatal *DecodeError and terminate the stream.
func DecodeSplitCharacters(ctx icontext.Context, in stream.Encoded) stream.Decoded {
	return func(yield func(chunk.Decoded, error) bool) {
		var carry []byte
		var nextStart uint64

		for enc, err := range in {
			if err != nil {
				yield(chunk.Decoded{}, err)
				return
			}
			if enc.Encoding != chunk.Encoding {
				cfgErr := &UnsupportedEncodingError{Encoding: enc.Encoding}
				ctx.Logger().Error(cfgErr, "unsupported chunk encoding")
				yield(chunk.Decoded{}, cfgErr)
				return
			}

			var work []byte
			if enc.Start != nextStart+uint64(len(carry)) {
				// Not contiguous with the carry: the carry belongs to a now
				// unreachable neighbor, discard it, and strip any orphan
				// leading continuation bytes from this chunk since they
				// cannot be healed either.
				if len(carry) > 0 {
					ctx.Logger().V(1).Info("decode healer resyncing on contiguity gap",
						"discarded_carry_bytes", len(carry), "expected_start", nextStart+uint64(len(carry)), "got_start", enc.Start)
				}
				nextStart = enc.Start
				work = utf8primitives.LstripContinuation(enc.Data)
			} else {
				work = append(append([]byte(nil), carry...), enc.Data...)
			}

			split := utf8primitives.TruncationPoint(work)
			var newCarry []byte
			if split < len(work) {
				newCarry = work[split:]
				work = work[:split]
			}

			if len(work) > 0 {
				if !gounicode.Valid(work) {
					offset := firstInvalidOffset(work)
					decErr := &DecodeError{Start: nextStart, Offset: offset}
					ctx.Logger().Error(decErr, "invalid utf-8 byte sequence")
					yield(chunk.Decoded{}, decErr)
					return
				}
				out := chunk.NewDecoded(string(work), nextStart)
				nextStart = out.End
				if !yield(out, nil) {
					return
				}
			}

			carry = newCarry
		}
		// End of stream: any remaining carry is an incomplete character
		// with no contiguous successor, and is discarded.
	}
}

// UnsupportedEncodingError is a ConfigurationError-class failure: the
// stream declared an encoding other than UTF-8.
type UnsupportedEncodingError struct {
	Encoding string
}

func (e *UnsupportedEncodingError) Error() string {
	return "healer: unsupported encoding " + e.Encoding + " (only utf-8 is supported)"
}

// firstInvalidOffset finds the byte offset of the first invalid rune in
// data, for error reporting. data is assumed to have already failed a
// gounicode.Valid check.
func firstInvalidOffset(data []byte) int {
	offset := 0
	for offset < len(data) {
		r, size := gounicode.DecodeRune(data[offset:])
		if r == gounicode.RuneError && size <= 1 {
			return offset
		}
		offset += size
	}
	return offset
}
