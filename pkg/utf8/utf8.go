// Package utf8 provides bit-level UTF-8 primitives for detecting and
// stripping partition damage: continuation bytes left orphaned at a split
// boundary, and suffix byte sequences that are known to be mid-character.
//
// These helpers only ever inspect the boundary bytes of a slice; they do not
// validate the interior of the string. Interior validation is left to the
// standard library decoder, which is the only thing allowed to reject a
// string outright.
package utf8

// startByteMaskAndValue gives, for a codepoint encoded in n bytes, the mask
// and expected value of its leading (start) byte.
var startByteMaskAndValue = [5][2]byte{
	// index 0 unused
	1: {0b1000_0000, 0b0000_0000},
	2: {0b1110_0000, 0b1100_0000},
	3: {0b1111_0000, 0b1110_0000},
	4: {0b1111_1000, 0b1111_0000},
}

// maxContinuationBytesPerChar is one less than the longest valid UTF-8
// encoding (4 bytes), since a 4-byte codepoint has 3 continuation bytes.
const maxContinuationBytesPerChar = 3

// IsContinuation reports whether b is a UTF-8 continuation byte, i.e. it
// matches the bit pattern 10xxxxxx.
func IsContinuation(b byte) bool {
	return b&0b1100_0000 == 0b1000_0000
}

// LeadingContinuationCount counts the continuation bytes at the start of
// data.
func LeadingContinuationCount(data []byte) int {
	n := 0
	for n < len(data) && IsContinuation(data[n]) {
		n++
	}
	return n
}

// TrailingContinuationCount counts the continuation bytes at the end of
// data, capped at maxContinuationBytesPerChar since no valid codepoint has
// more.
func TrailingContinuationCount(data []byte) int {
	n := 0
	for n < len(data) && n < maxContinuationBytesPerChar && IsContinuation(data[len(data)-1-n]) {
		n++
	}
	return n
}

// LstripContinuation removes leading continuation bytes from data.
func LstripContinuation(data []byte) []byte {
	return data[LeadingContinuationCount(data):]
}

// RstripContinuation removes trailing continuation bytes from data.
func RstripContinuation(data []byte) []byte {
	return data[:len(data)-TrailingContinuationCount(data)]
}

// StripContinuation removes both leading and trailing continuation bytes.
func StripContinuation(data []byte) []byte {
	return RstripContinuation(LstripContinuation(data))
}

// TruncationPoint returns the byte offset at which data is known to be
// truncated mid-character, or len(data) if no suffix truncation can be
// detected from the trailing bytes alone.
//
// This only detects suffix truncation. Invalid interior bytes are left for
// the decoder to reject.
func TruncationPoint(data []byte) int {
	k := TrailingContinuationCount(data)
	if k == len(data) {
		// Only continuation bytes (or empty): no valid start byte anywhere
		// in the tail, so nothing after position 0 can be kept.
		return 0
	}

	p := len(data) - k - 1
	startByte := data[p]
	mask, want := startByteMaskAndValue[k+1][0], startByteMaskAndValue[k+1][1]

	if startByte&mask == want {
		// The start byte declares exactly k continuation bytes, and we
		// found exactly k: the codepoint is complete.
		return len(data)
	}

	return p
}
