// Package chunk defines the immutable value types that flow through the
// chunk-transformation pipeline: raw encoded byte ranges and the decoded
// text chunks produced from them.
package chunk

// Encoding is the only encoding this pipeline understands. The decode stage
// (healer.DecodeSplitCharacters) rejects a chunk carrying any other value
// with an UnsupportedEncodingError.
const Encoding = "utf-8"

// Encoded is an immutable byte range of a source document, tagged with the
// byte offsets it spans in that document.
//
// Invariant: End-Start == len(Data).
type Encoded struct {
	Data     []byte
	Start    uint64
	End      uint64
	Encoding string
}

// NewEncoded builds an Encoded chunk from data and a start offset, deriving
// End from len(data).
func NewEncoded(data []byte, start uint64) Encoded {
	return Encoded{Data: data, Start: start, End: start + uint64(len(data)), Encoding: Encoding}
}

// Decoded is an immutable decoded text chunk, tagged with the byte offsets
// (in the original document's encoding, not in characters) it spans.
//
// Invariant: End-Start == len(encode(Text, Encoding)).
type Decoded struct {
	Text     string
	Start    uint64
	End      uint64
	Encoding string
}

// NewDecoded builds a Decoded chunk from text and a start offset, deriving
// End from the encoded byte length of text.
func NewDecoded(text string, start uint64) Decoded {
	return Decoded{Text: text, Start: start, End: start + uint64(len(text)), Encoding: Encoding}
}

// NewDecodedSpan builds a Decoded chunk with an explicit End offset, for
// callers (e.g. the word healer) that must preserve a boundary offset
// independent of the emitted text's own byte length.
func NewDecodedSpan(text string, start, end uint64) Decoded {
	return Decoded{Text: text, Start: start, End: end, Encoding: Encoding}
}

// Equal compares chunks the way the source system does: by text/bytes and
// offsets. Encoding is informational and excluded, matching the original
// __eq__ implementations.
func (d Decoded) Equal(other Decoded) bool {
	return d.Text == other.Text && d.Start == other.Start && d.End == other.End
}

// Equal compares encoded chunks by bytes and offsets, excluding Encoding.
func (e Encoded) Equal(other Encoded) bool {
	if len(e.Data) != len(other.Data) {
		return false
	}
	for i := range e.Data {
		if e.Data[i] != other.Data[i] {
			return false
		}
	}
	return e.Start == other.Start && e.End == other.End
}
