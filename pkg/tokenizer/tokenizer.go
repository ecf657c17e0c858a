// Package tokenizer wraps BPE tokenization behind a small interface so the
// resizer stage can be tested against a fake and does not depend directly on
// a specific tokenizer library or encoding name.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used throughout the pipeline unless
// overridden.
const DefaultEncoding = "cl100k_base"

// Tokenizer counts and round-trips BPE tokens for a chunk of text.
type Tokenizer interface {
	// Encode splits text into token IDs. disallowSpecial, when true, rejects
	// special tokens appearing literally in text instead of treating them as
	// plain text; the resizer always passes false, matching the source's
	// disallowed_special=() (treat everything as plain text).
	Encode(text string, disallowSpecial bool) ([]uint32, error)
	// Decode reassembles token IDs into text. Not guaranteed to be a
	// byte-exact inverse of Encode for a token slice that does not begin and
	// end on the encoding's token boundaries; see the resizer's offset note.
	Decode(tokens []uint32) (string, error)
}

// cl100k wraps a *tiktoken.Tiktoken encoding handle.
type cl100k struct {
	enc *tiktoken.Tiktoken
}

var (
	sharedOnce sync.Once
	shared     Tokenizer
	sharedErr  error
)

// Shared returns a process-wide memoized DefaultEncoding tokenizer, mirroring
// the source's module-level tokenizer singleton but expressed as an
// explicitly constructed value rather than import-time global state. The
// resizer takes a Tokenizer through resize.WithTokenizer and uses Shared only
// when none is supplied.
func Shared() (Tokenizer, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = New(DefaultEncoding)
	})
	return shared, sharedErr
}

// New builds a Tokenizer for the named tiktoken encoding.
func New(encoding string) (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: load encoding %q: %w", encoding, err)
	}
	return &cl100k{enc: enc}, nil
}

func (t *cl100k) Encode(text string, disallowSpecial bool) ([]uint32, error) {
	var disallowed []string
	if disallowSpecial {
		disallowed = []string{"all"}
	}
	ids := t.enc.Encode(text, nil, disallowed)
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out, nil
}

func (t *cl100k) Decode(tokens []uint32) (string, error) {
	ids := make([]int, len(tokens))
	for i, id := range tokens {
		ids[i] = int(id)
	}
	return t.enc.Decode(ids), nil
}
