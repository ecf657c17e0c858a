package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/stream"
)

// runeTokenizer is a deterministic test double: every rune is its own
// token, mirroring the fake used for the resize stage's own tests.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string, _ bool) ([]uint32, error) {
	runes := []rune(text)
	ids := make([]uint32, len(runes))
	for i, r := range runes {
		ids[i] = uint32(r)
	}
	return ids, nil
}

func (runeTokenizer) Decode(tokens []uint32) (string, error) {
	runes := make([]rune, len(tokens))
	for i, id := range tokens {
		runes[i] = rune(id)
	}
	return string(runes), nil
}

func rawBytes(parts ...string) func(func([]byte) bool) {
	return func(yield func([]byte) bool) {
		for _, p := range parts {
			if !yield([]byte(p)) {
				return
			}
		}
	}
}

func TestTransform_HealsAndResizesAcrossPartitionBoundaries(t *testing.T) {
	// "café" encodes to c-a-f-\xC3\xA9; split the multi-byte é across two
	// partitions to exercise the decode-healing stage, and split "café au
	// lait" mid-word to exercise the word healer, before resizing. The first
	// partition decodes to the delimiter-free "caf", which the word healer
	// emits whole; the trailing "lait" has no right neighbor and is dropped.
	// Both healed chunks reach the minimum of 1 token, so the resizer emits
	// them separately.
	full := "café au lait"
	split := len("caf") + 1 // split inside the 2-byte é

	var b strings.Builder
	b.WriteString(full)
	raw := b.String()

	part1 := raw[:split]
	part2 := raw[split:]

	in := stream.WrapEncoded(rawBytes(part1, part2), 0)

	out := Transform(icontext.Background(), in, WithTokenizer(runeTokenizer{}), WithTokenBounds(1, 1000))

	decoded, err := stream.Collect(out)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "caf", decoded[0].Text)
	assert.Equal(t, uint64(0), decoded[0].Start)
	assert.Equal(t, uint64(3), decoded[0].End)
	assert.Equal(t, "é au ", decoded[1].Text)
	assert.Equal(t, uint64(3), decoded[1].Start)
	assert.Equal(t, uint64(len(raw)-len("lait")), decoded[1].End)
}

func TestTransform_SplitsOversizedTextAtTokenBound(t *testing.T) {
	text := strings.Repeat("a", 50)
	in := stream.WrapEncoded(rawBytes(text), 0)

	out := Transform(icontext.Background(), in, WithTokenizer(runeTokenizer{}), WithTokenBounds(10, 20))

	decoded, err := stream.Collect(out)
	require.NoError(t, err)
	require.NotEmpty(t, decoded)
	for _, d := range decoded {
		assert.LessOrEqual(t, len(d.Text), 20)
	}
}

func TestBuilder_AppendThenSeqProducesTransformedStream(t *testing.T) {
	b := NewBuilder(WithTokenizer(runeTokenizer{}), WithTokenBounds(1, 1000))

	require.NoError(t, b.Append(stream.WrapEncoded(rawBytes("hello "), 0)))
	require.NoError(t, b.Append(stream.WrapEncoded(rawBytes("world"), 6)))

	// Each appended source already reaches the minimum of 1 token, so the
	// resizer emits them as separate chunks; the delimiter-free "world" is
	// emitted whole by the word healer.
	decoded, err := stream.Collect(b.Seq(icontext.Background()))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "hello ", decoded[0].Text)
	assert.Equal(t, "world", decoded[1].Text)
}

func TestBuilder_AppendAfterSeqFails(t *testing.T) {
	b := NewBuilder(WithTokenizer(runeTokenizer{}), WithTokenBounds(1, 1000))
	require.NoError(t, b.Append(stream.WrapEncoded(rawBytes("a"), 0)))

	_, err := stream.Collect(b.Seq(icontext.Background()))
	require.NoError(t, err)

	err = b.Append(stream.WrapEncoded(rawBytes("b"), 1))
	assert.ErrorIs(t, err, stream.ErrAlreadyConsumed)
}
