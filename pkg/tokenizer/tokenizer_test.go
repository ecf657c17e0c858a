package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EncodeDecodeRoundTrips(t *testing.T) {
	tok, err := New(DefaultEncoding)
	require.NoError(t, err)

	ids, err := tok.Encode("hello world", false)
	require.NoError(t, err)
	assert.NotEmpty(t, ids)

	text, err := tok.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestNew_UnknownEncodingErrors(t *testing.T) {
	_, err := New("not-a-real-encoding")
	assert.Error(t, err)
}

func TestShared_MemoizesSingleHandle(t *testing.T) {
	a, err := Shared()
	require.NoError(t, err)
	b, err := Shared()
	require.NoError(t, err)
	assert.Same(t, a, b)
}
