package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOpenAIClient(t *testing.T, statusCode int, body string) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClientFromConfig(Config{APIKey: "sk-test", ModelName: "text-embedding-3-small"})
	require.NoError(t, err)
	oc := c.(*OpenAIClient)
	oc.httpClient = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: statusCode,
				Body:       io.NopCloser(strings.NewReader(body)),
				Request:    req,
			}, nil
		}),
	}
	return oc
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestOpenAIClient_EmbedBatch_ParsesVectorsByIndex(t *testing.T) {
	resp, _ := json.Marshal(openAIEmbeddingsResponse{
		Data: []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{
			{Embedding: []float32{0.2, 0.3}, Index: 1},
			{Embedding: []float32{0.1, 0.1}, Index: 0},
		},
	})

	c := fakeOpenAIClient(t, http.StatusOK, string(resp))

	vectors, err := c.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.1}, vectors[0])
	assert.Equal(t, []float32{0.2, 0.3}, vectors[1])
}

func TestOpenAIClient_EmbedBatch_ServerErrorIsTransient(t *testing.T) {
	c := fakeOpenAIClient(t, http.StatusInternalServerError, `{}`)

	_, err := c.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)

	var transient *TransientError
	assert.ErrorAs(t, err, &transient)
}

func TestOpenAIClient_EmbedBatch_ClientErrorIsFatal(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{"error": map[string]any{"message": "invalid model"}})
	c := fakeOpenAIClient(t, http.StatusBadRequest, string(resp))

	_, err := c.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)

	var transient *TransientError
	assert.False(t, errors.As(err, &transient), "a 4xx response should not be classified as transient")
}

func TestNewOpenAIClientFromConfig_MissingAPIKey(t *testing.T) {
	_, err := NewOpenAIClientFromConfig(Config{ModelName: "text-embedding-3-small"})
	require.Error(t, err)

	var missing *MissingAPIKeyError
	assert.ErrorAs(t, err, &missing)
}

func TestBuildClient_UnknownModel(t *testing.T) {
	_, err := BuildClient(Config{ModelName: "not-a-real-model", APIKey: "sk-test"})
	require.Error(t, err)

	var unknown *UnknownModelError
	assert.ErrorAs(t, err, &unknown)
}
