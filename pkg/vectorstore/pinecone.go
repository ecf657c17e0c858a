package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/callumcurtis/llm-retrieval-stack/internal/common"
)

const pineconeUpsertBatchLimit = 100

// PineconeClient calls the Pinecone vector REST API's /vectors/upsert
// endpoint over a retryable HTTP client (common.RetryableHTTPClient). Like
// OpenAIClient, retryablehttp's own retry loop is disabled; the
// sink applies the documented cenkalti/backoff schedule instead.
type PineconeClient struct {
	httpClient *http.Client
	indexHost  string
	apiKey     string
	dimension  int
}

// NewPineconeClientFromConfig satisfies the vectorstore.Builder signature
// for the registry.
func NewPineconeClientFromConfig(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, &MissingAPIKeyError{Provider: "pinecone"}
	}
	if cfg.IndexHost == "" {
		return nil, &MissingIndexHostError{}
	}
	if cfg.Dimension <= 0 {
		return nil, &MissingDimensionError{}
	}
	return &PineconeClient{
		httpClient: common.RetryableHTTPClient(common.WithMaxRetries(0)),
		indexHost:  cfg.IndexHost,
		apiKey:     cfg.APIKey,
		dimension:  cfg.Dimension,
	}, nil
}

func (c *PineconeClient) BatchLimit() int { return pineconeUpsertBatchLimit }

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors []pineconeVector `json:"vectors"`
}

type pineconeErrorResponse struct {
	Message string `json:"message"`
}

func (c *PineconeClient) UpsertBatch(ctx context.Context, records []Record) error {
	vectors := make([]pineconeVector, len(records))
	for i, r := range records {
		if len(r.Vector) != c.dimension {
			return &DimensionMismatchError{RecordID: r.ID, Want: c.dimension, Got: len(r.Vector)}
		}
		vectors[i] = pineconeVector{ID: r.ID, Values: r.Vector, Metadata: r.Metadata}
	}

	body, err := json.Marshal(pineconeUpsertRequest{Vectors: vectors})
	if err != nil {
		return fmt.Errorf("vectorstore: encode request: %w", err)
	}

	url := "https://" + c.indexHost + "/vectors/upsert"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vectorstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &TransientError{Cause: fmt.Errorf("pinecone: status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var parsed pineconeErrorResponse
		_ = json.Unmarshal(respBody, &parsed)
		return fmt.Errorf("vectorstore: pinecone request failed (status %d): %s", resp.StatusCode, parsed.Message)
	}
	return nil
}

// MissingAPIKeyError is a ConfigurationError-class failure.
type MissingAPIKeyError struct {
	Provider string
}

func (e *MissingAPIKeyError) Error() string {
	return "vectorstore: missing API key for provider " + e.Provider
}

// MissingIndexHostError is a ConfigurationError-class failure: the Pinecone
// adapter requires the caller's index host, not just an API key.
type MissingIndexHostError struct{}

func (e *MissingIndexHostError) Error() string {
	return "vectorstore: missing pinecone index host"
}

// MissingDimensionError is a ConfigurationError-class failure: the
// Pinecone adapter must know the index's vector width up front to catch a
// mismatched embedding model before any records are sent.
type MissingDimensionError struct{}

func (e *MissingDimensionError) Error() string {
	return "vectorstore: missing vector dimension"
}

// DimensionMismatchError is returned by UpsertBatch when a record's vector
// width doesn't match the dimension the client was configured with. This
// is a ConfigurationError-class failure, not a transient one: retrying
// won't change a record's vector length.
type DimensionMismatchError struct {
	RecordID string
	Want     int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vectorstore: record %q has vector dimension %d, want %d", e.RecordID, e.Got, e.Want)
}

// TransientError wraps a network/API failure that the sink's backoff
// schedule should retry.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string { return "vectorstore: transient failure: " + e.Cause.Error() }
func (e *TransientError) Unwrap() error { return e.Cause }
