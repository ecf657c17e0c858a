package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/callumcurtis/llm-retrieval-stack/internal/common"
)

const (
	openAIDefaultBaseURL   = "https://api.openai.com/v1"
	openAIEmbedBatchLimit  = 2048
	openAIEmbeddingsPath   = "/embeddings"
)

// OpenAIClient calls the public /v1/embeddings endpoint over a retryable
// HTTP client (common.RetryableHTTPClient). retryablehttp's own
// retry loop is disabled (RetryMax=0): the sink applies the documented
// cenkalti/backoff schedule at the call-site instead, so retries are never
// double-applied.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewOpenAIClientFromConfig satisfies the embedding.Builder signature for
// the registry.
func NewOpenAIClientFromConfig(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, &MissingAPIKeyError{Provider: "openai"}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAIClient{
		httpClient: common.RetryableHTTPClient(common.WithMaxRetries(0)),
		baseURL:    baseURL,
		model:      cfg.ModelName,
		apiKey:     cfg.APIKey,
	}, nil
}

func (c *OpenAIClient) BatchLimit() int { return openAIEmbedBatchLimit }

type openAIEmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	// OpenAI's own embeddings_utils recommends replacing newlines with
	// spaces before embedding: left in place, they measurably degrade
	// embedding quality for some models.
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = strings.ReplaceAll(t, "\n", " ")
	}

	body, err := json.Marshal(openAIEmbeddingsRequest{Model: c.model, Input: normalized})
	if err != nil {
		return nil, fmt.Errorf("embedding: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+openAIEmbeddingsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}

	var parsed openAIEmbeddingsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, &TransientError{Cause: fmt.Errorf("openai: status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("embedding: openai request failed (status %d): %s", resp.StatusCode, msg)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding: openai returned out-of-range index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// MissingAPIKeyError is a ConfigurationError-class failure.
type MissingAPIKeyError struct {
	Provider string
}

func (e *MissingAPIKeyError) Error() string {
	return "embedding: missing API key for provider " + e.Provider
}

// TransientError wraps a network/API failure that the sink's backoff
// schedule should retry.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string { return "embedding: transient failure: " + e.Cause.Error() }
func (e *TransientError) Unwrap() error { return e.Cause }
