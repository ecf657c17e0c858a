// Package config builds the pipeline's runtime configuration: per-field
// environment-variable fallbacks, grounded on
// _examples/original_source/llm_retrieval/configuration.py's
// property-with-os.environ-fallback shape, reimplemented as Go functional
// options over a struct with lazily-resolved env fallbacks rather than
// Python properties.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/resize"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/tokenizer"
)

// Configuration holds every setting the CLI and the pipeline it builds
// need. Fields left unset by an explicit Option fall back to the
// environment variable named in the accessor below, exactly as the
// original's properties did.
type Configuration struct {
	embeddingModelName     *string
	vectorStoreProviderName *string
	openAIAPIKey           *string
	pineconeAPIKey         *string
	pineconeEnvironment    *string
	pineconeIndexHost      *string
	vectorDimension        *int
	chunkSize              *int
	minTokensPerChunk      *int
	maxTokensPerChunk      *int
	maxConcurrentBatches   *int
	batchSize              *int
	tokenEncodingName      *string
	metricsAddr            *string
}

// Option sets one field of a Configuration, taking priority over its
// environment-variable fallback.
type Option func(*Configuration)

func WithEmbeddingModelName(v string) Option { return func(c *Configuration) { c.embeddingModelName = &v } }
func WithVectorStoreProviderName(v string) Option {
	return func(c *Configuration) { c.vectorStoreProviderName = &v }
}
func WithOpenAIAPIKey(v string) Option      { return func(c *Configuration) { c.openAIAPIKey = &v } }
func WithPineconeAPIKey(v string) Option    { return func(c *Configuration) { c.pineconeAPIKey = &v } }
func WithPineconeEnvironment(v string) Option {
	return func(c *Configuration) { c.pineconeEnvironment = &v }
}
func WithPineconeIndexHost(v string) Option { return func(c *Configuration) { c.pineconeIndexHost = &v } }
func WithVectorDimension(v int) Option      { return func(c *Configuration) { c.vectorDimension = &v } }
func WithChunkSize(v int) Option            { return func(c *Configuration) { c.chunkSize = &v } }
func WithMinTokensPerChunk(v int) Option    { return func(c *Configuration) { c.minTokensPerChunk = &v } }
func WithMaxTokensPerChunk(v int) Option    { return func(c *Configuration) { c.maxTokensPerChunk = &v } }
func WithMaxConcurrentBatches(v int) Option {
	return func(c *Configuration) { c.maxConcurrentBatches = &v }
}
func WithBatchSize(v int) Option        { return func(c *Configuration) { c.batchSize = &v } }
func WithTokenEncodingName(v string) Option { return func(c *Configuration) { c.tokenEncodingName = &v } }
func WithMetricsAddr(v string) Option       { return func(c *Configuration) { c.metricsAddr = &v } }

// New builds a Configuration from opts. Fields not set by an Option are
// resolved from their environment variable lazily, on first access, the
// same order of precedence ("explicit value or os.environ") the original
// Configuration.<property> getters used.
func New(opts ...Option) *Configuration {
	c := &Configuration{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func stringOrEnv(explicit *string, envVar string) string {
	if explicit != nil {
		return *explicit
	}
	return os.Getenv(envVar)
}

func intOrEnv(explicit *int, envVar string) (int, error) {
	if explicit != nil {
		return *explicit, nil
	}
	raw := os.Getenv(envVar)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigurationError{Key: envVar, Cause: err}
	}
	return v, nil
}

func (c *Configuration) EmbeddingModelName() string {
	return stringOrEnv(c.embeddingModelName, "EMBEDDING_MODEL_NAME")
}

func (c *Configuration) VectorStoreProviderName() string {
	return stringOrEnv(c.vectorStoreProviderName, "VECTOR_STORE_PROVIDER_NAME")
}

// OpenAIAPIKey reads OPENAI_API_KEY, the name used by the rest of the
// OpenAI ecosystem, rather than the original's OPEN_AI_API_KEY — the
// original's variable name is note-worthy but not a contract this repo's
// own OpenAI adapter needs to preserve.
func (c *Configuration) OpenAIAPIKey() string { return stringOrEnv(c.openAIAPIKey, "OPENAI_API_KEY") }

func (c *Configuration) PineconeAPIKey() string {
	return stringOrEnv(c.pineconeAPIKey, "PINECONE_API_KEY")
}

func (c *Configuration) PineconeEnvironment() string {
	return stringOrEnv(c.pineconeEnvironment, "PINECONE_ENVIRONMENT")
}

func (c *Configuration) PineconeIndexHost() string {
	return stringOrEnv(c.pineconeIndexHost, "PINECONE_INDEX_HOST")
}

func (c *Configuration) VectorDimension() (int, error) {
	return intOrEnv(c.vectorDimension, "VECTOR_DIMENSION")
}

func (c *Configuration) ChunkSize() (int, error) { return intOrEnv(c.chunkSize, "CHUNK_SIZE") }

func (c *Configuration) MinTokensPerChunk() (int, error) {
	v, err := intOrEnv(c.minTokensPerChunk, "MIN_TOKENS_PER_CHUNK")
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return resize.DefaultMinTokensPerChunk, nil
	}
	return v, nil
}

func (c *Configuration) MaxTokensPerChunk() (int, error) {
	v, err := intOrEnv(c.maxTokensPerChunk, "MAX_TOKENS_PER_CHUNK")
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return resize.DefaultMaxTokensPerChunk, nil
	}
	return v, nil
}

func (c *Configuration) MaxConcurrentBatches() (int, error) {
	v, err := intOrEnv(c.maxConcurrentBatches, "MAX_CONCURRENT_BATCHES")
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 1, nil
	}
	return v, nil
}

// BatchSize returns the configured override, or 0 if unset — 0 tells
// pkg/sink.New to default to min(embedBatchLimit, upsertBatchLimit),
// mirroring processing.py's "if batch_size is None" branch.
func (c *Configuration) BatchSize() (int, error) { return intOrEnv(c.batchSize, "BATCH_SIZE") }

func (c *Configuration) TokenEncodingName() string {
	name := stringOrEnv(c.tokenEncodingName, "TOKEN_ENCODING_NAME")
	if name == "" {
		return tokenizer.DefaultEncoding
	}
	return name
}

// MetricsAddr is the listen address for the /metrics scrape endpoint.
// Empty disables it.
func (c *Configuration) MetricsAddr() string {
	return stringOrEnv(c.metricsAddr, "METRICS_ADDR")
}

// ConfigurationError is raised for configuration values that are present
// but malformed (e.g. a non-integer CHUNK_SIZE), as opposed to values that
// are simply absent.
type ConfigurationError struct {
	Key   string
	Cause error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: invalid value for %s: %v", e.Key, e.Cause)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }
