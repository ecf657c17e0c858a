// Package embedding adapts third-party embedding providers behind a small
// interface, so the sink never depends on a specific vendor's wire format.
package embedding

import "context"

// Client embeds batches of text. Implementations must tolerate concurrent
// calls up to the sink's configured concurrency cap.
type Client interface {
	// EmbedBatch returns one vector per input text, in the same order.
	// len(texts) must not exceed BatchLimit.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// BatchLimit is the maximum number of texts accepted by a single
	// EmbedBatch call, as declared by the provider.
	BatchLimit() int
}

// Builder constructs a Client from configuration. Registered builders read
// whatever subset of Configuration their provider needs (API key, model
// name, base URL).
type Builder func(cfg Config) (Client, error)

// Config is the subset of configuration an embedding provider builder may
// need. Concrete adapters ignore the fields they don't use.
type Config struct {
	APIKey    string
	ModelName string
	BaseURL   string
}

// ClientBuilderByModel is the provider registry, keyed by
// embedding_model_name, mirroring the dispatch-table idiom of
// vectorstore.ClientBuilderByName.
var ClientBuilderByModel = map[string]Builder{
	"text-embedding-3-small": NewOpenAIClientFromConfig,
	"text-embedding-3-large": NewOpenAIClientFromConfig,
	"text-embedding-ada-002": NewOpenAIClientFromConfig,
}

// DimensionByModel is each registered model's known embedding output
// width, used to validate a configured vector_dimension against the
// embedding model actually in use before the pipeline starts.
var DimensionByModel = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// KnownDimension reports the expected output width for modelName, if it is
// one of the registered models.
func KnownDimension(modelName string) (int, bool) {
	d, ok := DimensionByModel[modelName]
	return d, ok
}

// BuildClient looks up and invokes the builder registered for
// cfg.ModelName, returning a ConfigurationError-class error if the model
// name is unregistered.
func BuildClient(cfg Config) (Client, error) {
	builder, ok := ClientBuilderByModel[cfg.ModelName]
	if !ok {
		return nil, &UnknownModelError{ModelName: cfg.ModelName}
	}
	return builder(cfg)
}

// UnknownModelError is a ConfigurationError-class failure: the configured
// embedding_model_name has no registered builder.
type UnknownModelError struct {
	ModelName string
}

func (e *UnknownModelError) Error() string {
	return "embedding: no client registered for model " + e.ModelName
}
