// Package vectorstore adapts third-party vector database providers behind a
// small interface, so the sink never depends on a specific vendor's wire
// format.
package vectorstore

import "context"

// Record is a single stored vector: an embedding plus its document-relative
// identity and arbitrary metadata.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Client upserts batches of records. Implementations must tolerate
// concurrent calls up to the sink's configured concurrency cap.
type Client interface {
	UpsertBatch(ctx context.Context, records []Record) error
	// BatchLimit is the maximum number of records accepted by a single
	// UpsertBatch call, as declared by the provider.
	BatchLimit() int
}

// Builder constructs a Client from configuration.
type Builder func(cfg Config) (Client, error)

// Config is the subset of configuration a vector store provider builder may
// need. Concrete adapters ignore the fields they don't use.
type Config struct {
	APIKey      string
	Environment string
	IndexHost   string
	Dimension   int
}

// ClientBuilderByName is the provider registry, keyed by
// vector_store_provider_name.
var ClientBuilderByName = map[string]Builder{
	"pinecone": NewPineconeClientFromConfig,
}

// BuildClient looks up and invokes the builder registered for name,
// returning a ConfigurationError-class error if it is unregistered.
func BuildClient(name string, cfg Config) (Client, error) {
	builder, ok := ClientBuilderByName[name]
	if !ok {
		return nil, &UnknownProviderError{Name: name}
	}
	return builder(cfg)
}

// UnknownProviderError is a ConfigurationError-class failure: the configured
// vector_store_provider_name has no registered builder.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return "vectorstore: no client registered for provider " + e.Name
}
