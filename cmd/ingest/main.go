// Command ingest drives the chunk-transformation pipeline end to end: it
// reads a document, partitions it into byte ranges, heals and resizes the
// decoded chunks, and embeds/upserts the result into a vector store.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/callumcurtis/llm-retrieval-stack/internal/channelmetrics/metrics_collector/prometheus"
	"github.com/callumcurtis/llm-retrieval-stack/internal/common"
	"github.com/callumcurtis/llm-retrieval-stack/internal/config"
	icontext "github.com/callumcurtis/llm-retrieval-stack/internal/context"
	"github.com/callumcurtis/llm-retrieval-stack/internal/ingest"
	"github.com/callumcurtis/llm-retrieval-stack/internal/log"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/chunk/stream"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/embedding"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/pipeline"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/sink"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/tokenizer"
	"github.com/callumcurtis/llm-retrieval-stack/pkg/vectorstore"
)

func main() {
	cli := kingpin.New("ingest", "Decode, heal, resize, embed, and upsert a document into a vector store.")

	inputPath := cli.Flag("input", "Path to the document to ingest. Defaults to stdin.").Short('i').String()
	vectorPrefix := cli.Flag("vector-prefix", "Prefix for generated vector ids (\"{prefix}:{start}-{end}\").").Required().String()
	embeddingModel := cli.Flag("embedding-model", "embedding_model_name. Falls back to EMBEDDING_MODEL_NAME.").String()
	vectorStoreProvider := cli.Flag("vector-store", "vector_store_provider_name. Falls back to VECTOR_STORE_PROVIDER_NAME.").String()
	chunkSize := cli.Flag("chunk-size", "Byte size of each ingest partition. Falls back to CHUNK_SIZE.").Int()
	minTokens := cli.Flag("min-tokens", "min_tokens_per_chunk. Falls back to MIN_TOKENS_PER_CHUNK.").Int()
	maxTokens := cli.Flag("max-tokens", "max_tokens_per_chunk. Falls back to MAX_TOKENS_PER_CHUNK.").Int()
	maxConcurrentBatches := cli.Flag("max-concurrent-batches", "max_concurrent_batches. Falls back to MAX_CONCURRENT_BATCHES.").Int()
	batchSize := cli.Flag("batch-size", "Override the sink's batch size. Falls back to BATCH_SIZE.").Int()
	tokenEncoding := cli.Flag("token-encoding", "token_encoding_name. Falls back to TOKEN_ENCODING_NAME.").String()
	metricsAddr := cli.Flag("metrics-addr", "Address to serve /metrics on (e.g. \":9090\"). Falls back to METRICS_ADDR. Unset disables the endpoint.").String()
	debug := cli.Flag("debug", "Log at V(1) verbosity.").Bool()

	kingpin.MustParse(cli.Parse(os.Args[1:]))

	logger, flush := log.New("ingest", log.WithConsoleSink(os.Stderr))
	defer flush()
	if *debug {
		log.SetLevel(1)
	}
	ctx := icontext.WithLogger(context.Background(), logger)
	defer common.RecoverWithExit(ctx)

	cfg := buildConfig(
		*embeddingModel, *vectorStoreProvider, *tokenEncoding, *metricsAddr,
		*chunkSize, *minTokens, *maxTokens, *maxConcurrentBatches, *batchSize,
	)

	if addr := cfg.MetricsAddr(); addr != "" {
		serveMetrics(ctx, addr)
	}

	if err := run(ctx, cfg, *inputPath, *vectorPrefix); err != nil {
		logger.Error(err, "ingest failed")
		os.Exit(1)
	}
}

// buildConfig forwards only the flags the caller actually set (kingpin's
// zero value for an unset Int/String flag), leaving everything else to
// Configuration's own environment-variable fallback.
func buildConfig(embeddingModel, vectorStoreProvider, tokenEncoding, metricsAddr string, chunkSize, minTokens, maxTokens, maxConcurrentBatches, batchSize int) *config.Configuration {
	var opts []config.Option
	if embeddingModel != "" {
		opts = append(opts, config.WithEmbeddingModelName(embeddingModel))
	}
	if vectorStoreProvider != "" {
		opts = append(opts, config.WithVectorStoreProviderName(vectorStoreProvider))
	}
	if tokenEncoding != "" {
		opts = append(opts, config.WithTokenEncodingName(tokenEncoding))
	}
	if metricsAddr != "" {
		opts = append(opts, config.WithMetricsAddr(metricsAddr))
	}
	if chunkSize != 0 {
		opts = append(opts, config.WithChunkSize(chunkSize))
	}
	if minTokens != 0 {
		opts = append(opts, config.WithMinTokensPerChunk(minTokens))
	}
	if maxTokens != 0 {
		opts = append(opts, config.WithMaxTokensPerChunk(maxTokens))
	}
	if maxConcurrentBatches != 0 {
		opts = append(opts, config.WithMaxConcurrentBatches(maxConcurrentBatches))
	}
	if batchSize != 0 {
		opts = append(opts, config.WithBatchSize(batchSize))
	}
	return config.New(opts...)
}

func run(ctx icontext.Context, cfg *config.Configuration, inputPath, vectorPrefix string) error {
	dimension, err := cfg.VectorDimension()
	if err != nil {
		return err
	}

	modelName := cfg.EmbeddingModelName()
	if want, ok := embedding.KnownDimension(modelName); ok && want != dimension {
		err := &config.ConfigurationError{
			Key:   "VECTOR_DIMENSION",
			Cause: fmt.Errorf("configured vector_dimension %d does not match %s's embedding width %d", dimension, modelName, want),
		}
		ctx.Logger().Error(err, "vector dimension mismatch")
		return err
	}

	embedClient, err := embedding.BuildClient(embedding.Config{
		APIKey:    cfg.OpenAIAPIKey(),
		ModelName: modelName,
	})
	if err != nil {
		return fmt.Errorf("ingest: building embedding client: %w", err)
	}

	storeClient, err := vectorstore.BuildClient(cfg.VectorStoreProviderName(), vectorstore.Config{
		APIKey:      cfg.PineconeAPIKey(),
		Environment: cfg.PineconeEnvironment(),
		IndexHost:   cfg.PineconeIndexHost(),
		Dimension:   dimension,
	})
	if err != nil {
		return fmt.Errorf("ingest: building vector store client: %w", err)
	}

	tok, err := tokenizer.New(cfg.TokenEncodingName())
	if err != nil {
		return fmt.Errorf("ingest: building tokenizer: %w", err)
	}

	minTokens, err := cfg.MinTokensPerChunk()
	if err != nil {
		return err
	}
	maxTokens, err := cfg.MaxTokensPerChunk()
	if err != nil {
		return err
	}
	chunkSize, err := cfg.ChunkSize()
	if err != nil {
		return err
	}
	maxConcurrentBatches, err := cfg.MaxConcurrentBatches()
	if err != nil {
		return err
	}
	batchSize, err := cfg.BatchSize()
	if err != nil {
		return err
	}

	r, closeInput, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer closeInput()

	pb := pipeline.NewBuilder(
		pipeline.WithTokenizer(tok),
		pipeline.WithTokenBounds(minTokens, maxTokens),
	)
	if err := pb.Append(stream.WrapEncodedStarts(ingest.Partitions(r, chunkSize))); err != nil {
		return fmt.Errorf("ingest: appending input: %w", err)
	}

	var sinkOpts []sink.Option
	if batchSize > 0 {
		sinkOpts = append(sinkOpts, sink.WithBatchSize(batchSize))
	}
	collector := prometheus.NewMetricsCollector("sink_batch_queue", "ingest", "sink")
	sinkOpts = append(sinkOpts, sink.WithMetricsCollector(collector))
	s, err := sink.New(embedClient, storeClient, maxConcurrentBatches, sinkOpts...)
	if err != nil {
		return fmt.Errorf("ingest: building sink: %w", err)
	}

	doc := sink.Document{Chunks: pb.Seq(ctx), Prefix: vectorPrefix}
	return s.Run(ctx, doc)
}

// serveMetrics starts the Prometheus scrape endpoint in the background.
// A listen failure is logged, not fatal: metrics are an observability
// surface, not a dependency the ingest run itself needs to succeed.
func serveMetrics(ctx icontext.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			ctx.Logger().Error(err, "metrics server stopped", "addr", addr)
		}
	}()
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, func() {}, fmt.Errorf("ingest: opening input: %w", err)
	}
	return f, func() { f.Close() }, nil
}
