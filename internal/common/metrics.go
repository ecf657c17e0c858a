package common

const (
	// MetricsNamespace is the namespace for all metrics.
	MetricsNamespace = "llm_retrieval_stack"
	// MetricsSubsystemScanner is the subsystem for all metrics.
	MetricsSubsystemScanner = "scanner"
	// MetricsSubsystemHTTPClient is the subsystem for HTTP client metrics.
	MetricsSubsystemHTTPClient = "http_client"
)
