package customHttpClient

import (
	"net/http"

	"github.com/akolanti/kbbot/internal/config"
)

// NewClient returns the pooled client shared by the embedding and completion
// SDKs so their calls reuse connections.
func NewClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = config.MaxIdleConns
	transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
	transport.IdleConnTimeout = config.IdleConnTimeout
	return &http.Client{
		Transport: transport,
		Timeout:   config.EmbeddingCallTimeout,
	}
}
