package customHttpClient

import (
	"net/http"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
)

// one pooled transport for every outbound call to the extraction service
var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// NewClient shares the pooled transport. The per-call deadline normally comes
// from the request context; timeout is an upper bound on top of it.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: customTransport, Timeout: timeout}
}

// Transport exposes the pooled transport to SDK clients that take their own http.Client.
func Transport() http.RoundTripper {
	return customTransport
}
