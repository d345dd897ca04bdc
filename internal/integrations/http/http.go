// Package http builds the HTTP client used to download remote workbooks.
package http

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const DefaultTimeout = 60 * time.Second

type Config struct {
	Timeout  time.Duration
	Insecure bool
}

// NewClient returns a client on a pooled cleanhttp transport. A zero Timeout
// uses DefaultTimeout.
func NewClient(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	transport := cleanhttp.DefaultPooledTransport()
	if cfg.Insecure {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}

		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
