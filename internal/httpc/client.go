// Package httpc builds HTTP clients with timeouts set.
// Use it instead of http.DefaultClient.
package httpc

import (
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default timeouts for HTTP operations.
const (
	DownloadTimeout        = 5 * time.Minute
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	DefaultRetryCount      = 2
)

// NewClient creates a new HTTP client with the specified timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// NewResty wraps a fresh client with the given timeout in a resty client
// that retries transient failures.
func NewResty(timeout time.Duration) *resty.Client {
	return resty.NewWithClient(NewClient(timeout)).
		SetRetryCount(DefaultRetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("User-Agent", "go-facemesh")
}
