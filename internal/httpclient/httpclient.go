// Package httpclient builds the HTTP client used for stream probes and
// transfers.
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Options configures the client. Proxy is called for every request; pass
// http.ProxyFromEnvironment to honour HTTP_PROXY and friends.
type Options struct {
	ConnectTimeout time.Duration
	UserAgent      string
	Proxy          func(*http.Request) (*url.URL, error)
}

// ProxyFunc returns a proxy selector for proxyURL, falling back to the
// environment when proxyURL is empty.
func ProxyFunc(proxyURL string) (func(*http.Request) (*url.URL, error), error) {
	if proxyURL == "" {
		return http.ProxyFromEnvironment, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q", proxyURL)
	}

	return http.ProxyURL(u), nil
}

// New returns a client that follows redirects and only bounds the connect
// phase. A transfer body may take as long as it needs.
func New(opts Options) *http.Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 opts.Proxy,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Transport: &userAgentTransport{
			userAgent: opts.UserAgent,
			next:      otelhttp.NewTransport(transport),
		},
	}
}

type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	return t.next.RoundTrip(req)
}
