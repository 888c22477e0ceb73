package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/dashd/internal/ports"
	"golang.org/x/net/http2"
)

const (
	maxResponseBytes = 1 << 20
	DefaultTimeout   = 10 * time.Second
	userAgent        = "dashd"
)

type Client struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

var _ ports.HTTPTransport = (*Client)(nil)

// New returns a client that negotiates HTTP/2 over TLS and leaves redirects
// to the caller.
func New(timeout time.Duration) (*Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if _, err := http2.ConfigureTransports(transport); err != nil {
		return nil, fmt.Errorf("configure http2 transport: %w", err)
	}

	return &Client{
		HTTPClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Timeout: timeout,
	}, nil
}

func (c *Client) Do(ctx context.Context, request ports.HTTPRequest) (ports.HTTPResponse, error) {
	requestCtx, cancel := c.requestContext(ctx, request.Timeout)
	defer cancel()

	var body io.Reader
	if request.Body != nil {
		body = bytes.NewReader(request.Body)
	}
	method := request.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(requestCtx, method, request.URL, body)
	if err != nil {
		return ports.HTTPResponse{}, fmt.Errorf("create request: %w", err)
	}
	for key, values := range request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return ports.HTTPResponse{}, fmt.Errorf("%s %s: %w", method, redact(req), err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.HTTPResponse{}, fmt.Errorf("read response: %w", err)
	}

	return ports.HTTPResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       payload,
	}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = c.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// redact drops the query string, which may carry API keys.
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
