package client

import (
	"context"
	"net/http"

	"chatrunner/internal/config"
	"chatrunner/internal/core"

	"github.com/sashabaranov/go-openai"
)

type runIDKey struct{}

// WithRunID attaches the run ID that requestIDTransport sends upstream.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID attached by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok && runID != ""
}

// requestIDTransport sets X-Client-Request-Id from the run ID in the request context.
type requestIDTransport struct {
	base http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	runID, ok := RunIDFromContext(req.Context())
	if !ok {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set(core.HeaderClientRequestID, runID)
	return t.base.RoundTrip(clone)
}

// NewHTTPClient builds the HTTP client used for the completion call.
func NewHTTPClient(settings config.HTTPClientSettings) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		DisableKeepAlives:     false,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: settings.ResponseHeaderTimeout,
		DisableCompression:    false,
	}

	return &http.Client{
		Transport: &requestIDTransport{base: transport},
		Timeout:   settings.RequestTimeout,
	}
}

// New creates the OpenAI chat completion client for cfg.
func New(cfg config.RunnerConfig, httpClient *http.Client) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.OrgID = cfg.OrgID
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(clientConfig)
}
