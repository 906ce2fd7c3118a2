package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ddigate/internal/domain"
)

// Client is a thin, non-retrying HTTPS client for one upstream service
// family. Resilience (timeout, breaker, retry, cache) is composed by the
// pipeline; the client only authenticates, encodes and classifies.
type Client struct {
	baseURL    string
	apiKey     string
	service    string
	httpClient *http.Client
	logger     *zap.Logger
}

type Options struct {
	BaseURL        string
	APIKey         string
	Service        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Logger         *zap.Logger
	// HTTPClient overrides the pooled default.
	HTTPClient *http.Client
}

func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("upstream api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = domain.DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	service := opts.Service
	if service == "" {
		service = domain.ServiceDDI
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = domain.DefaultConnectTimeout
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = domain.DefaultReadTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		service:    service,
		httpClient: httpClient,
		logger:     logger.Named("upstream"),
	}, nil
}

// Service returns the breaker/metric label for this client.
func (c *Client) Service() string { return c.service }

// Do issues a single HTTP request and decodes the JSON response body.
// 2xx with an empty, 204 or "{}" body decodes to {"success": true}.
// Failures are classified into the domain error taxonomy; the client
// never retries.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	op := fmt.Sprintf("%s %s", method, path)

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, domain.E(domain.KindInternal, op, "encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, domain.E(domain.KindInternal, op, "build request", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	// The upstream answers 501 to DELETE requests that carry a
	// Content-Type header, so it is omitted on DELETE requests.
	if method != http.MethodDelete {
		req.Header.Set("Content-Type", "application/json")
	}
	if key, ok := IdempotencyKeyFromContext(ctx); ok {
		req.Header.Set("X-Idempotency-Key", key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(op, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return decodeSuccess(op, resp.StatusCode, payload)
	}
	return nil, classifyStatus(op, resp, payload)
}

func decodeSuccess(op string, status int, payload []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(payload))
	if status == http.StatusNoContent || trimmed == "" || trimmed == "{}" {
		return map[string]any{"success": true}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, domain.E(domain.KindInternal, op, "decode response body", err)
	}
	return decoded, nil
}

func classifyStatus(op string, resp *http.Response, payload []byte) error {
	status := resp.StatusCode
	msg := fmt.Sprintf("HTTP %d: %s", status, truncate(string(payload), 512))

	switch {
	case status == http.StatusTooManyRequests:
		return &domain.Error{
			Kind:       domain.KindRateLimited,
			Op:         op,
			Message:    msg,
			Status:     status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case status >= 500:
		return &domain.Error{Kind: domain.KindUpstreamServerError, Op: op, Message: msg, Status: status}
	case status == http.StatusNotFound:
		return &domain.Error{Kind: domain.KindNotFound, Op: op, Message: msg, Status: status}
	default:
		return &domain.Error{Kind: domain.KindUpstreamClientError, Op: op, Message: msg, Status: status}
	}
}

func classifyTransport(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.E(domain.KindTimeout, op, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return domain.E(domain.KindCancelled, op, "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.E(domain.KindTimeout, op, "request timed out", err)
	}
	return domain.E(domain.KindTransportError, op, "", err)
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type idempotencyKeyContextKey struct{}

// WithIdempotencyKey attaches a mutation fingerprint that Do forwards as
// the X-Idempotency-Key header.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKeyContextKey{}, key)
}

func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyContextKey{}).(string)
	return key, ok && key != ""
}
