package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTransportConfig configures the plain bearer-token HTTP transport
// used for command specs that carry a static base URL and optional
// bearer credential rather than a full OAuth2 or AWS SigV4 flow.
type HTTPTransportConfig struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
	Retry       *RetryConfig
}

// HTTPTransport is the default transport for commands whose catalog
// entry names neither an oauth2 nor an aws_sigv4 auth scheme.
type HTTPTransport struct {
	config  HTTPTransportConfig
	client  *http.Client
	limiter RateLimiter
}

// NewHTTPTransport builds an HTTPTransport from cfg, defaulting the
// client timeout to 30s when unset.
func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransport{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Name() string { return "http" }

func (t *HTTPTransport) SetRateLimiter(limiter RateLimiter) { t.limiter = limiter }

func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Type: ErrorTypeCancelled, Message: "rate limiter wait cancelled", Cause: err}
		}
	}

	return Execute(ctx, t.config.Retry, req, func(ctx context.Context) (*Response, error) {
		return t.doOnce(ctx, req)
	})
}

func (t *HTTPTransport) doOnce(ctx context.Context, req *Request) (*Response, error) {
	cmdID := commandIDFrom(req)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Type: ErrorTypeInvalidReq, Message: fmt.Sprintf("invalid request: %v", err), Cause: err, CommandID: cmdID}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if t.config.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.config.BearerToken)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		errType := ErrorTypeConnection
		if ctx.Err() != nil {
			errType = ErrorTypeCancelled
		}
		return nil, &TransportError{Type: errType, Message: fmt.Sprintf("request failed: %v", err), Retryable: errType == ErrorTypeConnection, Cause: err, CommandID: cmdID}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Type: ErrorTypeConnection, Message: fmt.Sprintf("reading response body: %v", err), Retryable: true, Cause: err, CommandID: cmdID}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &TransportError{
			Type:       ErrorTypeAuth,
			StatusCode: resp.StatusCode,
			Message:    authHint(resp.StatusCode),
			Retryable:  false,
			CommandID:  cmdID,
		}
	}
	if resp.StatusCode >= 500 {
		return nil, &TransportError{
			Type:       ErrorTypeServer,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("server error: status %d", resp.StatusCode),
			Retryable:  true,
			Metadata:   map[string]interface{}{"retry_after": resp.Header.Get("Retry-After")},
			CommandID:  cmdID,
		}
	}
	if resp.StatusCode >= 400 {
		return nil, &TransportError{
			Type:       ErrorTypeClient,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("client error: status %d", resp.StatusCode),
			Retryable:  resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests,
			Metadata:   map[string]interface{}{"retry_after": resp.Header.Get("Retry-After")},
			CommandID:  cmdID,
		}
	}

	requestID := firstNonEmpty(resp.Header.Get("X-Request-ID"), callerRequestIDFrom(req))
	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
		Metadata:   map[string]interface{}{MetadataRequestID: requestID},
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// authHint produces the user-facing remediation text for 401/403
// responses (spec §7).
func authHint(status int) string {
	if status == http.StatusUnauthorized {
		return "authentication failed (401): check that the configured credential is present and not expired"
	}
	return "access denied (403): the credential is valid but lacks permission for this operation"
}
