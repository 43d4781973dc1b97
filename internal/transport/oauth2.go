package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2TransportConfig configures a catalog service whose commands
// authenticate via OAuth2 (spec §4.5a's "oauth2" auth scheme).
type OAuth2TransportConfig struct {
	// BaseURL is the service's base URL (required)
	BaseURL string

	// Flow is the OAuth2 flow ("client_credentials" or "authorization_code", required)
	Flow string

	// ClientID is the OAuth2 client ID (required; unlike ClientSecret,
	// Validate does not require ${ENV_VAR} syntax for it)
	ClientID string

	// ClientSecret is the OAuth2 client secret (required, must use ${ENV_VAR} syntax)
	ClientSecret string

	// TokenURL is the OAuth2 token endpoint (required)
	TokenURL string

	// Scopes are the OAuth2 scopes (optional)
	Scopes []string

	// RefreshToken is the refresh token for authorization_code flow (must use ${ENV_VAR} syntax)
	RefreshToken string

	// Timeout for command dispatch requests (default: 30s)
	Timeout time.Duration

	// Retry configuration
	Retry *RetryConfig
}

// TransportType returns the transport type identifier.
func (c *OAuth2TransportConfig) TransportType() string {
	return "oauth2"
}

// Validate checks the configuration is valid.
func (c *OAuth2TransportConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required for oauth2 transport")
	}
	if !strings.HasPrefix(c.BaseURL, "https://") && !strings.HasPrefix(c.BaseURL, "http://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	if c.Flow == "" {
		return fmt.Errorf("flow is required for oauth2 transport")
	}
	if c.Flow != "client_credentials" && c.Flow != "authorization_code" {
		return fmt.Errorf("flow must be client_credentials or authorization_code, got %q", c.Flow)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required for oauth2 transport")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required for oauth2 transport")
	}
	if !hasEnvVarSyntax(c.ClientSecret) {
		return fmt.Errorf("client_secret must use ${VAR_NAME} syntax so credentials never land in a catalog file")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("token_url is required for oauth2 transport")
	}
	if c.Flow == "authorization_code" {
		if c.RefreshToken == "" {
			return fmt.Errorf("refresh_token is required for authorization_code flow")
		}
		if !hasEnvVarSyntax(c.RefreshToken) {
			return fmt.Errorf("refresh_token must use ${VAR_NAME} syntax so credentials never land in a catalog file")
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// OAuth2Transport dispatches catalog commands whose service declares
// the "oauth2" auth scheme, attaching a bearer token it keeps fresh
// across the run.
type OAuth2Transport struct {
	config      *OAuth2TransportConfig
	client      *http.Client
	tokenSource oauth2.TokenSource
	token       *oauth2.Token
	tokenMutex  sync.RWMutex
	refreshing  bool
	refreshCond *sync.Cond
	rateLimiter RateLimiter
}

// NewOAuth2Transport creates a new OAuth2 transport.
func NewOAuth2Transport(cfg *OAuth2TransportConfig) (*OAuth2Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retry := cfg.Retry
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	cfg.Retry = retry

	t := &OAuth2Transport{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
	t.refreshCond = sync.NewCond(&t.tokenMutex)

	var tokenSource oauth2.TokenSource
	ctx := context.Background()

	switch cfg.Flow {
	case "client_credentials":
		ccConfig := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		tokenSource = ccConfig.TokenSource(ctx)

	case "authorization_code":
		oauthConfig := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
			Scopes:       cfg.Scopes,
		}
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
		tokenSource = oauthConfig.TokenSource(ctx, token)

	default:
		return nil, fmt.Errorf("unsupported OAuth2 flow: %s", cfg.Flow)
	}

	t.tokenSource = tokenSource

	if err := t.refreshToken(context.Background()); err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeAuth,
			Message:   fmt.Sprintf("failed to acquire OAuth2 token: %v", err),
			Retryable: false,
			Cause:     err,
		}
	}

	return t, nil
}

// refreshToken acquires a new access token.
func (t *OAuth2Transport) refreshToken(ctx context.Context) error {
	token, err := t.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	t.tokenMutex.Lock()
	t.token = token
	t.tokenMutex.Unlock()

	return nil
}

// needsRefresh reports whether the cached token is expired, or will
// expire within the next 5 minutes.
func (t *OAuth2Transport) needsRefresh() bool {
	t.tokenMutex.RLock()
	defer t.tokenMutex.RUnlock()

	if t.token == nil {
		return true
	}
	return t.token.Expiry.Before(time.Now().Add(5 * time.Minute))
}

// ensureToken ensures a valid token is available before a command
// dispatches, refreshing it if needed; concurrent dispatches to the
// same service share one in-flight refresh rather than each racing
// the token endpoint.
func (t *OAuth2Transport) ensureToken(ctx context.Context) error {
	if !t.needsRefresh() {
		return nil
	}

	t.tokenMutex.Lock()
	defer t.tokenMutex.Unlock()

	refreshThreshold := time.Now().Add(5 * time.Minute)
	if t.token != nil && t.token.Expiry.After(refreshThreshold) {
		return nil
	}

	for t.refreshing {
		done := make(chan struct{})
		go func() {
			t.refreshCond.Wait()
			close(done)
		}()

		select {
		case <-done:
			if t.token != nil && t.token.Expiry.After(time.Now().Add(5*time.Minute)) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			return fmt.Errorf("timeout waiting for token refresh")
		}
	}

	t.refreshing = true
	t.tokenMutex.Unlock()

	err := t.refreshToken(ctx)

	t.tokenMutex.Lock()
	t.refreshing = false
	t.refreshCond.Broadcast()

	return err
}

// Execute dispatches a catalog command's Request with a bearer token
// attached, refreshing the token first if it's stale and retrying the
// call per t.config.Retry.
func (t *OAuth2Transport) Execute(ctx context.Context, req *Request) (*Response, error) {
	cmdID := commandIDFrom(req)

	if err := t.validateRequest(req); err != nil {
		return nil, &TransportError{
			Type: ErrorTypeInvalidReq, Message: fmt.Sprintf("invalid request: %s", err.Error()),
			Retryable: false, Cause: err, CommandID: cmdID,
		}
	}

	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return nil, &TransportError{
				Type: ErrorTypeCancelled, Message: "rate limiter cancelled",
				Retryable: false, Cause: err, CommandID: cmdID,
			}
		}
	}

	if err := t.ensureToken(ctx); err != nil {
		return nil, &TransportError{
			Type: ErrorTypeAuth, Message: fmt.Sprintf("failed to acquire OAuth2 token: %v", err),
			Retryable: false, Cause: err, CommandID: cmdID,
		}
	}

	return Execute(ctx, t.config.Retry, req, func(ctx context.Context) (*Response, error) {
		return t.executeOnce(ctx, req)
	})
}

// validateRequest checks the request has the fields a command
// dispatch requires.
func (t *OAuth2Transport) validateRequest(req *Request) error {
	if req.Method == "" {
		return fmt.Errorf("method is required")
	}

	validMethods := map[string]bool{
		"GET": true, "POST": true, "PUT": true, "DELETE": true,
		"PATCH": true, "HEAD": true, "OPTIONS": true,
	}
	if !validMethods[req.Method] {
		return fmt.Errorf("invalid HTTP method: %q", req.Method)
	}
	if req.URL == "" {
		return fmt.Errorf("URL is required")
	}
	return nil
}

func (t *OAuth2Transport) executeOnce(ctx context.Context, req *Request) (*Response, error) {
	cmdID := commandIDFrom(req)

	requestURL := req.URL
	if !strings.HasPrefix(requestURL, "http://") && !strings.HasPrefix(requestURL, "https://") {
		requestURL = t.config.BaseURL + requestURL
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, requestURL, body)
	if err != nil {
		return nil, &TransportError{
			Type: ErrorTypeInvalidReq, Message: fmt.Sprintf("failed to build request: %v", err),
			Retryable: false, Cause: err, CommandID: cmdID,
		}
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	t.tokenMutex.RLock()
	if t.token != nil {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.token.AccessToken))
	}
	t.tokenMutex.RUnlock()

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.classifyDoError(err, cmdID)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{
			Type: ErrorTypeConnection, Message: fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true, Cause: err, CommandID: cmdID,
		}
	}

	requestID := firstNonEmpty(resp.Header.Get("X-Request-ID"), callerRequestIDFrom(req))

	if resp.StatusCode >= 400 {
		return nil, t.classifyStatus(resp.StatusCode, respBody, requestID, cmdID)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
		Metadata:   map[string]interface{}{MetadataRequestID: requestID},
	}, nil
}

// Name returns the transport identifier.
func (t *OAuth2Transport) Name() string {
	return "oauth2"
}

// SetRateLimiter configures rate limiting for this transport.
func (t *OAuth2Transport) SetRateLimiter(limiter RateLimiter) {
	t.rateLimiter = limiter
}

// classifyStatus maps a 4xx/5xx response into a TransportError,
// preferring the OAuth2 `error`/`error_description` body shape (RFC
// 6749 §5.2) when the service returns one, and falling back to the
// same status-code hints HTTPTransport uses (spec §7) otherwise.
func (t *OAuth2Transport) classifyStatus(statusCode int, body []byte, requestID, cmdID string) error {
	var oauthErr struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		return classifyOAuth2Error(statusCode, oauthErr.Error, oauthErr.ErrorDescription, requestID, cmdID)
	}

	errorType := ErrorTypeServer
	retryable := true
	message := fmt.Sprintf("oauth2 request failed with status %d", statusCode)
	switch {
	case statusCode == http.StatusTooManyRequests:
		errorType, retryable = ErrorTypeRateLimit, true
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errorType, retryable, message = ErrorTypeAuth, false, authHint(statusCode)
	case statusCode < 500:
		errorType, retryable = ErrorTypeClient, false
	}

	return &TransportError{
		Type: errorType, StatusCode: statusCode, Message: message,
		RequestID: requestID, Retryable: retryable, CommandID: cmdID,
		Metadata: map[string]interface{}{"response_body": string(body)},
	}
}

// classifyOAuth2Error categorizes OAuth2 errors by their RFC
// 6749 error code.
func classifyOAuth2Error(statusCode int, errorCode, description, requestID, cmdID string) error {
	var errorType ErrorType
	var retryable bool

	switch errorCode {
	case "invalid_grant", "unauthorized_client", "access_denied":
		errorType, retryable = ErrorTypeAuth, false
	case "temporarily_unavailable", "server_error":
		errorType, retryable = ErrorTypeServer, true
	default:
		switch {
		case statusCode >= 500:
			errorType, retryable = ErrorTypeServer, true
		case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
			errorType, retryable = ErrorTypeAuth, false
		default:
			errorType, retryable = ErrorTypeClient, false
		}
	}

	message := fmt.Sprintf("oauth2 error %s", errorCode)
	if description != "" {
		message = fmt.Sprintf("%s: %s", message, description)
	}

	return &TransportError{
		Type: errorType, StatusCode: statusCode, Message: message,
		RequestID: requestID, Retryable: retryable, CommandID: cmdID,
		Metadata: map[string]interface{}{"oauth2_error": errorCode},
	}
}

// classifyDoError classifies a failed (*http.Client).Do call.
func (t *OAuth2Transport) classifyDoError(err error, cmdID string) *TransportError {
	switch {
	case strings.Contains(err.Error(), "context canceled") || strings.Contains(err.Error(), "context deadline exceeded"):
		return &TransportError{Type: ErrorTypeCancelled, Message: "request cancelled", Retryable: false, Cause: err, CommandID: cmdID}
	case isTimeoutError(err):
		return &TransportError{Type: ErrorTypeTimeout, Message: "request timeout", Retryable: true, Cause: err, CommandID: cmdID}
	case isConnectionError(err):
		return &TransportError{Type: ErrorTypeConnection, Message: "connection error", Retryable: true, Cause: err, CommandID: cmdID}
	default:
		return &TransportError{Type: ErrorTypeConnection, Message: fmt.Sprintf("HTTP error: %s", err.Error()), Retryable: true, Cause: err, CommandID: cmdID}
	}
}
