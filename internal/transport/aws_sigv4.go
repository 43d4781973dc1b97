package transport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// AWSTransportConfig configures a catalog service whose commands
// authenticate via AWS SigV4 (spec §4.5a's "aws_sigv4" auth scheme).
type AWSTransportConfig struct {
	// BaseURL is the AWS service endpoint (required)
	BaseURL string

	// Service is the AWS service name (e.g., "s3", "dynamodb", required)
	Service string

	// Region is the AWS region (e.g., "us-east-1", required)
	Region string

	// Timeout for command dispatch requests (default: 30s)
	Timeout time.Duration

	// Retry configuration
	Retry *RetryConfig
}

// TransportType returns the transport type identifier.
func (c *AWSTransportConfig) TransportType() string {
	return "aws_sigv4"
}

// Validate checks the configuration is valid.
func (c *AWSTransportConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required for aws_sigv4 transport")
	}
	if !strings.HasPrefix(c.BaseURL, "https://") && !strings.HasPrefix(c.BaseURL, "http://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	if c.Service == "" {
		return fmt.Errorf("service is required for aws_sigv4 transport")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required for aws_sigv4 transport")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// AWSTransport dispatches catalog commands whose service declares the
// "aws_sigv4" auth scheme, signing each request from the standard AWS
// credential chain.
type AWSTransport struct {
	config      *AWSTransportConfig
	client      *http.Client
	awsConfig   aws.Config
	signer      *v4.Signer
	credentials aws.Credentials
	credExpiry  time.Time
	credMutex   sync.RWMutex
	rateLimiter RateLimiter
}

// NewAWSTransport creates a new AWS SigV4 transport.
func NewAWSTransport(cfg *AWSTransportConfig) (*AWSTransport, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeAuth,
			Message:   fmt.Sprintf("failed to load AWS configuration: %v", err),
			Retryable: false,
			Cause:     err,
		}
	}

	t := &AWSTransport{
		config: cfg,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		awsConfig: awsCfg,
		signer:    v4.NewSigner(),
	}

	if err := t.validateCredentials(ctx); err != nil {
		return nil, err
	}

	return t, nil
}

// validateCredentials calls STS GetCallerIdentity once at construction
// so a misconfigured service fails fast rather than on its first
// command dispatch.
func (t *AWSTransport) validateCredentials(ctx context.Context) error {
	if err := t.refreshCredentials(ctx); err != nil {
		return err
	}

	stsClient := sts.NewFromConfig(t.awsConfig)

	validationCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := stsClient.GetCallerIdentity(validationCtx, &sts.GetCallerIdentityInput{}); err != nil {
		return &TransportError{
			Type:      ErrorTypeAuth,
			Message:   fmt.Sprintf("AWS credential validation failed: %v", sanitizeAWSError(err.Error())),
			Retryable: false,
			Cause:     err,
		}
	}

	return nil
}

// refreshCredentials retrieves and caches AWS credentials, capping the
// cache TTL at one hour even when the provider returns a longer one.
func (t *AWSTransport) refreshCredentials(ctx context.Context) error {
	t.credMutex.Lock()
	defer t.credMutex.Unlock()

	if !t.credExpiry.IsZero() && time.Now().Before(t.credExpiry) {
		return nil
	}

	creds, err := t.awsConfig.Credentials.Retrieve(ctx)
	if err != nil {
		return &TransportError{
			Type:      ErrorTypeAuth,
			Message:   fmt.Sprintf("unable to resolve AWS credentials: %v", sanitizeAWSError(err.Error())),
			Retryable: false,
			Cause:     err,
		}
	}

	t.credentials = creds
	expiry := creds.Expires
	if expiry.IsZero() || expiry.Sub(time.Now()) > time.Hour {
		expiry = time.Now().Add(time.Hour)
	}
	t.credExpiry = expiry

	return nil
}

// Execute dispatches a catalog command's Request signed with SigV4,
// refreshing cached credentials first if they're stale and retrying
// the call per t.config.Retry.
func (t *AWSTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
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

	if err := t.refreshCredentials(ctx); err != nil {
		return nil, err
	}

	return Execute(ctx, t.config.Retry, req, func(ctx context.Context) (*Response, error) {
		return t.executeOnce(ctx, req)
	})
}

// validateRequest checks the request has the fields a command
// dispatch requires.
func (t *AWSTransport) validateRequest(req *Request) error {
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

func (t *AWSTransport) executeOnce(ctx context.Context, req *Request) (*Response, error) {
	cmdID := commandIDFrom(req)

	url := req.URL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = t.config.BaseURL + url
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, &TransportError{
			Type: ErrorTypeInvalidReq, Message: fmt.Sprintf("failed to create request: %v", err),
			Retryable: false, Cause: err, CommandID: cmdID,
		}
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	payloadHash := calculatePayloadHash(req.Body)
	httpReq.Header.Set("X-Amz-Content-Sha256", payloadHash)

	t.credMutex.RLock()
	creds := aws.Credentials{
		AccessKeyID:     t.credentials.AccessKeyID,
		SecretAccessKey: t.credentials.SecretAccessKey,
		SessionToken:    t.credentials.SessionToken,
	}
	t.credMutex.RUnlock()

	if err := t.signer.SignHTTP(ctx, creds, httpReq, payloadHash, t.config.Service, t.config.Region, time.Now()); err != nil {
		return nil, &TransportError{
			Type: ErrorTypeInvalidReq, Message: fmt.Sprintf("failed to sign request: %v", err),
			Retryable: false, Cause: err, CommandID: cmdID,
		}
	}

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

	requestID := firstNonEmpty(resp.Header.Get("x-amzn-RequestId"), resp.Header.Get("x-amz-request-id"), callerRequestIDFrom(req))

	if resp.StatusCode >= 400 {
		return nil, parseAWSError(resp.StatusCode, respBody, requestID, cmdID)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
		Metadata: map[string]interface{}{
			MetadataAWSRequestID: requestID,
		},
	}, nil
}

// Name returns the transport identifier.
func (t *AWSTransport) Name() string {
	return "aws_sigv4"
}

// SetRateLimiter configures rate limiting for this transport.
func (t *AWSTransport) SetRateLimiter(limiter RateLimiter) {
	t.rateLimiter = limiter
}

// calculatePayloadHash computes the SHA256 hash SigV4 signs over.
func calculatePayloadHash(body []byte) string {
	if body == nil {
		body = []byte{}
	}
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// parseAWSError parses AWS error responses (XML or JSON, depending on
// the service's API style).
func parseAWSError(statusCode int, body []byte, requestID, cmdID string) error {
	var xmlErr struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	}
	if err := xml.Unmarshal(body, &xmlErr); err == nil && xmlErr.Code != "" {
		return classifyAWSError(statusCode, xmlErr.Code, xmlErr.Message, requestID, cmdID)
	}

	var jsonErr struct {
		Code    string `json:"__type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &jsonErr); err == nil && jsonErr.Code != "" {
		return classifyAWSError(statusCode, jsonErr.Code, jsonErr.Message, requestID, cmdID)
	}

	errorType := ErrorTypeServer
	retryable := true
	if statusCode < 500 {
		errorType = ErrorTypeClient
		retryable = false
		if statusCode == http.StatusTooManyRequests {
			errorType, retryable = ErrorTypeRateLimit, true
		}
	}

	return &TransportError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("AWS request failed with status %d", statusCode),
		RequestID:  requestID,
		Retryable:  retryable,
		CommandID:  cmdID,
		Metadata: map[string]interface{}{
			"response_body": string(body),
		},
	}
}

// classifyAWSError categorizes AWS errors by code and status.
func classifyAWSError(statusCode int, code, message, requestID, cmdID string) error {
	message = sanitizeAWSError(message)

	var errorType ErrorType
	var retryable bool

	switch code {
	case "SignatureDoesNotMatch", "InvalidSignatureException", "InvalidAccessKeyId":
		errorType, retryable = ErrorTypeAuth, false
	case "RequestLimitExceeded", "Throttling", "ThrottlingException", "TooManyRequestsException":
		errorType, retryable = ErrorTypeRateLimit, true
	case "RequestTimeout", "RequestTimeoutException":
		errorType, retryable = ErrorTypeTimeout, true
	default:
		switch {
		case statusCode >= 500:
			errorType, retryable = ErrorTypeServer, true
		case statusCode == http.StatusTooManyRequests:
			errorType, retryable = ErrorTypeRateLimit, true
		case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
			errorType, retryable = ErrorTypeAuth, false
		default:
			errorType, retryable = ErrorTypeClient, false
		}
	}

	return &TransportError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("AWS error %s: %s", code, message),
		RequestID:  requestID,
		Retryable:  retryable,
		CommandID:  cmdID,
		Metadata: map[string]interface{}{
			"aws_error_code": code,
		},
	}
}

// sanitizeAWSError redacts AWS access keys (AKIA followed by 16
// alphanumeric characters) from an error message before it reaches a
// log line or StepResult. ARNs and bucket names are left intact,
// since they're not credentials and are useful for debugging.
func sanitizeAWSError(msg string) string {
	searchPos := 0
	for {
		akiaPos := strings.Index(msg[searchPos:], "AKIA")
		if akiaPos == -1 {
			break
		}
		akiaPos += searchPos

		endPos := akiaPos + 20 // 4 (AKIA) + 16
		if endPos > len(msg) {
			endPos = len(msg)
		}

		msg = msg[:akiaPos] + "AKIA****" + msg[endPos:]
		searchPos = akiaPos + len("AKIA****")
	}
	return msg
}

// classifyDoError classifies a failed (*http.Client).Do call.
func (t *AWSTransport) classifyDoError(err error, cmdID string) *TransportError {
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
