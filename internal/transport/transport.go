// Package transport provides the protocol-level primitives the HTTP
// command runner (spec §4.5a) builds on: a transport-agnostic
// request/response pair, pluggable authentication (AWS SigV4, OAuth2),
// rate limiting, and retry-with-backoff. The command runner itself
// stays protocol-ignorant: it builds a Request from a command spec and
// a RunContext, and interprets whatever Response comes back.
package transport

import "context"

// Transport executes a single request according to its own auth and
// signing rules.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
	Name() string
	SetRateLimiter(limiter RateLimiter)
}

// Request is a transport-agnostic HTTP request.
type Request struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	Metadata map[string]interface{}
}

// Response is a transport-agnostic HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
	Metadata   map[string]interface{}
}

const (
	MetadataRequestID    = "request_id"
	MetadataAWSRequestID = "aws_request_id"
	MetadataRetryCount   = "retry_count"
	MetadataCommandID    = "command_id"
)

// commandIDFrom reads the catalog command id commandexec.buildRequest
// stamps onto a Request's Metadata, so transports can correlate their
// own errors back to the command that issued them.
func commandIDFrom(req *Request) string {
	if req == nil || req.Metadata == nil {
		return ""
	}
	id, _ := req.Metadata[MetadataCommandID].(string)
	return id
}

// callerRequestIDFrom reads the request id commandexec.buildRequest
// generates per dispatch, used as the correlation id when a service
// response carries none of its own.
func callerRequestIDFrom(req *Request) string {
	if req == nil || req.Metadata == nil {
		return ""
	}
	id, _ := req.Metadata[MetadataRequestID].(string)
	return id
}

// RateLimiter blocks until a request is allowed under the configured
// limit. golang.org/x/time/rate.Limiter satisfies this via its Wait
// method.
type RateLimiter interface {
	Wait(ctx context.Context) error
}
