// Package commandexec implements runner.HTTPExecutor over
// internal/transport, turning a catalog command spec plus the
// workflow's run context into a transport.Request and the transport's
// response back into a value.Value.
package commandexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/oattyio/oatty/internal/secretstore"
	"github.com/oattyio/oatty/internal/transport"
	oerrors "github.com/oattyio/oatty/pkg/errors"
	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/runner"
	"github.com/oattyio/oatty/pkg/value"
)

// ServiceConfig locates and authenticates one catalog service_id.
type ServiceConfig struct {
	BaseURL string
	Headers map[string]string

	// Exactly one of these may be set; an unset auth scheme falls back
	// to plain HTTPTransport with no credential attached.
	BearerToken string
	OAuth2      *transport.OAuth2TransportConfig
	AWSSigV4    *transport.AWSTransportConfig
}

// HTTPRunner dispatches CommandSpecs whose Kind is runner.ExecHTTP,
// building one transport.Transport per service_id on first use and
// reusing it for subsequent calls (so retry/rate-limit state and
// OAuth2 token caching persist across a run).
type HTTPRunner struct {
	Services map[string]ServiceConfig
	Retry    *transport.RetryConfig

	// Secrets resolves a "keyring:<account>" BearerToken against the
	// OS keychain. Nil means BearerToken is always used literally.
	Secrets *secretstore.Store

	built map[string]transport.Transport
}

// NewHTTPRunner constructs an HTTPRunner over the given service
// registry. secrets may be nil.
func NewHTTPRunner(services map[string]ServiceConfig, retry *transport.RetryConfig, secrets *secretstore.Store) *HTTPRunner {
	return &HTTPRunner{Services: services, Retry: retry, Secrets: secrets, built: make(map[string]transport.Transport)}
}

func (h *HTTPRunner) ExecuteHTTP(ctx context.Context, spec runner.CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
	svc, ok := h.Services[spec.ServiceID]
	if !ok {
		return value.Null, fmt.Errorf("commandexec: no service configured for service_id %q (command %q)", spec.ServiceID, spec.ID)
	}

	t, err := h.transportFor(spec.ServiceID, svc, spec.AuthScheme)
	if err != nil {
		return value.Null, err
	}

	req, err := buildRequest(svc, spec, with, body)
	if err != nil {
		return value.Null, err
	}

	resp, err := t.Execute(ctx, req)
	if err != nil {
		return value.Null, asExecutionError(spec.ID, err)
	}
	return responseToValue(resp), nil
}

// asExecutionError translates a transport-layer failure into the
// domain ExecutionError (spec §7's ExecutionError{retriable?} kind)
// the workflow layer surfaces in a StepResult, carrying forward the
// transport's own retryable classification.
func asExecutionError(commandID string, err error) error {
	var transportErr *transport.TransportError
	retriable := false
	if oerrors.As(err, &transportErr) {
		retriable = transportErr.Retryable
	}
	return &oerrors.ExecutionError{
		CommandID: commandID,
		Message:   err.Error(),
		Retriable: retriable,
		Cause:     err,
	}
}

func (h *HTTPRunner) transportFor(serviceID string, svc ServiceConfig, authScheme string) (transport.Transport, error) {
	if t, ok := h.built[serviceID]; ok {
		return t, nil
	}

	var t transport.Transport
	switch authScheme {
	case "oauth2":
		if svc.OAuth2 == nil {
			return nil, fmt.Errorf("commandexec: service %q declares oauth2 auth but has no OAuth2TransportConfig", serviceID)
		}
		oa, err := transport.NewOAuth2Transport(svc.OAuth2)
		if err != nil {
			return nil, fmt.Errorf("commandexec: building oauth2 transport for %q: %w", serviceID, err)
		}
		t = oa
	case "aws_sigv4":
		if svc.AWSSigV4 == nil {
			return nil, fmt.Errorf("commandexec: service %q declares aws_sigv4 auth but has no AWSTransportConfig", serviceID)
		}
		aw, err := transport.NewAWSTransport(svc.AWSSigV4)
		if err != nil {
			return nil, fmt.Errorf("commandexec: building aws_sigv4 transport for %q: %w", serviceID, err)
		}
		t = aw
	default:
		token := svc.BearerToken
		if h.Secrets != nil {
			resolved, err := h.Secrets.Resolve(token)
			if err != nil {
				return nil, fmt.Errorf("commandexec: resolving bearer token for %q: %w", serviceID, err)
			}
			token = resolved
		}
		t = transport.NewHTTPTransport(transport.HTTPTransportConfig{
			BaseURL:     svc.BaseURL,
			BearerToken: token,
			Retry:       h.Retry,
		})
	}

	h.built[serviceID] = t
	return t, nil
}

func buildRequest(svc ServiceConfig, spec runner.CommandSpec, with, body value.Value) (*transport.Request, error) {
	path := spec.Path
	headers := make(map[string]string, len(svc.Headers))
	for k, v := range svc.Headers {
		headers[k] = v
	}

	var bodyBytes []byte
	if !body.IsNull() {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("commandexec: marshaling body for %q: %w", spec.ID, err)
		}
		bodyBytes = data
		headers["Content-Type"] = "application/json"
	}

	return &transport.Request{
		Method:  spec.Method,
		URL:     svc.BaseURL + path,
		Headers: headers,
		Body:    bodyBytes,
		Metadata: map[string]interface{}{
			"command_id": spec.ID,
			"request_id": uuid.NewString(),
			"with":       with.ToAny(),
		},
	}, nil
}

func responseToValue(resp *transport.Response) value.Value {
	var decoded interface{}
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &decoded) == nil {
		out := value.NewObject()
		out = out.Set("status_code", value.Number(float64(resp.StatusCode)))
		out = out.Set("body", value.FromAny(decoded))
		return out
	}
	out := value.NewObject()
	out = out.Set("status_code", value.Number(float64(resp.StatusCode)))
	out = out.Set("body", value.String(string(resp.Body)))
	return out
}
