package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/oattyio/oatty/internal/transport"
	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/value"
)

// Pagination is extracted from a response's Content-Range header
// (spec §4.5a), e.g. "items 0-24/100".
type Pagination struct {
	Field      string
	RangeStart int
	RangeEnd   int
	Max        int
	Order      string
	NextRange  string
}

var contentRangePattern = regexp.MustCompile(`^(\S+)\s+(\d+)-(\d+)/(\d+)$`)

// ParseContentRange parses a Content-Range header value into a
// Pagination record, or returns (nil, false) if the header is absent
// or malformed.
func ParseContentRange(header string) (*Pagination, bool) {
	if header == "" {
		return nil, false
	}
	m := contentRangePattern.FindStringSubmatch(header)
	if m == nil {
		return nil, false
	}
	start, err1 := strconv.Atoi(m[2])
	end, err2 := strconv.Atoi(m[3])
	max, err3 := strconv.Atoi(m[4])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, false
	}
	return &Pagination{Field: m[1], RangeStart: start, RangeEnd: end, Max: max}, true
}

// HTTPRunnerConfig resolves a service id to a base URL, with an
// environment-variable override checked first (spec §4.5a).
type HTTPRunnerConfig struct {
	BaseURLs    map[string]string // service_id -> base_url
	EnvOverride func(serviceID string) (string, bool)
	BearerToken string
	Transport   transport.Transport
}

// DefaultHTTPRunnerConfig wires the env-override function to the
// OATTY_SERVICE_<ID>_BASE_URL convention.
func DefaultHTTPRunnerConfig(baseURLs map[string]string) HTTPRunnerConfig {
	return HTTPRunnerConfig{
		BaseURLs: baseURLs,
		EnvOverride: func(serviceID string) (string, bool) {
			key := "OATTY_SERVICE_" + strings.ToUpper(sanitizeEnvKey(serviceID)) + "_BASE_URL"
			v, ok := os.LookupEnv(key)
			return v, ok
		},
		Transport: transport.NewHTTPTransport(transport.HTTPTransportConfig{}),
	}
}

func sanitizeEnvKey(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// HTTPRunner implements HTTPExecutor atop internal/transport.
type HTTPRunner struct {
	Config HTTPRunnerConfig
}

func (h HTTPRunner) ExecuteHTTP(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
	baseURL := h.resolveBaseURL(spec.ServiceID)
	if baseURL == "" {
		return value.Null, fmt.Errorf("runner: no base_url configured for service %q", spec.ServiceID)
	}

	path, err := interpolatePath(spec.Path, with)
	if err != nil {
		return value.Null, fmt.Errorf("runner: %w", err)
	}

	var bodyBytes []byte
	if !body.IsNull() {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return value.Null, fmt.Errorf("runner: serializing body: %w", err)
		}
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if h.Config.BearerToken != "" {
		headers["Authorization"] = "Bearer " + h.Config.BearerToken
	}

	req := &transport.Request{
		Method:  strings.ToUpper(spec.Method),
		URL:     strings.TrimRight(baseURL, "/") + path,
		Headers: headers,
		Body:    bodyBytes,
	}

	resp, err := h.Config.Transport.Execute(ctx, req)
	if err != nil {
		return value.Null, fmt.Errorf("runner: command %q failed: %w", spec.ID, err)
	}

	out := value.Null
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			preview := previewBody(resp.Body)
			return value.Null, fmt.Errorf("runner: command %q returned non-JSON response: %s", spec.ID, preview)
		}
	}

	if contentRange := firstHeader(resp.Headers, "Content-Range"); contentRange != "" {
		if pag, ok := ParseContentRange(contentRange); ok {
			result := value.NewObject().
				Set("data", out).
				Set("pagination", paginationToValue(pag))
			return result, nil
		}
	}
	return out, nil
}

func (h HTTPRunner) resolveBaseURL(serviceID string) string {
	if h.Config.EnvOverride != nil {
		if v, ok := h.Config.EnvOverride(serviceID); ok && v != "" {
			return v
		}
	}
	return h.Config.BaseURLs[serviceID]
}

var pathPlaceholder = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// interpolatePath substitutes `{name}` placeholders in path with
// string-rendered fields from with.
func interpolatePath(path string, with value.Value) (string, error) {
	var missing []string
	result := pathPlaceholder.ReplaceAllStringFunc(path, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := with.Get(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return v.String()
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing path argument(s) for %q: %s", path, strings.Join(missing, ", "))
	}
	return result, nil
}

func firstHeader(headers map[string][]string, name string) string {
	for k, vs := range headers {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

func previewBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "...(truncated)"
	}
	return string(body)
}

func paginationToValue(p *Pagination) value.Value {
	return value.NewObject().
		Set("field", value.String(p.Field)).
		Set("range_start", value.Number(float64(p.RangeStart))).
		Set("range_end", value.Number(float64(p.RangeEnd))).
		Set("max", value.Number(float64(p.Max))).
		Set("order", value.String(p.Order)).
		Set("next_range", value.String(p.NextRange))
}
