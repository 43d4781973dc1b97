package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// StdioConfig configures a stdio-transport plugin connection: the
// executable to launch plus its arguments and environment.
type StdioConfig struct {
	PluginName string
	Command    string
	Args       []string
	Env        []string
	Timeout    time.Duration
}

// StdioClient is a live connection to a plugin process over stdio.
type StdioClient struct {
	pluginName   string
	client       *client.Client
	capabilities *Capabilities
	timeout      time.Duration
	process      ProcessHandle
}

// Connect launches the plugin process, performs the MCP handshake,
// and returns a ready client — this is the "instantiate a
// transport-specific connection ... and perform the protocol
// handshake" step of the connect sequence (§4.10 step 3).
func Connect(ctx context.Context, cfg StdioConfig) (*StdioClient, error) {
	if cfg.PluginName == "" {
		return nil, fmt.Errorf("transport: plugin name is required")
	}
	if cfg.Command == "" {
		return nil, fmt.Errorf("transport: command is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	mcpClient, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("transport: creating client for %q: %w", cfg.PluginName, err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("transport: starting %q: %w", cfg.PluginName, err)
	}

	c := &StdioClient{
		pluginName: cfg.PluginName,
		client:     mcpClient,
		timeout:    timeout,
		process:    extractProcess(mcpClient),
	}
	if err := c.handshake(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("transport: handshake with %q: %w", cfg.PluginName, err)
	}
	return c, nil
}

func extractProcess(mcpClient *client.Client) ProcessHandle {
	if mcpClient == nil {
		return nil
	}
	tr := mcpClient.GetTransport()
	if tr == nil {
		return nil
	}
	trVal := reflect.ValueOf(tr)
	if trVal.Kind() == reflect.Ptr {
		trVal = trVal.Elem()
	}
	cmdField := trVal.FieldByName("Cmd")
	if !cmdField.IsValid() || cmdField.IsNil() {
		return nil
	}
	if cmdField.Kind() != reflect.Ptr {
		return nil
	}
	cmdVal := cmdField.Elem()
	procField := cmdVal.FieldByName("Process")
	if !procField.IsValid() || procField.IsNil() {
		return nil
	}
	proc, ok := procField.Interface().(*os.Process)
	if !ok {
		return nil
	}
	return proc
}

func (c *StdioClient) handshake(ctx context.Context) error {
	req := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "oatty",
				Version: "0.1.0",
			},
		},
	}
	if _, err := c.client.Initialize(ctx, req); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	caps := c.client.GetServerCapabilities()
	c.capabilities = &Capabilities{}
	if caps.Tools != nil {
		c.capabilities.Tools = &ToolsCapability{ListChanged: caps.Tools.ListChanged}
	}
	if caps.Resources != nil {
		c.capabilities.Resources = &ResourcesCapability{Subscribe: caps.Resources.Subscribe, ListChanged: caps.Resources.ListChanged}
	}
	return nil
}

// ListTools enumerates the plugin's advertised tools.
func (c *StdioClient) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("transport: listing tools: %w", err)
	}
	tools := make([]ToolDefinition, len(result.Tools))
	for i, t := range result.Tools {
		var schema json.RawMessage
		if len(t.RawInputSchema) > 0 {
			schema = t.RawInputSchema
		}
		tools[i] = ToolDefinition{Name: t.Name, Description: t.Description, InputSchema: schema}
	}
	return tools, nil
}

// CallTool issues a tool call, bounding it by the client's configured
// timeout.
func (c *StdioClient) CallTool(ctx context.Context, req ToolCallRequest) (*ToolCallResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: req.Name, Arguments: req.Arguments},
	})
	if err != nil {
		return nil, fmt.Errorf("transport: tool call %q: %w", req.Name, err)
	}

	resp := &ToolCallResponse{IsError: result.IsError, Content: make([]ContentItem, len(result.Content))}
	for i, content := range result.Content {
		item := ContentItem{}
		if tc, ok := mcp.AsTextContent(content); ok {
			item.Type, item.Text = tc.Type, tc.Text
		} else if ic, ok := mcp.AsImageContent(content); ok {
			item.Type, item.Data, item.MimeType = ic.Type, ic.Data, ic.MIMEType
		} else {
			raw, merr := json.Marshal(content)
			if merr == nil {
				var m map[string]interface{}
				if json.Unmarshal(raw, &m) == nil {
					if s, ok := m["type"].(string); ok {
						item.Type = s
					}
					if s, ok := m["text"].(string); ok {
						item.Text = s
					}
				}
			}
		}
		resp.Content[i] = item
	}
	return resp, nil
}

// Capabilities returns the plugin's negotiated capabilities.
func (c *StdioClient) Capabilities() *Capabilities { return c.capabilities }

// Process returns the underlying OS process, for force-kill on
// shutdown timeout; nil if it could not be extracted.
func (c *StdioClient) Process() ProcessHandle { return c.process }

// Close disconnects from the plugin.
func (c *StdioClient) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("transport: closing %q: %w", c.pluginName, err)
	}
	return nil
}

// Ping checks whether the plugin is still responsive — the
// transport-level half of the health check contract (§4.10).
func (c *StdioClient) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		if err == io.EOF {
			return fmt.Errorf("transport: %q connection closed", c.pluginName)
		}
		return fmt.Errorf("transport: ping %q: %w", c.pluginName, err)
	}
	return nil
}
