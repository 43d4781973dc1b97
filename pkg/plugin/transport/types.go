// Package transport wraps github.com/mark3labs/mcp-go in a concrete
// StdioClient type so the plugin lifecycle manager (§4.10) never
// touches the MCP wire protocol directly: it connects and closes a
// StdioClient, lists tools, and issues tool calls.
package transport

import "encoding/json"

// ToolDefinition is a tool a plugin advertises after the handshake.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// ToolCallRequest names a tool and its JSON arguments.
type ToolCallRequest struct {
	Name      string
	Arguments map[string]interface{}
}

// ToolCallResponse is a tool call's result.
type ToolCallResponse struct {
	Content []ContentItem
	IsError bool
}

// ContentItem is one piece of a tool response: text, image, or a
// best-effort fallback extracted from an unrecognized content shape.
type ContentItem struct {
	Type     string
	Text     string
	Data     string
	MimeType string
}

// Capabilities describes what a plugin supports after handshake.
type Capabilities struct {
	Tools     *ToolsCapability
	Resources *ResourcesCapability
}

type ToolsCapability struct {
	ListChanged bool
}

type ResourcesCapability struct {
	Subscribe   bool
	ListChanged bool
}

// ProcessHandle allows force-kill of a stdio-transport plugin process
// if graceful shutdown does not complete within the shutdown timeout.
type ProcessHandle interface {
	Kill() error
}
