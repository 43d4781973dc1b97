// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"log/slog"
	"time"
)

// ToolCallRequest describes an outgoing plugin tool call for logging.
type ToolCallRequest struct {
	Plugin   string
	Tool     string
	Metadata map[string]interface{}
}

// ToolCallResponse describes the outcome of a plugin tool call for
// logging.
type ToolCallResponse struct {
	Success    bool
	Error      string
	DurationMs int64
	Metadata   map[string]interface{}
}

// LogToolCallRequest logs an outgoing plugin tool call.
func LogToolCallRequest(logger *slog.Logger, req *ToolCallRequest) {
	attrs := []any{EventKey, "tool_call_request", "tool", req.Tool, PluginKey, req.Plugin}
	for k, v := range req.Metadata {
		attrs = append(attrs, k, v)
	}
	logger.Info("plugin tool call sent", attrs...)
}

// LogToolCallResponse logs a plugin tool call's completion.
func LogToolCallResponse(logger *slog.Logger, req *ToolCallRequest, resp *ToolCallResponse) {
	attrs := []any{EventKey, "tool_call_response", "tool", req.Tool, PluginKey, req.Plugin,
		"success", resp.Success, DurationKey, resp.DurationMs}
	if resp.Error != "" {
		attrs = append(attrs, "error", resp.Error)
	}
	for k, v := range resp.Metadata {
		attrs = append(attrs, k, v)
	}

	level, message := slog.LevelInfo, "plugin tool call completed"
	if !resp.Success {
		level, message = slog.LevelError, "plugin tool call failed"
	}
	logger.Log(nil, level, message, attrs...)
}

// ToolCallMiddleware wraps a plugin tool call with request/response
// logging, recording the call's duration and success.
type ToolCallMiddleware struct {
	logger *slog.Logger
}

// NewToolCallMiddleware returns a ToolCallMiddleware writing through logger.
func NewToolCallMiddleware(logger *slog.Logger) *ToolCallMiddleware {
	return &ToolCallMiddleware{logger: logger}
}

// Handler runs handler, logging the request before and the response
// (including duration) after.
func (m *ToolCallMiddleware) Handler(req *ToolCallRequest, handler func() error) error {
	start := time.Now()
	LogToolCallRequest(m.logger, req)

	err := handler()

	resp := &ToolCallResponse{Success: err == nil, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		resp.Error = err.Error()
	}
	LogToolCallResponse(m.logger, req, resp)
	return err
}
