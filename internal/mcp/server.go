// Package mcp exposes the decision service as an MCP stdio server. The
// protocol stream owns stdout, so nothing else in the process may print
// there; all logging goes to stderr.
package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"admem/internal/logging"
	"admem/internal/service"
)

const protocolVersion = "2024-11-05"

// ToolHandler executes one tool call and returns the text shown to the
// model. A returned error becomes a structured tool failure, never a
// protocol-level error.
type ToolHandler func(ctx context.Context, params map[string]interface{}) (string, error)

// Server is the MCP stdio server
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *logging.Logger
	version string
	svc     *service.DecisionService
	tools   map[string]ToolHandler
}

// NewServer wires the server against the decision service
func NewServer(version string, svc *service.DecisionService, logger *logging.Logger) *Server {
	s := &Server{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger,
		version: version,
		svc:     svc,
		tools:   make(map[string]ToolHandler),
	}
	s.registerTools()
	return s
}

// SetStdin replaces the input stream, for tests
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout replaces the output stream, for tests
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}

// Start runs the message loop until EOF or context cancellation
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("MCP server starting", map[string]interface{}{
		"version": s.version,
	})

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("MCP server shutting down", map[string]interface{}{
				"reason": err.Error(),
			})
			return nil
		}

		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)", nil)
				return nil
			}
			s.logger.Error("Failed to read message", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		response := s.handleMessage(ctx, msg)
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Failed to write response", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *Message) *Message {
	if msg.IsRequest() {
		return s.handleRequest(ctx, msg)
	}
	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}
	return NewErrorMessage(msg.Id, InvalidRequest, "invalid message: not a request or notification")
}

func (s *Server) handleRequest(ctx context.Context, msg *Message) *Message {
	s.logger.Debug("Handling request", map[string]interface{}{
		"method": msg.Method,
		"id":     msg.Id,
	})

	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.Id, s.initializeResult())
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"tools": toolDefinitions(),
		})
	case "tools/call":
		return s.handleCallTool(ctx, msg)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("method not found: %s", msg.Method))
	}
}

func (s *Server) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized", nil)
	default:
		s.logger.Debug("Ignoring notification", map[string]interface{}{
			"method": msg.Method,
		})
	}
}

func (s *Server) initializeResult() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    "admem",
			"version": s.version,
		},
	}
}

// handleCallTool runs a tool and wraps its text in MCP content. Handler
// errors become a one-sentence failure result with isError set, so callers
// always receive well-formed content.
func (s *Server) handleCallTool(ctx context.Context, msg *Message) *Message {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "invalid params: expected object")
	}
	toolName, ok := params["name"].(string)
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "missing tool name")
	}
	arguments, ok := params["arguments"].(map[string]interface{})
	if !ok {
		arguments = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("unknown tool: %s", toolName))
	}

	s.logger.Info("Calling tool", map[string]interface{}{
		"tool": toolName,
	})

	text, err := handler(ctx, arguments)
	if err != nil {
		return NewResultMessage(msg.Id, toolResult(fmt.Sprintf("Tool %s failed: %s.", toolName, err.Error()), true))
	}
	return NewResultMessage(msg.Id, toolResult(text, false))
}

func toolResult(text string, isError bool) map[string]interface{} {
	result := map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}
	if isError {
		result["isError"] = true
	}
	return result
}
