package mcp

import (
	"context"
	"os"

	"admem/internal/service"
)

// toolDefinitions declares the four tools this server exposes. Schemas are
// plain JSON Schema objects as the protocol expects.
func toolDefinitions() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"name": "remember_decision",
			"description": "Record a technical decision with its reasoning so it can be " +
				"recalled in later sessions. Use after any significant choice of " +
				"technology, architecture, pattern, or tooling.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"decision": map[string]interface{}{
						"type":        "string",
						"description": "What was decided, one sentence",
					},
					"reasoning": map[string]interface{}{
						"type":        "string",
						"description": "Why this was the right call",
					},
					"type": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"tech_stack", "architecture", "pattern", "tool_choice"},
						"description": "Decision category",
					},
					"alternatives_considered": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Options that were rejected",
					},
					"files_affected": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Files this decision touches",
					},
					"confidence": map[string]interface{}{
						"type":        "number",
						"minimum":     0,
						"maximum":     1,
						"description": "How certain the decision is, 0 to 1",
					},
					"public": map[string]interface{}{
						"type":        "boolean",
						"description": "Share this decision across projects",
					},
					"working_dir": map[string]interface{}{
						"type":        "string",
						"description": "Project directory, defaults to the server's working directory",
					},
				},
				"required": []string{"decision", "reasoning", "type", "confidence"},
			},
		},
		{
			"name": "recall_context",
			"description": "Retrieve past decisions relevant to a question. Without a query " +
				"it lists the most recent decisions of the current project.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "What you want context about",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum results, default 10",
					},
					"global": map[string]interface{}{
						"type":        "boolean",
						"description": "Search public decisions across all projects instead of this one",
					},
					"working_dir": map[string]interface{}{
						"type":        "string",
						"description": "Project directory, defaults to the server's working directory",
					},
				},
			},
		},
		{
			"name": "discover_patterns",
			"description": "Summarize the recurring themes in this project's decision history, " +
				"surface publicly shared decisions from other projects near a topic, " +
				"and recommend proven patterns for its tech stack.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"topic": map[string]interface{}{
						"type":        "string",
						"description": "Optional question to focus the ranking and the cross-project search on",
					},
					"tech_stack": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Override the detected tech stack for recommendations",
					},
					"project_type": map[string]interface{}{
						"type":        "string",
						"description": "Override the detected project type for recommendations",
					},
					"working_dir": map[string]interface{}{
						"type":        "string",
						"description": "Project directory, defaults to the server's working directory",
					},
				},
			},
		},
		{
			"name": "get_timeline",
			"description": "Show the project's decisions in chronological order, optionally " +
				"limited to recent days or a single category.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"days": map[string]interface{}{
						"type":        "integer",
						"description": "Only decisions from the last N days",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"tech_stack", "architecture", "pattern", "tool_choice"},
						"description": "Only decisions of this category",
					},
					"working_dir": map[string]interface{}{
						"type":        "string",
						"description": "Project directory, defaults to the server's working directory",
					},
				},
			},
		},
	}
}

func (s *Server) registerTools() {
	s.tools["remember_decision"] = s.handleRememberDecision
	s.tools["recall_context"] = s.handleRecallContext
	s.tools["discover_patterns"] = s.handleDiscoverPatterns
	s.tools["get_timeline"] = s.handleGetTimeline
}

func (s *Server) handleRememberDecision(ctx context.Context, params map[string]interface{}) (string, error) {
	result, err := s.svc.Remember(ctx, service.RememberRequest{
		WorkingDir:             workingDir(params),
		Decision:               stringParam(params, "decision"),
		Reasoning:              stringParam(params, "reasoning"),
		Type:                   stringParam(params, "type"),
		AlternativesConsidered: stringListParam(params, "alternatives_considered"),
		FilesAffected:          stringListParam(params, "files_affected"),
		Confidence:             floatParam(params, "confidence"),
		Public:                 boolParam(params, "public"),
	})
	if err != nil {
		return "", err
	}
	return service.RenderRemember(result), nil
}

func (s *Server) handleRecallContext(ctx context.Context, params map[string]interface{}) (string, error) {
	query := stringParam(params, "query")
	result, err := s.svc.Recall(ctx, service.RecallRequest{
		WorkingDir: workingDir(params),
		Query:      query,
		Limit:      intParam(params, "limit"),
		Global:     boolParam(params, "global"),
	})
	if err != nil {
		return "", err
	}
	return service.RenderRecall(result, query), nil
}

func (s *Server) handleDiscoverPatterns(ctx context.Context, params map[string]interface{}) (string, error) {
	result, err := s.svc.DiscoverPatterns(ctx, service.DiscoverRequest{
		WorkingDir:  workingDir(params),
		Topic:       stringParam(params, "topic"),
		TechStack:   stringListParam(params, "tech_stack"),
		ProjectType: stringParam(params, "project_type"),
	})
	if err != nil {
		return "", err
	}
	return service.RenderDiscover(result), nil
}

func (s *Server) handleGetTimeline(ctx context.Context, params map[string]interface{}) (string, error) {
	days := intParam(params, "days")
	result, err := s.svc.Timeline(ctx, service.TimelineRequest{
		WorkingDir: workingDir(params),
		Days:       days,
		Category:   stringParam(params, "category"),
	})
	if err != nil {
		return "", err
	}
	return service.RenderTimeline(result, days), nil
}

func workingDir(params map[string]interface{}) string {
	if dir := stringParam(params, "working_dir"); dir != "" {
		return dir
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

func stringParam(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}

func floatParam(params map[string]interface{}, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func intParam(params map[string]interface{}, key string) int {
	return int(floatParam(params, key))
}

func boolParam(params map[string]interface{}, key string) bool {
	v, _ := params[key].(bool)
	return v
}

func stringListParam(params map[string]interface{}, key string) []string {
	raw, ok := params[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
