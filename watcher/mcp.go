package watcher

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pagewatch/kit"
	"github.com/hazyhaar/pagewatch/snapshot"
)

// RegisterMCP registers the pagewatch tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerCheck(srv)
	s.registerChannels(srv)
	s.registerHistory(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Service) registerCheck(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagewatch_check",
		Description: "Check a web page for content changes and alert the configured channels when it changed",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL (http or https)"},
			"method": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Channels to alert (email, push, webhook, telegram, discord); empty means all available",
			},
			"channel_params": map[string]any{
				"type":        "object",
				"description": "Per-channel parameter bags, keyed by channel name",
			},
		}, []string{"url"}),
	}

	endpoint := kit.Logging(s.logger, "pagewatch_check")(func(ctx context.Context, r any) (any, error) {
		return s.Check(ctx, *r.(*CheckRequest))
	})

	kit.RegisterMCPTool(srv, tool, endpoint, func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		p, err := kit.DecodeArgs[CheckRequest](r)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: p}, nil
	})
}

func (s *Service) registerChannels(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagewatch_channels",
		Description: "List the notification channels configured on this instance",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return map[string][]string{"channels": s.Channels()}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	})
}

func (s *Service) registerHistory(srv *mcp.Server) {
	type req struct {
		URL   string `json:"url"`
		Limit int    `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "pagewatch_history",
		Description: "List stored snapshot versions of a page, newest first",
		InputSchema: inputSchema(map[string]any{
			"url":   map[string]any{"type": "string", "description": "Page URL"},
			"limit": map[string]any{"type": "integer", "description": "Max versions (default 50)"},
		}, []string{"url"}),
	}

	endpoint := kit.Logging(s.logger, "pagewatch_history")(func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		limit := p.Limit
		if limit == 0 {
			limit = snapshot.DefaultHistoryLimit
		}
		snaps, err := s.History(ctx, p.URL, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"url": p.URL, "snapshots": snaps}, nil
	})

	kit.RegisterMCPTool(srv, tool, endpoint, func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		p, err := kit.DecodeArgs[req](r)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: p}, nil
	})
}
