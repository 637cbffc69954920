package archive

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/coldtab/kit"
)

// RegisterMCP registers the coldtab tools on an MCP server: run the
// pipeline, list records, and report stats.
func RegisterMCP(srv *mcp.Server, a *Archiver, store *Store) {
	registerRunTool(srv, a)
	registerRecordsTool(srv, store)
	registerStatsTool(srv, store)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- run ---

func registerRunTool(srv *mcp.Server, a *Archiver) {
	tool := &mcp.Tool{
		Name:        "coldtab_run",
		Description: "Archive idle tabs now using the configured thresholds. Returns the run summary.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return a.Run(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (any, error) {
		return nil, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- records ---

type recordsReq struct {
	Limit int `json:"limit"`
}

func registerRecordsTool(srv *mcp.Server, store *Store) {
	tool := &mcp.Tool{
		Name:        "coldtab_records",
		Description: "List archived tabs, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum rows to return (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*recordsReq)
		return store.List(ctx, r.Limit)
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var r recordsReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &r, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- stats ---

func registerStatsTool(srv *mcp.Server, store *Store) {
	tool := &mcp.Tool{
		Name:        "coldtab_stats",
		Description: "Archive totals and a per-domain breakdown.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return store.Stats(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (any, error) {
		return nil, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
