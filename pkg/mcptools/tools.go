// Package mcptools exposes index queries as MCP tools.
package mcptools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"gfa_index/pkg/graph"
	"gfa_index/pkg/query"
)

// Register adds the query tools to the MCP server.
func Register(s *server.MCPServer, q query.Querier) {
	s.AddTool(statsTool(), statsHandler(q))
	s.AddTool(nodeAtTool(), nodeAtHandler(q))
	s.AddTool(pathRangeTool(), pathRangeHandler(q))
	s.AddTool(pathsOnNodeTool(), pathsOnNodeHandler(q))
}

// NewServer returns an MCP server with the query tools registered.
func NewServer(name, version string, q query.Querier) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	Register(s, q)
	return s
}

// --- stats ---

func statsTool() mcp.Tool {
	return mcp.NewTool("stats",
		mcp.WithDescription("Summarize the loaded pangenome index: segment and path counts, total sequence length, segment id range."),
	)
}

func statsHandler(q query.Querier) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s := q.Stats(ctx)
		var sb strings.Builder
		fmt.Fprintf(&sb, "segments: %d\n", s.Segments)
		fmt.Fprintf(&sb, "paths: %d\n", s.Paths)
		fmt.Fprintf(&sb, "pangenome_len: %d\n", s.PangenomeLen)
		fmt.Fprintf(&sb, "segment_ids: %d..%d\n", s.MinSegmentID, s.MaxSegmentID)
		fmt.Fprintf(&sb, "matrix_nnz: %d\n", s.MatrixNNZ)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- node_at ---

func nodeAtTool() mcp.Tool {
	return mcp.NewTool("node_at",
		mcp.WithDescription("Find the segment covering a 0-based position in the concatenated pangenome sequence."),
		mcp.WithString("pos",
			mcp.Description("0-based pangenome position"),
			mcp.Required(),
		),
	)
}

func nodeAtHandler(q query.Querier) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pos, err := uintArg(req, "pos")
		if err != nil {
			return toolError(err)
		}
		span, err := q.NodeAt(ctx, graph.Bp(pos))
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("segment %d  offset %d  length %d\n",
			span.SegmentID, span.Offset, span.Length)), nil
	}
}

// --- path_range ---

func pathRangeTool() mcp.Tool {
	return mcp.NewTool("path_range",
		mcp.WithDescription("List the steps of a path overlapping the half-open interval [start, end) of path coordinates."),
		mcp.WithString("path",
			mcp.Description("Path name as it appears in the GFA P line"),
			mcp.Required(),
		),
		mcp.WithString("start",
			mcp.Description("0-based start position on the path"),
			mcp.Required(),
		),
		mcp.WithString("end",
			mcp.Description("Exclusive end position on the path"),
			mcp.Required(),
		),
	)
}

func pathRangeHandler(q query.Querier) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return toolError(fmt.Errorf("path is required"))
		}
		start, err := uintArg(req, "start")
		if err != nil {
			return toolError(err)
		}
		end, err := uintArg(req, "end")
		if err != nil {
			return toolError(err)
		}

		res, err := q.PathRange(ctx, path, graph.Bp(start), graph.Bp(end))
		if err != nil {
			return toolError(err)
		}
		if len(res.Steps) == 0 {
			return mcp.NewToolResultText("No steps."), nil
		}

		var sb strings.Builder
		for _, s := range res.Steps {
			orient := '+'
			if s.Reverse {
				orient = '-'
			}
			fmt.Fprintf(&sb, "%d  %d%c  %d  %d\n", s.Index, s.SegmentID, orient, s.Offset, s.Length)
		}
		if res.Truncated {
			fmt.Fprintf(&sb, "(truncated after %d steps)\n", len(res.Steps))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- paths_on_node ---

func pathsOnNodeTool() mcp.Tool {
	return mcp.NewTool("paths_on_node",
		mcp.WithDescription("List the paths that step on a segment."),
		mcp.WithString("segment",
			mcp.Description("Segment id as it appears in the GFA S line"),
			mcp.Required(),
		),
	)
}

func pathsOnNodeHandler(q query.Querier) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := uintArg(req, "segment")
		if err != nil {
			return toolError(err)
		}
		if id > 1<<32-1 {
			return toolError(fmt.Errorf("segment %d out of range", id))
		}
		paths, err := q.PathsOnNode(ctx, uint32(id))
		if err != nil {
			return toolError(err)
		}
		if len(paths) == 0 {
			return mcp.NewToolResultText("No paths."), nil
		}
		return mcp.NewToolResultText(strings.Join(paths, "\n") + "\n"), nil
	}
}

func uintArg(req mcp.CallToolRequest, name string) (uint64, error) {
	s := req.GetString(name, "")
	if s == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative integer", name, s)
	}
	return v, nil
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
