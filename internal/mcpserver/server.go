// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the data browser to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/workbench"
)

// Server wraps the MCP server with data browser tools.
type Server struct {
	mcp *server.MCPServer
	svc *workbench.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *workbench.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Data Browser",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_containers",
		mcp.WithDescription("List the registered data containers, most recently used first."),
	), s.listContainers)

	s.mcp.AddTool(mcp.NewTool("list_objects",
		mcp.WithDescription("List the objects of one category in a container."),
		mcp.WithNumber("container", mcp.Required(), mcp.Description("Container number")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Object category"), mcp.Enum(categoryNames()...)),
		mcp.WithString("title", mcp.Description("Optional title glob, e.g. Topo*")),
	), s.listObjects)

	s.mcp.AddTool(mcp.NewTool("current_object",
		mcp.WithDescription("Return the selected object of a category."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Object category"), mcp.Enum(categoryNames()...)),
	), s.currentObject)

	s.mcp.AddTool(mcp.NewTool("show_object",
		mcp.WithDescription("Open or close the view of an object. Opening a view also selects the object."),
		mcp.WithNumber("container", mcp.Required(), mcp.Description("Container number")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Object category"), mcp.Enum(categoryNames()...)),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Object id")),
		mcp.WithBoolean("visible", mcp.Description("false closes the view (default true)")),
	), s.showObject)

	s.mcp.AddTool(mcp.NewTool("reset_visibility",
		mcp.WithDescription("Reset which objects of a container have open views."),
		mcp.WithNumber("container", mcp.Required(), mcp.Description("Container number")),
		mcp.WithString("mode", mcp.Description("Reset mode (default: default)"),
			mcp.Enum("default", "restore", "show-all", "hide-all")),
	), s.resetVisibility)

	s.mcp.AddTool(mcp.NewTool("search_objects",
		mcp.WithDescription("Search object titles and file names across all containers."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchObjects)

	s.mcp.AddTool(mcp.NewTool("get_container_format",
		mcp.WithDescription("Returns the container file format. "+
			"Call this before importing a container to ensure correct structure."),
	), s.getContainerFormat)

	s.mcp.AddTool(mcp.NewTool("import_container",
		mcp.WithDescription("Import a container file from an http(s) URL or a base64 data URI. "+
			"Content MUST follow the container format; read it first via the get_container_format tool "+
			"or the databrowser://container-format resource."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:application/yaml;base64,... URI")),
		mcp.WithString("path", mcp.Description("Optional target path in the data directory (must end with .yaml or .yml)")),
	), s.importContainer)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Container Format",
			mcp.WithResourceDescription("YAML layout of the container files served by the data browser."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContainerFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func categoryNames() []string {
	out := make([]string, len(keys.Categories))
	for i, c := range keys.Categories {
		out[i] = c.String()
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func requireCategory(req mcp.CallToolRequest) (keys.Category, error) {
	raw, err := req.RequireString("category")
	if err != nil {
		return 0, err
	}
	return keys.ParseCategory(raw)
}

func requireNumber(req mcp.CallToolRequest, name string) (int, error) {
	v, err := req.RequireFloat(name)
	if err != nil {
		return 0, err
	}
	if v != float64(int(v)) {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return int(v), nil
}

func (s *Server) listContainers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListContainers(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no containers loaded"), nil
	}
	return jsonResult(items)
}

func (s *Server) listObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	no, err := requireNumber(req, "container")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.ListObjects(ctx, no, c, req.GetString("title", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no objects found"), nil
	}
	return jsonResult(items)
}

func (s *Server) currentObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.svc.Current(ctx, c)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no current %s", c)), nil
	}
	return jsonResult(it)
}

func (s *Server) showObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	no, err := requireNumber(req, "container")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := requireNumber(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.svc.SetVisible(ctx, no, c, id, req.GetBool("visible", true))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(it)
}

func (s *Server) resetVisibility(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	no, err := requireNumber(req, "container")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := browser.ParseResetMode(req.GetString("mode", browser.ResetDefault.String()))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := s.svc.ResetVisibility(ctx, no, mode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info)
}

func (s *Server) searchObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) getContainerFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContainerFormat), nil
}

func (s *Server) readContainerFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ContainerFormat,
		},
	}, nil
}
