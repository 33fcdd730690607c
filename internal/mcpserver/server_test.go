package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/catalog"
	"github.com/starford/databrowser/internal/storage"
	"github.com/starford/databrowser/internal/testutil"
	"github.com/starford/databrowser/internal/views"
	"github.com/starford/databrowser/internal/workbench"
	"github.com/starford/databrowser/internal/workspace"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	dir, files := testutil.TestDataDir(t)
	testutil.WriteFile(t, dir, "afm/scan.yaml", testutil.Channels)

	lp, ctx := testutil.RunLoop(t)
	logger := testutil.Logger()
	vr := views.NewRegistry(views.WithLogger(logger))
	b := browser.New(lp, vr, browser.WithLogger(logger))
	ws := workspace.New(files, lp, b, workspace.WithLogger(logger))
	db := testutil.TestDB(t)

	if err := lp.Call(ctx, func() error {
		_, err := catalog.Feed(b, db, logger)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if err := ws.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	return New(workbench.NewService(lp, b, ws, db, vr)), dir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_containers":
		result, err = srv.listContainers(ctx, req)
	case "list_objects":
		result, err = srv.listObjects(ctx, req)
	case "current_object":
		result, err = srv.currentObject(ctx, req)
	case "show_object":
		result, err = srv.showObject(ctx, req)
	case "reset_visibility":
		result, err = srv.resetVisibility(ctx, req)
	case "search_objects":
		result, err = srv.searchObjects(ctx, req)
	case "get_container_format":
		result, err = srv.getContainerFormat(ctx, req)
	case "import_container":
		result, err = srv.importContainer(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
	var v T
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return v
}

func TestListContainers(t *testing.T) {
	srv, _ := testServer(t)

	got := decode[[]workbench.ContainerInfo](t, callTool(t, srv, "list_containers", map[string]interface{}{}))
	if len(got) != 1 {
		t.Fatalf("containers = %d, want 1", len(got))
	}
	if got[0].Filename != "afm/scan.yaml" || got[0].Objects["channel"] != 2 {
		t.Errorf("container = %+v", got[0])
	}
}

func TestListObjects(t *testing.T) {
	srv, _ := testServer(t)

	got := decode[[]workbench.ObjectItem](t, callTool(t, srv, "list_objects", map[string]interface{}{
		"container": float64(1),
		"category":  "channel",
		"title":     "Fric*",
	}))
	if len(got) != 1 || got[0].ID != 1 || got[0].Title != "Friction" {
		t.Errorf("objects = %+v", got)
	}

	r := callTool(t, srv, "list_objects", map[string]interface{}{
		"container": float64(1),
		"category":  "volume",
	})
	if text := resultText(r); text != "no objects found" {
		t.Errorf("empty listing = %q", text)
	}
}

func TestListObjectsBadInput(t *testing.T) {
	srv, _ := testServer(t)

	cases := []map[string]interface{}{
		{"category": "channel"},
		{"container": float64(1), "category": "picture"},
		{"container": float64(1.5), "category": "channel"},
		{"container": float64(9), "category": "channel"},
	}
	for _, args := range cases {
		if r := callTool(t, srv, "list_objects", args); !r.IsError {
			t.Errorf("args %v: expected error, got %q", args, resultText(r))
		}
	}
}

func TestShowObjectSelects(t *testing.T) {
	srv, _ := testServer(t)

	if r := callTool(t, srv, "current_object", map[string]interface{}{"category": "graph"}); !r.IsError {
		t.Fatalf("expected no current graph, got %q", resultText(r))
	}

	it := decode[workbench.ObjectItem](t, callTool(t, srv, "show_object", map[string]interface{}{
		"container": float64(1),
		"category":  "graph",
		"id":        float64(1),
	}))
	if !it.Visible || it.Title != "Profile" {
		t.Errorf("shown = %+v", it)
	}

	cur := decode[workbench.ObjectItem](t, callTool(t, srv, "current_object", map[string]interface{}{"category": "graph"}))
	if cur.ID != 1 || cur.Key != "/0/graph/graph/1" {
		t.Errorf("current = %+v", cur)
	}

	it = decode[workbench.ObjectItem](t, callTool(t, srv, "show_object", map[string]interface{}{
		"container": float64(1),
		"category":  "graph",
		"id":        float64(1),
		"visible":   false,
	}))
	if it.Visible {
		t.Error("object still visible after hide")
	}
}

func TestResetVisibility(t *testing.T) {
	srv, _ := testServer(t)

	info := decode[workbench.ContainerInfo](t, callTool(t, srv, "reset_visibility", map[string]interface{}{
		"container": float64(1),
		"mode":      "show-all",
	}))
	if info.VisibleCount != 3 {
		t.Errorf("visible = %d, want 3", info.VisibleCount)
	}

	if r := callTool(t, srv, "reset_visibility", map[string]interface{}{
		"container": float64(1),
		"mode":      "sideways",
	}); !r.IsError {
		t.Error("expected error for unknown mode")
	}
}

func TestSearchObjects(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "search_objects", map[string]interface{}{"query": "Friction"})
	if !strings.Contains(resultText(r), "Friction") {
		t.Errorf("search = %q", resultText(r))
	}

	r = callTool(t, srv, "search_objects", map[string]interface{}{"query": "Nothing"})
	if text := resultText(r); text != "no matches" {
		t.Errorf("search = %q", text)
	}
}

func TestContainerFormat(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_container_format", map[string]interface{}{})
	if resultText(r) != ContainerFormat {
		t.Error("tool text differs from ContainerFormat")
	}

	contents, err := srv.readContainerFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != formatURI || tc.Text != ContainerFormat {
		t.Errorf("resource = %+v", contents[0])
	}
}

func dataURI(content string) string {
	return "data:application/yaml;base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestImportContainer(t *testing.T) {
	srv, _ := testServer(t)

	res := decode[importResult](t, callTool(t, srv, "import_container", map[string]interface{}{
		"url":  dataURI(testutil.Channels),
		"path": "imports/../copy.yaml",
	}))
	if res.Path != "copy.yaml" {
		t.Errorf("path = %q, want copy.yaml", res.Path)
	}
	if res.Container.Number != 2 || res.Container.Objects["graph"] != 1 {
		t.Errorf("container = %+v", res.Container)
	}

	r := callTool(t, srv, "import_container", map[string]interface{}{
		"url":  dataURI(testutil.Channels),
		"path": "copy.yaml",
	})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("duplicate import = %q", resultText(r))
	}
}

func TestImportContainerGeneratedName(t *testing.T) {
	srv, _ := testServer(t)

	res := decode[importResult](t, callTool(t, srv, "import_container", map[string]interface{}{
		"url": dataURI(testutil.Channels),
	}))
	if !strings.HasSuffix(res.Path, ".yaml") || strings.Contains(res.Path, "/") {
		t.Errorf("generated path = %q", res.Path)
	}
}

func TestImportContainerRejects(t *testing.T) {
	srv, dir := testServer(t)

	cases := []map[string]interface{}{
		{"url": dataURI("items: [{key: /0/data, type: picture, value: 1}]"), "path": "bad.yaml"},
		{"url": dataURI(testutil.Channels), "path": "scan.txt"},
		{"url": "data:image/png;base64,AAAA", "path": "img.yaml"},
		{"url": "data:application/yaml,plain", "path": "plain.yaml"},
		{"url": "ftp://example.com/scan.yaml"},
		{"url": "http://127.0.0.1/scan.yaml"},
	}
	for _, args := range cases {
		if r := callTool(t, srv, "import_container", args); !r.IsError {
			t.Errorf("args %v: expected error, got %q", args["url"], resultText(r))
		}
	}

	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	metas, err := files.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 {
		t.Errorf("data dir has %d files, want only afm/scan.yaml", len(metas))
	}
}
