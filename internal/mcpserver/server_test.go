package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/clipmaster/internal/clipservice"
	"github.com/starford/clipmaster/internal/mainloop"
	"github.com/starford/clipmaster/internal/models"
	"github.com/starford/clipmaster/internal/monitor"
	"github.com/starford/clipmaster/internal/ollama"
	"github.com/starford/clipmaster/internal/pasteboard"
	"github.com/starford/clipmaster/internal/prompt"
	"github.com/starford/clipmaster/internal/testutil"
)

type testEnv struct {
	srv     *Server
	loop    *mainloop.Loop
	board   *pasteboard.Memory
	monitor *monitor.Monitor
	clips   *clipservice.Controller
	prompts *prompt.Set
}

func testServer(t *testing.T) *testEnv {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "<think>ok</think>" + strings.ToUpper(req.Prompt)})
	}))
	t.Cleanup(backend.Close)

	loop := testutil.TestLoop(t)
	store := testutil.TestStore(t)
	prefs := testutil.TestSettings(t)
	if err := prefs.SetOllamaURL(backend.URL); err != nil {
		t.Fatal(err)
	}
	board := pasteboard.NewMemory()
	mon := monitor.New(loop, board, store)
	prompts := prompt.NewSet(prefs, nil)
	clips := clipservice.New(clipservice.Deps{
		Loop:      loop,
		Store:     store,
		Gate:      mon,
		Board:     board,
		Prompts:   prompts,
		Generator: ollama.NewClient(prefs.OllamaURL),
		Prefs:     prefs,
	}, clipservice.WithWriteBackDelay(10*time.Millisecond))

	return &testEnv{
		srv:     New(clips, prompts, "test"),
		loop:    loop,
		board:   board,
		monitor: mon,
		clips:   clips,
		prompts: prompts,
	}
}

func (e *testEnv) copyText(s string) string {
	e.board.SetContents(&s, nil)
	e.loop.Do(e.monitor.CheckForChange)
	return e.clips.Items()[0].ID
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_history":
		result, err = srv.listHistory(ctx, req)
	case "search_history":
		result, err = srv.searchHistory(ctx, req)
	case "read_clip":
		result, err = srv.readClip(ctx, req)
	case "copy_clip":
		result, err = srv.copyClip(ctx, req)
	case "transform_clip":
		result, err = srv.transformClip(ctx, req)
	case "list_prompts":
		result, err = srv.listPrompts(ctx, req)
	case "set_active_prompt":
		result, err = srv.setActivePrompt(ctx, req)
	case "get_prompt_format":
		result, err = srv.getPromptFormat(ctx, req)
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

func TestListAndReadClip(t *testing.T) {
	e := testServer(t)
	e.copyText("first")
	id := e.copyText("second")

	r := callTool(t, e.srv, "list_history", map[string]interface{}{"limit": 1})
	var items []models.ClipSummary
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 || items[0].ID != id {
		t.Errorf("items = %+v", items)
	}

	r = callTool(t, e.srv, "read_clip", map[string]interface{}{"id": id})
	if text := resultText(r); text != "second" {
		t.Errorf("read result = %q", text)
	}
}

func TestReadImageClip(t *testing.T) {
	e := testServer(t)
	e.board.SetContents(nil, []byte{0x89, 'P', 'N', 'G'})
	e.loop.Do(e.monitor.CheckForChange)
	id := e.clips.Items()[0].ID

	r := callTool(t, e.srv, "read_clip", map[string]interface{}{"id": id})
	if r.IsError {
		t.Fatalf("read image: %s", resultText(r))
	}
	var found bool
	for _, c := range r.Content {
		if img, ok := c.(mcp.ImageContent); ok {
			found = img.MIMEType == "image/png" && img.Data != ""
		}
	}
	if !found {
		t.Error("expected PNG image content")
	}
}

func TestReadClipMissing(t *testing.T) {
	e := testServer(t)
	r := callTool(t, e.srv, "read_clip", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing clip")
	}
}

func TestSearchHistory(t *testing.T) {
	e := testServer(t)
	e.copyText("needle in a haystack")
	e.copyText("something else")

	r := callTool(t, e.srv, "search_history", map[string]interface{}{"query": "needle"})
	var items []models.ClipSummary
	_ = json.Unmarshal([]byte(resultText(r)), &items)
	if len(items) != 1 {
		t.Errorf("results = %d, want 1", len(items))
	}
}

func TestCopyClip(t *testing.T) {
	e := testServer(t)
	id := e.copyText("older")
	e.copyText("newer")

	r := callTool(t, e.srv, "copy_clip", map[string]interface{}{"id": id})
	if r.IsError {
		t.Fatalf("copy: %s", resultText(r))
	}
	if got, _ := e.board.ReadText(); got != "older" {
		t.Errorf("clipboard = %q", got)
	}
}

func TestTransformLatest(t *testing.T) {
	e := testServer(t)
	tmpl := "echo " + prompt.Placeholder
	if err := e.prompts.Add(tmpl); err != nil {
		t.Fatal(err)
	}
	r := callTool(t, e.srv, "set_active_prompt", map[string]interface{}{"template": tmpl})
	if r.IsError {
		t.Fatalf("set active: %s", resultText(r))
	}
	e.copyText("hi")

	r = callTool(t, e.srv, "transform_clip", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("transform: %s", resultText(r))
	}
	if text := resultText(r); text != "ECHO HI" {
		t.Errorf("output = %q", text)
	}
	if got, _ := e.board.ReadText(); got != "ECHO HI" {
		t.Errorf("clipboard = %q", got)
	}
}

func TestSetActivePromptUnknown(t *testing.T) {
	e := testServer(t)
	before := e.prompts.Active()
	r := callTool(t, e.srv, "set_active_prompt", map[string]interface{}{"template": "ghost " + prompt.Placeholder})
	if !r.IsError {
		t.Error("expected error for unknown template")
	}
	if e.prompts.Active() != before {
		t.Error("active prompt changed")
	}
}

func TestListPromptsAndFormat(t *testing.T) {
	e := testServer(t)
	r := callTool(t, e.srv, "list_prompts", map[string]interface{}{})
	var pl promptList
	_ = json.Unmarshal([]byte(resultText(r)), &pl)
	if len(pl.Prompts) != len(prompt.Defaults) || pl.Active != prompt.Defaults[0] {
		t.Errorf("prompts = %+v", pl)
	}

	r = callTool(t, e.srv, "get_prompt_format", nil)
	if !strings.Contains(resultText(r), prompt.Placeholder) {
		t.Error("format contract should mention the placeholder")
	}
}
