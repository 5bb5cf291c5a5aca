// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes clipboard history tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/clipmaster/internal/apperr"
	"github.com/starford/clipmaster/internal/clipservice"
	"github.com/starford/clipmaster/internal/models"
	"github.com/starford/clipmaster/internal/prompt"
)

const promptFormatURI = "clipmaster://prompt-format"

// Server wraps the MCP server with clipboard tools.
type Server struct {
	mcp     *server.MCPServer
	clips   *clipservice.Controller
	prompts *prompt.Set
}

// New creates a new MCP server with all clipboard tools registered.
func New(clips *clipservice.Controller, prompts *prompt.Set, version string) *Server {
	s := &Server{clips: clips, prompts: prompts}

	s.mcp = server.NewMCPServer(
		"Clipmaster",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List captured clipboard items, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of items (default: all)")),
	), s.listHistory)

	s.mcp.AddTool(mcp.NewTool("search_history",
		mcp.WithDescription("Search the text of captured clipboard items."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchHistory)

	s.mcp.AddTool(mcp.NewTool("read_clip",
		mcp.WithDescription("Read the full content of a clipboard item. Images are returned as PNG."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Clip ID from list_history")),
	), s.readClip)

	s.mcp.AddTool(mcp.NewTool("copy_clip",
		mcp.WithDescription("Put a clipboard item back on the system clipboard."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Clip ID from list_history")),
	), s.copyClip)

	s.mcp.AddTool(mcp.NewTool("transform_clip",
		mcp.WithDescription("Run the active prompt on a text clip with the local model "+
			"and copy the answer to the clipboard. Omit id to use the newest clip."),
		mcp.WithString("id", mcp.Description("Clip ID (optional)")),
	), s.transformClip)

	s.mcp.AddTool(mcp.NewTool("list_prompts",
		mcp.WithDescription("List prompt templates and the active one."),
	), s.listPrompts)

	s.mcp.AddTool(mcp.NewTool("set_active_prompt",
		mcp.WithDescription("Select the active prompt template. It must already exist. "+
			"Read the format via get_prompt_format or the "+promptFormatURI+" resource."),
		mcp.WithString("template", mcp.Required(), mcp.Description("Exact template text")),
	), s.setActivePrompt)

	s.mcp.AddTool(mcp.NewTool("get_prompt_format",
		mcp.WithDescription("Returns the prompt template format contract."),
	), s.getPromptFormat)

	s.mcp.AddResource(
		mcp.NewResource(promptFormatURI, "Prompt Template Format",
			mcp.WithResourceDescription("How prompt templates are written and rendered."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPromptFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func summaries(records []models.ClipRecord) []models.ClipSummary {
	out := make([]models.ClipSummary, 0, len(records))
	for _, r := range records {
		out = append(out, r.Summary())
	}
	return out
}

func (s *Server) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := s.clips.Items()
	if limit := req.GetInt("limit", 0); limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return jsonResult(summaries(items)), nil
}

func (s *Server) searchHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.clips.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summaries(results)), nil
}

func (s *Server) readClip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.clips.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if rec.Kind == models.KindImage {
		return mcp.NewToolResultImage(
			fmt.Sprintf("image clip %s (%d bytes)", rec.ID, len(rec.Payload)),
			base64.StdEncoding.EncodeToString(rec.Payload),
			"image/png",
		), nil
	}
	text, ok := rec.Text()
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("clip %s is not valid UTF-8 text", id)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) copyClip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.clips.CopyToClipboard(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("copied: %s", id)), nil
}

func (s *Server) transformClip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		res clipservice.TransformResult
		err error
	)
	if id := req.GetString("id", ""); id != "" {
		res, err = s.clips.Transform(ctx, id)
	} else {
		res, err = s.clips.ProcessLatest(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Skipped {
		return mcp.NewToolResultText(fmt.Sprintf("skipped: clip %s is not text", res.ClipID)), nil
	}
	return mcp.NewToolResultText(res.Output), nil
}

type promptList struct {
	Prompts []string `json:"prompts"`
	Active  string   `json:"active"`
}

func (s *Server) listPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(promptList{Prompts: s.prompts.All(), Active: s.prompts.Active()}), nil
}

func (s *Server) setActivePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tmpl, err := req.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !slices.Contains(s.prompts.All(), tmpl) {
		return mcp.NewToolResultError("unknown prompt template; call list_prompts first"), nil
	}
	if err := s.prompts.SetActive(tmpl); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("active prompt updated"), nil
}

func (s *Server) getPromptFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PromptFormatContract), nil
}

func (s *Server) readPromptFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      promptFormatURI,
			MIMEType: "text/markdown",
			Text:     PromptFormatContract,
		},
	}, nil
}
