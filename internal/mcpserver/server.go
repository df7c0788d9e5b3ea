// Package mcpserver exposes the vault client operations as MCP tools
// and prompts for LLM integration over stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"obsidian-mcp/internal/apperr"
	"obsidian-mcp/internal/models"
	"obsidian-mcp/internal/notes"
	"obsidian-mcp/internal/obsidian"
)

// Server wraps the MCP server with the Obsidian vault tools.
type Server struct {
	mcp    *server.MCPServer
	client *obsidian.Client
}

// New creates an MCP server with all vault tools and prompts
// registered against the given client.
func New(client *obsidian.Client) *Server {
	s := &Server{client: client}

	s.mcp = server.NewMCPServer(
		"obsidian-mcp",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Tools for reading and writing notes in an Obsidian vault "+
			"through the Local REST API plugin. Paths are vault-relative, forward-slash "+
			"separated, and note paths must carry a file extension (usually .md)."),
	)

	s.registerTools()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HTTPHandler returns the streamable HTTP transport for mounting on a
// router.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("obsidian_read_note",
		mcp.WithDescription("Get content of a note from your Obsidian vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the note (relative to vault root).")),
		mcp.WithString("format", mcp.Description("Format to return the content in (markdown or json)."),
			mcp.Enum("markdown", "json"), mcp.DefaultString("markdown")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("obsidian_create_note",
		mcp.WithDescription("Create a new note or overwrite an existing note in your Obsidian vault."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the note (relative to vault root).")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content to write to the note.")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("obsidian_append_note",
		mcp.WithDescription("Append content to an existing note. Fails if the note does not exist."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the note (relative to vault root).")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content to append to the note.")),
	), s.appendNote)

	s.mcp.AddTool(mcp.NewTool("obsidian_patch_note",
		mcp.WithDescription("Insert or modify content at a specific location in a note "+
			"(relative to a heading, block reference, or frontmatter field)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the note (relative to vault root).")),
		mcp.WithString("operation", mcp.Description("Operation to perform."),
			mcp.Enum(models.PatchOpAppend, models.PatchOpPrepend, models.PatchOpReplace),
			mcp.DefaultString(models.PatchOpAppend)),
		mcp.WithString("target_type", mcp.Description("Type of target."),
			mcp.Enum(models.TargetHeading, models.TargetBlock, models.TargetFrontmatter),
			mcp.DefaultString(models.TargetHeading)),
		mcp.WithString("target", mcp.Required(),
			mcp.Description("Target identifier (heading text, block reference, or frontmatter field).")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content to insert.")),
		mcp.WithBoolean("create_target_if_missing",
			mcp.Description("Create the target before applying the operation when it does not exist."),
			mcp.DefaultBool(true)),
	), s.patchNote)

	s.mcp.AddTool(mcp.NewTool("obsidian_delete_note",
		mcp.WithDescription("Delete a note from your Obsidian vault. Requires confirm=true."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the note (relative to vault root).")),
		mcp.WithBoolean("confirm", mcp.Description("Confirmation to delete the note (must be true)."),
			mcp.DefaultBool(false)),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("obsidian_list_files",
		mcp.WithDescription("List immediate files and folders in a vault folder."),
		mcp.WithString("folder", mcp.Description("Folder to list (empty for the vault root).")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("obsidian_get_active_file",
		mcp.WithDescription("Get the path and content of the note currently open in Obsidian."),
	), s.getActiveFile)

	s.mcp.AddTool(mcp.NewTool("obsidian_create_daily_note",
		mcp.WithDescription("Create a daily note with section headings for the given date."),
		mcp.WithString("date", mcp.Description("Date for the note (e.g. 2024-03-20). Defaults to today.")),
		mcp.WithString("folder", mcp.Description("Folder for the note (empty for the vault root).")),
		mcp.WithString("sections", mcp.Description("Comma-separated section headings. Defaults to Tasks, Notes, Journal.")),
	), s.createDailyNote)

	s.mcp.AddTool(mcp.NewTool("obsidian_open_note",
		mcp.WithDescription("Open a note in the Obsidian UI."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the note (relative to vault root).")),
		mcp.WithBoolean("new_leaf", mcp.Description("Open the note in a new leaf."), mcp.DefaultBool(false)),
	), s.openNote)

	s.mcp.AddTool(mcp.NewTool("obsidian_search",
		mcp.WithDescription("Plain-text search across all notes in the vault."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to search for.")),
		mcp.WithNumber("context_length", mcp.Description("Length of context to include around matches.")),
	), s.search)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := req.GetString("format", "markdown")
	if err := validation.Validate(format, validation.In("markdown", "json")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("format: %v", err)), nil
	}

	if format == "json" {
		note, err := s.client.ReadNoteWithMetadata(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(note)
	}
	content, err := s.client.ReadNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.client.CreateOrUpdateNote(ctx, path, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created or updated note at %s", path)), nil
}

func (s *Server) appendNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.client.AppendNote(ctx, path, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Appended content to note at %s", path)), nil
}

func (s *Server) patchNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pr := models.PatchRequest{
		Path:                  path,
		Operation:             req.GetString("operation", models.PatchOpAppend),
		TargetType:            req.GetString("target_type", models.TargetHeading),
		Target:                target,
		Content:               content,
		CreateTargetIfMissing: req.GetBool("create_target_if_missing", true),
	}
	if err := s.client.PatchNote(ctx, pr); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Patched note at %s", path)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Guard here as well as in the client: a missing confirm flag must
	// never produce network traffic.
	if !req.GetBool("confirm", false) {
		return mcp.NewToolResultError(
			apperr.New(apperr.ErrConfirmationRequired, "deleting %s requires confirm=true", path).Error()), nil
	}
	if err := s.client.DeleteNote(ctx, path, true); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted note at %s", path)), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")
	files, err := s.client.ListFiles(ctx, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(files) == 0 {
		return mcp.NewToolResultText("(empty folder)"), nil
	}
	return mcp.NewToolResultText(strings.Join(files, "\n")), nil
}

func (s *Server) getActiveFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	active, err := s.client.GetActiveFile(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(active)
}

func (s *Server) createDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := notes.ParseDate(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder := req.GetString("folder", "")
	sections := notes.SplitList(req.GetString("sections", ""))

	path, err := s.client.CreateDailyNote(ctx, date, folder, sections)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created daily note at %s", path)), nil
}

func (s *Server) openNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.client.OpenNote(ctx, path, req.GetBool("new_leaf", false)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Opened %s in Obsidian", path)), nil
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.client.SearchSimple(ctx, query, int(req.GetInt("context_length", 100)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
