package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"obsidian-mcp/internal/notes"
)

// Prompts compose note bodies from structured arguments. They never
// write to the vault; the caller performs the write with
// obsidian_create_note.
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("create-note",
		mcp.WithPromptDescription("Compose a new note body with a title, optional tags, and content."),
		mcp.WithArgument("title", mcp.ArgumentDescription("Title of the note"), mcp.RequiredArgument()),
		mcp.WithArgument("content", mcp.ArgumentDescription("Body content of the note")),
		mcp.WithArgument("folder", mcp.ArgumentDescription("Folder for the note (vault root when empty)")),
		mcp.WithArgument("tags", mcp.ArgumentDescription("Comma-separated list of tags")),
	), s.createNotePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("meeting-notes",
		mcp.WithPromptDescription("Compose a structured meeting-notes body with agenda, notes, and action items."),
		mcp.WithArgument("title", mcp.ArgumentDescription("Title of the meeting"), mcp.RequiredArgument()),
		mcp.WithArgument("date", mcp.ArgumentDescription("Date of the meeting (YYYY-MM-DD, defaults to today)")),
		mcp.WithArgument("participants", mcp.ArgumentDescription("Comma-separated list of participants")),
		mcp.WithArgument("folder", mcp.ArgumentDescription("Folder for the note (defaults to Meetings)")),
	), s.meetingNotesPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("project-notes",
		mcp.WithPromptDescription("Compose a structured project-notes body with status and priority frontmatter."),
		mcp.WithArgument("title", mcp.ArgumentDescription("Project title"), mcp.RequiredArgument()),
		mcp.WithArgument("status", mcp.ArgumentDescription("Project status (planning, in-progress, completed, on-hold)")),
		mcp.WithArgument("priority", mcp.ArgumentDescription("Project priority (high, medium, low)")),
		mcp.WithArgument("folder", mcp.ArgumentDescription("Folder for the note (defaults to Projects)")),
	), s.projectNotesPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("daily-notes",
		mcp.WithPromptDescription("Compose a daily-note body with predefined sections."),
		mcp.WithArgument("date", mcp.ArgumentDescription("Date for the daily note (YYYY-MM-DD, defaults to today)")),
		mcp.WithArgument("folder", mcp.ArgumentDescription("Folder for the note (defaults to Daily Notes)")),
		mcp.WithArgument("sections", mcp.ArgumentDescription("Comma-separated section headings")),
	), s.dailyNotesPrompt)
}

func (s *Server) createNotePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	title := strings.TrimSpace(args["title"])
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	path := notes.NotePath(args["folder"], title)
	body := notes.NoteBody(title, args["content"], notes.SplitList(args["tags"]))
	return promptResult("Note body for "+path, path, body), nil
}

func (s *Server) meetingNotesPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	title := strings.TrimSpace(args["title"])
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	date, err := notes.ParseDate(args["date"])
	if err != nil {
		return nil, err
	}
	folder := args["folder"]
	if strings.TrimSpace(folder) == "" {
		folder = "Meetings"
	}
	path := notes.NotePath(folder, title)
	body := notes.MeetingNoteBody(title, date, notes.SplitList(args["participants"]))
	return promptResult("Meeting notes for "+title, path, body), nil
}

func (s *Server) projectNotesPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	title := strings.TrimSpace(args["title"])
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	folder := args["folder"]
	if strings.TrimSpace(folder) == "" {
		folder = "Projects"
	}
	path := notes.NotePath(folder, title)
	body := notes.ProjectNoteBody(title, args["status"], args["priority"])
	return promptResult("Project notes for "+title, path, body), nil
}

func (s *Server) dailyNotesPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	date, err := notes.ParseDate(args["date"])
	if err != nil {
		return nil, err
	}
	folder := args["folder"]
	if strings.TrimSpace(folder) == "" {
		folder = "Daily Notes"
	}
	path := notes.DailyNotePath(date, folder)
	body := notes.DailyNoteBody(date, notes.SplitList(args["sections"]))
	return promptResult("Daily note for "+date.Format("2006-01-02"), path, body), nil
}

func promptResult(description, path, body string) *mcp.GetPromptResult {
	text := fmt.Sprintf(
		"Create the note %q with the obsidian_create_note tool using this content:\n\n%s",
		path, body)
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	})
}
