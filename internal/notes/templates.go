// Package notes composes markdown note bodies and vault paths for the
// templated note types (daily notes, meeting notes, generic notes).
// It performs string composition only; all vault writes go through the
// obsidian client.
package notes

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDailySections are the section headings used when the caller
// does not supply their own.
var DefaultDailySections = []string{"Tasks", "Notes", "Journal"}

// dateFormats are tried in order when parsing caller-supplied dates.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01-02-2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses a caller-supplied date string, accepting a handful
// of common formats. An empty string resolves to now.
func ParseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Now(), nil
	}
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (want e.g. 2006-01-02)", s)
}

// DailyNotePath composes the vault path for a daily note. An empty
// folder places the note at the vault root.
func DailyNotePath(date time.Time, folder string) string {
	return JoinFolder(folder, date.Format("2006-01-02")+".md")
}

// DailyNoteBody builds a daily-note skeleton with one H2 per section.
func DailyNoteBody(date time.Time, sections []string) string {
	if len(sections) == 0 {
		sections = DefaultDailySections
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", date.Format("Monday, January 2, 2006"))
	for _, s := range sections {
		fmt.Fprintf(&sb, "\n## %s\n", strings.TrimSpace(s))
	}
	return sb.String()
}

// MeetingNoteBody builds a meeting-note skeleton.
func MeetingNoteBody(title string, date time.Time, participants []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", strings.TrimSpace(title))
	fmt.Fprintf(&sb, "Date: %s\n", date.Format("2006-01-02"))
	if len(participants) > 0 {
		fmt.Fprintf(&sb, "Participants: %s\n", strings.Join(participants, ", "))
	}
	sb.WriteString("\n## Agenda\n- \n\n## Notes\n- \n\n## Action Items\n- [ ] \n\n## Next Steps\n- \n\n---\ntags: [meeting]\n")
	return sb.String()
}

// ProjectNoteBody builds a project-note skeleton. Status and priority
// land in the frontmatter when given.
func ProjectNoteBody(title, status, priority string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	if s := strings.TrimSpace(status); s != "" {
		fmt.Fprintf(&sb, "status: %s\n", s)
	}
	if p := strings.TrimSpace(priority); p != "" {
		fmt.Fprintf(&sb, "priority: %s\n", p)
	}
	sb.WriteString("tags: [project]\n---\n\n")
	fmt.Fprintf(&sb, "# %s\n\n", strings.TrimSpace(title))
	sb.WriteString("## Overview\n- \n\n## Tasks\n- [ ] \n\n## Notes\n- \n")
	return sb.String()
}

// NoteBody builds a generic note with optional frontmatter tags.
func NoteBody(title, content string, tags []string) string {
	var sb strings.Builder
	if len(tags) > 0 {
		sb.WriteString("---\ntags:\n")
		for _, t := range tags {
			fmt.Fprintf(&sb, "  - %s\n", t)
		}
		sb.WriteString("---\n\n")
	}
	fmt.Fprintf(&sb, "# %s\n", strings.TrimSpace(title))
	if content != "" {
		sb.WriteString("\n" + content)
		if !strings.HasSuffix(content, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// NotePath composes "folder/Title.md", adding the extension when the
// title does not already carry one.
func NotePath(folder, title string) string {
	name := strings.TrimSpace(title)
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	return JoinFolder(folder, name)
}

// JoinFolder prefixes name with folder, treating "", "/" and trailing
// slashes as the vault root.
func JoinFolder(folder, name string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// SplitList splits a comma-separated argument into trimmed non-empty
// items.
func SplitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
