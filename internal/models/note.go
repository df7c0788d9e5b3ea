// Package models defines the domain types exchanged with the
// Obsidian Local REST API.
package models

// Note is the structured representation of a vault file as returned
// by the plugin with Accept: application/vnd.olrapi.note+json. The
// client does not parse markdown itself; frontmatter and tags come
// from the remote API as-is.
type Note struct {
	Path        string                 `json:"path"`
	Content     string                 `json:"content"`
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Stat        NoteStat               `json:"stat"`
}

// NoteStat holds file metadata reported by the plugin. Times are
// Unix milliseconds.
type NoteStat struct {
	CreatedAt  int64 `json:"ctime"`
	ModifiedAt int64 `json:"mtime"`
	Size       int64 `json:"size"`
}

// ActiveFile is the note currently open in the Obsidian UI.
type ActiveFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// SearchMatch is one hit inside a file returned by simple search.
type SearchMatch struct {
	Context string     `json:"context"`
	Match   SearchSpan `json:"match"`
}

// SearchSpan marks the matched byte range inside the context snippet.
type SearchSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SearchResult groups the matches found in a single file.
type SearchResult struct {
	Filename string        `json:"filename"`
	Score    float64       `json:"score"`
	Matches  []SearchMatch `json:"matches"`
}

// Patch operations accepted by the plugin.
const (
	PatchOpAppend  = "append"
	PatchOpPrepend = "prepend"
	PatchOpReplace = "replace"
)

// Patch target types accepted by the plugin.
const (
	TargetHeading     = "heading"
	TargetBlock       = "block"
	TargetFrontmatter = "frontmatter"
)

// PatchRequest describes a targeted insert/replace relative to a
// heading, block reference, or frontmatter key inside one note.
type PatchRequest struct {
	Path                  string
	Operation             string // append, prepend, replace
	TargetType            string // heading, block, frontmatter
	Target                string
	Content               string
	CreateTargetIfMissing bool
}
