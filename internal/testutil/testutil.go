// Package testutil provides a shared in-memory double of the Local
// REST API plugin for exercising the vault client and the MCP tools
// without a running Obsidian instance.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"obsidian-mcp/internal/obsidian"
)

// DefaultAPIKey is the bearer token the fake vault accepts.
const DefaultAPIKey = "test-api-key"

// FakeVault is an httptest-backed stand-in for the plugin. Files maps
// vault-relative paths to markdown content.
type FakeVault struct {
	mu         sync.Mutex
	files      map[string]string
	activePath string
	opened     []string

	APIKey   string
	Server   *httptest.Server
	requests atomic.Int64
}

// NewFakeVault starts a fake vault server that is torn down with the
// test.
func NewFakeVault(t *testing.T) *FakeVault {
	t.Helper()
	fv := &FakeVault{
		files:  make(map[string]string),
		APIKey: DefaultAPIKey,
	}
	fv.Server = httptest.NewServer(http.HandlerFunc(fv.handle))
	t.Cleanup(fv.Server.Close)
	return fv
}

// ClientConfig returns a vault-client configuration pointed at the
// fake server.
func (fv *FakeVault) ClientConfig(t *testing.T) obsidian.Config {
	t.Helper()
	u, err := url.Parse(fv.Server.URL)
	if err != nil {
		t.Fatalf("parse fake vault URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse fake vault port: %v", err)
	}
	cfg := obsidian.NewDefaultConfig()
	cfg.Host = u.Hostname()
	cfg.Port = port
	cfg.Protocol = obsidian.ProtocolHTTP
	cfg.APIKey = fv.APIKey
	cfg.TimeoutSeconds = 5
	return cfg
}

// NewClient returns a vault client wired to the fake server.
func (fv *FakeVault) NewClient(t *testing.T) *obsidian.Client {
	t.Helper()
	return obsidian.NewClient(fv.ClientConfig(t))
}

// Requests returns how many HTTP requests the fake vault has seen.
func (fv *FakeVault) Requests() int64 { return fv.requests.Load() }

// Put seeds a file without going through HTTP.
func (fv *FakeVault) Put(path, content string) {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	fv.files[path] = content
}

// Get reads a seeded file without going through HTTP.
func (fv *FakeVault) Get(path string) (string, bool) {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	c, ok := fv.files[path]
	return c, ok
}

// SetActive marks the note the Obsidian UI currently has open. Empty
// means no open file.
func (fv *FakeVault) SetActive(path string) {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	fv.activePath = path
}

// Opened lists the paths requested through POST /open/.
func (fv *FakeVault) Opened() []string {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	return append([]string(nil), fv.opened...)
}

func (fv *FakeVault) handle(w http.ResponseWriter, r *http.Request) {
	fv.requests.Add(1)

	if r.Header.Get("Authorization") != "Bearer "+fv.APIKey {
		writeError(w, http.StatusUnauthorized, 40101, "Authorization required")
		return
	}

	fv.mu.Lock()
	defer fv.mu.Unlock()

	switch {
	case r.URL.Path == "/active/":
		fv.handleActive(w, r)
	case strings.HasPrefix(r.URL.Path, "/open/"):
		fv.handleOpen(w, r)
	case r.URL.Path == "/search/simple/":
		fv.handleSearch(w, r)
	case strings.HasPrefix(r.URL.Path, "/vault/"):
		fv.handleVault(w, r)
	default:
		writeError(w, http.StatusNotFound, 40400, "Not found")
	}
}

func (fv *FakeVault) handleVault(w http.ResponseWriter, r *http.Request) {
	// r.URL.Path arrives already percent-decoded.
	rel := strings.TrimPrefix(r.URL.Path, "/vault/")

	// Trailing slash (or bare /vault/) is a directory listing.
	if r.Method == http.MethodGet && (rel == "" || strings.HasSuffix(rel, "/")) {
		fv.handleList(w, strings.TrimSuffix(rel, "/"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		content, ok := fv.files[rel]
		if !ok {
			writeError(w, http.StatusNotFound, 40400, "File does not exist")
			return
		}
		if strings.Contains(r.Header.Get("Accept"), "note+json") {
			writeJSON(w, http.StatusOK, noteJSON(rel, content))
			return
		}
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte(content))

	case http.MethodPut:
		body := readBody(r)
		fv.files[rel] = body
		w.WriteHeader(http.StatusNoContent)

	case http.MethodPost:
		content, ok := fv.files[rel]
		if !ok {
			writeError(w, http.StatusNotFound, 40400, "File does not exist")
			return
		}
		fv.files[rel] = content + readBody(r)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if _, ok := fv.files[rel]; !ok {
			writeError(w, http.StatusNotFound, 40400, "File does not exist")
			return
		}
		delete(fv.files, rel)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodPatch:
		fv.handlePatch(w, r, rel)

	default:
		writeError(w, http.StatusMethodNotAllowed, 40500, "Method not allowed")
	}
}

func (fv *FakeVault) handleList(w http.ResponseWriter, dir string) {
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	seen := map[string]bool{}
	var names []string
	for path := range fv.files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i+1] // child folder, keep trailing slash
		}
		if !seen[rest] {
			seen[rest] = true
			names = append(names, rest)
		}
	}
	if dir != "" && len(names) == 0 {
		writeError(w, http.StatusNotFound, 40400, "Directory does not exist")
		return
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"files": names})
}

// handlePatch supports heading targets only, which is all the tests
// exercise.
func (fv *FakeVault) handlePatch(w http.ResponseWriter, r *http.Request, rel string) {
	content, ok := fv.files[rel]
	if !ok {
		writeError(w, http.StatusNotFound, 40400, "File does not exist")
		return
	}
	if r.Header.Get("Target-Type") != "heading" {
		writeError(w, http.StatusBadRequest, 40080, "unsupported target type")
		return
	}
	target := unescape(r.Header.Get("Target"))
	createMissing := r.Header.Get("Create-Target-If-Missing") == "true"
	insert := readBody(r)

	lines := strings.Split(content, "\n")
	idx := -1
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, "# ")
		if strings.HasPrefix(line, "#") && trimmed == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		if !createMissing {
			writeError(w, http.StatusBadRequest, 40080, "Target not found")
			return
		}
		lines = append(lines, "## "+target)
		idx = len(lines) - 1
	}

	switch r.Header.Get("Operation") {
	case "append":
		rest := append([]string{insert}, lines[idx+1:]...)
		lines = append(append([]string{}, lines[:idx+1]...), rest...)
	case "prepend":
		rest := append([]string{insert}, lines[idx:]...)
		lines = append(append([]string{}, lines[:idx]...), rest...)
	case "replace":
		lines[idx] = insert
	default:
		writeError(w, http.StatusBadRequest, 40080, "invalid operation")
		return
	}
	fv.files[rel] = strings.Join(lines, "\n")
	w.WriteHeader(http.StatusOK)
}

func (fv *FakeVault) handleActive(w http.ResponseWriter, r *http.Request) {
	if fv.activePath == "" {
		writeError(w, http.StatusNotFound, 40400, "No active file")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, noteJSON(fv.activePath, fv.files[fv.activePath]))
	case http.MethodPut:
		fv.files[fv.activePath] = readBody(r)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		fv.files[fv.activePath] += readBody(r)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPatch:
		fv.handlePatch(w, r, fv.activePath)
	case http.MethodDelete:
		delete(fv.files, fv.activePath)
		fv.activePath = ""
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, 40500, "Method not allowed")
	}
}

func (fv *FakeVault) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, 40500, "Method not allowed")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/open/")
	if _, ok := fv.files[path]; !ok {
		writeError(w, http.StatusNotFound, 40400, "File does not exist")
		return
	}
	fv.opened = append(fv.opened, path)
	w.WriteHeader(http.StatusOK)
}

func (fv *FakeVault) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	type match struct {
		Context string `json:"context"`
		Match   struct {
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"match"`
	}
	type result struct {
		Filename string  `json:"filename"`
		Score    float64 `json:"score"`
		Matches  []match `json:"matches"`
	}
	results := []result{}
	var paths []string
	for path := range fv.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		content := fv.files[path]
		i := strings.Index(content, query)
		if query == "" || i < 0 {
			continue
		}
		var m match
		m.Context = content
		m.Match.Start = i
		m.Match.End = i + len(query)
		results = append(results, result{Filename: path, Score: 1, Matches: []match{m}})
	}
	writeJSON(w, http.StatusOK, results)
}

func noteJSON(path, content string) map[string]any {
	return map[string]any{
		"path":        path,
		"content":     content,
		"frontmatter": map[string]any{},
		"tags":        []string{},
		"stat":        map[string]int64{"ctime": 0, "mtime": 0, "size": int64(len(content))},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, map[string]any{"errorCode": code, "message": msg})
}

func readBody(r *http.Request) string {
	data, _ := io.ReadAll(r.Body)
	return string(data)
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
