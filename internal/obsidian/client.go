// Package obsidian implements the vault client: a thin wrapper around
// the Obsidian Local REST API plugin. Each operation issues exactly
// one HTTP request; transport and HTTP-layer failures are mapped onto
// the apperr taxonomy and never surface raw.
package obsidian

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"obsidian-mcp/internal/apperr"
	"obsidian-mcp/internal/models"
	"obsidian-mcp/internal/notes"
)

const (
	contentTypeMarkdown = "text/markdown"
	acceptNoteJSON      = "application/vnd.olrapi.note+json"
)

// Client talks to the Local REST API. It holds no mutable state
// beyond the immutable connection configuration, so concurrent calls
// need no synchronization.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

// NewClient builds a client from the given connection configuration.
func NewClient(cfg Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		cfg:     cfg,
		baseURL: cfg.BaseURL(),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
	}
}

// BaseURL returns the remote endpoint this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ReadNote returns the raw markdown content of a note.
func (c *Client) ReadNote(ctx context.Context, path string) (string, error) {
	p, err := NormalizeNotePath(path)
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.vaultURL(p), "")
	if err != nil {
		return "", err
	}
	body, err := c.do(req, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ReadNoteWithMetadata returns the note content together with the
// metadata (frontmatter, tags, stat) the plugin derives from it.
func (c *Client) ReadNoteWithMetadata(ctx context.Context, path string) (*models.Note, error) {
	p, err := NormalizeNotePath(path)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.vaultURL(p), "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", acceptNoteJSON)
	body, err := c.do(req, nil)
	if err != nil {
		return nil, err
	}
	var note models.Note
	if err := json.Unmarshal(body, &note); err != nil {
		return nil, apperr.New(apperr.ErrUnknownRemote, "decode note %s: %v", p, err)
	}
	if note.Path == "" {
		note.Path = p
	}
	return &note, nil
}

// CreateOrUpdateNote upserts a note: created if absent, overwritten
// if present.
func (c *Client) CreateOrUpdateNote(ctx context.Context, path, content string) error {
	p, err := NormalizeNotePath(path)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPut, c.vaultURL(p), content)
	if err != nil {
		return err
	}
	_, err = c.do(req, nil)
	return err
}

// AppendNote appends content to the end of an existing note. The
// remote rejects appends to missing notes; there is no implicit
// create.
func (c *Client) AppendNote(ctx context.Context, path, content string) error {
	p, err := NormalizeNotePath(path)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.vaultURL(p), content)
	if err != nil {
		return err
	}
	_, err = c.do(req, nil)
	return err
}

// PatchNote performs a targeted insert/replace relative to a heading,
// block reference, or frontmatter key inside the note.
func (c *Client) PatchNote(ctx context.Context, pr models.PatchRequest) error {
	p, err := NormalizeNotePath(pr.Path)
	if err != nil {
		return err
	}
	if err := validatePatch(pr); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, c.vaultURL(p), pr.Content)
	if err != nil {
		return err
	}
	setPatchHeaders(req, pr)

	_, err = c.do(req, func(status int, msg string) error {
		if status == http.StatusBadRequest && !pr.CreateTargetIfMissing {
			return apperr.NewRemote(apperr.ErrTargetNotFound, status,
				"%s %q not found in %s: %s", pr.TargetType, pr.Target, p, msg)
		}
		return nil
	})
	return err
}

// DeleteNote deletes a note. Without confirm=true it fails before any
// network I/O; the guard exists purely to stop accidental destructive
// calls from the assistant side.
func (c *Client) DeleteNote(ctx context.Context, path string, confirm bool) error {
	p, err := NormalizeNotePath(path)
	if err != nil {
		return err
	}
	if !confirm {
		return apperr.New(apperr.ErrConfirmationRequired, "deleting %s requires confirm=true", p)
	}
	req, err := c.newRequest(ctx, http.MethodDelete, c.vaultURL(p), "")
	if err != nil {
		return err
	}
	_, err = c.do(req, nil)
	return err
}

// ListFiles returns the immediate child file and folder names under
// folder (non-recursive). Empty or "/" addresses the vault root;
// folders in the result carry a trailing slash, as reported by the
// plugin.
func (c *Client) ListFiles(ctx context.Context, folder string) ([]string, error) {
	f, err := NormalizeFolderPath(folder)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + "/vault/"
	if f != "" {
		u = c.vaultURL(f) + "/"
	}
	req, err := c.newRequest(ctx, http.MethodGet, u, "")
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, nil)
	if err != nil {
		return nil, err
	}
	var listing struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, apperr.New(apperr.ErrUnknownRemote, "decode listing for %q: %v", folder, err)
	}
	return listing.Files, nil
}

// GetActiveFile returns the path and content of the note currently
// open in the Obsidian UI.
func (c *Client) GetActiveFile(ctx context.Context) (*models.ActiveFile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/active/", "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", acceptNoteJSON)
	body, err := c.do(req, activeFileOverride)
	if err != nil {
		return nil, err
	}
	var note models.Note
	if err := json.Unmarshal(body, &note); err != nil {
		return nil, apperr.New(apperr.ErrUnknownRemote, "decode active file: %v", err)
	}
	return &models.ActiveFile{Path: note.Path, Content: note.Content}, nil
}

// UpdateActiveFile overwrites the content of the note currently open
// in the Obsidian UI.
func (c *Client) UpdateActiveFile(ctx context.Context, content string) error {
	req, err := c.newRequest(ctx, http.MethodPut, c.baseURL+"/active/", content)
	if err != nil {
		return err
	}
	_, err = c.do(req, activeFileOverride)
	return err
}

// AppendActiveFile appends content to the note currently open in the
// Obsidian UI.
func (c *Client) AppendActiveFile(ctx context.Context, content string) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/active/", content)
	if err != nil {
		return err
	}
	_, err = c.do(req, activeFileOverride)
	return err
}

// PatchActiveFile performs a targeted insert/replace inside the note
// currently open in the Obsidian UI. The Path field of pr is ignored.
func (c *Client) PatchActiveFile(ctx context.Context, pr models.PatchRequest) error {
	if err := validatePatch(pr); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, c.baseURL+"/active/", pr.Content)
	if err != nil {
		return err
	}
	setPatchHeaders(req, pr)

	_, err = c.do(req, func(status int, msg string) error {
		if status == http.StatusNotFound {
			return apperr.NewRemote(apperr.ErrNoActiveFile, status, "no file is open in Obsidian")
		}
		if status == http.StatusBadRequest && !pr.CreateTargetIfMissing {
			return apperr.NewRemote(apperr.ErrTargetNotFound, status,
				"%s %q not found in active file: %s", pr.TargetType, pr.Target, msg)
		}
		return nil
	})
	return err
}

// DeleteActiveFile deletes the note currently open in the Obsidian UI.
// The confirm guard mirrors DeleteNote: without confirm=true it fails
// before any network I/O.
func (c *Client) DeleteActiveFile(ctx context.Context, confirm bool) error {
	if !confirm {
		return apperr.New(apperr.ErrConfirmationRequired, "deleting the active file requires confirm=true")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, c.baseURL+"/active/", "")
	if err != nil {
		return err
	}
	_, err = c.do(req, activeFileOverride)
	return err
}

// CreateDailyNote composes the daily-note path and section skeleton
// for date under folder, then upserts it. Returns the note path.
func (c *Client) CreateDailyNote(ctx context.Context, date time.Time, folder string, sections []string) (string, error) {
	if _, err := NormalizeFolderPath(folder); err != nil {
		return "", err
	}
	path := notes.DailyNotePath(date, folder)
	body := notes.DailyNoteBody(date, sections)
	if err := c.CreateOrUpdateNote(ctx, path, body); err != nil {
		return "", err
	}
	return path, nil
}

// OpenNote asks the Obsidian UI to open the given note, optionally in
// a new leaf.
func (c *Client) OpenNote(ctx context.Context, path string, newLeaf bool) error {
	p, err := NormalizeNotePath(path)
	if err != nil {
		return err
	}
	u := c.baseURL + "/open/" + escapePath(p)
	if newLeaf {
		u += "?newLeaf=true"
	}
	req, err := c.newRequest(ctx, http.MethodPost, u, "")
	if err != nil {
		return err
	}
	_, err = c.do(req, nil)
	return err
}

// SearchSimple runs a plain-text search across the vault and returns
// the plugin's match listing. contextLength bounds the snippet around
// each match; values <= 0 fall back to the plugin default of 100.
func (c *Client) SearchSimple(ctx context.Context, query string, contextLength int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.New(apperr.ErrInvalidPath, "search query is empty")
	}
	if contextLength <= 0 {
		contextLength = 100
	}
	u := fmt.Sprintf("%s/search/simple/?query=%s&contextLength=%d",
		c.baseURL, url.QueryEscape(query), contextLength)
	req, err := c.newRequest(ctx, http.MethodPost, u, "")
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, nil)
	if err != nil {
		return nil, err
	}
	var results []models.SearchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, apperr.New(apperr.ErrUnknownRemote, "decode search results: %v", err)
	}
	return results, nil
}

// newRequest builds a request with bearer auth and a markdown body
// when body is non-empty.
func (c *Client) newRequest(ctx context.Context, method, u, body string) (*http.Request, error) {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, apperr.New(apperr.ErrInvalidPath, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != "" {
		req.Header.Set("Content-Type", contentTypeMarkdown)
	}
	return req, nil
}

// setPatchHeaders applies the plugin's PATCH header contract.
func setPatchHeaders(req *http.Request, pr models.PatchRequest) {
	req.Header.Set("Operation", pr.Operation)
	req.Header.Set("Target-Type", pr.TargetType)
	req.Header.Set("Target", url.PathEscape(pr.Target))
	req.Header.Set("Create-Target-If-Missing", strconv.FormatBool(pr.CreateTargetIfMissing))
}

// statusOverride lets an operation claim a specific status code before
// the generic mapping runs. Returning nil falls through.
type statusOverride func(status int, remoteMsg string) error

// activeFileOverride maps 404 on /active/ to the no-active-file kind:
// the path exists only while a note is open in the UI.
func activeFileOverride(status int, _ string) error {
	if status == http.StatusNotFound {
		return apperr.NewRemote(apperr.ErrNoActiveFile, status, "no file is open in Obsidian")
	}
	return nil
}

// do executes the request and returns the response body on 2xx. All
// failures come back as apperr-tagged errors.
func (c *Client) do(req *http.Request, override statusOverride) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.mapTransportError(req.Context(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, c.mapTransportError(req.Context(), err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	msg := remoteMessage(body, resp.StatusCode)
	if override != nil {
		if mapped := override(resp.StatusCode, msg); mapped != nil {
			return nil, mapped
		}
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, apperr.NewRemote(apperr.ErrUnauthorized, resp.StatusCode, "API key rejected: %s", msg)
	case http.StatusNotFound:
		return nil, apperr.NewRemote(apperr.ErrNotFound, resp.StatusCode, "%s", msg)
	default:
		return nil, apperr.NewRemote(apperr.ErrUnknownRemote, resp.StatusCode, "%s", msg)
	}
}

func (c *Client) mapTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return apperr.New(apperr.ErrTimeout, "request to %s exceeded %s", c.baseURL, c.cfg.Timeout())
	}
	return apperr.New(apperr.ErrRemoteUnavailable,
		"cannot reach Obsidian at %s (is the Local REST API plugin running?): %v", c.baseURL, err)
}

// remoteMessage extracts the plugin's JSON error body when present.
func remoteMessage(body []byte, status int) string {
	var payload struct {
		Message   string `json:"message"`
		ErrorCode int    `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return http.StatusText(status)
}

func (c *Client) vaultURL(path string) string {
	return c.baseURL + "/vault/" + escapePath(path)
}

// escapePath percent-encodes each segment while keeping separators.
func escapePath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// NormalizeNotePath trims a note reference and strips a leading
// slash. File operations require an extension; anything else is an
// opaque identifier passed through to the remote API.
func NormalizeNotePath(path string) (string, error) {
	p := strings.TrimPrefix(strings.TrimSpace(path), "/")
	if p == "" {
		return "", apperr.New(apperr.ErrInvalidPath, "note path is empty")
	}
	if strings.Contains(p, "\\") {
		return "", apperr.New(apperr.ErrInvalidPath, "note path %q must use forward slashes", path)
	}
	last := p[strings.LastIndex(p, "/")+1:]
	if !strings.Contains(last, ".") {
		return "", apperr.New(apperr.ErrInvalidPath, "note path %q is missing a file extension", path)
	}
	return p, nil
}

// NormalizeFolderPath trims a folder reference. Empty and "/" both
// address the vault root.
func NormalizeFolderPath(folder string) (string, error) {
	f := strings.Trim(strings.TrimSpace(folder), "/")
	if strings.Contains(f, "\\") {
		return "", apperr.New(apperr.ErrInvalidPath, "folder path %q must use forward slashes", folder)
	}
	return f, nil
}

func validatePatch(pr models.PatchRequest) error {
	err := validation.Errors{
		"operation": validation.Validate(pr.Operation,
			validation.Required, validation.In(models.PatchOpAppend, models.PatchOpPrepend, models.PatchOpReplace)),
		"target_type": validation.Validate(pr.TargetType,
			validation.Required, validation.In(models.TargetHeading, models.TargetBlock, models.TargetFrontmatter)),
		"target": validation.Validate(pr.Target, validation.Required),
	}.Filter()
	if err != nil {
		return apperr.New(apperr.ErrInvalidPath, "invalid patch request: %v", err)
	}
	return nil
}
