package obsidian_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"obsidian-mcp/internal/apperr"
	"obsidian-mcp/internal/models"
	"obsidian-mcp/internal/obsidian"
	"obsidian-mcp/internal/testutil"
)

func TestReadNote_RoundTrip(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)
	ctx := context.Background()

	content := "# Title\n\nBody with unicode: héllo ✓\n"
	if err := c.CreateOrUpdateNote(ctx, "Notes/hello.md", content); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := c.ReadNote(ctx, "Notes/hello.md")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != content {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestReadNote_Missing(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	_, err := c.ReadNote(context.Background(), "nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReadNoteWithMetadata(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("meta.md", "hello")
	c := fv.NewClient(t)

	note, err := c.ReadNoteWithMetadata(context.Background(), "meta.md")
	if err != nil {
		t.Fatalf("read with metadata: %v", err)
	}
	if note.Path != "meta.md" {
		t.Errorf("path = %q, want meta.md", note.Path)
	}
	if note.Content != "hello" {
		t.Errorf("content = %q, want hello", note.Content)
	}
	if note.Stat.Size != int64(len("hello")) {
		t.Errorf("size = %d, want %d", note.Stat.Size, len("hello"))
	}
}

func TestCreateOrUpdateNote_Overwrites(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)
	ctx := context.Background()

	if err := c.CreateOrUpdateNote(ctx, "a.md", "first"); err != nil {
		t.Fatal(err)
	}
	if err := c.CreateOrUpdateNote(ctx, "a.md", "second"); err != nil {
		t.Fatal(err)
	}
	if got, _ := fv.Get("a.md"); got != "second" {
		t.Errorf("content = %q, want second", got)
	}
}

func TestAppendNote(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("log.md", "one\n")
	c := fv.NewClient(t)

	if err := c.AppendNote(context.Background(), "log.md", "two\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got, _ := fv.Get("log.md"); got != "one\ntwo\n" {
		t.Errorf("content = %q", got)
	}
}

func TestAppendNote_MissingFailsWithoutCreate(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	err := c.AppendNote(context.Background(), "absent.md", "text")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, ok := fv.Get("absent.md"); ok {
		t.Error("append must not create the note")
	}
}

func TestPatchNote_Heading(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("doc.md", "# Doc\n\n## Tasks\n- old\n")
	c := fv.NewClient(t)

	err := c.PatchNote(context.Background(), models.PatchRequest{
		Path:       "doc.md",
		Operation:  models.PatchOpAppend,
		TargetType: models.TargetHeading,
		Target:     "Tasks",
		Content:    "- new",
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, _ := fv.Get("doc.md")
	if !strings.Contains(got, "## Tasks\n- new\n- old") {
		t.Errorf("content = %q", got)
	}
}

func TestPatchNote_TargetMissing(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("doc.md", "# Doc\n")
	c := fv.NewClient(t)

	err := c.PatchNote(context.Background(), models.PatchRequest{
		Path:       "doc.md",
		Operation:  models.PatchOpAppend,
		TargetType: models.TargetHeading,
		Target:     "Nowhere",
		Content:    "text",
	})
	if !errors.Is(err, apperr.ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrTargetNotFound", err)
	}
}

func TestPatchNote_CreatesMissingTarget(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("doc.md", "# Doc")
	c := fv.NewClient(t)

	err := c.PatchNote(context.Background(), models.PatchRequest{
		Path:                  "doc.md",
		Operation:             models.PatchOpAppend,
		TargetType:            models.TargetHeading,
		Target:                "Later",
		Content:               "- item",
		CreateTargetIfMissing: true,
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, _ := fv.Get("doc.md")
	if !strings.Contains(got, "## Later\n- item") {
		t.Errorf("content = %q", got)
	}
}

func TestPatchNote_InvalidOperation(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	err := c.PatchNote(context.Background(), models.PatchRequest{
		Path:       "doc.md",
		Operation:  "insert",
		TargetType: models.TargetHeading,
		Target:     "Tasks",
	})
	if !errors.Is(err, apperr.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
	if fv.Requests() != 0 {
		t.Errorf("invalid patch reached the network: %d requests", fv.Requests())
	}
}

func TestDeleteNote_RequiresConfirm(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("precious.md", "keep me")
	c := fv.NewClient(t)

	err := c.DeleteNote(context.Background(), "precious.md", false)
	if !errors.Is(err, apperr.ErrConfirmationRequired) {
		t.Fatalf("err = %v, want ErrConfirmationRequired", err)
	}
	if fv.Requests() != 0 {
		t.Errorf("unconfirmed delete reached the network: %d requests", fv.Requests())
	}
	if _, ok := fv.Get("precious.md"); !ok {
		t.Error("note was deleted without confirmation")
	}
}

func TestDeleteNote_Confirmed(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("gone.md", "bye")
	c := fv.NewClient(t)

	if err := c.DeleteNote(context.Background(), "gone.md", true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := fv.Get("gone.md"); ok {
		t.Error("note still present after delete")
	}
}

func TestDeleteNote_Missing(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	err := c.DeleteNote(context.Background(), "never.md", true)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListFiles_Root(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("a.md", "")
	fv.Put("b.md", "")
	fv.Put("Sub/c.md", "")
	c := fv.NewClient(t)

	files, err := c.ListFiles(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Sub/", "a.md", "b.md"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestListFiles_Subfolder(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("Sub/c.md", "")
	fv.Put("Sub/Deep/d.md", "")
	c := fv.NewClient(t)

	files, err := c.ListFiles(context.Background(), "Sub")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Deep/", "c.md"}
	if len(files) != len(want) || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("files = %v, want %v", files, want)
	}
}

func TestListFiles_MissingFolder(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	_, err := c.ListFiles(context.Background(), "Nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetActiveFile(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("open.md", "active content")
	fv.SetActive("open.md")
	c := fv.NewClient(t)

	af, err := c.GetActiveFile(context.Background())
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if af.Path != "open.md" || af.Content != "active content" {
		t.Errorf("active = %+v", af)
	}
}

func TestGetActiveFile_NoneOpen(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	_, err := c.GetActiveFile(context.Background())
	if !errors.Is(err, apperr.ErrNoActiveFile) {
		t.Fatalf("err = %v, want ErrNoActiveFile", err)
	}
}

func TestUpdateActiveFile(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("open.md", "old")
	fv.SetActive("open.md")
	c := fv.NewClient(t)

	if err := c.UpdateActiveFile(context.Background(), "new content"); err != nil {
		t.Fatalf("update active: %v", err)
	}
	if got, _ := fv.Get("open.md"); got != "new content" {
		t.Errorf("content = %q", got)
	}
}

func TestAppendActiveFile(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("open.md", "one\n")
	fv.SetActive("open.md")
	c := fv.NewClient(t)

	if err := c.AppendActiveFile(context.Background(), "two\n"); err != nil {
		t.Fatalf("append active: %v", err)
	}
	if got, _ := fv.Get("open.md"); got != "one\ntwo\n" {
		t.Errorf("content = %q", got)
	}
}

func TestActiveFileMutations_NoneOpen(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)
	ctx := context.Background()

	if err := c.UpdateActiveFile(ctx, "x"); !errors.Is(err, apperr.ErrNoActiveFile) {
		t.Errorf("update err = %v, want ErrNoActiveFile", err)
	}
	if err := c.AppendActiveFile(ctx, "x"); !errors.Is(err, apperr.ErrNoActiveFile) {
		t.Errorf("append err = %v, want ErrNoActiveFile", err)
	}
	if err := c.DeleteActiveFile(ctx, true); !errors.Is(err, apperr.ErrNoActiveFile) {
		t.Errorf("delete err = %v, want ErrNoActiveFile", err)
	}
}

func TestPatchActiveFile(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("open.md", "# Open\n\n## Tasks\n- old\n")
	fv.SetActive("open.md")
	c := fv.NewClient(t)

	err := c.PatchActiveFile(context.Background(), models.PatchRequest{
		Operation:  models.PatchOpAppend,
		TargetType: models.TargetHeading,
		Target:     "Tasks",
		Content:    "- new",
	})
	if err != nil {
		t.Fatalf("patch active: %v", err)
	}
	got, _ := fv.Get("open.md")
	if !strings.Contains(got, "## Tasks\n- new\n- old") {
		t.Errorf("content = %q", got)
	}
}

func TestPatchActiveFile_TargetMissing(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("open.md", "# Open\n")
	fv.SetActive("open.md")
	c := fv.NewClient(t)

	err := c.PatchActiveFile(context.Background(), models.PatchRequest{
		Operation:  models.PatchOpAppend,
		TargetType: models.TargetHeading,
		Target:     "Nowhere",
		Content:    "x",
	})
	if !errors.Is(err, apperr.ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrTargetNotFound", err)
	}
}

func TestDeleteActiveFile_RequiresConfirm(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("open.md", "keep")
	fv.SetActive("open.md")
	c := fv.NewClient(t)

	err := c.DeleteActiveFile(context.Background(), false)
	if !errors.Is(err, apperr.ErrConfirmationRequired) {
		t.Fatalf("err = %v, want ErrConfirmationRequired", err)
	}
	if fv.Requests() != 0 {
		t.Errorf("unconfirmed delete reached the network: %d requests", fv.Requests())
	}
}

func TestDeleteActiveFile_Confirmed(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("open.md", "bye")
	fv.SetActive("open.md")
	c := fv.NewClient(t)

	if err := c.DeleteActiveFile(context.Background(), true); err != nil {
		t.Fatalf("delete active: %v", err)
	}
	if _, ok := fv.Get("open.md"); ok {
		t.Error("note still present after delete")
	}
	if _, err := c.GetActiveFile(context.Background()); !errors.Is(err, apperr.ErrNoActiveFile) {
		t.Errorf("active after delete err = %v, want ErrNoActiveFile", err)
	}
}

func TestCreateDailyNote(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	path, err := c.CreateDailyNote(context.Background(), date, "Daily Notes", nil)
	if err != nil {
		t.Fatalf("daily note: %v", err)
	}
	if path != "Daily Notes/2025-03-14.md" {
		t.Errorf("path = %q", path)
	}
	body, ok := fv.Get(path)
	if !ok {
		t.Fatal("daily note was not written")
	}
	for _, section := range []string{"## Tasks", "## Notes", "## Journal"} {
		if !strings.Contains(body, section) {
			t.Errorf("body missing %q:\n%s", section, body)
		}
	}
}

func TestOpenNote(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("target.md", "x")
	c := fv.NewClient(t)

	if err := c.OpenNote(context.Background(), "target.md", true); err != nil {
		t.Fatalf("open: %v", err)
	}
	opened := fv.Opened()
	if len(opened) != 1 || opened[0] != "target.md" {
		t.Errorf("opened = %v", opened)
	}
}

func TestSearchSimple(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("one.md", "the quick brown fox")
	fv.Put("two.md", "nothing to see")
	c := fv.NewClient(t)

	results, err := c.SearchSimple(context.Background(), "quick", 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v, want one hit", results)
	}
	if results[0].Filename != "one.md" {
		t.Errorf("filename = %q", results[0].Filename)
	}
	if len(results[0].Matches) != 1 {
		t.Fatalf("matches = %+v", results[0].Matches)
	}
	m := results[0].Matches[0].Match
	if m.Start != 4 || m.End != 9 {
		t.Errorf("span = [%d,%d), want [4,9)", m.Start, m.End)
	}
}

func TestSearchSimple_EmptyQuery(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	_, err := c.SearchSimple(context.Background(), "  ", 50)
	if !errors.Is(err, apperr.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
	if fv.Requests() != 0 {
		t.Errorf("empty query reached the network: %d requests", fv.Requests())
	}
}

func TestClient_Unauthorized(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Put("secret.md", "x")
	cfg := fv.ClientConfig(t)
	cfg.APIKey = "wrong-key"
	c := obsidian.NewClient(cfg)

	_, err := c.ReadNote(context.Background(), "secret.md")
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	t.Cleanup(slow.Close)

	c := obsidian.NewClient(configFor(t, slow.URL, 1))
	_, err := c.ReadNote(context.Background(), "slow.md")
	if !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestClient_RemoteUnavailable(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := dead.URL
	dead.Close()

	c := obsidian.NewClient(configFor(t, addr, 1))
	_, err := c.ReadNote(context.Background(), "any.md")
	if !errors.Is(err, apperr.ErrRemoteUnavailable) {
		t.Fatalf("err = %v, want ErrRemoteUnavailable", err)
	}
}

func configFor(t *testing.T, serverURL string, timeoutSeconds int) obsidian.Config {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	cfg := obsidian.NewDefaultConfig()
	cfg.Host = u.Hostname()
	cfg.Port = port
	cfg.Protocol = obsidian.ProtocolHTTP
	cfg.APIKey = "k"
	cfg.TimeoutSeconds = timeoutSeconds
	return cfg
}

func TestNormalizeNotePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"note.md", "note.md", true},
		{"/leading/slash.md", "leading/slash.md", true},
		{"  spaced.md  ", "spaced.md", true},
		{"folder/deep/file.canvas", "folder/deep/file.canvas", true},
		{"", "", false},
		{"   ", "", false},
		{"no-extension", "", false},
		{"folder/no-extension", "", false},
		{"bad\\slash.md", "", false},
	}
	for _, tc := range cases {
		got, err := obsidian.NormalizeNotePath(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("NormalizeNotePath(%q) error: %v", tc.in, err)
			} else if got != tc.want {
				t.Errorf("NormalizeNotePath(%q) = %q, want %q", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("NormalizeNotePath(%q) err = %v, want ErrInvalidPath", tc.in, err)
		}
	}
}

func TestNormalizeFolderPath(t *testing.T) {
	for in, want := range map[string]string{
		"":           "",
		"/":          "",
		"Sub":        "Sub",
		"/Sub/Deep/": "Sub/Deep",
	} {
		got, err := obsidian.NormalizeFolderPath(in)
		if err != nil {
			t.Errorf("NormalizeFolderPath(%q) error: %v", in, err)
		} else if got != want {
			t.Errorf("NormalizeFolderPath(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := obsidian.NormalizeFolderPath("bad\\folder"); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("backslash folder err = %v, want ErrInvalidPath", err)
	}
}

func TestReadNote_InvalidPathNoNetwork(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)

	if _, err := c.ReadNote(context.Background(), ""); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
	if fv.Requests() != 0 {
		t.Errorf("invalid path reached the network: %d requests", fv.Requests())
	}
}

func TestEscapedPathRoundTrip(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	c := fv.NewClient(t)
	ctx := context.Background()

	path := "Projects/My Note #1.md"
	if err := c.CreateOrUpdateNote(ctx, path, "spaces and hash"); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := c.ReadNote(ctx, path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "spaces and hash" {
		t.Errorf("content = %q", got)
	}
}
