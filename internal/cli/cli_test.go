package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"catalog-cli/internal/clipboard"
	"catalog-cli/internal/clock"
	"catalog-cli/internal/model"
	"catalog-cli/internal/prefs"
	"catalog-cli/internal/query"
	"catalog-cli/internal/seed"

	"github.com/rs/zerolog"
)

type env struct {
	t    *testing.T
	dir  string
	clip *clipboard.Memory
}

// newEnv points the config dir at a temp dir so the default data file and
// prefs live there.
func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CATALOG_CONFIG_DIR", dir)
	for _, k := range []string{"CATALOG_CONFIG", "CATALOG_STORE", "CATALOG_PATH", "CATALOG_SQLITE_PATH", "CATALOG_DSN", "CATALOG_REMOTE_URL", "CATALOG_FORMAT", "CATALOG_WATCH"} {
		t.Setenv(k, "")
	}
	return &env{t: t, dir: dir, clip: &clipboard.Memory{}}
}

func (e *env) run(stdin string, args ...string) (stdout, stderr []byte, err error) {
	e.t.Helper()
	nop := zerolog.Nop()
	cmd := NewRootCmdWith(Deps{
		Clipboard: e.clip,
		Clock:     clock.Fake(time.UnixMilli(1700000000000)),
		Logger:    &nop,
	})
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func (e *env) mustRun(args ...string) []byte {
	e.t.Helper()
	stdout, stderr, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("catalog %v: %v\nstderr:\n%s", args, err, stderr)
	}
	return stdout
}

func decodeData(t *testing.T, stdout []byte, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("stdout is not a JSON envelope: %v\n%s", err, stdout)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
}

func (e *env) catalog() model.Catalog {
	e.t.Helper()
	var c model.Catalog
	decodeData(e.t, e.mustRun("list"), &c)
	return c
}

func TestListSeedsDefaultCatalog(t *testing.T) {
	e := newEnv(t)
	if got := e.catalog(); !got.Equal(seed.Catalog()) {
		t.Fatalf("first list should return the default catalog, got %d categories", len(got))
	}
	if _, err := os.Stat(filepath.Join(e.dir, "data", "custom-templates.json")); err != nil {
		t.Fatalf("default data file not written: %v", err)
	}
}

func TestListSortByLength(t *testing.T) {
	e := newEnv(t)
	var c model.Catalog
	decodeData(t, e.mustRun("list", "--sort", "length", "--desc"), &c)
	if len(c) != len(seed.Catalog()) {
		t.Fatalf("sorting changed the categories: %d", len(c))
	}
	for _, cat := range c {
		for i := 1; i < len(cat.Templates); i++ {
			prev := len([]rune(cat.Templates[i-1].Content))
			cur := len([]rune(cat.Templates[i].Content))
			if prev < cur {
				t.Fatalf("%s not sorted by length desc at %d: %d < %d", cat.ID, i, prev, cur)
			}
		}
	}
	if _, _, err := e.run("", "list", "--sort", "color"); err == nil {
		t.Fatalf("unknown sort field should fail")
	}
}

func TestListFormats(t *testing.T) {
	e := newEnv(t)
	text := string(e.mustRun("list", "--format", "text"))
	if !strings.Contains(text, "ทักทายลูกค้า [greeting]  3 รายการ") {
		t.Fatalf("text listing:\n%s", text)
	}
	if y := string(e.mustRun("list", "--format", "yaml")); !strings.HasPrefix(y, "data:") {
		t.Fatalf("yaml listing:\n%s", y)
	}
	var one model.Catalog
	decodeData(t, e.mustRun("list", "--category", "rider-claim"), &one)
	if len(one) != 1 || one[0].ID != "rider-claim" {
		t.Fatalf("filtered list = %#v", one)
	}
	if _, _, err := e.run("", "list", "--format", "edn"); err == nil {
		t.Fatalf("unknown format should fail")
	}
}

func TestDataFlagSelectsFile(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "mine.json")
	if err := os.WriteFile(path, []byte(`[{"id":"x","name":"X","templates":[]}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	var c model.Catalog
	decodeData(t, e.mustRun("--data", path, "list"), &c)
	if len(c) != 1 || c[0].ID != "x" {
		t.Fatalf("catalog = %#v", c)
	}
}

func TestStoreFlagRejectsUnknownBackend(t *testing.T) {
	e := newEnv(t)
	if _, _, err := e.run("", "--store", "mongo", "list"); err == nil {
		t.Fatalf("expected an error for an unknown backend")
	}
	if _, stderr, err := e.run("", "--store", "remote", "list"); err == nil || !strings.Contains(string(stderr), "remote_url") {
		t.Fatalf("remote without a URL should fail validation: %v %s", err, stderr)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	e := newEnv(t)

	var added struct {
		ID string `json:"id"`
	}
	decodeData(t, e.mustRun("category", "add", "Sales"), &added)
	if added.ID == "" {
		t.Fatalf("category add returned no id")
	}

	var tpl struct {
		ID string `json:"id"`
	}
	decodeData(t, e.mustRun("template", "add", "Sales", "--title", "Offer", "--content", "10% off"), &tpl)
	ref := added.ID + "/" + tpl.ID

	e.mustRun("template", "edit", ref, "--content", "20% off")
	cat, _, ok := e.catalog().Category(added.ID)
	if !ok || len(cat.Templates) != 1 {
		t.Fatalf("category = %#v", cat)
	}
	if got := cat.Templates[0]; got.Title != "Offer" || got.Content != "20% off" {
		t.Fatalf("edited template = %#v", got)
	}

	e.mustRun("template", "delete", added.ID+"/offer", "--yes")
	cat, _, _ = e.catalog().Category(added.ID)
	if len(cat.Templates) != 0 {
		t.Fatalf("template not deleted: %#v", cat.Templates)
	}

	e.mustRun("category", "delete", "sales", "-y")
	if _, _, ok := e.catalog().Category(added.ID); ok {
		t.Fatalf("category not deleted")
	}
}

func TestTemplateAddRejectsBlankFields(t *testing.T) {
	e := newEnv(t)
	_, stderr, err := e.run("", "template", "add", "greeting", "--title", "  ", "--content", "x")
	if err == nil {
		t.Fatalf("expected a validation error")
	}
	if !strings.Contains(string(stderr), msgFieldsMissing) {
		t.Fatalf("stderr = %s", stderr)
	}
	if got := e.catalog(); !got.Equal(seed.Catalog()) {
		t.Fatalf("rejected command changed the catalog")
	}
}

func TestTemplateAddReadsContentFromStdin(t *testing.T) {
	e := newEnv(t)
	if _, stderr, err := e.run("hello\nworld", "template", "add", "greeting", "--title", "Multi", "--content-file", "-"); err != nil {
		t.Fatalf("add: %v %s", err, stderr)
	}
	cat, _, _ := e.catalog().Category("greeting")
	last := cat.Templates[len(cat.Templates)-1]
	if last.Content != "hello\nworld" {
		t.Fatalf("content = %q", last.Content)
	}
}

func TestDeleteMissingTemplate(t *testing.T) {
	e := newEnv(t)
	_, stderr, err := e.run("", "template", "delete", "greeting/nope", "--yes")
	if err == nil || !strings.Contains(string(stderr), "not found") {
		t.Fatalf("err=%v stderr=%s", err, stderr)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	e := newEnv(t)
	_, stderr, err := e.run("n\n", "template", "delete", "greeting/greeting-1")
	if err == nil {
		t.Fatalf("answering n should cancel")
	}
	if !strings.Contains(string(stderr), promptDeleteTemplate) {
		t.Fatalf("stderr = %s", stderr)
	}
	if _, _, ok := mustCategory(t, e.catalog(), "greeting").Template("greeting-1"); !ok {
		t.Fatalf("cancelled delete removed the template")
	}

	if _, stderr, err := e.run("y\n", "template", "delete", "greeting/greeting-1"); err != nil {
		t.Fatalf("delete: %v %s", err, stderr)
	}
	if _, _, ok := mustCategory(t, e.catalog(), "greeting").Template("greeting-1"); ok {
		t.Fatalf("template should be deleted")
	}
}

func mustCategory(t *testing.T, c model.Catalog, id string) model.Category {
	t.Helper()
	cat, _, ok := c.Category(id)
	if !ok {
		t.Fatalf("category %s missing", id)
	}
	return cat
}

func TestCopy(t *testing.T) {
	e := newEnv(t)
	c := seed.Catalog()
	first := c[0].Templates[0]
	second := c[0].Templates[1]

	e.mustRun("copy", "greeting/greeting-1")
	if e.clip.Text != first.Content {
		t.Fatalf("clipboard = %q", e.clip.Text)
	}

	e.mustRun("copy", "greeting/greeting-1", "greeting/"+second.Title)
	want := first.Title + "\n" + first.Content + query.CopySeparator + second.Title + "\n" + second.Content
	if e.clip.Text != want {
		t.Fatalf("bulk clipboard = %q", e.clip.Text)
	}

	out := e.mustRun("copy", "greeting/greeting-2", "--print")
	if strings.TrimSpace(string(out)) != second.Content {
		t.Fatalf("--print = %q", out)
	}

	if _, _, err := e.run("", "copy", "greeting"); err == nil {
		t.Fatalf("a reference without a template should fail")
	}
}

func TestCopyFallsBackToStdout(t *testing.T) {
	e := newEnv(t)
	e.clip.Err = os.ErrNotExist
	stdout, stderr, err := e.run("", "copy", "greeting/greeting-1")
	if err != nil {
		t.Fatalf("copy should not fail without a clipboard: %v", err)
	}
	if !strings.Contains(string(stderr), "clipboard unavailable") {
		t.Fatalf("stderr = %s", stderr)
	}
	if strings.TrimSpace(string(stdout)) != seed.Catalog()[0].Templates[0].Content {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestSearch(t *testing.T) {
	e := newEnv(t)

	var none []entryOut
	decodeData(t, e.mustRun("search", "xyz-no-match"), &none)
	if len(none) != 0 {
		t.Fatalf("expected no results, got %d", len(none))
	}
	if text := string(e.mustRun("search", "xyz-no-match", "--format", "text")); !strings.Contains(text, "ไม่พบเทมเพลตที่ค้นหา") {
		t.Fatalf("text = %s", text)
	}

	var sorted []entryOut
	decodeData(t, e.mustRun("search", "--sort", "length", "--desc"), &sorted)
	if len(sorted) != seed.Catalog().TemplateCount() {
		t.Fatalf("empty query should match everything, got %d", len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if len([]rune(sorted[i-1].Content)) < len([]rune(sorted[i].Content)) {
			t.Fatalf("not sorted by length desc at %d", i)
		}
	}

	if _, _, err := e.run("", "search", "x", "--sort", "color"); err == nil {
		t.Fatalf("unknown sort field should fail")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	e := newEnv(t)
	e.mustRun("category", "add", "Extra")
	before := e.catalog()

	outDir := t.TempDir()
	var exported struct {
		Path string `json:"path"`
	}
	decodeData(t, e.mustRun("export", "-o", outDir), &exported)
	if want := filepath.Join(outDir, "templates-backup-2023-11-14.json"); exported.Path != want {
		t.Fatalf("path = %q, want %q", exported.Path, want)
	}

	e.mustRun("reset", "--yes")
	if !e.catalog().Equal(seed.Catalog()) {
		t.Fatalf("reset should restore the default catalog")
	}

	e.mustRun("import", exported.Path, "--yes")
	if !e.catalog().Equal(before) {
		t.Fatalf("import did not restore the exported catalog")
	}
}

func TestExportGzipToStdout(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("export", "-o", "-", "--gzip")
	if len(out) < 2 || out[0] != 0x1f || out[1] != 0x8b {
		t.Fatalf("expected gzip output")
	}
	if _, stderr, err := e.run(string(out), "import", "-", "--yes"); err != nil {
		t.Fatalf("import gzip from stdin: %v %s", err, stderr)
	}
}

func TestImportConfirmationShowsCategoryCount(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "backup.json")
	if err := os.WriteFile(path, []byte(`[
		{"id": "a", "name": "A", "templates": []},
		{"id": "b", "name": "B", "templates": []}, // trailing comment
	]`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := e.run("no\n", "import", path)
	if err == nil {
		t.Fatalf("answering no should cancel")
	}
	if !strings.Contains(string(stderr), "(2 หมวดหมู่)") {
		t.Fatalf("prompt should show the category count: %s", stderr)
	}
	if !e.catalog().Equal(seed.Catalog()) {
		t.Fatalf("cancelled import changed the catalog")
	}

	if _, stderr, err := e.run("y\n", "import", path); err != nil {
		t.Fatalf("import: %v %s", err, stderr)
	}
	if got := e.catalog(); len(got) != 2 || got[1].ID != "b" {
		t.Fatalf("catalog = %#v", got)
	}
}

func TestImportRejectsMalformedFiles(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()
	for name, body := range map[string]string{
		"object.json": `{"id": "a"}`,
		"empty.json":  `[]`,
		"broken.json": `[{"id": `,
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		_, stderr, err := e.run("", "import", path, "--yes")
		if err == nil {
			t.Fatalf("%s: expected an error", name)
		}
		if !strings.Contains(string(stderr), msgBadFormat) {
			t.Fatalf("%s: stderr = %s", name, stderr)
		}
	}

	_, stderr, err := e.run("", "import", filepath.Join(dir, "missing.json"), "--yes")
	if err == nil || !strings.Contains(string(stderr), msgReadFailed) {
		t.Fatalf("missing file: err=%v stderr=%s", err, stderr)
	}
	if !e.catalog().Equal(seed.Catalog()) {
		t.Fatalf("failed imports changed the catalog")
	}
}

func TestPrefsCommands(t *testing.T) {
	e := newEnv(t)

	var got prefsOut
	decodeData(t, e.mustRun("prefs"), &got)
	if got.ViewMode != prefs.ViewList || got.Settings != prefs.DefaultSettings() {
		t.Fatalf("defaults = %#v", got)
	}

	decodeData(t, e.mustRun("prefs", "view", "cards"), &got)
	if got.ViewMode != prefs.ViewCards {
		t.Fatalf("view = %q", got.ViewMode)
	}

	decodeData(t, e.mustRun("prefs", "set", "itemsPerPage", "24"), &got)
	if got.Settings.ItemsPerPage != 24 {
		t.Fatalf("itemsPerPage = %d", got.Settings.ItemsPerPage)
	}
	if _, _, err := e.run("", "prefs", "set", "itemsPerPage", "7"); err == nil {
		t.Fatalf("7 items per page should be rejected")
	}
	if _, _, err := e.run("", "prefs", "set", "colour", "red"); err == nil {
		t.Fatalf("unknown setting should be rejected")
	}
	if _, _, err := e.run("", "prefs", "view", "grid"); err == nil {
		t.Fatalf("unknown view should be rejected")
	}

	decodeData(t, e.mustRun("prefs", "reset"), &got)
	if got.Settings != prefs.DefaultSettings() || got.ViewMode != prefs.ViewCards {
		t.Fatalf("reset should restore settings only: %#v", got)
	}
}

func TestServeRefusesRemoteStore(t *testing.T) {
	e := newEnv(t)
	t.Setenv("CATALOG_REMOTE_URL", "http://127.0.0.1:1")
	_, stderr, err := e.run("", "--store", "remote", "serve")
	if err == nil || !strings.Contains(string(stderr), "remote store cannot be served") {
		t.Fatalf("err=%v stderr=%s", err, stderr)
	}
}

func TestDocs(t *testing.T) {
	e := newEnv(t)
	var topics []string
	decodeData(t, e.mustRun("docs"), &topics)
	if len(topics) == 0 {
		t.Fatalf("no topics")
	}
	text := string(e.mustRun("docs", "serve", "--format", "text"))
	if !strings.Contains(text, "/api/templates/stream") {
		t.Fatalf("serve topic:\n%s", text)
	}
	if _, _, err := e.run("", "docs", "nope"); err == nil {
		t.Fatalf("unknown topic should fail")
	}
}
