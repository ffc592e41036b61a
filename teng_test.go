package teng

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/value"
	"github.com/gotengo/teng/writer"
)

func TestGenerateInlineTemplateString(t *testing.T) {
	e := New(nil)
	req := Request{TemplateString: "hello ${name}", ContentType: "text/plain"}

	root := fragment.NewFragment()
	root.Set("name", value.NewString("world"))
	tree := fragment.NewTree(root)

	w := writer.NewStringWriter()
	status, log := e.Generate(req, tree, w)
	if status != 0 {
		t.Fatalf("status = %d, want 0; log=%v", status, log.Entries())
	}
	if w.String() != "hello world" {
		t.Fatalf("output = %q, want %q", w.String(), "hello world")
	}
}

func TestGenerateFileBackedTemplateIsCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.teng")
	if err := os.WriteFile(path, []byte("hi ${name}"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	e := New(nil)
	req := Request{TemplateFilename: path, ContentType: "text/plain"}
	root := fragment.NewFragment()
	root.Set("name", value.NewString("alice"))
	tree := fragment.NewTree(root)

	w1 := writer.NewStringWriter()
	if status, log := e.Generate(req, tree, w1); status != 0 {
		t.Fatalf("status = %d, want 0; log=%v", status, log.Entries())
	}
	if w1.String() != "hi alice" {
		t.Fatalf("output = %q, want %q", w1.String(), "hi alice")
	}
	if e.Cache().ProgramCount() != 1 {
		t.Fatalf("ProgramCount = %d, want 1", e.Cache().ProgramCount())
	}

	w2 := writer.NewStringWriter()
	if status, _ := e.Generate(req, tree, w2); status != 0 {
		t.Fatalf("status on second render = %d, want 0", status)
	}
	if e.Cache().ProgramCount() != 1 {
		t.Fatalf("ProgramCount after second render = %d, want 1 (should reuse the cached Program)", e.Cache().ProgramCount())
	}
}

func TestGenerateMissingTemplateFileReturnsNonZero(t *testing.T) {
	e := New(nil)
	req := Request{TemplateFilename: "/no/such/file.teng", ContentType: "text/plain"}
	tree := fragment.NewTree(fragment.NewFragment())
	w := writer.NewStringWriter()

	status, log := e.Generate(req, tree, w)
	if status == 0 {
		t.Fatalf("expected a non-zero status for an unreadable template file")
	}
	if !log.HasLevel(errlog.ERROR) {
		t.Fatalf("expected at least an ERROR-level entry")
	}
}

func TestGenerateRegisteredUDF(t *testing.T) {
	e := New(nil)
	e.UDFs().Register("shout", func(args []value.Value) (value.Value, error) {
		return value.NewString(args[0].String() + "!!!"), nil
	})

	req := Request{TemplateString: `${shout("hi")}`, ContentType: "text/plain"}
	tree := fragment.NewTree(fragment.NewFragment())
	w := writer.NewStringWriter()

	status, log := e.Generate(req, tree, w)
	if status != 0 {
		t.Fatalf("status = %d, want 0; log=%v", status, log.Entries())
	}
	if w.String() != "hi!!!" {
		t.Fatalf("output = %q, want %q", w.String(), "hi!!!")
	}
}
