package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gotengo/teng/config"
	"github.com/gotengo/teng/dict"
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/parser"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/value"
)

// bufWriter is a minimal Writer over a bytes.Buffer, failing on demand.
type bufWriter struct {
	buf    bytes.Buffer
	failOn int // Write call index (1-based) to fail on, 0 = never
	calls  int
}

func (w *bufWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.failOn != 0 && w.calls == w.failOn {
		return 0, errors.New("boom")
	}
	return w.buf.Write(p)
}
func (w *bufWriter) Flush() error { return nil }

func compileProg(t *testing.T, src, contentType string) (*program.Program, *errlog.Log) {
	t.Helper()
	log := errlog.New(0)
	p := parser.New(log, nil, config.DefaultParameters())
	prog := p.Compile("t.teng", src, contentType)
	return prog, log
}

func run(t *testing.T, prog *program.Program, root *fragment.Fragment) (string, *Processor) {
	t.Helper()
	if root == nil {
		root = fragment.NewFragment()
	}
	tree := fragment.NewTree(root)
	stack := fragment.NewStack(tree)
	w := &bufWriter{}
	log := errlog.New(0)
	proc := NewProcessor(prog, stack, nil, config.DefaultParameters(), w, log, nil, nil)
	proc.Run()
	return w.buf.String(), proc
}

func TestLiteralTextPrints(t *testing.T) {
	prog, _ := compileProg(t, "hello world", "text/plain")
	out, _ := run(t, prog, nil)
	if out != "hello world" {
		t.Fatalf("out = %q, want %q", out, "hello world")
	}
}

func TestArithmeticFoldedPrint(t *testing.T) {
	prog, _ := compileProg(t, "${1+2*3}", "text/plain")
	out, _ := run(t, prog, nil)
	if out != "7" {
		t.Fatalf("out = %q, want %q", out, "7")
	}
}

func TestDollarPrintEscapesHTML(t *testing.T) {
	prog, _ := compileProg(t, `${"<b>"}`, "text/html")
	out, _ := run(t, prog, nil)
	if out != "&lt;b&gt;" {
		t.Fatalf("out = %q, want escaped <b>", out)
	}
}

func TestPercentPrintDoesNotEscape(t *testing.T) {
	prog, _ := compileProg(t, `%{"<b>"}`, "text/html")
	out, _ := run(t, prog, nil)
	if out != "<b>" {
		t.Fatalf("out = %q, want raw <b>", out)
	}
}

func TestSetThenVar(t *testing.T) {
	prog, log := compileProg(t, "<?teng set .x = 1 + 1?>${.x}", "text/plain")
	out, _ := run(t, prog, nil)
	if out != "2" {
		t.Fatalf("out = %q, want 2; log=%v", out, log.Entries())
	}
}

func TestFragIterationOverList(t *testing.T) {
	root := fragment.NewFragment()
	a := fragment.NewFragment()
	a.Set("name", value.NewString("alice"))
	b := fragment.NewFragment()
	b.Set("name", value.NewString("bob"))
	root.SetList("items", fragment.NewList(a, b))

	prog, _ := compileProg(t, "<?teng frag items?>${name} <?teng endfrag?>", "text/plain")
	out, _ := run(t, prog, root)
	if out != "alice bob " {
		t.Fatalf("out = %q, want %q", out, "alice bob ")
	}
}

func TestIfElseBranches(t *testing.T) {
	src := "<?teng if a?>A<?teng elseif b?>B<?teng else?>C<?teng endif?>"
	prog, _ := compileProg(t, src, "text/plain")

	root := fragment.NewFragment()
	root.Set("a", value.NewInt(0))
	root.Set("b", value.NewInt(1))
	out, _ := run(t, prog, root)
	if out != "B" {
		t.Fatalf("out = %q, want B", out)
	}
}

func TestDivByZeroLogsErrorAndSubstitutesUndefined(t *testing.T) {
	prog, _ := compileProg(t, "${1/0}", "text/plain")
	out, proc := run(t, prog, nil)
	if out != "undefined" {
		t.Fatalf("out = %q, want %q", out, "undefined")
	}
	if !proc.log.HasLevel(errlog.ERROR) {
		t.Fatalf("expected an ERROR entry for division by zero")
	}
}

func TestWriterFailureAbortsRender(t *testing.T) {
	prog, _ := compileProg(t, "hello world", "text/plain")
	tree := fragment.NewTree(nil)
	stack := fragment.NewStack(tree)
	w := &bufWriter{failOn: 1}
	log := errlog.New(0)
	proc := NewProcessor(prog, stack, nil, config.DefaultParameters(), w, log, nil, nil)
	status := proc.Run()
	if status == 0 {
		t.Fatalf("expected a non-zero status after a writer failure")
	}
	if !log.HasLevel(errlog.FATAL) {
		t.Fatalf("expected a FATAL entry logged for the writer failure")
	}
}

func TestDictLookup(t *testing.T) {
	prog, _ := compileProg(t, "#{greeting.hello}", "text/plain")
	d := dict.New()
	d.Set("greeting.hello", "hi there")
	tree := fragment.NewTree(nil)
	stack := fragment.NewStack(tree)
	w := &bufWriter{}
	log := errlog.New(0)
	proc := NewProcessor(prog, stack, d, config.DefaultParameters(), w, log, nil, nil)
	proc.Run()
	if w.buf.String() != "hi there" {
		t.Fatalf("out = %q, want %q", w.buf.String(), "hi there")
	}
}

// fakeUDF is a trivial UDFResolver for exercising OpCall.
type fakeUDF struct{}

func (fakeUDF) Call(name string, args []value.Value, ctx CallContext) (value.Value, error) {
	if name == "shout" && len(args) == 1 {
		return value.NewString(args[0].String() + "!"), nil
	}
	return value.Undef, errors.New("unknown udf " + name)
}

func TestBuiltinRoundTruncURL(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"${round(2.5)}", "3"},
		{"${round(-2.5)}", "-3"},
		{"${trunc(2.9)}", "2"},
		{`${urlescape("a b&c")}`, "a+b%26c"},
		{`${substr("hello", 1, 3)}`, "ell"},
		{`${len("hello")}`, "5"},
		{`${lower("HeLLo")}`, "hello"},
		{`${upper("HeLLo")}`, "HELLO"},
	}
	for _, c := range cases {
		prog, log := compileProg(t, c.src, "text/plain")
		out, _ := run(t, prog, nil)
		if out != c.want {
			t.Errorf("%s => %q, want %q (log=%v)", c.src, out, c.want, log.Entries())
		}
	}
}

func TestUDFCall(t *testing.T) {
	prog, _ := compileProg(t, `${shout("hi")}`, "text/plain")
	tree := fragment.NewTree(nil)
	stack := fragment.NewStack(tree)
	w := &bufWriter{}
	log := errlog.New(0)
	proc := NewProcessor(prog, stack, nil, config.DefaultParameters(), w, log, nil, fakeUDF{})
	proc.Run()
	if w.buf.String() != "hi!" {
		t.Fatalf("out = %q, want %q", w.buf.String(), "hi!")
	}
}

// TestFragIterationVisitsEveryItemInOrder is a property check (spec's
// "every fragment in a FragmentList is visited exactly once, in list
// order" invariant): a randomized list of names, rendered through a
// frag loop, must reappear in the output in the same order with none
// dropped or duplicated, regardless of what the random names contain.
func TestFragIterationVisitsEveryItemInOrder(t *testing.T) {
	gofakeit.Seed(0)
	prog, _ := compileProg(t, "<?teng frag items?>${name}|<?teng endfrag?>", "text/plain")

	for trial := 0; trial < 20; trial++ {
		n := gofakeit.Number(1, 15)
		names := make([]string, n)
		root := fragment.NewFragment()
		list := fragment.NewList()
		for i := 0; i < n; i++ {
			names[i] = gofakeit.FirstName()
			f := fragment.NewFragment()
			f.Set("name", value.NewString(names[i]))
			list.Append(f)
		}
		root.SetList("items", list)

		out, _ := run(t, prog, root)
		want := strings.Join(names, "|") + "|"
		if out != want {
			t.Fatalf("trial %d: out = %q, want %q", trial, out, want)
		}
	}
}
