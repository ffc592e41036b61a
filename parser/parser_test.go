package parser

import (
	"strings"
	"testing"

	"github.com/gotengo/teng/config"
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/program"
)

func compile(t *testing.T, src string) (*program.Program, *errlog.Log) {
	t.Helper()
	log := errlog.New(0)
	p := New(log, nil, config.DefaultParameters())
	prog := p.Compile("t.teng", src, "text/plain")
	return prog, log
}

func compileWith(t *testing.T, src string, src2 MapSource) (*program.Program, *errlog.Log) {
	t.Helper()
	log := errlog.New(0)
	p := New(log, src2, config.DefaultParameters())
	prog := p.Compile("t.teng", src, "text/plain")
	return prog, log
}

func opSeq(prog *program.Program) []program.Op {
	var ops []program.Op
	for _, in := range prog.Instructions {
		ops = append(ops, in.Op)
	}
	return ops
}

func containsOp(prog *program.Program, op program.Op) bool {
	for _, o := range opSeq(prog) {
		if o == op {
			return true
		}
	}
	return false
}

func TestLiteralTextCompilesToValPrint(t *testing.T) {
	prog, log := compile(t, "hello world")
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	if !containsOp(prog, program.OpVal) || !containsOp(prog, program.OpPrint) {
		t.Fatalf("expected VAL+PRINT for literal text, got %v", opSeq(prog))
	}
}

func TestDollarPrintEscapes(t *testing.T) {
	prog, _ := compile(t, "${1+2}")
	found := false
	for _, in := range prog.Instructions {
		if in.Op == program.OpPrint && in.Operand == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an escaping PRINT(1), got %v", prog.Disassemble())
	}
}

func TestConstantFoldingProducesSingleVal(t *testing.T) {
	prog, _ := compile(t, "${1+2*3}")
	count := 0
	for _, in := range prog.Instructions {
		if in.Op == program.OpAdd || in.Op == program.OpMul {
			count++
		}
	}
	if count != 0 {
		t.Fatalf("expected constant folding to eliminate arithmetic ops, got %v", opSeq(prog))
	}
	lit := prog.Literal(0)
	if lit.String() != "7" {
		t.Fatalf("expected folded literal 7, got %v", lit.String())
	}
}

func TestIfElseifElseEmitsJumps(t *testing.T) {
	src := "<?teng if a?>A<?teng elseif b?>B<?teng else?>C<?teng endif?>"
	prog, log := compile(t, src)
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	njn, nj := 0, 0
	for _, in := range prog.Instructions {
		switch in.Op {
		case program.OpJmpIfNot:
			njn++
		case program.OpJmp:
			nj++
		}
	}
	if njn != 2 {
		t.Fatalf("expected 2 JMP_IF_NOT (if, elseif), got %d: %s", njn, prog.Disassemble())
	}
	if nj != 2 {
		t.Fatalf("expected 2 JMP (end-of-if-branch, end-of-elseif-branch), got %d", nj)
	}
}

func TestFragOpenIterClose(t *testing.T) {
	src := "<?teng frag items?>x<?teng endfrag?>"
	prog, log := compile(t, src)
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	wantSeq := []program.Op{program.OpFragOpen, program.OpVal, program.OpPrint, program.OpFragIter, program.OpFragClose, program.OpHalt}
	got := opSeq(prog)
	if len(got) != len(wantSeq) {
		t.Fatalf("op sequence length mismatch: got %v want shape %v", got, wantSeq)
	}
	for i, op := range wantSeq {
		if got[i] != op {
			t.Fatalf("op[%d] = %v, want %v (%s)", i, got[i], op, prog.Disassemble())
		}
	}
	iter := prog.Instructions[3]
	if iter.Jump != 1 {
		t.Fatalf("expected FRAG_ITER to jump back to index 1 (loop start), got %d", iter.Jump)
	}
}

func TestSetCompilesValAndSet(t *testing.T) {
	prog, log := compile(t, "<?teng set .x = 1 + 1?>")
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	if !containsOp(prog, program.OpSet) {
		t.Fatalf("expected a SET instruction, got %v", prog.Disassemble())
	}
}

func TestRuntimeVariableUselessWarning(t *testing.T) {
	_, log := compile(t, "${$x}")
	found := false
	for _, e := range log.Entries() {
		if e.Level == errlog.WARNING && strings.Contains(e.Message, "useless") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 'runtime variable is useless' WARNING, got %v", log.Entries())
	}
}

func TestFormatPushPop(t *testing.T) {
	src := "<?teng format space='onespace'?>  a   b  <?teng endformat?>"
	prog, log := compile(t, src)
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	if !containsOp(prog, program.OpFormatPush) || !containsOp(prog, program.OpFormatPop) {
		t.Fatalf("expected FORMAT_PUSH/FORMAT_POP, got %v", opSeq(prog))
	}
	lit := prog.Literal(0)
	if lit.String() != " a b " {
		t.Fatalf("expected collapsed whitespace %q, got %q", " a b ", lit.String())
	}
}

func TestCtypePushPop(t *testing.T) {
	prog, log := compile(t, "<?teng ctype 'text/html'?>hi<?teng endctype?>")
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	if !containsOp(prog, program.OpCtypePush) || !containsOp(prog, program.OpCtypePop) {
		t.Fatalf("expected CTYPE_PUSH/CTYPE_POP, got %v", opSeq(prog))
	}
}

func TestIncludeSplicesSource(t *testing.T) {
	src := "<?teng include file='inc.teng'?>"
	prog, log := compileWith(t, src, MapSource{"inc.teng": "included text"})
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	var found bool
	for _, lit := range prog.Literals {
		if lit.String() == "included text" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected included literal text to be spliced in, got %v", prog.Literals)
	}
}

func TestIncludeMissingSourceProviderErrors(t *testing.T) {
	_, log := compile(t, "<?teng include file='x.teng'?>")
	found := false
	for _, e := range log.Entries() {
		if e.Level == errlog.ERROR {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ERROR for include with no source provider")
	}
}

func TestDefineBlockRedirectedByOverride(t *testing.T) {
	base := "<?teng define block greeting?>hi<?teng enddefine block?>"
	child := "<?teng extends file='base.teng'?>" +
		"<?teng override block greeting?>bye<?teng super?><?teng endoverride block?>" +
		"<?teng endextends?>"
	prog, log := compileWith(t, child, MapSource{"base.teng": base})
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	blk, ok := prog.Blocks["greeting"]
	if !ok {
		t.Fatalf("expected block %q to be recorded", "greeting")
	}
	defineInst := prog.Instructions[blk.Start-1]
	if defineInst.Op != program.OpDefineBlock {
		t.Fatalf("expected DEFINE_BLOCK immediately before block body, got %v", defineInst.Op)
	}
	if defineInst.Jump < blk.End {
		t.Fatalf("expected DEFINE_BLOCK to be redirected past its own body (to the override), got jump=%d end=%d", defineInst.Jump, blk.End)
	}
	var sawSuperCall bool
	for _, in := range prog.Instructions[blk.End:] {
		if in.Op == program.OpSuper && in.Jump == blk.Start {
			sawSuperCall = true
		}
	}
	if !sawSuperCall {
		t.Fatalf("expected a SUPER call instruction jumping back to the base body start %d", blk.Start)
	}
}

func TestSuperOutsideOverrideErrors(t *testing.T) {
	_, log := compile(t, "<?teng super?>")
	found := false
	for _, e := range log.Entries() {
		if e.Level == errlog.ERROR && strings.Contains(e.Message, "super") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ERROR for super outside an override block")
	}
}

func TestUnknownDirectiveErrors(t *testing.T) {
	_, log := compile(t, "<?teng frobnicate?>")
	found := false
	for _, e := range log.Entries() {
		if e.Level == errlog.ERROR && strings.Contains(e.Message, "unknown directive") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ERROR for an unknown directive")
	}
}

func TestDictLookupCompilesToCall(t *testing.T) {
	prog, log := compile(t, "#{greeting.hello}")
	if len(log.Entries()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Entries())
	}
	if !containsOp(prog, program.OpCall) {
		t.Fatalf("expected a CALL instruction for dictionary lookup, got %v", opSeq(prog))
	}
}
