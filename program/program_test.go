package program

import (
	"strings"
	"testing"

	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/value"
)

func TestBuilderInternsRepeatedLiterals(t *testing.T) {
	b := NewBuilder()
	i1 := b.AddConstant(value.NewString("hi"))
	i2 := b.AddConstant(value.NewString("hi"))
	i3 := b.AddConstant(value.NewInt(1))
	if i1 != i2 {
		t.Errorf("identical literals got different indices: %d vs %d", i1, i2)
	}
	if i3 == i1 {
		t.Errorf("distinct-kind literal collided with string literal")
	}
	p := b.Finish()
	if len(p.Literals) != 2 {
		t.Errorf("len(Literals) = %d, want 2", len(p.Literals))
	}
}

func TestBuilderEmitAndPatchJump(t *testing.T) {
	b := NewBuilder()
	pos := errlog.Position{Filename: "t", Line: 1, Column: 1}

	lit := b.AddConstant(value.NewInt(0))
	b.EmitOperand(OpVal, lit, pos)
	jmp := b.EmitJump(OpJmpIfNot, pos)
	b.Emit(OpPop, pos)
	b.PatchHere(jmp)
	b.Emit(OpHalt, pos)

	p := b.Finish()
	if p.Instructions[jmp].Jump != len(p.Instructions)-1 {
		t.Errorf("patched jump target = %d, want %d", p.Instructions[jmp].Jump, len(p.Instructions)-1)
	}
}

func TestBuilderPathPool(t *testing.T) {
	b := NewBuilder()
	pos := errlog.Position{}
	idx := b.AddPath(fragment.Path{Segments: []fragment.Segment{{Kind: fragment.SegName, Name: "a"}}})
	b.EmitOperand(OpVar, idx, pos)
	p := b.Finish()
	if p.Path(idx).Segments[0].Name != "a" {
		t.Errorf("path pool round-trip failed")
	}
}

func TestDisassembleIncludesLiteralAndJump(t *testing.T) {
	b := NewBuilder()
	pos := errlog.Position{Filename: "t", Line: 1, Column: 1}
	lit := b.AddConstant(value.NewInt(42))
	b.EmitOperand(OpVal, lit, pos)
	jmp := b.EmitJump(OpJmp, pos)
	b.PatchHere(jmp)
	b.Emit(OpHalt, pos)
	out := b.Finish().Disassemble()
	if !strings.Contains(out, "VAL") || !strings.Contains(out, "42") {
		t.Errorf("disassembly missing VAL/42: %s", out)
	}
	if !strings.Contains(out, "JMP") {
		t.Errorf("disassembly missing JMP: %s", out)
	}
}

func TestDefineBlockRecorded(t *testing.T) {
	b := NewBuilder()
	pos := errlog.Position{}
	start := b.Len()
	b.Emit(OpNoop, pos)
	end := b.Len()
	b.DefineBlock("body", start, end, -1)
	p := b.Finish()
	blk, ok := p.Blocks["body"]
	if !ok || blk.Start != start || blk.End != end {
		t.Errorf("block not recorded correctly: %+v", blk)
	}
}
