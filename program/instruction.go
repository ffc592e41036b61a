package program

import "github.com/gotengo/teng/errlog"

// Instruction is one bytecode instruction: an opcode plus a small
// payload union. Which field is meaningful depends on Op; see the
// comments on each Op constant. Every instruction carries the source
// position it was compiled from, used to tag runtime diagnostics.
//
// spec.md §9 suggests a packed 8-bit-opcode/64-bit-operand encoding
// with a parallel position array; this keeps the struct-of-instructions
// shape instead (simpler, and the instruction count for a template is
// never large enough for the packing to matter) while still keeping
// positions out of the hot arithmetic fields by holding only an index
// into Program.positions.
type Instruction struct {
	Op      Op
	Operand int   // literal pool index, or variable-path index, depending on Op
	Arg2    int   // secondary small integer argument (CALL argc; VAR/SET/FRAG_OPEN runtime index count)
	Jump    int   // absolute instruction index, for JMP/JMP_IF_NOT/FRAG_ITER/DEFINE_BLOCK/SUPER (-1 = unused/fallthrough)
	PosIdx  int   // index into Program.Positions
}

// Pos returns the source position this instruction was compiled from.
func (in Instruction) Pos(p *Program) errlog.Position {
	if in.PosIdx < 0 || in.PosIdx >= len(p.Positions) {
		return errlog.Position{}
	}
	return p.Positions[in.PosIdx]
}
