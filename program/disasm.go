package program

import (
	"fmt"
	"strings"
)

// Disassemble renders a Program as a human-readable instruction
// listing, used by the `<?teng bytecode?>` directive (BYTECODE_FRAG).
func (p *Program) Disassemble() string {
	var b strings.Builder
	for i, in := range p.Instructions {
		fmt.Fprintf(&b, "%4d  %-14s", i, in.Op)
		switch in.Op {
		case OpVal:
			fmt.Fprintf(&b, "lit[%d]=%s", in.Operand, p.Literal(in.Operand).String())
		case OpVar, OpSet:
			fmt.Fprintf(&b, "path[%d]", in.Operand)
		case OpJmp, OpJmpIfNot, OpJmpIfTrue, OpJmpIfFalse, OpFragIter:
			fmt.Fprintf(&b, "-> %d", in.Jump)
		case OpCall:
			fmt.Fprintf(&b, "udf[%d] argc=%d", in.Operand, in.Arg2)
		case OpFragOpen:
			fmt.Fprintf(&b, "path[%d]", in.Operand)
		case OpCtypePush:
			fmt.Fprintf(&b, "lit[%d]", in.Operand)
		case OpFormatPush:
			fmt.Fprintf(&b, "mode=%d", in.Operand)
		case OpPrint:
			fmt.Fprintf(&b, "escape=%v", in.Operand != 0)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
