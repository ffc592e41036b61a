package vm

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/program"
)

// execFragOpen resolves the path named by the instruction and opens a
// new frame over it (spec.md §4.5 `for`/`if exists` fragment bodies).
// A value.FragRef (single fragment) is wrapped as a one-element list,
// mirroring the convention already used for the tree root (spec.md §3:
// "the root fragment is a single-element list for indexing purposes").
func (p *Processor) execFragOpen(in program.Instruction, pos errlog.Position) {
	path := p.fillPath(in.Operand, in.Arg2)
	name := pathName(path)
	v := fragment.Resolve(p.stack, path, p.log, pos)

	if lr, ok := v.FragListRef(); ok {
		if list, ok := lr.(*fragment.List); ok {
			p.stack.Open(name, list)
			return
		}
	}
	if fr, ok := v.FragRef(); ok {
		if f, ok := fr.(*fragment.Fragment); ok {
			p.stack.Open(name, fragment.NewList(f))
			return
		}
	}
	p.stack.Open(name, fragment.NewList())
}

func pathName(path fragment.Path) string {
	if len(path.Segments) == 0 {
		return ""
	}
	return path.Segments[len(path.Segments)-1].Name
}
