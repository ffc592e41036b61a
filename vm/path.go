package vm

import "github.com/gotengo/teng/fragment"

// fillPath returns the pathIdx'th pooled Path, with a fresh copy of
// its Segments slice carrying any runtime `name[expr]` index values
// popped off the operand stack. Paths live in Program.Paths, a pool
// built once and shared read-only across concurrent renders, so a
// SegIndex segment's IndexValue can never be written into the pooled
// slice in place - every fill allocates its own Segments copy.
//
// The nIndex index expressions were pushed left-to-right by the
// compiler, so they come off the stack in reverse; collecting them in
// pop order and then assigning back-to-front restores the original
// order.
func (p *Processor) fillPath(pathIdx, nIndex int) fragment.Path {
	src := p.prog.Path(pathIdx)
	if nIndex == 0 {
		return src
	}
	vals := make([]indexVal, 0, nIndex)
	segs := make([]fragment.Segment, len(src.Segments))
	copy(segs, src.Segments)

	for i := len(segs) - 1; i >= 0 && len(vals) < nIndex; i-- {
		if segs[i].Kind == fragment.SegIndex {
			vals = append(vals, indexVal{pos: i})
		}
	}
	// vals is now in reverse (rightmost index segment first), matching
	// stack pop order.
	for _, iv := range vals {
		segs[iv.pos].IndexValue = p.pop()
	}
	return fragment.Path{Absolute: src.Absolute, Segments: segs}
}

type indexVal struct {
	pos int
}
