package fragment

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/value"
)

// Assign walks path the same way Resolve does, but stops one segment
// short and overwrites the named child of whatever fragment it lands
// on (spec.md §4.2 `set <lvalue> = <expr>`). Only a plain name as the
// terminal segment is a valid assignment target; `_this`/`_parent`/
// `name[expr]` in terminal position log a WARNING and are no-ops,
// since Teng's data model has no addressable slot for "the current
// fragment itself" or "the n-th element of a list" to be overwritten
// through.
func Assign(stack *Stack, path Path, v value.Value, log *errlog.Log, pos errlog.Position) {
	if len(path.Segments) == 0 {
		log.Warning(pos, "cannot assign: empty lvalue")
		return
	}
	pw := startPosition(stack, path, log, pos)
	if pw == nil {
		return
	}
	cur := *pw

	for _, seg := range path.Segments[:len(path.Segments)-1] {
		switch seg.Kind {
		case SegThis:
			log.Warning(pos, "ignoring useless _this")
		case SegParent:
			cur = stepParent(stack, cur, log, pos)
		case SegName:
			if builtinNames[seg.Name] {
				log.Warning(pos, "cannot assign through builtin %q", seg.Name)
				return
			}
			nextCur, _, ok := stepName(stack, cur, seg.Name, log, pos)
			if !ok {
				return
			}
			cur = nextCur
		case SegIndex:
			val, ok := stepIndex(cur, seg, log, pos)
			if !ok {
				return
			}
			fr, ok := val.FragRef()
			f, ok2 := fr.(*Fragment)
			if !ok || !ok2 {
				log.Warning(pos, "cannot descend into non-fragment value")
				return
			}
			cur = position{frameIdx: -1, frag: f}
		}
	}

	last := path.Segments[len(path.Segments)-1]
	switch last.Kind {
	case SegName:
		if cur.frag == nil {
			log.Warning(pos, "cannot assign %q: no enclosing fragment", last.Name)
			return
		}
		if builtinNames[last.Name] {
			log.Warning(pos, "cannot assign to builtin positional variable %q", last.Name)
			return
		}
		cur.frag.Put(last.Name, v)
	default:
		log.Warning(pos, "lvalue must be a plain variable name")
	}
}
