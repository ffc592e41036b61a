package fragment

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/value"
)

// SegmentKind classifies one element of a variable path (spec.md §4.2, §4.4).
type SegmentKind uint8

const (
	SegName SegmentKind = iota
	SegThis
	SegParent
	SegIndex // name[expr]; only valid in a runtime path
)

// Segment is one path element. For SegIndex, Name identifies the
// list/fragment being indexed and IndexValue is the already-evaluated
// subscript (integer or string).
type Segment struct {
	Kind       SegmentKind
	Name       string
	IndexValue value.Value
}

// Path is a parsed variable reference: absolute paths start at the
// tree root, relative ones search outward from the top frame.
type Path struct {
	Absolute bool
	Segments []Segment
}

var builtinNames = map[string]bool{
	"_first": true, "_last": true, "_inner": true, "_index": true, "_count": true,
}

// position tracks where path resolution currently stands: either tied
// to an open stack frame (frameIdx >= 0, iterating frag) or detached
// (frameIdx == -1) after stepping into a fragment reached without an
// open frame (e.g. a singleton list auto-opened implicitly, or a plain
// frag_ref child).
type position struct {
	frameIdx int
	frag     *Fragment
}

// Resolve walks path against stack, returning the terminal Value.
// Any WARNING/ERROR implied by spec.md §4.4 is appended to log at pos.
func Resolve(stack *Stack, path Path, log *errlog.Log, pos errlog.Position) value.Value {
	pw := startPosition(stack, path, log, pos)
	if pw == nil {
		return value.Undef
	}
	cur := *pw

	for i, seg := range path.Segments {
		last := i == len(path.Segments)-1
		switch seg.Kind {
		case SegThis:
			if last {
				log.Warning(pos, "identifier is reserved")
				if cur.frag != nil {
					return value.NewFragRef(cur.frag)
				}
				return value.Undef
			}
			log.Warning(pos, "ignoring useless _this")
			// no-op: stay at current position
		case SegParent:
			cur = stepParent(stack, cur, log, pos)
			if last {
				if cur.frag != nil {
					return value.NewFragRef(cur.frag)
				}
				return value.Undef
			}
		case SegName:
			if builtinNames[seg.Name] {
				return resolveBuiltin(stack, cur, seg.Name, log, pos)
			}
			nextCur, v, ok := stepName(stack, cur, seg.Name, log, pos)
			if !ok {
				return value.Undef
			}
			if last {
				return v
			}
			cur = nextCur
		case SegIndex:
			v, ok := stepIndex(cur, seg, log, pos)
			if !ok {
				return value.Undef
			}
			if last {
				return v
			}
			if fr, ok := v.FragRef(); ok {
				if f, ok2 := fr.(*Fragment); ok2 {
					cur = position{frameIdx: -1, frag: f}
					continue
				}
			}
			log.Warning(pos, "cannot descend into non-fragment value")
			return value.Undef
		}
	}

	if cur.frag != nil {
		return value.NewFragRef(cur.frag)
	}
	return value.Undef
}

// startPosition finds the initial position: root frame for absolute
// paths, or the deepest frame outward from the top whose current
// fragment has a child keyed by the first Name segment.
func startPosition(stack *Stack, path Path, log *errlog.Log, pos errlog.Position) *position {
	if path.Absolute {
		root := stack.RootFrame()
		return &position{frameIdx: 0, frag: root.Current()}
	}
	if len(path.Segments) == 0 {
		return &position{frameIdx: stack.Depth() - 1, frag: stack.Top().Current()}
	}
	first := path.Segments[0]
	if first.Kind != SegName {
		// paths starting with _this/_parent/index resolve from the top frame
		return &position{frameIdx: stack.Depth() - 1, frag: stack.Top().Current()}
	}
	for d := stack.Depth() - 1; d >= 0; d-- {
		fr := stack.FrameAt(d)
		cf := fr.Current()
		if cf == nil {
			continue
		}
		if _, ok := cf.Get(first.Name); ok {
			return &position{frameIdx: d, frag: cf}
		}
	}
	// not found anywhere outward: resolve against the top frame so the
	// caller gets a normal "undefined" rather than a silent miss
	return &position{frameIdx: stack.Depth() - 1, frag: stack.Top().Current()}
}

func stepParent(stack *Stack, cur position, log *errlog.Log, pos errlog.Position) position {
	if cur.frameIdx < 0 {
		// spec.md §9 Open Question (b): _parent on a non-list frag-ref
		// value warns and clamps, matching the source's behavior.
		log.Warning(pos, "_parent violates the root boundary")
		return cur
	}
	if cur.frameIdx == 0 {
		log.Warning(pos, "_parent violates the root boundary")
		return cur
	}
	nf := cur.frameIdx - 1
	return position{frameIdx: nf, frag: stack.FrameAt(nf).Current()}
}

func stepName(stack *Stack, cur position, name string, log *errlog.Log, pos errlog.Position) (position, value.Value, bool) {
	if cur.frag == nil {
		log.Warning(pos, "variable %q is undefined", name)
		return position{}, value.Undef, false
	}
	v, ok := cur.frag.Get(name)
	if !ok {
		log.Warning(pos, "variable %q is undefined", name)
		return position{}, value.Undef, false
	}
	if lr, ok := v.FragListRef(); ok {
		list, _ := lr.(*List)
		if openFrame, idx := findOpenFrame(stack, list); openFrame != nil {
			f := openFrame.Current()
			return position{frameIdx: idx, frag: f}, v, true
		}
		if list.Len() == 1 {
			return position{frameIdx: -1, frag: list.At(0)}, v, true
		}
		log.Warning(pos, "variable %q is a list with no open iteration", name)
		return position{}, value.Undef, false
	}
	if fr, ok := v.FragRef(); ok {
		f, _ := fr.(*Fragment)
		return position{frameIdx: -1, frag: f}, v, true
	}
	return position{}, v, true
}

func findOpenFrame(stack *Stack, list *List) (*Frame, int) {
	for d := stack.Depth() - 1; d >= 1; d-- {
		fr := stack.FrameAt(d)
		if fr.list == list {
			return fr, d
		}
	}
	return nil, -1
}

func stepIndex(cur position, seg Segment, log *errlog.Log, pos errlog.Position) (value.Value, bool) {
	if cur.frag == nil {
		log.Warning(pos, "variable %q is undefined", seg.Name)
		return value.Undef, false
	}
	base, ok := cur.frag.Get(seg.Name)
	if !ok {
		log.Warning(pos, "variable %q is undefined", seg.Name)
		return value.Undef, false
	}
	if seg.IndexValue.Kind() == value.String || seg.IndexValue.Kind() == value.StringRef {
		if fr, ok := base.FragRef(); ok {
			f, _ := fr.(*Fragment)
			child, ok := f.Get(seg.IndexValue.String())
			if !ok {
				log.Warning(pos, "variable %q is undefined", seg.IndexValue.String())
				return value.Undef, false
			}
			return child, true
		}
		log.Warning(pos, "string index only valid on a fragment reference")
		return value.Undef, false
	}
	idx, ok := seg.IndexValue.ToInt()
	if !ok {
		log.Warning(pos, "index expression is not numeric")
		return value.Undef, false
	}
	lr, ok := base.FragListRef()
	if !ok {
		log.Warning(pos, "variable %q is not a list", seg.Name)
		return value.Undef, false
	}
	list, _ := lr.(*List)
	if idx < 0 || int(idx) >= list.Len() {
		log.Warning(pos, "index %d out of range for %q", idx, seg.Name)
		return value.Undef, false
	}
	return value.NewFragRef(list.At(int(idx))), true
}

// resolveBuiltin computes one of _first/_last/_inner/_index/_count
// from the nearest frame tied to cur. Builtins are undefined unless
// the containing node is a concrete fragment inside a list with an
// open iteration (spec.md §4.2).
func resolveBuiltin(stack *Stack, cur position, name string, log *errlog.Log, pos errlog.Position) value.Value {
	if cur.frameIdx < 0 || cur.frameIdx >= stack.Depth() {
		log.Warning(pos, "%s is undefined outside an open fragment list", name)
		return value.Undef
	}
	fr := stack.FrameAt(cur.frameIdx)
	switch name {
	case "_first":
		return boolValue(fr.First())
	case "_last":
		return boolValue(fr.Last())
	case "_inner":
		return boolValue(fr.Inner())
	case "_index":
		return value.NewInt(int64(fr.Index()))
	case "_count":
		return value.NewInt(int64(fr.Count()))
	default:
		return value.Undef
	}
}

func boolValue(b bool) value.Value {
	if b {
		return value.NewInt(1)
	}
	return value.NewInt(0)
}
