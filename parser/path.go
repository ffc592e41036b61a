package parser

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/lexer"
)

// pathExpr is a parsed variable reference, still carrying the
// unevaluated index sub-expressions (if any) needed to fill in
// fragment.Segment.IndexValue at runtime (spec.md §4.2 "Runtime"
// variable syntax, §4.4 segment kinds).
type pathExpr struct {
	path          fragment.Path
	runtimeMarked bool // `$`/`$$` prefix was present in source
	indexExprs    []exprNode
	pos           errlog.Position
}

func (p pathExpr) hasIndex() bool { return len(p.indexExprs) > 0 }

// parsePath parses a variable reference starting at the cursor, which
// must be positioned on `.`, `$`, `$$`, or an identifier. Returns
// false if the cursor isn't at a path start.
func (ps *parserState) parsePath() (pathExpr, bool) {
	pos := ps.c.pos0()
	runtimeMarked := false
	if ps.c.isOp("$$") || ps.c.isOp("$") {
		runtimeMarked = true
		ps.c.advance()
	}

	absolute := false
	if ps.c.isOp(".") {
		absolute = true
		ps.c.advance()
	}

	if ps.c.peek().Kind != lexer.L2Ident {
		return pathExpr{}, false
	}

	pe := pathExpr{path: fragment.Path{Absolute: absolute}, runtimeMarked: runtimeMarked, pos: pos}
	for {
		tok := ps.c.advance()
		name := tok.Text
		switch name {
		case "_this":
			pe.path.Segments = append(pe.path.Segments, fragment.Segment{Kind: fragment.SegThis})
		case "_parent":
			pe.path.Segments = append(pe.path.Segments, fragment.Segment{Kind: fragment.SegParent})
		default:
			if ps.c.isOp("[") {
				ps.c.advance()
				idx := ps.parseTernary()
				ps.c.expectOp("]")
				pe.path.Segments = append(pe.path.Segments, fragment.Segment{Kind: fragment.SegIndex, Name: name})
				pe.indexExprs = append(pe.indexExprs, idx)
			} else {
				pe.path.Segments = append(pe.path.Segments, fragment.Segment{Kind: fragment.SegName, Name: name})
			}
		}
		if ps.c.isOp(".") && ps.peekIdentAfterDot() {
			ps.c.advance()
			continue
		}
		break
	}

	if pe.runtimeMarked && !pe.hasIndex() {
		ps.log.Warning(pos, "runtime variable is useless")
	}
	return pe, true
}

// peekIdentAfterDot reports whether the token after a `.` operator is
// an identifier, distinguishing a path continuation (`a.b`) from the
// end of the path (e.g. `a.` would never occur in valid source, but
// guards against consuming a dot that belongs to something else).
func (ps *parserState) peekIdentAfterDot() bool {
	save := ps.c.pos
	ps.c.advance()
	ok := ps.c.peek().Kind == lexer.L2Ident
	ps.c.pos = save
	return ok
}
