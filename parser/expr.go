package parser

import (
	"regexp"

	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/lexer"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/value"
)

// exprNode is the parsed expression AST, built bottom-up so constant
// folding (spec.md §4.2, §9 "{Folded(v), NeedsRuntime}") can run as a
// pure Go-side evaluation before anything is emitted to the Builder.
type exprNode interface {
	pos() errlog.Position
}

type litNode struct {
	at  errlog.Position
	val value.Value
}

func (n litNode) pos() errlog.Position { return n.at }

type pathNode struct {
	p pathExpr
}

func (n pathNode) pos() errlog.Position { return n.p.pos }

type unaryNode struct {
	op   program.Op
	x    exprNode
	opos errlog.Position
}

func (n unaryNode) pos() errlog.Position { return n.opos }

// binNode is a binary operator application. For shortCct != "", op is
// unused (emit/fold special-case "&&"/"||" before consulting op).
type binNode struct {
	op       program.Op
	l, r     exprNode
	shortCct string
	opos     errlog.Position
}

func (n binNode) pos() errlog.Position { return n.opos }

type ternaryNode struct {
	cond, t, f exprNode
	opos       errlog.Position
}

func (n ternaryNode) pos() errlog.Position { return n.opos }

type callNode struct {
	name string
	args []exprNode
	opos errlog.Position
}

func (n callNode) pos() errlog.Position { return n.opos }

// ParseExpr parses a complete expression from body (an expression
// fragment such as a `${...}` body or an `if` condition), starting at
// the given absolute source position, and emits its bytecode into b.
// It is the single entry point statement compilers use.
func ParseExpr(filename, body string, line, col int, log *errlog.Log, b *program.Builder) {
	ps := newParserState(filename, body, line, col, log, b)
	node := ps.parseTernary()
	ps.emit(node)
}

func (ps *parserState) parseTernary() exprNode {
	cond := ps.parseOr()
	if ps.c.isOp("?") {
		pos := ps.c.pos0()
		ps.c.advance()
		t := ps.parseTernary()
		ps.c.expectOp(":")
		f := ps.parseTernary()
		return ternaryNode{cond: cond, t: t, f: f, opos: pos}
	}
	return cond
}

func (ps *parserState) parseOr() exprNode {
	l := ps.parseAnd()
	for ps.c.isOp("||") {
		pos := ps.c.pos0()
		ps.c.advance()
		r := ps.parseAnd()
		l = binNode{l: l, r: r, shortCct: "||", opos: pos}
	}
	return l
}

func (ps *parserState) parseAnd() exprNode {
	l := ps.parseComparison()
	for ps.c.isOp("&&") {
		pos := ps.c.pos0()
		ps.c.advance()
		r := ps.parseComparison()
		l = binNode{l: l, r: r, shortCct: "&&", opos: pos}
	}
	return l
}

var comparisonOps = map[string]program.Op{
	"==": program.OpEq, "!=": program.OpNe,
	"<": program.OpLt, "<=": program.OpLe, ">": program.OpGt, ">=": program.OpGe,
	"=~": program.OpMatch, "!~": program.OpNotMatch,
}

func (ps *parserState) parseComparison() exprNode {
	l := ps.parseBitOr()
	for {
		t := ps.c.peek()
		if t.Kind != lexer.L2Op {
			return l
		}
		op, ok := comparisonOps[t.Text]
		if !ok {
			return l
		}
		pos := t.Pos
		ps.c.advance()
		r := ps.parseBitOr()
		l = binNode{op: op, l: l, r: r, opos: pos}
	}
}

func (ps *parserState) parseBitOr() exprNode {
	l := ps.parseBitXor()
	for ps.c.isOp("|") {
		pos := ps.c.pos0()
		ps.c.advance()
		r := ps.parseBitXor()
		l = binNode{op: program.OpBitOr, l: l, r: r, opos: pos}
	}
	return l
}

func (ps *parserState) parseBitXor() exprNode {
	l := ps.parseBitAnd()
	for ps.c.isOp("^") {
		pos := ps.c.pos0()
		ps.c.advance()
		r := ps.parseBitAnd()
		l = binNode{op: program.OpBitXor, l: l, r: r, opos: pos}
	}
	return l
}

func (ps *parserState) parseBitAnd() exprNode {
	l := ps.parseAdditive()
	for ps.c.isOp("&") {
		pos := ps.c.pos0()
		ps.c.advance()
		r := ps.parseAdditive()
		l = binNode{op: program.OpBitAnd, l: l, r: r, opos: pos}
	}
	return l
}

func (ps *parserState) parseAdditive() exprNode {
	l := ps.parseMultiplicative()
	for ps.c.isOp("+") || ps.c.isOp("-") {
		t := ps.c.advance()
		op := program.OpAdd
		if t.Text == "-" {
			op = program.OpSub
		}
		r := ps.parseMultiplicative()
		l = binNode{op: op, l: l, r: r, opos: t.Pos}
	}
	return l
}

var multiplicativeOps = map[string]program.Op{
	"*": program.OpMul, "/": program.OpDiv, "%": program.OpMod,
	"++": program.OpConcat, "**": program.OpRepeat,
}

func (ps *parserState) parseMultiplicative() exprNode {
	l := ps.parseUnary()
	for {
		t := ps.c.peek()
		if t.Kind != lexer.L2Op {
			return l
		}
		op, ok := multiplicativeOps[t.Text]
		if !ok {
			return l
		}
		ps.c.advance()
		r := ps.parseUnary()
		l = binNode{op: op, l: l, r: r, opos: t.Pos}
	}
}

func (ps *parserState) parseUnary() exprNode {
	t := ps.c.peek()
	if t.Kind == lexer.L2Op {
		switch t.Text {
		case "!":
			ps.c.advance()
			return unaryNode{op: program.OpNot, x: ps.parseUnary(), opos: t.Pos}
		case "-":
			ps.c.advance()
			return unaryNode{op: program.OpNeg, x: ps.parseUnary(), opos: t.Pos}
		case "+":
			ps.c.advance()
			return unaryNode{op: program.OpPos, x: ps.parseUnary(), opos: t.Pos}
		case "~":
			ps.c.advance()
			return unaryNode{op: program.OpBitNot, x: ps.parseUnary(), opos: t.Pos}
		}
	}
	return ps.parsePrimary()
}

func (ps *parserState) parsePrimary() exprNode {
	t := ps.c.peek()
	pos := t.Pos

	switch t.Kind {
	case lexer.L2Int:
		ps.c.advance()
		return litNode{at: pos, val: value.NewInt(t.IVal)}
	case lexer.L2Real:
		ps.c.advance()
		return litNode{at: pos, val: value.NewReal(t.RVal)}
	case lexer.L2String:
		ps.c.advance()
		return litNode{at: pos, val: value.NewString(t.Text)}
	}

	if ps.c.isOp("(") {
		ps.c.advance()
		inner := ps.parseTernary()
		ps.c.expectOp(")")
		return inner
	}

	if ps.c.isOp(".") || ps.c.isOp("$") || ps.c.isOp("$$") {
		if p, ok := ps.parsePath(); ok {
			return pathNode{p: p}
		}
	}

	if t.Kind == lexer.L2Ident {
		// Could be a function call `name(args)` or a bare path; look
		// ahead one token for `(` before committing to either parse.
		save := ps.c.pos
		ps.c.advance()
		if ps.c.isOp("(") {
			ps.c.advance()
			var args []exprNode
			if !ps.c.isOp(")") {
				args = append(args, ps.parseTernary())
				for ps.c.isOp(",") {
					ps.c.advance()
					args = append(args, ps.parseTernary())
				}
			}
			ps.c.expectOp(")")
			return callNode{name: t.Text, args: args, opos: pos}
		}
		ps.c.pos = save
		if p, ok := ps.parsePath(); ok {
			return pathNode{p: p}
		}
	}

	ps.log.Error(pos, "expected an expression")
	ps.c.advance()
	return litNode{at: pos, val: value.Undef}
}

// fold attempts compile-time constant evaluation (spec.md §4.2
// "Compile-time constant-folding"). Only pure arithmetic/logic/
// comparison operators over literal operands fold; variable paths and
// function calls never do (a path's value depends on the fragment
// tree supplied at render time, and purity of a UDF is not knowable
// here, so calls always compile as runtime CALLs).
func fold(n exprNode) (value.Value, bool) {
	switch v := n.(type) {
	case litNode:
		return v.val, true
	case unaryNode:
		x, ok := fold(v.x)
		if !ok {
			return value.Undef, false
		}
		switch v.op {
		case program.OpNot:
			return value.Not(x), true
		case program.OpNeg:
			r, err := value.Neg(x)
			return r, err == nil
		case program.OpPos:
			r, err := value.Pos(x)
			return r, err == nil
		case program.OpBitNot:
			r, err := value.BitNot(x)
			return r, err == nil
		}
		return value.Undef, false
	case binNode:
		if v.shortCct == "&&" {
			l, lok := fold(v.l)
			if !lok {
				return value.Undef, false
			}
			if !l.Bool() {
				return l, true
			}
			r, rok := fold(v.r)
			if !rok {
				return value.Undef, false
			}
			return r, true
		}
		if v.shortCct == "||" {
			l, lok := fold(v.l)
			if !lok {
				return value.Undef, false
			}
			if l.Bool() {
				return l, true
			}
			r, rok := fold(v.r)
			if !rok {
				return value.Undef, false
			}
			return r, true
		}
		l, lok := fold(v.l)
		r, rok := fold(v.r)
		if !lok || !rok {
			return value.Undef, false
		}
		return foldBin(v.op, l, r)
	case ternaryNode:
		c, ok := fold(v.cond)
		if !ok {
			return value.Undef, false
		}
		if c.Bool() {
			return fold(v.t)
		}
		return fold(v.f)
	default:
		return value.Undef, false
	}
}

func foldBin(op program.Op, l, r value.Value) (value.Value, bool) {
	switch op {
	case program.OpAdd:
		v, err := value.Add(l, r)
		return v, err == nil
	case program.OpSub:
		v, err := value.Sub(l, r)
		return v, err == nil
	case program.OpMul:
		v, err := value.Mul(l, r)
		return v, err == nil
	case program.OpDiv:
		v, err := value.Div(l, r)
		return v, err == nil
	case program.OpMod:
		v, err := value.Mod(l, r)
		return v, err == nil
	case program.OpConcat:
		return value.Concat(l, r), true
	case program.OpRepeat:
		v, err := value.Repeat(l, r)
		return v, err == nil
	case program.OpBitAnd:
		v, err := value.BitAnd(l, r)
		return v, err == nil
	case program.OpBitOr:
		v, err := value.BitOr(l, r)
		return v, err == nil
	case program.OpBitXor:
		v, err := value.BitXor(l, r)
		return v, err == nil
	case program.OpEq:
		return boolVal(value.Equal(l, r)), true
	case program.OpNe:
		return boolVal(!value.Equal(l, r)), true
	case program.OpStrEq:
		return boolVal(value.StrEqual(l, r)), true
	case program.OpStrNe:
		return boolVal(!value.StrEqual(l, r)), true
	case program.OpLt, program.OpLe, program.OpGt, program.OpGe:
		cmp, err := value.Compare(l, r)
		if err != nil {
			return value.Undef, false
		}
		switch op {
		case program.OpLt:
			return boolVal(cmp < 0), true
		case program.OpLe:
			return boolVal(cmp <= 0), true
		case program.OpGt:
			return boolVal(cmp > 0), true
		default:
			return boolVal(cmp >= 0), true
		}
	case program.OpMatch, program.OpNotMatch:
		re, err := regexp.Compile(r.String())
		if err != nil {
			return value.Undef, false
		}
		matched := re.MatchString(l.String())
		if op == program.OpNotMatch {
			matched = !matched
		}
		return boolVal(matched), true
	}
	return value.Undef, false
}

func boolVal(b bool) value.Value { return value.FromBool(b) }

// emit compiles node into ps.b, folding constant subtrees into a
// single VAL instruction where possible.
func (ps *parserState) emit(n exprNode) {
	if v, ok := fold(n); ok {
		ps.b.EmitOperand(program.OpVal, ps.b.AddConstant(v), n.pos())
		return
	}
	switch v := n.(type) {
	case litNode:
		ps.b.EmitOperand(program.OpVal, ps.b.AddConstant(v.val), v.pos())
	case pathNode:
		ps.emitPath(v.p)
	case unaryNode:
		ps.emit(v.x)
		ps.b.Emit(v.op, v.opos)
	case binNode:
		ps.emitBin(v)
	case ternaryNode:
		ps.emit(v.cond)
		jelse := ps.b.EmitJump(program.OpJmpIfNot, v.opos)
		ps.emit(v.t)
		jend := ps.b.EmitJump(program.OpJmp, v.opos)
		ps.b.PatchHere(jelse)
		ps.emit(v.f)
		ps.b.PatchHere(jend)
	case callNode:
		for _, a := range v.args {
			ps.emit(a)
		}
		nameIdx := ps.b.AddConstant(value.NewString(v.name))
		ps.b.EmitCall(nameIdx, len(v.args), v.opos)
	}
}

func (ps *parserState) emitBin(v binNode) {
	if v.shortCct == "&&" {
		ps.emit(v.l)
		jf := ps.b.EmitJump(program.OpJmpIfFalse, v.opos)
		ps.b.Emit(program.OpPop, v.opos)
		ps.emit(v.r)
		ps.b.PatchHere(jf)
		return
	}
	if v.shortCct == "||" {
		ps.emit(v.l)
		jt := ps.b.EmitJump(program.OpJmpIfTrue, v.opos)
		ps.b.Emit(program.OpPop, v.opos)
		ps.emit(v.r)
		ps.b.PatchHere(jt)
		return
	}
	ps.emit(v.l)
	ps.emit(v.r)
	ps.b.Emit(v.op, v.opos)
}

// emitPath compiles a variable reference: runtime index
// sub-expressions are pushed left-to-right before VAR, and Arg2
// records how many the VM must pop (in reverse order) to fill in
// Segment.IndexValue before calling fragment.Resolve.
func (ps *parserState) emitPath(p pathExpr) {
	for _, idx := range p.indexExprs {
		ps.emit(idx)
	}
	pathIdx := ps.b.AddPath(p.path)
	ps.b.EmitVar(pathIdx, len(p.indexExprs), p.pos)
}
