package vm

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/value"
)

// warnUndef logs a WARNING at pos for err and substitutes Undef, the
// uniform runtime-error policy for every arithmetic/comparison/match
// failure (spec.md §4.3, §7: "runtime errors log and continue").
func (p *Processor) warnUndef(pos errlog.Position, err error) value.Value {
	if _, ok := err.(*value.DivByZero); ok {
		p.log.Error(pos, "%s", err)
	} else {
		p.log.Warning(pos, "%s", err)
	}
	return value.Undef
}

// binArith dispatches the ADD..REPEAT opcode family. Operands are
// popped right-then-left to match push order (b was pushed last).
func (p *Processor) binArith(op program.Op, pos errlog.Position) {
	b := p.pop()
	a := p.pop()
	var v value.Value
	var err error
	switch op {
	case program.OpAdd:
		v, err = value.Add(a, b)
	case program.OpSub:
		v, err = value.Sub(a, b)
	case program.OpMul:
		v, err = value.Mul(a, b)
	case program.OpDiv:
		v, err = value.Div(a, b)
	case program.OpMod:
		v, err = value.Mod(a, b)
	case program.OpBitAnd:
		v, err = value.BitAnd(a, b)
	case program.OpBitOr:
		v, err = value.BitOr(a, b)
	case program.OpBitXor:
		v, err = value.BitXor(a, b)
	case program.OpConcat:
		v = value.Concat(a, b)
	case program.OpRepeat:
		v, err = value.Repeat(a, b)
	}
	if err != nil {
		v = p.warnUndef(pos, err)
	}
	p.push(v)
}

func (p *Processor) unary(op program.Op, pos errlog.Position) {
	a := p.pop()
	var v value.Value
	var err error
	switch op {
	case program.OpNeg:
		v, err = value.Neg(a)
	case program.OpPos:
		v, err = value.Pos(a)
	case program.OpBitNot:
		v, err = value.BitNot(a)
	case program.OpNot:
		v = value.Not(a)
	}
	if err != nil {
		v = p.warnUndef(pos, err)
	}
	p.push(v)
}

func (p *Processor) compare(op program.Op, pos errlog.Position) {
	b := p.pop()
	a := p.pop()
	var result bool
	switch op {
	case program.OpEq:
		result = value.Equal(a, b)
		p.push(value.FromBool(result))
		return
	case program.OpNe:
		result = value.Equal(a, b)
		p.push(value.FromBool(!result))
		return
	case program.OpStrEq:
		p.push(value.FromBool(value.StrEqual(a, b)))
		return
	case program.OpStrNe:
		p.push(value.FromBool(!value.StrEqual(a, b)))
		return
	}
	cmp, err := value.Compare(a, b)
	if err != nil {
		p.push(p.warnUndef(pos, err))
		return
	}
	switch op {
	case program.OpLt:
		result = cmp < 0
	case program.OpLe:
		result = cmp <= 0
	case program.OpGt:
		result = cmp > 0
	case program.OpGe:
		result = cmp >= 0
	}
	p.push(value.FromBool(result))
}
