package value

import (
	"math"
	"strings"
)

// binOp implements the ADD/SUB/MUL/DIV/MOD/bitwise instruction family.
// Integer/real mixing promotes to real; a string operand that fails to
// coerce yields Undef plus a reported TypeMismatch (the caller logs the
// WARNING, this package stays side-effect free).
func binOp(op string, a, b Value, ifn func(int64, int64) (int64, bool), ffn func(float64, float64) float64) (Value, error) {
	aIsReal, ai, ar, aok := a.numeric()
	bIsReal, bi, br, bok := b.numeric()
	if !aok || !bok {
		return Undef, &TypeMismatch{Op: op, Left: a.kind, Right: b.kind}
	}
	if aIsReal || bIsReal || ifn == nil {
		if !aIsReal {
			ar = float64(ai)
		}
		if !bIsReal {
			br = float64(bi)
		}
		return NewReal(ffn(ar, br)), nil
	}
	r, ok := ifn(ai, bi)
	if !ok {
		return Undef, &TypeMismatch{Op: op, Left: a.kind, Right: b.kind}
	}
	return NewInt(r), nil
}

// Add implements ADD: numeric addition, wrapping on integer overflow.
func Add(a, b Value) (Value, error) {
	return binOp("+", a, b, func(x, y int64) (int64, bool) { return x + y, true }, func(x, y float64) float64 { return x + y })
}

func Sub(a, b Value) (Value, error) {
	return binOp("-", a, b, func(x, y int64) (int64, bool) { return x - y, true }, func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value) (Value, error) {
	return binOp("*", a, b, func(x, y int64) (int64, bool) { return x * y, true }, func(x, y float64) float64 { return x * y })
}

// Div implements DIV. Division by zero is an ERROR-level condition;
// the caller is expected to log ERROR and substitute Undef. Integer
// division by a real promotes, real division by zero yields +/-Inf
// per IEEE-754 and is left to the caller to flag.
func Div(a, b Value) (Value, error) {
	aIsReal, ai, ar, aok := a.numeric()
	bIsReal, bi, br, bok := b.numeric()
	if !aok || !bok {
		return Undef, &TypeMismatch{Op: "/", Left: a.kind, Right: b.kind}
	}
	if !aIsReal && !bIsReal {
		if bi == 0 {
			return Undef, &DivByZero{}
		}
		if ai%bi == 0 {
			return NewInt(ai / bi), nil
		}
		return NewReal(float64(ai) / float64(bi)), nil
	}
	if !aIsReal {
		ar = float64(ai)
	}
	if !bIsReal {
		br = float64(bi)
	}
	if br == 0 {
		return Undef, &DivByZero{}
	}
	return NewReal(ar / br), nil
}

// Mod implements MOD; modulo by zero is an ERROR.
func Mod(a, b Value) (Value, error) {
	aIsReal, ai, ar, aok := a.numeric()
	bIsReal, bi, br, bok := b.numeric()
	if !aok || !bok {
		return Undef, &TypeMismatch{Op: "%", Left: a.kind, Right: b.kind}
	}
	if !aIsReal && !bIsReal {
		if bi == 0 {
			return Undef, &DivByZero{}
		}
		return NewInt(ai % bi), nil
	}
	if !aIsReal {
		ar = float64(ai)
	}
	if !bIsReal {
		br = float64(bi)
	}
	if br == 0 {
		return Undef, &DivByZero{}
	}
	return NewReal(math.Mod(ar, br)), nil
}

// DivByZero signals ERROR-level division/modulo by zero.
type DivByZero struct{}

func (*DivByZero) Error() string { return "division or modulo by zero" }

func bitOp(op string, a, b Value, fn func(int64, int64) int64) (Value, error) {
	ai, aok := a.ToInt()
	bi, bok := b.ToInt()
	if !aok || !bok {
		return Undef, &TypeMismatch{Op: op, Left: a.kind, Right: b.kind}
	}
	return NewInt(fn(ai, bi)), nil
}

func BitAnd(a, b Value) (Value, error) { return bitOp("&", a, b, func(x, y int64) int64 { return x & y }) }
func BitOr(a, b Value) (Value, error)  { return bitOp("|", a, b, func(x, y int64) int64 { return x | y }) }
func BitXor(a, b Value) (Value, error) { return bitOp("^", a, b, func(x, y int64) int64 { return x ^ y }) }

func BitNot(a Value) (Value, error) {
	i, ok := a.ToInt()
	if !ok {
		return Undef, &TypeMismatch{Op: "~", Left: a.kind}
	}
	return NewInt(^i), nil
}

func Neg(a Value) (Value, error) {
	isReal, i, r, ok := a.numeric()
	if !ok {
		return Undef, &TypeMismatch{Op: "-", Left: a.kind}
	}
	if isReal {
		return NewReal(-r), nil
	}
	return NewInt(-i), nil
}

func Pos(a Value) (Value, error) {
	isReal, i, r, ok := a.numeric()
	if !ok {
		return Undef, &TypeMismatch{Op: "+", Left: a.kind}
	}
	if isReal {
		return NewReal(r), nil
	}
	return NewInt(i), nil
}

func Not(a Value) Value {
	if a.Bool() {
		return NewInt(0)
	}
	return NewInt(1)
}

// Concat implements the "++" string concatenation operator.
func Concat(a, b Value) Value {
	return NewString(a.String() + b.String())
}

// Repeat implements the "**" string repeat operator: s ** n.
func Repeat(a, b Value) (Value, error) {
	n, ok := b.ToInt()
	if !ok || n < 0 {
		return Undef, &TypeMismatch{Op: "**", Left: a.kind, Right: b.kind}
	}
	return NewString(strings.Repeat(a.String(), int(n))), nil
}

// Compare returns -1/0/1 for LT/EQ/GT comparisons on numeric operands,
// promoting per the rules documented on Add. Used by LT/LE/GT/GE.
func Compare(a, b Value) (int, error) {
	aIsReal, ai, ar, aok := a.numeric()
	bIsReal, bi, br, bok := b.numeric()
	if !aok || !bok {
		return 0, &TypeMismatch{Op: "<=>", Left: a.kind, Right: b.kind}
	}
	if aIsReal || bIsReal {
		if !aIsReal {
			ar = float64(ai)
		}
		if !bIsReal {
			br = float64(bi)
		}
		switch {
		case ar < br:
			return -1, nil
		case ar > br:
			return 1, nil
		default:
			return 0, nil
		}
	}
	switch {
	case ai < bi:
		return -1, nil
	case ai > bi:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal implements ==/!= cross-type rules: if either side fails
// numeric coercion, fall back to string equality.
func Equal(a, b Value) bool {
	if a.kind == b.kind {
		switch a.kind {
		case Undefined:
			return true
		case Int:
			return a.i == b.i
		case Real:
			return a.r == b.r
		case String, StringRef:
			return a.s == b.s
		}
	}
	if cmp, err := Compare(a, b); err == nil {
		return cmp == 0
	}
	return a.String() == b.String()
}

// StrEqual implements STR_EQ, always a string comparison; STR_NE is its
// negation at the call site.
func StrEqual(a, b Value) bool { return a.String() == b.String() }
