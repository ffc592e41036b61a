// Package value implements Teng's tagged value type: the single
// dynamic type that flows through the lexer, parser and VM.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which alternative of the tagged union is active.
// The set is closed: every Value is exactly one of these kinds.
type Kind uint8

const (
	Undefined Kind = iota
	Int
	Real
	String
	StringRef
	FragRef
	FragListRef
	Regex
)

func (k Kind) String() string {
	switch k {
	case Undefined:
		return "undefined"
	case Int:
		return "integer"
	case Real:
		return "real"
	case String:
		return "string"
	case StringRef:
		return "string_ref"
	case FragRef:
		return "frag_ref"
	case FragListRef:
		return "frag_list_ref"
	case Regex:
		return "regex"
	default:
		return "unknown"
	}
}

// FragRefHolder is implemented by fragment.Fragment so that Value can
// carry a fragment reference without importing package fragment
// (which itself depends on package value for stored child values).
type FragRefHolder interface {
	IsFragRef()
}

// FragListRefHolder is implemented by fragment.List.
type FragListRefHolder interface {
	IsFragListRef()
}

// RegexValue holds a pattern's source text (not a compiled regexp)
// plus the raw flags the template source specified, e.g. /foo/i.
type RegexValue struct {
	Pattern string
	Flags   string
}

// Value is the tagged union described in spec.md §3. Zero value is Undefined.
type Value struct {
	kind Kind
	i    int64
	r    float64
	s    string
	ref  any // FragRefHolder, FragListRefHolder, or *RegexValue
}

// Undef is the shared undefined value.
var Undef = Value{kind: Undefined}

// FromBool renders a boolean result as Teng's 1/0 integer convention
// (spec.md §3: there is no dedicated boolean kind).
func FromBool(b bool) Value {
	if b {
		return Value{kind: Int, i: 1}
	}
	return Value{kind: Int, i: 0}
}

func NewInt(i int64) Value     { return Value{kind: Int, i: i} }
func NewReal(r float64) Value  { return Value{kind: Real, r: r} }
func NewString(s string) Value { return Value{kind: String, s: s} }

// NewStringRef wraps a string that is borrowed from the dictionary or
// literal pool rather than freshly allocated. It behaves identically to
// NewString for all operations; the distinction exists so the compiler
// can avoid copying literal-pool text.
func NewStringRef(s string) Value { return Value{kind: StringRef, s: s} }

func NewFragRef(f FragRefHolder) Value         { return Value{kind: FragRef, ref: f} }
func NewFragListRef(l FragListRefHolder) Value { return Value{kind: FragListRef, ref: l} }

func NewRegex(pattern, flags string) Value {
	return Value{kind: Regex, ref: &RegexValue{Pattern: pattern, Flags: flags}}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == Undefined }

// FragRef returns the held fragment reference, if any.
func (v Value) FragRef() (FragRefHolder, bool) {
	if v.kind != FragRef {
		return nil, false
	}
	f, ok := v.ref.(FragRefHolder)
	return f, ok
}

// FragListRef returns the held fragment-list reference, if any.
func (v Value) FragListRef() (FragListRefHolder, bool) {
	if v.kind != FragListRef {
		return nil, false
	}
	l, ok := v.ref.(FragListRefHolder)
	return l, ok
}

// AsRegex returns the regex payload, if this Value holds one.
func (v Value) AsRegex() (*RegexValue, bool) {
	if v.kind != Regex {
		return nil, false
	}
	r, ok := v.ref.(*RegexValue)
	return r, ok
}

// Bool derives a boolean per spec.md §3: 0, 0.0, empty string and
// undefined are false; everything else, including frag/list refs and
// regexes, is true.
func (v Value) Bool() bool {
	switch v.kind {
	case Undefined:
		return false
	case Int:
		return v.i != 0
	case Real:
		return v.r != 0
	case String, StringRef:
		return v.s != ""
	default:
		return true
	}
}

// numeric attempts to read this value as a number, returning ok=false
// without a side effect when the value cannot be coerced (spec.md §3:
// string<->number coercions only succeed on a full parse).
func (v Value) numeric() (isReal bool, i int64, r float64, ok bool) {
	switch v.kind {
	case Int:
		return false, v.i, 0, true
	case Real:
		return true, 0, v.r, true
	case String, StringRef:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return false, 0, 0, false
		}
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return false, n, 0, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return true, 0, f, true
		}
		return false, 0, 0, false
	default:
		return false, 0, 0, false
	}
}

// ToInt coerces to an integer. ok is false (and the error string
// callers should WARNING-log is implicit) when the value cannot be
// parsed as a full integer or real.
func (v Value) ToInt() (int64, bool) {
	isReal, i, r, ok := v.numeric()
	if !ok {
		return 0, false
	}
	if isReal {
		return int64(r), true
	}
	return i, true
}

// ToReal coerces to a floating point number.
func (v Value) ToReal() (float64, bool) {
	isReal, i, r, ok := v.numeric()
	if !ok {
		return 0, false
	}
	if isReal {
		return r, true
	}
	return float64(i), true
}

// String renders the value for printing/concatenation. Undefined
// prints as the literal string "undefined" per spec.md §7.
func (v Value) String() string {
	switch v.kind {
	case Undefined:
		return "undefined"
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Real:
		return formatReal(v.r)
	case String, StringRef:
		return v.s
	case FragRef:
		return "$frag"
	case FragListRef:
		return "$fraglist"
	case Regex:
		re, _ := v.AsRegex()
		if re == nil {
			return ""
		}
		return "/" + re.Pattern + "/" + re.Flags
	default:
		return ""
	}
}

func formatReal(r float64) string {
	if math.IsInf(r, 1) {
		return "inf"
	}
	if math.IsInf(r, -1) {
		return "-inf"
	}
	if math.IsNaN(r) {
		return "nan"
	}
	return strconv.FormatFloat(r, 'g', -1, 64)
}

// JSON renders the value as a JSON literal (spec.md §6 JSON content type).
func (v Value) JSON() string {
	switch v.kind {
	case Undefined:
		return "null"
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Real:
		return formatReal(v.r)
	case String, StringRef:
		return strconv.Quote(v.s)
	default:
		return strconv.Quote(v.String())
	}
}

// TypeMismatch is returned by the arithmetic helpers in this package
// when an operation cannot be carried out on the supplied kinds; it is
// not itself fatal, callers substitute Undef and log a WARNING.
type TypeMismatch struct {
	Op    string
	Left  Kind
	Right Kind
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("operator %s not applicable to %s and %s", e.Op, e.Left, e.Right)
}
