package vm

import (
	"math"
	"net/url"
	"unicode/utf8"

	"github.com/gotengo/teng/value"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// builtin is a Simple-shape callable: argument list in, Value/error
// out, with no access to CallContext (contrast UDFResolver.Call, the
// Contextual shape).
type builtin func(args []value.Value) (value.Value, error)

// builtins is the constant table of small numeric/string/URL helpers
// carried over from the original engine's function table (round.c,
// trunc.c, fun-urlencoding.cc) though spec.md never names them; none
// of spec.md's Non-goals exclude them. Consulted by execCall before
// falling through to the UDFResolver, so a host cannot shadow these
// names.
var builtins = map[string]builtin{
	"round":       biRound,
	"trunc":       biTrunc,
	"urlescape":   biURLEscape,
	"urlunescape": biURLUnescape,
	"substr":      biSubstr,
	"len":         biLen,
	"lower":       biLower,
	"upper":       biUpper,
}

var (
	lowerCaser = cases.Lower(language.Und)
	upperCaser = cases.Upper(language.Und)
)

func arg(args []value.Value, i int) value.Value {
	if i < 0 || i >= len(args) {
		return value.Undef
	}
	return args[i]
}

// biRound rounds halfway cases away from zero (round.c's documented
// behavior: floor(x+0.5) for non-negative x, ceil(x-0.5) otherwise).
func biRound(args []value.Value) (value.Value, error) {
	x, ok := arg(args, 0).ToReal()
	if !ok {
		return value.Undef, &value.TypeMismatch{Op: "round"}
	}
	if x >= 0 {
		return value.NewInt(int64(math.Floor(x + 0.5))), nil
	}
	return value.NewInt(int64(math.Ceil(x - 0.5))), nil
}

// biTrunc rounds toward zero (trunc.c).
func biTrunc(args []value.Value) (value.Value, error) {
	x, ok := arg(args, 0).ToReal()
	if !ok {
		return value.Undef, &value.TypeMismatch{Op: "trunc"}
	}
	if x >= 0 {
		return value.NewInt(int64(math.Floor(x))), nil
	}
	return value.NewInt(int64(math.Ceil(x))), nil
}

// biURLEscape implements urlescape(s): percent-encode for use in a
// URL query component (fun-urlencoding.cc's "urlescape"/"urlunescape"
// pair).
func biURLEscape(args []value.Value) (value.Value, error) {
	s := arg(args, 0).String()
	return value.NewString(url.QueryEscape(s)), nil
}

func biURLUnescape(args []value.Value) (value.Value, error) {
	s := arg(args, 0).String()
	out, err := url.QueryUnescape(s)
	if err != nil {
		return value.Undef, err
	}
	return value.NewString(out), nil
}

// biSubstr is a UTF-8-safe substring(s, start[, length]), grounded on
// the original engine's utf8.cc rune-safe string handling rather than
// Go's byte-indexed slicing.
func biSubstr(args []value.Value) (value.Value, error) {
	s := arg(args, 0).String()
	start, ok := arg(args, 1).ToInt()
	if !ok {
		return value.Undef, &value.TypeMismatch{Op: "substr"}
	}
	runes := []rune(s)
	n := int64(len(runes))
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if len(args) > 2 {
		l, ok := args[2].ToInt()
		if !ok {
			return value.Undef, &value.TypeMismatch{Op: "substr"}
		}
		if start+l < end {
			end = start + l
		}
		if end < start {
			end = start
		}
	}
	return value.NewString(string(runes[start:end])), nil
}

// biLower and biUpper implement ASCII/UTF-8 case folding (util.cc's
// tolower, generalized to Unicode by language.Und rather than the
// original's byte-at-a-time ::tolower); spec's Non-goals exclude
// locale-aware collation beyond this, not case folding itself.
func biLower(args []value.Value) (value.Value, error) {
	return value.NewString(lowerCaser.String(arg(args, 0).String())), nil
}

func biUpper(args []value.Value) (value.Value, error) {
	return value.NewString(upperCaser.String(arg(args, 0).String())), nil
}

// biLen returns a string's rune count, or a frag list's element count.
func biLen(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if lr, ok := v.FragListRef(); ok {
		if l, ok := lr.(interface{ Len() int }); ok {
			return value.NewInt(int64(l.Len())), nil
		}
	}
	return value.NewInt(int64(utf8.RuneCountInString(v.String()))), nil
}
