package value

import (
	"math"
	"testing"
)

func TestBool(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"undefined", Undef, false},
		{"zero int", NewInt(0), false},
		{"nonzero int", NewInt(1), true},
		{"zero real", NewReal(0), false},
		{"empty string", NewString(""), false},
		{"nonempty string", NewString("x"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.Bool(); got != c.want {
				t.Errorf("Bool() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestStringOfUndefined(t *testing.T) {
	if got := Undef.String(); got != "undefined" {
		t.Errorf("String() = %q, want %q", got, "undefined")
	}
}

func TestCoercionFailure(t *testing.T) {
	v := NewString("not a number")
	if _, ok := v.ToInt(); ok {
		t.Errorf("ToInt() on non-numeric string should fail")
	}
	if _, ok := v.ToReal(); ok {
		t.Errorf("ToReal() on non-numeric string should fail")
	}
}

func TestCoercionSuccess(t *testing.T) {
	v := NewString("42")
	i, ok := v.ToInt()
	if !ok || i != 42 {
		t.Errorf("ToInt() = %v, %v, want 42, true", i, ok)
	}

	v2 := NewString("3.5")
	r, ok := v2.ToReal()
	if !ok || r != 3.5 {
		t.Errorf("ToReal() = %v, %v, want 3.5, true", r, ok)
	}
}

func TestAddPromotion(t *testing.T) {
	got, err := Add(NewInt(2), NewReal(1.5))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if got.Kind() != Real || got.String() != "3.5" {
		t.Errorf("Add(2, 1.5) = %v, want 3.5", got)
	}
}

func TestAddOverflowWraps(t *testing.T) {
	got, err := Add(NewInt(math.MaxInt64), NewInt(1))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if i, _ := got.ToInt(); i != math.MinInt64 {
		t.Errorf("Add at MaxInt64+1 = %v, want wraparound to MinInt64", i)
	}
}

func TestDivByZero(t *testing.T) {
	_, err := Div(NewInt(1), NewInt(0))
	if _, ok := err.(*DivByZero); !ok {
		t.Errorf("Div by zero should return *DivByZero, got %v", err)
	}
}

func TestModByZero(t *testing.T) {
	_, err := Mod(NewInt(1), NewInt(0))
	if _, ok := err.(*DivByZero); !ok {
		t.Errorf("Mod by zero should return *DivByZero, got %v", err)
	}
}

func TestConcatAndRepeat(t *testing.T) {
	if got := Concat(NewString("a"), NewString("b")).String(); got != "ab" {
		t.Errorf("Concat = %q, want %q", got, "ab")
	}
	rep, err := Repeat(NewString("ab"), NewInt(3))
	if err != nil {
		t.Fatalf("Repeat returned error: %v", err)
	}
	if got := rep.String(); got != "ababab" {
		t.Errorf("Repeat = %q, want %q", got, "ababab")
	}
}

func TestEqualCrossType(t *testing.T) {
	if !Equal(NewString("42"), NewInt(42)) {
		t.Errorf("Equal(\"42\", 42) should be true via numeric coercion")
	}
	if !Equal(NewString("abc"), NewString("abc")) {
		t.Errorf("Equal(\"abc\", \"abc\") should be true")
	}
	if Equal(NewString("abc"), NewInt(1)) {
		t.Errorf("Equal(\"abc\", 1) should fall back to string comparison and be false")
	}
}

func TestCompareMixed(t *testing.T) {
	cmp, err := Compare(NewInt(1), NewReal(1.5))
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if cmp != -1 {
		t.Errorf("Compare(1, 1.5) = %d, want -1", cmp)
	}
}
