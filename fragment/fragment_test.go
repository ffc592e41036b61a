package fragment

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/value"
)

func mustBuild(t *testing.T, m map[string]any) *Fragment {
	t.Helper()
	f, err := FromMap(m)
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	return f
}

func TestResolveRelativeSimpleVariable(t *testing.T) {
	root := mustBuild(t, map[string]any{"var": "(var)"})
	stack := NewStack(NewTree(root))
	log := errlog.New(3)
	got := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "var"}}}, log, errlog.Position{})
	if got.String() != "(var)" {
		t.Errorf("Resolve(var) = %q, want %q", got.String(), "(var)")
	}
}

func TestResolveMissingVariableWarns(t *testing.T) {
	root := mustBuild(t, map[string]any{})
	stack := NewStack(NewTree(root))
	log := errlog.New(3)
	got := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "missing"}}}, log, errlog.Position{})
	if !got.IsUndefined() {
		t.Errorf("Resolve(missing) = %v, want undefined", got)
	}
	entries := log.Entries()
	if len(entries) != 1 || entries[0].Level != errlog.WARNING {
		t.Errorf("expected exactly one WARNING, got %+v", entries)
	}
}

func TestBuiltinsOnListOfThree(t *testing.T) {
	root := mustBuild(t, map[string]any{
		"nested": []any{
			map[string]any{"v": 1},
			map[string]any{"v": 2},
			map[string]any{"v": 3},
		},
	})
	stack := NewStack(NewTree(root))
	log := errlog.New(3)

	nestedVal, _ := root.Get("nested")
	lr, _ := nestedVal.FragListRef()
	list := lr.(*List)
	frame := stack.Open("nested", list)

	var firstSum, lastSum, innerSum int64
	var indices []int64
	for {
		first := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_first"}}}, log, errlog.Position{})
		last := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_last"}}}, log, errlog.Position{})
		inner := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_inner"}}}, log, errlog.Position{})
		idx := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_index"}}}, log, errlog.Position{})
		cnt := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_count"}}}, log, errlog.Position{})
		if cnt.String() != "3" {
			t.Errorf("_count = %s, want 3", cnt.String())
		}
		fv, _ := first.ToInt()
		lv, _ := last.ToInt()
		iv, _ := inner.ToInt()
		firstSum += fv
		lastSum += lv
		innerSum += iv
		ix, _ := idx.ToInt()
		indices = append(indices, ix)
		if !stack.Next() {
			break
		}
	}
	stack.Close()
	_ = frame

	if firstSum != 1 {
		t.Errorf("sum(_first) = %d, want 1", firstSum)
	}
	if lastSum != 1 {
		t.Errorf("sum(_last) = %d, want 1", lastSum)
	}
	if innerSum != 1 {
		t.Errorf("sum(_inner) = %d, want max(0,n-2)=1", innerSum)
	}
	for i, v := range indices {
		if v != int64(i) {
			t.Errorf("_index[%d] = %d, want %d", i, v, i)
		}
	}
}

// TestBuiltinsHoldForRandomListSizes generalizes
// TestBuiltinsOnListOfThree over randomized list lengths (spec's
// §8 invariant 2: sum(_first)=1, sum(_last)=1, sum(_inner)=max(0,n-2),
// _index ranges over [0,n)), including the n=0 and n=1 edge cases.
func TestBuiltinsHoldForRandomListSizes(t *testing.T) {
	gofakeit.Seed(0)
	for trial := 0; trial < 20; trial++ {
		n := gofakeit.Number(0, 12)
		items := make([]any, n)
		for i := range items {
			items[i] = map[string]any{"v": gofakeit.Number(0, 1000)}
		}
		root := mustBuild(t, map[string]any{"nested": items})
		stack := NewStack(NewTree(root))
		log := errlog.New(3)

		nestedVal, _ := root.Get("nested")
		lr, _ := nestedVal.FragListRef()
		list := lr.(*List)
		stack.Open("nested", list)

		var firstSum, lastSum, innerSum int64
		var indices []int64
		if n > 0 {
			for {
				first := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_first"}}}, log, errlog.Position{})
				last := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_last"}}}, log, errlog.Position{})
				inner := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_inner"}}}, log, errlog.Position{})
				idx := Resolve(stack, Path{Segments: []Segment{{Kind: SegName, Name: "_index"}}}, log, errlog.Position{})
				fv, _ := first.ToInt()
				lv, _ := last.ToInt()
				iv, _ := inner.ToInt()
				firstSum += fv
				lastSum += lv
				innerSum += iv
				ix, _ := idx.ToInt()
				indices = append(indices, ix)
				if !stack.Next() {
					break
				}
			}
		}
		stack.Close()

		wantFirst, wantLast := int64(0), int64(0)
		if n > 0 {
			wantFirst, wantLast = 1, 1
		}
		wantInner := int64(n - 2)
		if wantInner < 0 {
			wantInner = 0
		}
		if firstSum != wantFirst {
			t.Errorf("trial %d (n=%d): sum(_first) = %d, want %d", trial, n, firstSum, wantFirst)
		}
		if lastSum != wantLast {
			t.Errorf("trial %d (n=%d): sum(_last) = %d, want %d", trial, n, lastSum, wantLast)
		}
		if innerSum != wantInner {
			t.Errorf("trial %d (n=%d): sum(_inner) = %d, want %d", trial, n, innerSum, wantInner)
		}
		for i, v := range indices {
			if v != int64(i) {
				t.Errorf("trial %d: _index[%d] = %d, want %d", trial, i, v, i)
			}
		}
	}
}

func TestParentClampsAtRoot(t *testing.T) {
	root := mustBuild(t, map[string]any{"x": 1})
	stack := NewStack(NewTree(root))
	log := errlog.New(3)
	got := Resolve(stack, Path{Segments: []Segment{{Kind: SegParent}, {Kind: SegName, Name: "x"}}}, log, errlog.Position{})
	if got.Kind() != value.Int {
		t.Errorf("Resolve(_parent.x) at root = %v, want int 1 (clamped)", got)
	}
	entries := log.Entries()
	if len(entries) != 1 {
		t.Errorf("expected one WARNING for root boundary violation, got %d entries", len(entries))
	}
}

func TestAbsolutePathFromNestedFrame(t *testing.T) {
	root := mustBuild(t, map[string]any{
		"top":    "root-value",
		"nested": []any{map[string]any{"top": "shadow"}},
	})
	stack := NewStack(NewTree(root))
	nestedVal, _ := root.Get("nested")
	lr, _ := nestedVal.FragListRef()
	stack.Open("nested", lr.(*List))

	log := errlog.New(3)
	got := Resolve(stack, Path{Absolute: true, Segments: []Segment{{Kind: SegName, Name: "top"}}}, log, errlog.Position{})
	if got.String() != "root-value" {
		t.Errorf("absolute .top = %q, want %q", got.String(), "root-value")
	}
}
