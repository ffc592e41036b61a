// Package fragment implements Teng's FragmentTree data model and the
// FragmentStack runtime view over it (spec.md §3 "Fragment /
// FragmentList", §4.5).
package fragment

import (
	"fmt"

	"github.com/gotengo/teng/value"
)

// Fragment is an ordered mapping from string key to Value. Duplicate
// keys within a fragment are rejected by Set.
type Fragment struct {
	order  []string
	values map[string]value.Value
}

// IsFragRef marks Fragment as a value.FragRefHolder.
func (*Fragment) IsFragRef() {}

// NewFragment returns an empty Fragment.
func NewFragment() *Fragment {
	return &Fragment{values: make(map[string]value.Value)}
}

// Set stores name->v. It returns an error if name is already present,
// per spec.md §3's "duplicate keys ... are not allowed" invariant; the
// host is expected to surface this as a build-time error, not a
// runtime one.
func (f *Fragment) Set(name string, v value.Value) error {
	if _, exists := f.values[name]; exists {
		return fmt.Errorf("fragment: duplicate key %q", name)
	}
	f.order = append(f.order, name)
	f.values[name] = v
	return nil
}

// SetList is a convenience for Set(name, value.NewFragListRef(l)).
func (f *Fragment) SetList(name string, l *List) error {
	return f.Set(name, value.NewFragListRef(l))
}

// SetFragment is a convenience for Set(name, value.NewFragRef(child)).
func (f *Fragment) SetFragment(name string, child *Fragment) error {
	return f.Set(name, value.NewFragRef(child))
}

// Put stores name->v, overwriting any existing value. Unlike Set,
// which rejects a duplicate key when a host is building a Tree, Put
// is the runtime `set` directive's write path: re-running `set` on
// the same path every render is expected to overwrite, not error.
func (f *Fragment) Put(name string, v value.Value) {
	if _, exists := f.values[name]; !exists {
		f.order = append(f.order, name)
	}
	f.values[name] = v
}

// Get returns the value stored under name.
func (f *Fragment) Get(name string) (value.Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Keys returns the fragment's keys in insertion order.
func (f *Fragment) Keys() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// List is a finite ordered sequence of Fragments sharing a key.
type List struct {
	items []*Fragment
}

// IsFragListRef marks List as a value.FragListRefHolder.
func (*List) IsFragListRef() {}

// NewList builds a List from the given fragments.
func NewList(items ...*Fragment) *List {
	return &List{items: items}
}

// Append adds a fragment to the list.
func (l *List) Append(f *Fragment) {
	l.items = append(l.items, f)
}

// Len returns the number of fragments in the list.
func (l *List) Len() int { return len(l.items) }

// At returns the i-th fragment (0-based).
func (l *List) At(i int) *Fragment {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

// Tree is the host-supplied data tree passed to a generate request.
// The root fragment is treated as a single-element list for indexing
// semantics (spec.md §3).
type Tree struct {
	Root *Fragment
}

// NewTree wraps root, allocating one if nil.
func NewTree(root *Fragment) *Tree {
	if root == nil {
		root = NewFragment()
	}
	return &Tree{Root: root}
}

// RootList returns the root fragment as a single-element List, the
// anchor for FragmentStack's bottom frame.
func (t *Tree) RootList() *List {
	return NewList(t.Root)
}
