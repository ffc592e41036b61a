package fragment

import (
	"fmt"

	"github.com/gotengo/teng/value"
)

// FromMap builds a Fragment from a Go map, recursively converting
// nested maps to child fragments and nested slices of maps to
// fragment lists. Scalar Go types (string, bool, the numeric kinds)
// become the corresponding Value. This is a convenience for hosts
// that don't want to build the Fragment tree by hand; it is not part
// of the core pipeline (FragmentTree is always host-owned data).
func FromMap(m map[string]any) (*Fragment, error) {
	f := NewFragment()
	for k, raw := range m {
		v, err := convert(raw)
		if err != nil {
			return nil, fmt.Errorf("fragment: key %q: %w", k, err)
		}
		if err := f.Set(k, v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func convert(raw any) (value.Value, error) {
	switch t := raw.(type) {
	case nil:
		return value.Undef, nil
	case string:
		return value.NewString(t), nil
	case bool:
		if t {
			return value.NewInt(1), nil
		}
		return value.NewInt(0), nil
	case int:
		return value.NewInt(int64(t)), nil
	case int64:
		return value.NewInt(t), nil
	case float64:
		return value.NewReal(t), nil
	case map[string]any:
		child, err := FromMap(t)
		if err != nil {
			return value.Undef, err
		}
		return value.NewFragRef(child), nil
	case []map[string]any:
		items := make([]*Fragment, 0, len(t))
		for _, m := range t {
			child, err := FromMap(m)
			if err != nil {
				return value.Undef, err
			}
			items = append(items, child)
		}
		return value.NewFragListRef(NewList(items...)), nil
	case []any:
		items := make([]*Fragment, 0, len(t))
		for _, elem := range t {
			m, ok := elem.(map[string]any)
			if !ok {
				return value.Undef, fmt.Errorf("fragment: list elements must be maps, got %T", elem)
			}
			child, err := FromMap(m)
			if err != nil {
				return value.Undef, err
			}
			items = append(items, child)
		}
		return value.NewFragListRef(NewList(items...)), nil
	default:
		return value.Undef, fmt.Errorf("fragment: unsupported Go type %T", raw)
	}
}
