package udf

import (
	"testing"

	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/value"
	"github.com/gotengo/teng/vm"
)

func TestRegistrySimpleCall(t *testing.T) {
	r := NewRegistry()
	r.Register("double", func(args []value.Value) (value.Value, error) {
		return value.NewInt(args[0].ToInt() * 2), nil
	})

	v, err := r.Call("double", []value.Value{value.NewInt(21)}, vm.CallContext{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v.ToInt() != 42 {
		t.Fatalf("v = %v, want 42", v.ToInt())
	}
}

func TestRegistryContextualCall(t *testing.T) {
	r := NewRegistry()
	r.RegisterContextual("pos", func(args []value.Value, ctx vm.CallContext) (value.Value, error) {
		return value.NewString(ctx.Pos.Filename), nil
	})

	ctx := vm.CallContext{Pos: errlog.Position{Filename: "t.teng"}}
	v, err := r.Call("pos", nil, ctx)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v.String() != "t.teng" {
		t.Fatalf("v = %q, want t.teng", v.String())
	}
}

func TestRegistryUnknownFunction(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call("nope", nil, vm.CallContext{})
	if err == nil {
		t.Fatalf("expected an error for an unregistered function")
	}
}

func TestRegisterReplacesAcrossTables(t *testing.T) {
	r := NewRegistry()
	r.RegisterContextual("f", func(args []value.Value, ctx vm.CallContext) (value.Value, error) {
		return value.NewString("contextual"), nil
	})
	r.Register("f", func(args []value.Value) (value.Value, error) {
		return value.NewString("simple"), nil
	})

	v, err := r.Call("f", nil, vm.CallContext{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v.String() != "simple" {
		t.Fatalf("v = %q, want simple (later Register should win)", v.String())
	}
}
