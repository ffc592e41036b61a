// Package udf implements Teng's user-defined-function registry
// (spec.md §6 "UDF registry (collaborator)"): a process-wide,
// mutex-guarded name->callable map consulted by the VM for any call
// name it doesn't resolve as a builtin.
package udf

import (
	"fmt"
	"sync"

	"github.com/gotengo/teng/value"
	"github.com/gotengo/teng/vm"
)

// Simple is a UDF that only needs its arguments, mirroring
// `tengudf.h`'s `Function_t = std::function<Result_t(const Args_t&)>`.
type Simple func(args []value.Value) (value.Value, error)

// Contextual is a UDF that additionally receives the render's call
// context (escaper, position, params, dict, error log), mirroring
// `tenginvoke.h`'s extended invocation shape used when a function
// needs runtime state beyond its arguments (e.g. emitting a WARNING,
// or reading a Parameters option).
type Contextual func(args []value.Value, ctx vm.CallContext) (value.Value, error)

// ErrNeedsContext is returned by a Simple-shaped registrant that
// discovers mid-call it actually needs the render context, mirroring
// `tenginvoke.h`'s "runtime context needed" marker: the registry
// never raises this itself, but a registrant may wrap its Simple
// function to return it, and hosts are free to check for it.
var ErrNeedsContext = fmt.Errorf("udf: runtime context needed")

// Registry is a process-wide, concurrency-safe table of registered
// functions, implementing vm.UDFResolver. One Registry is normally
// shared by every render (spec.md §5 "Global state: a process-wide
// UDF registry ... with a mutex"), but nothing prevents a host from
// building a private one for test isolation.
type Registry struct {
	mu   sync.RWMutex
	fns  map[string]Simple
	cfns map[string]Contextual
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Simple), cfns: make(map[string]Contextual)}
}

// Register adds a Simple-shaped function under name (no "udf."
// prefix; the VM already routes anything outside the builtin table
// here). Registering under a name already held by either table
// replaces it.
func (r *Registry) Register(name string, fn Simple) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cfns, name)
	r.fns[name] = fn
}

// RegisterContextual adds a Contextual-shaped function under name.
func (r *Registry) RegisterContextual(name string, fn Contextual) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fns, name)
	r.cfns[name] = fn
}

// Unregister removes name from both tables.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fns, name)
	delete(r.cfns, name)
}

// Call implements vm.UDFResolver: it looks up name in the Contextual
// table first, then the Simple one. Register and RegisterContextual
// each remove the name from the other table, so a name is held by at
// most one of them and the most recent registration wins.
func (r *Registry) Call(name string, args []value.Value, ctx vm.CallContext) (value.Value, error) {
	r.mu.RLock()
	cfn, hasCfn := r.cfns[name]
	fn, hasFn := r.fns[name]
	r.mu.RUnlock()

	switch {
	case hasCfn:
		return cfn(args, ctx)
	case hasFn:
		return fn(args)
	default:
		return value.Undef, fmt.Errorf("udf: unknown function %q", name)
	}
}

var _ vm.UDFResolver = (*Registry)(nil)
