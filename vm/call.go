package vm

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/value"
)

// execCall pops argc values (pushed left-to-right, so popped in
// reverse) and dispatches to either the `#{key}` dictionary lookup or
// the injected UDFResolver. The dictionary special-case exists because
// `#{key}` has no dedicated opcode (spec.md's opcode table never names
// one, and the Dictionary is supplied per-render so it cannot be
// constant-folded) - the parser compiles it as VAL(key) + CALL("_dict", 1).
func (p *Processor) execCall(in program.Instruction, pos errlog.Position) {
	argc := in.Arg2
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = p.pop()
	}
	name := p.prog.Literal(in.Operand).String()

	if name == "_dict" && argc == 1 {
		key := args[0].String()
		if s, ok := p.dict.Get(key); ok {
			p.push(value.NewString(s))
		} else {
			p.log.Warning(pos, "dictionary key %q is undefined", key)
			p.push(value.Undef)
		}
		return
	}

	if fn, ok := builtins[name]; ok {
		v, err := fn(args)
		if err != nil {
			p.log.Warning(pos, "%s", err)
			v = value.Undef
		}
		p.push(v)
		return
	}

	if p.udfs == nil {
		p.log.Error(pos, "udf %q is not registered", name)
		p.push(value.Undef)
		return
	}
	ctx := CallContext{
		Escaper: p.currentEscaper(),
		Pos:     pos,
		Params:  p.params,
		Dict:    p.dict,
		Log:     p.log,
	}
	v, err := p.udfs.Call(name, args, ctx)
	if err != nil {
		p.log.Error(pos, "udf %q: %s", name, err)
		p.push(value.Undef)
		return
	}
	p.push(v)
}
