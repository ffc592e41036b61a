// Package vm implements Teng's Processor: a single-threaded, stack-
// based bytecode interpreter that drives a Program against a
// FragmentStack and emits output through a Writer (spec.md §4.3).
package vm

import (
	"fmt"
	"strings"

	"github.com/gotengo/teng/config"
	"github.com/gotengo/teng/ctype"
	"github.com/gotengo/teng/dict"
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/value"
)

// Processor executes one compiled Program against one FragmentStack
// for the duration of a single render (spec.md §4.3, §5 "one
// Processor per render"). It is not safe for concurrent use; callers
// create a fresh Processor per render.
type Processor struct {
	prog     *program.Program
	stack    *fragment.Stack
	dict     *dict.Dictionary
	params   *config.Parameters
	registry *ctype.Registry
	w        Writer
	log      *errlog.Log
	udfs     UDFResolver

	operand     []value.Value
	caseStack   []value.Value // program-stack for CASE sugar; never populated (no case/endcase grammar, see DESIGN.md)
	escape      []*ctype.ContentType
	format      []program.FormatMode
	blockReturn []int

	ip     int
	halted bool
}

// NewProcessor builds a Processor ready to run prog. dict/params/
// registry/udfs may be nil; dict defaults to empty, params to
// config.DefaultParameters, registry to ctype.Default, udfs to a
// resolver that errors on every call.
func NewProcessor(prog *program.Program, stack *fragment.Stack, d *dict.Dictionary, params *config.Parameters, w Writer, log *errlog.Log, registry *ctype.Registry, udfs UDFResolver) *Processor {
	if d == nil {
		d = dict.New()
	}
	if params == nil {
		params = config.DefaultParameters()
	}
	if registry == nil {
		registry = ctype.Default()
	}
	if log == nil {
		log = errlog.New(0)
	}
	p := &Processor{
		prog:     prog,
		stack:    stack,
		dict:     d,
		params:   params,
		registry: registry,
		w:        w,
		log:      log,
		udfs:     udfs,
	}
	p.seedEscapeStack()
	return p
}

func (p *Processor) seedEscapeStack() {
	names := p.prog.InitialEscape
	if len(names) == 0 {
		names = []string{"text/html"}
	}
	for _, name := range names {
		ct, ok := p.registry.Lookup(name)
		if !ok {
			ct, _ = p.registry.Lookup("text/html")
		}
		p.escape = append(p.escape, ct)
	}
}

// Run executes the Program to HALT (or to the first writer I/O
// error) and returns the generate-request status code: 0 ok, non-zero
// once an ERROR or FATAL entry has been logged. Runtime errors along the way are logged and
// substitute `undefined`; only a Writer error aborts the render early.
func (p *Processor) Run() int {
	instrs := p.prog.Instructions
	for p.ip >= 0 && p.ip < len(instrs) && !p.halted {
		in := instrs[p.ip]
		pos := in.Pos(p.prog)

		switch in.Op {
		case program.OpHalt:
			p.finish()
			return p.log.Status()

		case program.OpNoop:
			p.ip++

		case program.OpVal:
			p.push(p.prog.Literal(in.Operand))
			p.ip++
		case program.OpPush:
			p.push(p.peek())
			p.ip++
		case program.OpPop:
			p.pop()
			p.ip++

		case program.OpAdd, program.OpSub, program.OpMul, program.OpDiv, program.OpMod,
			program.OpBitAnd, program.OpBitOr, program.OpBitXor, program.OpConcat, program.OpRepeat:
			p.binArith(in.Op, pos)
			p.ip++
		case program.OpNeg, program.OpPos, program.OpNot, program.OpBitNot:
			p.unary(in.Op, pos)
			p.ip++
		case program.OpEq, program.OpNe, program.OpStrEq, program.OpStrNe,
			program.OpLt, program.OpLe, program.OpGt, program.OpGe:
			p.compare(in.Op, pos)
			p.ip++
		case program.OpMatch, program.OpNotMatch:
			p.match(in.Op, pos)
			p.ip++

		case program.OpJmp:
			p.ip = in.Jump
		case program.OpJmpIfNot:
			if !p.pop().Bool() {
				p.ip = in.Jump
			} else {
				p.ip++
			}
		case program.OpJmpIfTrue:
			if p.peek().Bool() {
				p.ip = in.Jump
			} else {
				p.ip++
			}
		case program.OpJmpIfFalse:
			if !p.peek().Bool() {
				p.ip = in.Jump
			} else {
				p.ip++
			}

		case program.OpPrint:
			p.execPrint(in, pos)
			p.ip++
		case program.OpSet:
			v := p.pop()
			path := p.fillPath(in.Operand, in.Arg2)
			fragment.Assign(p.stack, path, v, p.log, pos)
			p.ip++

		case program.OpVar:
			path := p.fillPath(in.Operand, in.Arg2)
			p.push(fragment.Resolve(p.stack, path, p.log, pos))
			p.ip++

		case program.OpFragOpen:
			p.execFragOpen(in, pos)
			p.ip++
		case program.OpFragIter:
			if p.stack.Next() {
				p.ip = in.Jump
			} else {
				p.ip++
			}
		case program.OpFragClose:
			p.stack.Close()
			p.ip++
		case program.OpFragCount:
			p.push(value.NewInt(int64(p.stack.Top().Count())))
			p.ip++
		case program.OpFragIndex:
			p.push(value.NewInt(int64(p.stack.Top().Index())))
			p.ip++

		case program.OpCtypePush:
			name := p.prog.Literal(in.Operand).String()
			ct, ok := p.registry.Lookup(name)
			if !ok {
				p.log.Error(pos, "unknown content type %q", name)
				ct = p.currentEscaper()
			}
			p.escape = append(p.escape, ct)
			p.ip++
		case program.OpCtypePop:
			if len(p.escape) > 1 {
				p.escape = p.escape[:len(p.escape)-1]
			}
			p.ip++

		case program.OpFormatPush:
			p.format = append(p.format, program.FormatMode(in.Operand))
			p.ip++
		case program.OpFormatPop:
			if len(p.format) > 0 {
				p.format = p.format[:len(p.format)-1]
			}
			p.ip++

		case program.OpDebugFrag:
			p.writeString(p.debugDump())
			p.ip++
		case program.OpBytecodeFrag:
			p.writeString(p.prog.Disassemble())
			p.ip++

		case program.OpDefineBlock:
			if in.Jump >= 0 {
				p.ip = in.Jump
			} else {
				p.ip++
			}
		case program.OpSuper:
			if in.Jump >= 0 {
				p.blockReturn = append(p.blockReturn, p.ip+1)
				p.ip = in.Jump
			} else if n := len(p.blockReturn); n > 0 {
				p.ip = p.blockReturn[n-1]
				p.blockReturn = p.blockReturn[:n-1]
			} else {
				p.ip++
			}

		case program.OpStackAt:
			// No parser grammar ever emits CASE/STACK_AT (see
			// DESIGN.md); kept runnable against caseStack for
			// completeness of the opcode table.
			idx := in.Operand
			if idx >= 0 && idx < len(p.caseStack) {
				p.push(p.caseStack[len(p.caseStack)-1-idx])
			} else {
				p.push(value.Undef)
			}
			p.ip++

		case program.OpCall:
			p.execCall(in, pos)
			p.ip++

		default:
			p.ip++
		}
	}
	p.finish()
	return p.log.Status()
}

// finish flushes the Writer and, when logtooutput is set, appends the
// rendered error log (spec.md §7 "user-visible behavior").
func (p *Processor) finish() {
	if p.halted {
		return
	}
	if p.params.LogToOutput {
		p.writeString(p.log.Render())
	}
	if err := p.w.Flush(); err != nil {
		p.log.Fatal(errlog.Position{}, "writer flush: %s", err)
	}
}

func (p *Processor) push(v value.Value) { p.operand = append(p.operand, v) }

func (p *Processor) pop() value.Value {
	n := len(p.operand)
	if n == 0 {
		return value.Undef
	}
	v := p.operand[n-1]
	p.operand = p.operand[:n-1]
	return v
}

func (p *Processor) peek() value.Value {
	if n := len(p.operand); n > 0 {
		return p.operand[n-1]
	}
	return value.Undef
}

func (p *Processor) currentEscaper() *ctype.ContentType {
	if n := len(p.escape); n > 0 {
		return p.escape[n-1]
	}
	return nil
}

// writeString writes s through the Writer, promoting a write failure
// to FATAL and aborting the render (spec.md §4.3, §7: "only writer
// I/O errors abort"; §5: "propagates the first write error as FATAL").
func (p *Processor) writeString(s string) {
	if p.halted || s == "" {
		return
	}
	if _, err := p.w.Write([]byte(s)); err != nil {
		p.log.Fatal(errlog.Position{Filename: p.currentFile()}, "writer: %s", err)
		p.halted = true
	}
}

func (p *Processor) currentFile() string {
	if p.ip >= 0 && p.ip < len(p.prog.Instructions) {
		return p.prog.Instructions[p.ip].Pos(p.prog).Filename
	}
	return ""
}

func (p *Processor) execPrint(in program.Instruction, pos errlog.Position) {
	v := p.pop()
	s := v.String()
	if in.Operand != 0 && p.params.AlwaysEscape {
		if ct := p.currentEscaper(); ct != nil {
			s = ct.Escape(s)
		}
	}
	p.writeString(s)
}

func (p *Processor) debugDump() string {
	top := p.stack.Top()
	var keys string
	if cur := top.Current(); cur != nil {
		keys = strings.Join(cur.Keys(), ",")
	}
	s := fmt.Sprintf("[debug depth=%d index=%d count=%d keys=%s]", p.stack.Depth(), top.Index(), top.Count(), keys)
	if max := p.params.MaxDebugValLength; max > 0 && len(s) > max {
		s = s[:max]
	}
	return s
}
