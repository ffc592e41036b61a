package program

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/value"
)

// Block is a named `define block`/`override block` body, used to
// resolve `super` at VM time via the chain of overrides (spec.md §4.2
// inheritance, §4.3 SUPER).
type Block struct {
	Name  string
	Start int // instruction index of the block body
	End   int // one past the last instruction of the block body
	// Super is the instruction index of the SUPER marker that closes the
	// block body (it returns to a pending `super` call, or falls through).
	Super int
}

// Program is Teng's compiled, immutable bytecode artifact (spec.md §3
// "Program"). It is built once by the parser and then shared,
// read-only, across concurrent renders by the TemplateCache.
type Program struct {
	Instructions []Instruction
	Literals     []value.Value
	Paths        []fragment.Path
	Positions    []errlog.Position
	Files        []string // source file table; Positions reference these by Filename

	// Blocks maps a define-block name to its body location, keyed by
	// the fully-qualified name used by DEFINE_BLOCK/SUPER.
	Blocks map[string]Block

	// ContentType is the pre-resolved MIME name in effect when the
	// Program begins executing, absent a runtime ctype directive.
	ContentType string

	// InitialEscape seeds the VM's escape stack (normally just
	// ContentType's escaper); kept distinct from ContentType because a
	// nested compile unit (an extended/included file) may start with a
	// deeper inherited stack.
	InitialEscape []string
}

// Literal returns the literal pool entry at i, or undefined if i is
// out of range (defensive against a malformed Program; should not
// happen for a Program produced by this module's own parser).
func (p *Program) Literal(i int) value.Value {
	if i < 0 || i >= len(p.Literals) {
		return value.Undef
	}
	return p.Literals[i]
}

// Path returns the variable path pool entry at i.
func (p *Program) Path(i int) fragment.Path {
	if i < 0 || i >= len(p.Paths) {
		return fragment.Path{}
	}
	return p.Paths[i]
}
