package program

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/value"
)

// Builder accumulates instructions and pool entries during parsing,
// then freezes them into an immutable Program. Grounded on the
// constant-pool/emit pattern of a bytecode compiler's Chunk type
// (funxy's internal/vm Compiler.currentChunk()/AddConstant/Write),
// adapted to Teng's simpler struct-of-instructions encoding.
type Builder struct {
	instructions []Instruction
	literals     []value.Value
	literalIndex map[string]int // dedup key -> literal index, for literal pool interning
	paths        []fragment.Path
	positions    []errlog.Position
	files        []string
	fileIndex    map[string]int
	blocks       map[string]Block
	contentType  string
	initEscape   []string
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		literalIndex: make(map[string]int),
		fileIndex:    make(map[string]int),
		blocks:       make(map[string]Block),
	}
}

// Len returns the current instruction count (the index the next Emit
// will occupy); callers save this before compiling a forward jump's
// target body so it can be patched in with PatchJump.
func (b *Builder) Len() int { return len(b.instructions) }

func (b *Builder) posIndex(pos errlog.Position) int {
	fi, ok := b.fileIndex[pos.Filename]
	if !ok {
		fi = len(b.files)
		b.fileIndex[pos.Filename] = fi
		b.files = append(b.files, pos.Filename)
	}
	_ = fi
	b.positions = append(b.positions, pos)
	return len(b.positions) - 1
}

// Emit appends an instruction and returns its index.
func (b *Builder) Emit(op Op, pos errlog.Position) int {
	b.instructions = append(b.instructions, Instruction{Op: op, PosIdx: b.posIndex(pos), Jump: -1})
	return len(b.instructions) - 1
}

// EmitOperand appends an instruction carrying a literal/path-pool
// operand and returns its index.
func (b *Builder) EmitOperand(op Op, operand int, pos errlog.Position) int {
	b.instructions = append(b.instructions, Instruction{Op: op, Operand: operand, PosIdx: b.posIndex(pos), Jump: -1})
	return len(b.instructions) - 1
}

// EmitJump appends a jump-class instruction with a placeholder target
// and returns its index, to be resolved later with PatchJump.
func (b *Builder) EmitJump(op Op, pos errlog.Position) int {
	b.instructions = append(b.instructions, Instruction{Op: op, PosIdx: b.posIndex(pos), Jump: -1})
	return len(b.instructions) - 1
}

// PatchJump sets the Jump field of the instruction at idx to target
// (an absolute instruction index; the VM treats Jump as absolute, not
// relative, to avoid an extra subtraction at resolve-then-patch time).
func (b *Builder) PatchJump(idx, target int) {
	b.instructions[idx].Jump = target
}

// PatchHere patches the instruction at idx to jump to the current
// (about-to-be-emitted) instruction index.
func (b *Builder) PatchHere(idx int) {
	b.PatchJump(idx, len(b.instructions))
}

// AddConstant interns v into the literal pool, returning its index.
// Interning is keyed by v's rendered string form plus kind, which is
// sufficient for Teng's literal set (numbers, strings, regex patterns)
// and keeps repeated literals (a common case: string literals reused
// across branches of the same template) from bloating the pool.
func (b *Builder) AddConstant(v value.Value) int {
	key := internKey(v)
	if i, ok := b.literalIndex[key]; ok {
		return i
	}
	i := len(b.literals)
	b.literals = append(b.literals, v)
	b.literalIndex[key] = i
	return i
}

func internKey(v value.Value) string {
	return v.Kind().String() + "\x00" + v.String()
}

// AddPath appends path to the variable-path pool, returning its index.
// Paths are not interned: two syntactically identical paths compiled
// at different program points may carry distinct source positions
// relevant to diagnostics, and interning buys little since paths are
// far less repetitive than literals.
func (b *Builder) AddPath(path fragment.Path) int {
	b.paths = append(b.paths, path)
	return len(b.paths) - 1
}

// EmitVar appends a VAR instruction resolving path pool[pathIdx],
// popping nIndex previously-pushed runtime index values (in reverse
// order) to fill in that path's SegIndex segments before resolving.
func (b *Builder) EmitVar(pathIdx, nIndex int, pos errlog.Position) int {
	b.instructions = append(b.instructions, Instruction{Op: OpVar, Operand: pathIdx, Arg2: nIndex, PosIdx: b.posIndex(pos), Jump: -1})
	return len(b.instructions) - 1
}

// EmitSet appends a SET instruction assigning the popped top-of-stack
// value to path pool[pathIdx], with the same runtime-index-popping
// protocol as EmitVar.
func (b *Builder) EmitSet(pathIdx, nIndex int, pos errlog.Position) int {
	b.instructions = append(b.instructions, Instruction{Op: OpSet, Operand: pathIdx, Arg2: nIndex, PosIdx: b.posIndex(pos), Jump: -1})
	return len(b.instructions) - 1
}

// EmitFragOpen appends a FRAG_OPEN instruction opening the frag list
// addressed by path pool[pathIdx], with the same runtime-index-popping
// protocol as EmitVar/EmitSet.
func (b *Builder) EmitFragOpen(pathIdx, nIndex int, pos errlog.Position) int {
	b.instructions = append(b.instructions, Instruction{Op: OpFragOpen, Operand: pathIdx, Arg2: nIndex, PosIdx: b.posIndex(pos), Jump: -1})
	return len(b.instructions) - 1
}

// EmitCall appends a CALL instruction invoking the UDF named by
// literal pool[nameIdx] with argc values already pushed on the
// operand stack.
func (b *Builder) EmitCall(nameIdx, argc int, pos errlog.Position) int {
	b.instructions = append(b.instructions, Instruction{Op: OpCall, Operand: nameIdx, Arg2: argc, PosIdx: b.posIndex(pos), Jump: -1})
	return len(b.instructions) - 1
}

// DefineBlock records a define/override block's body range.
func (b *Builder) DefineBlock(name string, start, end, super int) {
	b.blocks[name] = Block{Name: name, Start: start, End: end, Super: super}
}

// BlockOf returns the recorded define/override block named name, if any.
func (b *Builder) BlockOf(name string) (Block, bool) {
	blk, ok := b.blocks[name]
	return blk, ok
}

// PatchDefine redirects the DEFINE_BLOCK instruction that opened the
// named block (always the instruction immediately preceding its
// Start, since DefineBlock/EmitOperand are always called back to
// back) to jump to target, marking the block as overridden. Reports
// false if name is unknown.
func (b *Builder) PatchDefine(name string, target int) bool {
	blk, ok := b.blocks[name]
	if !ok || blk.Start <= 0 {
		return false
	}
	b.instructions[blk.Start-1].Jump = target
	return true
}

// SetContentType sets the Program's pre-resolved ContentType and
// seeds the initial escape stack with it.
func (b *Builder) SetContentType(mime string) {
	b.contentType = mime
	b.initEscape = []string{mime}
}

// Finish freezes the accumulated state into an immutable Program.
func (b *Builder) Finish() *Program {
	return &Program{
		Instructions:  b.instructions,
		Literals:      b.literals,
		Paths:         b.paths,
		Positions:     b.positions,
		Files:         b.files,
		Blocks:        b.blocks,
		ContentType:   b.contentType,
		InitialEscape: b.initEscape,
	}
}
