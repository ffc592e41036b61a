package parser

import (
	"github.com/gotengo/teng/lexer"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/value"
)

var ifStopSet = map[string]bool{"elseif": true, "else": true, "endif": true}

// compileIf compiles `if cond ... [elseif cond ...]* [else ...] endif`.
func (p *Parser) compileIf(filename string, cc *chunkCursor, c lexer.Chunk) {
	ps := p.newDirectiveState(filename, c)
	ps.emit(ps.parseTernary())
	pendingJifnot := p.b.EmitJump(program.OpJmpIfNot, c.Pos)
	var jends []int

	for {
		kw := p.compileBlock(filename, cc, ifStopSet)
		switch kw {
		case "elseif":
			nc := cc.advance()
			jends = append(jends, p.b.EmitJump(program.OpJmp, nc.Pos))
			p.b.PatchHere(pendingJifnot)
			ps2 := p.newDirectiveState(filename, nc)
			ps2.emit(ps2.parseTernary())
			pendingJifnot = p.b.EmitJump(program.OpJmpIfNot, nc.Pos)
		case "else":
			nc := cc.advance()
			jends = append(jends, p.b.EmitJump(program.OpJmp, nc.Pos))
			p.b.PatchHere(pendingJifnot)
			pendingJifnot = -1
		default: // "endif", or "" at EOF on malformed input
			cc.advance()
			if pendingJifnot >= 0 {
				p.b.PatchHere(pendingJifnot)
			}
			for _, j := range jends {
				p.b.PatchHere(j)
			}
			if kw != "endif" {
				p.log.Error(c.Pos, "unterminated if directive")
			}
			return
		}
	}
}

// compileFrag compiles `frag <path> ... endfrag`.
func (p *Parser) compileFrag(filename string, cc *chunkCursor, c lexer.Chunk) {
	ps := p.newDirectiveState(filename, c)
	pe, ok := ps.parsePath()
	if !ok {
		p.log.Error(c.Pos, "expected a path after frag")
	}
	for _, idx := range pe.indexExprs {
		ps.emit(idx)
	}
	pathIdx := p.b.AddPath(pe.path)
	p.b.EmitFragOpen(pathIdx, len(pe.indexExprs), c.Pos)

	loopStart := p.b.Len()
	kw := p.compileBlock(filename, cc, map[string]bool{"endfrag": true})
	if kw == "endfrag" {
		cc.advance()
	} else {
		p.log.Error(c.Pos, "unterminated frag directive")
	}
	iterIdx := p.b.EmitJump(program.OpFragIter, c.Pos)
	p.b.PatchJump(iterIdx, loopStart)
	p.b.Emit(program.OpFragClose, c.Pos)
}

// compileFormat compiles `format space='<mode>' ... endformat`. When
// params.Format is off the directive is parsed (so the source still
// advances correctly) but no whitespace mode is pushed: body text
// compiles as if the directive were absent.
func (p *Parser) compileFormat(filename string, cc *chunkCursor, c lexer.Chunk) {
	ps := p.newDirectiveState(filename, c)
	if !ps.c.expectIdent("space") {
		p.log.Error(c.Pos, "expected space= in format directive")
	}
	if !ps.c.expectOp("=") {
		p.log.Error(c.Pos, "expected = in format directive")
	}
	modeName := ""
	if t := ps.c.peek(); t.Kind == lexer.L2String {
		modeName = t.Text
		ps.c.advance()
	} else {
		p.log.Error(c.Pos, "expected a quoted whitespace mode")
	}

	if !p.params.Format {
		kw := p.compileBlock(filename, cc, map[string]bool{"endformat": true})
		if kw == "endformat" {
			cc.advance()
		} else {
			p.log.Error(c.Pos, "unterminated format directive")
		}
		return
	}

	mode, ok := program.ParseFormatMode(modeName)
	if !ok {
		p.log.Error(c.Pos, "unknown format mode %q", modeName)
		mode = program.FormatNoWhite
	}

	p.b.EmitOperand(program.OpFormatPush, int(mode), c.Pos)
	p.formatStack = append(p.formatStack, mode)

	kw := p.compileBlock(filename, cc, map[string]bool{"endformat": true})
	if kw == "endformat" {
		cc.advance()
	} else {
		p.log.Error(c.Pos, "unterminated format directive")
	}

	if len(p.formatStack) > 0 {
		p.formatStack = p.formatStack[:len(p.formatStack)-1]
	}
	p.b.Emit(program.OpFormatPop, c.Pos)
}

// compileCtype compiles `ctype '<mime>' ... endctype`.
func (p *Parser) compileCtype(filename string, cc *chunkCursor, c lexer.Chunk) {
	ps := p.newDirectiveState(filename, c)
	mime := ""
	if t := ps.c.peek(); t.Kind == lexer.L2String {
		mime = t.Text
		ps.c.advance()
	} else {
		p.log.Error(c.Pos, "expected a quoted content type")
	}
	idx := p.b.AddConstant(value.NewString(mime))
	p.b.EmitOperand(program.OpCtypePush, idx, c.Pos)

	kw := p.compileBlock(filename, cc, map[string]bool{"endctype": true})
	if kw == "endctype" {
		cc.advance()
	} else {
		p.log.Error(c.Pos, "unterminated ctype directive")
	}
	p.b.Emit(program.OpCtypePop, c.Pos)
}

// compileInclude compiles `include file='<path>'`, splicing the
// resolved source inline under maxincludedepth recursion control.
func (p *Parser) compileInclude(filename string, c lexer.Chunk) {
	ps := p.newDirectiveState(filename, c)
	if !ps.c.expectIdent("file") {
		p.log.Error(c.Pos, "expected file= in include directive")
	}
	if !ps.c.expectOp("=") {
		p.log.Error(c.Pos, "expected = in include directive")
	}
	path := ""
	if t := ps.c.peek(); t.Kind == lexer.L2String {
		path = t.Text
		ps.c.advance()
	} else {
		p.log.Error(c.Pos, "expected a quoted file path")
		return
	}

	if p.src == nil {
		p.log.Error(c.Pos, "no source provider configured for include")
		return
	}
	if p.includeDepth >= p.params.MaxIncludeDepth {
		p.log.Error(c.Pos, "maxincludedepth exceeded including %q", path)
		return
	}
	body, err := p.src.ReadTemplate(path)
	if err != nil {
		p.log.Error(c.Pos, "%s", err)
		return
	}
	p.includeDepth++
	p.compileSource(path, body)
	p.includeDepth--
}

// compileSet compiles `set <lvalue> = <expr>`.
func (p *Parser) compileSet(filename string, c lexer.Chunk) {
	ps := p.newDirectiveState(filename, c)
	pe, ok := ps.parsePath()
	if !ok {
		p.log.Error(c.Pos, "expected an lvalue after set")
		return
	}
	if !ps.c.expectOp("=") {
		p.log.Error(c.Pos, "expected = in set directive")
		return
	}
	rhs := ps.parseTernary()
	for _, idx := range pe.indexExprs {
		ps.emit(idx)
	}
	ps.emit(rhs)
	pathIdx := p.b.AddPath(pe.path)
	p.b.EmitSet(pathIdx, len(pe.indexExprs), c.Pos)
}

// compileDefine compiles `define block <id> ... enddefine block`. The
// trailing SUPER instruction (Jump==-1) marks the body's end: if a
// descendant override called in via `super`, it pops the return
// address and jumps back there; otherwise execution falls through
// normally, so an un-overridden define behaves as plain inline content.
func (p *Parser) compileDefine(filename string, cc *chunkCursor, c lexer.Chunk) {
	ps := p.newDirectiveState(filename, c)
	if !ps.c.expectIdent("block") {
		p.log.Error(c.Pos, "expected block after define")
	}
	name := ""
	if t := ps.c.peek(); t.Kind == lexer.L2Ident {
		name = t.Text
		ps.c.advance()
	} else {
		p.log.Error(c.Pos, "expected a block name")
	}

	p.b.EmitOperand(program.OpDefineBlock, p.b.AddConstant(value.NewString(name)), c.Pos)
	bodyStart := p.b.Len()
	kw := p.compileBlock(filename, cc, map[string]bool{"enddefine": true})
	if kw == "enddefine" {
		cc.advance()
	} else {
		p.log.Error(c.Pos, "unterminated define block")
	}
	bodyEnd := p.b.Len()
	superIdx := p.b.EmitOperand(program.OpSuper, p.b.AddConstant(value.NewString(name)), c.Pos)
	p.b.DefineBlock(name, bodyStart, bodyEnd, superIdx)
}

// compileExtends compiles `extends file='<path>' [override block <id>
// ... endoverride block]* endextends`. The base file is compiled
// inline first (so its define blocks land in the same Program); each
// override body is then appended after it, behind a JMP that carries
// the base's own flow past them, and the base's DEFINE_BLOCK is
// redirected to jump to the override on normal control flow.
func (p *Parser) compileExtends(filename string, cc *chunkCursor, c lexer.Chunk) {
	ps := p.newDirectiveState(filename, c)
	if !ps.c.expectIdent("file") {
		p.log.Error(c.Pos, "expected file= in extends directive")
	}
	if !ps.c.expectOp("=") {
		p.log.Error(c.Pos, "expected = in extends directive")
	}
	path := ""
	if t := ps.c.peek(); t.Kind == lexer.L2String {
		path = t.Text
		ps.c.advance()
	} else {
		p.log.Error(c.Pos, "expected a quoted base file path")
	}

	switch {
	case p.src == nil:
		p.log.Error(c.Pos, "no source provider configured for extends")
	case p.includeDepth >= p.params.MaxIncludeDepth:
		p.log.Error(c.Pos, "maxincludedepth exceeded extending %q", path)
	default:
		if body, err := p.src.ReadTemplate(path); err != nil {
			p.log.Error(c.Pos, "%s", err)
		} else {
			p.includeDepth++
			p.compileSource(path, body)
			p.includeDepth--
		}
	}
	skip := p.b.EmitJump(program.OpJmp, c.Pos)

	for {
		kw := p.compileBlock(filename, cc, map[string]bool{"override": true, "endextends": true})
		switch kw {
		case "override":
			p.compileOverride(filename, cc)
		case "endextends":
			cc.advance()
			p.b.PatchHere(skip)
			return
		default:
			p.log.Error(c.Pos, "unterminated extends directive")
			p.b.PatchHere(skip)
			return
		}
	}
}

func (p *Parser) compileOverride(filename string, cc *chunkCursor) {
	nc := cc.advance()
	ps := p.newDirectiveState(filename, nc)
	if !ps.c.expectIdent("block") {
		p.log.Error(nc.Pos, "expected block after override")
	}
	name := ""
	if t := ps.c.peek(); t.Kind == lexer.L2Ident {
		name = t.Text
		ps.c.advance()
	} else {
		p.log.Error(nc.Pos, "expected a block name")
	}

	blk, known := p.b.BlockOf(name)
	if !known {
		p.log.Error(nc.Pos, "override of unknown block %q", name)
	} else {
		p.superTarget[name] = blk.Start
	}

	overrideStart := p.b.Len()
	p.overrideOf = append(p.overrideOf, name)
	kw := p.compileBlock(filename, cc, map[string]bool{"endoverride": true})
	if kw == "endoverride" {
		cc.advance()
	} else {
		p.log.Error(nc.Pos, "unterminated override block")
	}
	p.overrideOf = p.overrideOf[:len(p.overrideOf)-1]
	delete(p.superTarget, name)

	if known {
		backIdx := p.b.EmitJump(program.OpJmp, nc.Pos)
		p.b.PatchJump(backIdx, blk.End)
		p.b.PatchDefine(name, overrideStart)
	}
}

// compileSuper compiles a bare `super` (or `super block`) directive,
// valid only inside the override body it's lexically nested in.
func (p *Parser) compileSuper(c lexer.Chunk) {
	if len(p.overrideOf) == 0 {
		p.log.Error(c.Pos, "super used outside an override block")
		return
	}
	name := p.overrideOf[len(p.overrideOf)-1]
	target, ok := p.superTarget[name]
	if !ok {
		p.log.Error(c.Pos, "no base implementation of block %q to call via super", name)
		return
	}
	idx := p.b.EmitOperand(program.OpSuper, p.b.AddConstant(value.NewString(name)), c.Pos)
	p.b.PatchJump(idx, target)
}
