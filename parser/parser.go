// Package parser implements Teng's bottom-up, error-tolerant compiler
// (spec.md §4.2): it walks a Level 1 chunk stream, dispatching literal
// text and print expressions straight to the Builder and directive
// keywords to dedicated statement compilers, recursing into included
// and extended files through a SourceProvider.
package parser

import (
	"github.com/gotengo/teng/config"
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/format"
	"github.com/gotengo/teng/lexer"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/value"
)

// Parser compiles one or more template sources into a single Program,
// splicing included/extended files into the same instruction stream.
type Parser struct {
	log    *errlog.Log
	src    SourceProvider
	params *config.Parameters
	b      *program.Builder

	contentType  string
	formatStack  []program.FormatMode
	overrideOf   []string       // stack of block names currently being overridden (for `super`)
	superTarget  map[string]int // block name -> base body start, valid while overriding that name
	includeDepth int
}

// New creates a Parser. src may be nil if the template set never uses
// `include`/`extends` (any such directive then logs an ERROR and is
// skipped). params supplies shorttag and maxincludedepth.
func New(log *errlog.Log, src SourceProvider, params *config.Parameters) *Parser {
	if params == nil {
		params = config.DefaultParameters()
	}
	return &Parser{
		log:         log,
		src:         src,
		params:      params,
		b:           program.NewBuilder(),
		superTarget: make(map[string]int),
	}
}

// Compile parses filename/body as the main template under the given
// content-type MIME name and returns the finished Program.
func (p *Parser) Compile(filename, body, contentType string) *program.Program {
	p.contentType = contentType
	p.b.SetContentType(contentType)
	p.compileSource(filename, body)
	p.b.Emit(program.OpHalt, errlog.Position{Filename: filename})
	return p.b.Finish()
}

func (p *Parser) compileSource(filename, src string) {
	chunks := lexer.NewLevel1(filename, src, p.params.ShortTag, p.log).Lex()
	cc := newChunkCursor(chunks)
	p.compileBlock(filename, cc, nil)
}

// chunkCursor is a read cursor over a Level 1 chunk slice, analogous
// to the expression parser's token cursor but one level up: it drives
// the directive-keyword statement grammar instead of expressions.
type chunkCursor struct {
	chunks []lexer.Chunk
	i      int
}

func newChunkCursor(chunks []lexer.Chunk) *chunkCursor { return &chunkCursor{chunks: chunks} }

func (cc *chunkCursor) peek() lexer.Chunk {
	if cc.i >= len(cc.chunks) {
		return lexer.Chunk{Kind: lexer.ChunkEOF}
	}
	return cc.chunks[cc.i]
}

func (cc *chunkCursor) advance() lexer.Chunk {
	c := cc.peek()
	if cc.i < len(cc.chunks) {
		cc.i++
	}
	return c
}

// compileBlock compiles chunks from cc until EOF or a directive whose
// first keyword is in stop; that directive is left unconsumed so the
// caller (a block statement like `if`/`frag`) can inspect and advance
// past it itself. Returns the stopping keyword, or "" at EOF.
func (p *Parser) compileBlock(filename string, cc *chunkCursor, stop map[string]bool) string {
	for {
		c := cc.peek()
		switch c.Kind {
		case lexer.ChunkEOF:
			return ""
		case lexer.ChunkText:
			cc.advance()
			p.emitText(c)
		case lexer.ChunkDirective:
			switch c.Form {
			case lexer.FormDollarPrint:
				cc.advance()
				ParseExpr(filename, c.Text, c.Pos.Line, c.Pos.Column, p.log, p.b)
				// printescape off disables the ${} escaping form (spec.md
				// §6): it then behaves like %{}, printing unescaped.
				escape := 0
				if p.params.PrintEscape {
					escape = 1
				}
				p.b.EmitOperand(program.OpPrint, escape, c.Pos)
			case lexer.FormPercentPrint:
				cc.advance()
				ParseExpr(filename, c.Text, c.Pos.Line, c.Pos.Column, p.log, p.b)
				p.b.EmitOperand(program.OpPrint, 0, c.Pos)
			case lexer.FormHashDict:
				cc.advance()
				p.emitDictLookup(c)
			default: // FormTeng, FormShort
				kw := p.peekKeyword(filename, c)
				if stop != nil && stop[kw] {
					return kw
				}
				cc.advance()
				p.dispatchKeyword(filename, cc, c, kw)
			}
		}
	}
}

// peekKeyword returns the first identifier token of a directive body
// without otherwise consuming it (a second, real lex happens when the
// matched statement compiler builds its own parserState).
func (p *Parser) peekKeyword(filename string, c lexer.Chunk) string {
	toks := lexer.NewLevel2(filename, c.Text, c.Pos.Line, c.Pos.Column, p.log).Lex()
	if len(toks) > 0 && toks[0].Kind == lexer.L2Ident {
		return toks[0].Text
	}
	return ""
}

// newDirectiveState lexes a directive chunk's body and advances past
// its leading keyword token (if any), leaving the cursor positioned
// at whatever follows for the caller's statement-specific parsing.
func (p *Parser) newDirectiveState(filename string, c lexer.Chunk) *parserState {
	ps := newParserState(filename, c.Text, c.Pos.Line, c.Pos.Column, p.log, p.b)
	if ps.c.peek().Kind == lexer.L2Ident {
		ps.c.advance()
	}
	return ps
}

func (p *Parser) dispatchKeyword(filename string, cc *chunkCursor, c lexer.Chunk, kw string) {
	switch kw {
	case "if":
		p.compileIf(filename, cc, c)
	case "frag":
		p.compileFrag(filename, cc, c)
	case "format":
		p.compileFormat(filename, cc, c)
	case "ctype":
		p.compileCtype(filename, cc, c)
	case "include":
		p.compileInclude(filename, c)
	case "extends":
		p.compileExtends(filename, cc, c)
	case "define":
		p.compileDefine(filename, cc, c)
	case "super":
		p.compileSuper(c)
	case "set":
		p.compileSet(filename, c)
	case "debug":
		if p.params.Debug {
			p.b.Emit(program.OpDebugFrag, c.Pos)
		}
	case "bytecode":
		if p.params.Bytecode {
			p.b.Emit(program.OpBytecodeFrag, c.Pos)
		}
	case "_error":
		// `_error` has no opcode of its own: it compiles to DEBUG_FRAG
		// and so renders the same frag-position dump as `debug`; the
		// error log itself is not rendered, and no `._error` fragment
		// is exposed to template paths.
		if p.params.ErrorFragment {
			p.b.Emit(program.OpDebugFrag, c.Pos)
		}
	default:
		p.log.Error(c.Pos, "unknown directive %q", kw)
		p.log.Diag(c.Pos, "expected one of: if, frag, set, format, ctype, include, extends, define, super, debug, bytecode")
	}
}

// emitText emits a literal text run, applying the innermost active
// `format` whitespace mode if any.
func (p *Parser) emitText(c lexer.Chunk) {
	text := c.Text
	if len(p.formatStack) > 0 {
		text = format.Apply(p.formatStack[len(p.formatStack)-1], p.contentType, text)
	}
	if text == "" {
		return
	}
	idx := p.b.AddConstant(value.NewString(text))
	p.b.EmitOperand(program.OpVal, idx, c.Pos)
	p.b.EmitOperand(program.OpPrint, 0, c.Pos)
}

// emitDictLookup compiles `#{key}`. No dedicated opcode is named for
// dictionary lookup in the opcode groups list, so it is compiled as a
// call to the reserved builtin UDF "_dict" with the raw key text as
// its sole literal argument, reusing CALL rather than inventing an
// opcode (the Dictionary itself is supplied to the VM per-render, not
// baked into the Program, so the lookup cannot be folded at compile time).
func (p *Parser) emitDictLookup(c lexer.Chunk) {
	key := c.Text
	idx := p.b.AddConstant(value.NewString(key))
	p.b.EmitOperand(program.OpVal, idx, c.Pos)
	nameIdx := p.b.AddConstant(value.NewString("_dict"))
	p.b.EmitCall(nameIdx, 1, c.Pos)
	p.b.EmitOperand(program.OpPrint, 1, c.Pos)
}
