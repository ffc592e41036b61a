package parser

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/lexer"
)

// cursor is a read cursor over a Level 2 token slice, shared by the
// expression parser, the path parser and the directive-keyword
// statement parser. Level2.Lex always terminates with an L2EOF
// token, so peek/advance never run off the slice.
type cursor struct {
	toks []lexer.L2Token
	pos  int
}

func newCursor(toks []lexer.L2Token) *cursor { return &cursor{toks: toks} }

func (c *cursor) peek() lexer.L2Token {
	if c.pos >= len(c.toks) {
		return lexer.L2Token{Kind: lexer.L2EOF}
	}
	return c.toks[c.pos]
}

func (c *cursor) advance() lexer.L2Token {
	t := c.peek()
	if c.pos < len(c.toks)-1 {
		c.pos++
	}
	return t
}

func (c *cursor) atEnd() bool { return c.peek().Kind == lexer.L2EOF }

func (c *cursor) isOp(s string) bool {
	t := c.peek()
	return t.Kind == lexer.L2Op && t.Text == s
}

func (c *cursor) isIdent(s string) bool {
	t := c.peek()
	return t.Kind == lexer.L2Ident && t.Text == s
}

func (c *cursor) expectOp(s string) bool {
	if c.isOp(s) {
		c.advance()
		return true
	}
	return false
}

func (c *cursor) expectIdent(s string) bool {
	if c.isIdent(s) {
		c.advance()
		return true
	}
	return false
}

func (c *cursor) pos0() errlog.Position { return c.peek().Pos }
