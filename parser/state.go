package parser

import (
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/lexer"
	"github.com/gotengo/teng/program"
)

// parserState is the shared expression/path-parsing context: a token
// cursor plus the destinations (log, builder) instructions and
// diagnostics are emitted to. Parser (parser.go) embeds one of these
// per directive body it compiles; expr.go/path.go methods hang off it
// so expression compiling can be reused identically from statement
// contexts (if-conditions, set right-hand sides, frag index
// expressions) without duplicating the precedence-climbing parser.
type parserState struct {
	c        *cursor
	log      *errlog.Log
	b        *program.Builder
	filename string
}

func newParserState(filename, body string, line, col int, log *errlog.Log, b *program.Builder) *parserState {
	l2 := lexer.NewLevel2(filename, body, line, col, log)
	return &parserState{c: newCursor(l2.Lex()), log: log, b: b, filename: filename}
}
