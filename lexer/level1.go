package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/gotengo/teng/errlog"
)

// eof is the rune value returned by next() once input is exhausted.
const eof rune = -1

// Level1 scans raw template bytes into a flat chunk stream.
type Level1 struct {
	filename  string
	input     string
	pos       int
	line, col int
	shortTag  bool
	log       *errlog.Log
	chunks    []Chunk
}

// NewLevel1 creates a Level1 lexer for input. shortTag enables the
// bare `<? ... ?>` directive form (spec.md §4.1); log receives lexical
// WARNING/ERROR diagnostics.
func NewLevel1(filename, input string, shortTag bool, log *errlog.Log) *Level1 {
	return &Level1{
		filename: filename,
		input:    input,
		line:     1,
		col:      1,
		shortTag: shortTag,
		log:      log,
	}
}

func (l *Level1) pos0() errlog.Position {
	return errlog.Position{Filename: l.filename, Line: l.line, Column: l.col}
}

func (l *Level1) advance(r rune, w int) {
	l.pos += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Level1) hasPrefix(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// Lex runs the full scan and returns the chunk list (always terminated
// by a ChunkEOF entry).
func (l *Level1) Lex() []Chunk {
	var textStart int
	textPos := l.pos0()
	flushText := func(end int) {
		if end > textStart {
			l.chunks = append(l.chunks, Chunk{Kind: ChunkText, Text: l.input[textStart:end], Pos: textPos})
		}
	}

	for l.pos < len(l.input) {
		switch {
		case l.hasPrefix("<!---"):
			flushText(l.pos)
			l.skipBlockComment()
			textStart = l.pos
			textPos = l.pos0()
		case l.hasPrefix(`<\?`):
			flushText(l.pos)
			lit := l.scanEscapedDirective()
			l.chunks = append(l.chunks, Chunk{Kind: ChunkText, Text: lit, Pos: l.pos0()})
			textStart = l.pos
			textPos = l.pos0()
		case l.hasPrefix("<?teng"):
			flushText(l.pos)
			start := l.pos0()
			l.skipN(len("<?teng"))
			body, ok := l.scanUntilDelim("?>")
			if !ok {
				l.log.Error(start, "unterminated <?teng directive")
			}
			l.chunks = append(l.chunks, Chunk{Kind: ChunkDirective, Form: FormTeng, Text: body, Pos: start})
			textStart = l.pos
			textPos = l.pos0()
		case l.shortTag && l.hasPrefix("<?"):
			flushText(l.pos)
			start := l.pos0()
			l.skipN(len("<?"))
			body, ok := l.scanUntilDelim("?>")
			if !ok {
				l.log.Error(start, "unterminated <? directive")
			}
			l.chunks = append(l.chunks, Chunk{Kind: ChunkDirective, Form: FormShort, Text: body, Pos: start})
			textStart = l.pos
			textPos = l.pos0()
		case l.hasPrefix("${"):
			flushText(l.pos)
			start := l.pos0()
			l.skipN(2)
			body, ok := l.scanUntilBrace()
			if !ok {
				l.log.Error(start, "unterminated ${...} expression")
			}
			l.chunks = append(l.chunks, Chunk{Kind: ChunkDirective, Form: FormDollarPrint, Text: body, Pos: start})
			textStart = l.pos
			textPos = l.pos0()
		case l.hasPrefix("%{"):
			flushText(l.pos)
			start := l.pos0()
			l.skipN(2)
			body, ok := l.scanUntilBrace()
			if !ok {
				l.log.Error(start, "unterminated %%{...} expression")
			}
			l.chunks = append(l.chunks, Chunk{Kind: ChunkDirective, Form: FormPercentPrint, Text: body, Pos: start})
			textStart = l.pos
			textPos = l.pos0()
		case l.hasPrefix("#{"):
			flushText(l.pos)
			start := l.pos0()
			l.skipN(2)
			body, ok := l.scanUntilBrace()
			if !ok {
				l.log.Error(start, "unterminated #{...} dictionary lookup")
			}
			l.chunks = append(l.chunks, Chunk{Kind: ChunkDirective, Form: FormHashDict, Text: body, Pos: start})
			textStart = l.pos
			textPos = l.pos0()
		default:
			r, w := utf8.DecodeRuneInString(l.input[l.pos:])
			l.advance(r, w)
		}
	}
	flushText(l.pos)
	l.chunks = append(l.chunks, Chunk{Kind: ChunkEOF, Pos: l.pos0()})
	return l.chunks
}

func (l *Level1) skipN(n int) {
	for i := 0; i < n && l.pos < len(l.input); i++ {
		r, w := utf8.DecodeRuneInString(l.input[l.pos:])
		l.advance(r, w)
	}
}

// skipBlockComment consumes a <!--- ... ---> comment, discarding it.
func (l *Level1) skipBlockComment() {
	l.skipN(len("<!---"))
	for l.pos < len(l.input) {
		if l.hasPrefix("--->") {
			l.skipN(4)
			return
		}
		r, w := utf8.DecodeRuneInString(l.input[l.pos:])
		l.advance(r, w)
	}
	l.log.Error(l.pos0(), "unterminated comment")
}

// scanEscapedDirective consumes `<\?...\?>` and returns the literal
// text it produces (the escape markers removed, `?>` kept literal).
func (l *Level1) scanEscapedDirective() string {
	start := l.pos
	l.skipN(len(`<\?`))
	bodyStart := l.pos
	for l.pos < len(l.input) {
		if l.hasPrefix(`\?>`) {
			body := l.input[bodyStart:l.pos]
			l.skipN(len(`\?>`))
			return "<?" + body + "?>"
		}
		r, w := utf8.DecodeRuneInString(l.input[l.pos:])
		l.advance(r, w)
	}
	l.log.Warning(errlog.Position{Filename: l.filename}, "malformed escape sequence")
	return l.input[start:l.pos]
}

// scanUntilDelim scans to the literal delimiter (e.g. "?>"), honoring
// single/double-quoted strings (with backslash escapes) so the
// delimiter cannot prematurely terminate a string literal's contents.
func (l *Level1) scanUntilDelim(delim string) (string, bool) {
	start := l.pos
	var quote rune
	for l.pos < len(l.input) {
		if quote == 0 && l.hasPrefix(delim) {
			body := l.input[start:l.pos]
			l.skipN(len(delim))
			return body, true
		}
		r, w := utf8.DecodeRuneInString(l.input[l.pos:])
		if quote != 0 {
			if r == '\\' {
				l.advance(r, w)
				if l.pos < len(l.input) {
					r2, w2 := utf8.DecodeRuneInString(l.input[l.pos:])
					l.advance(r2, w2)
				}
				continue
			}
			if r == quote {
				quote = 0
			}
			l.advance(r, w)
			continue
		}
		if r == '\'' || r == '"' {
			quote = r
		}
		l.advance(r, w)
	}
	return l.input[start:l.pos], false
}

// scanUntilBrace scans to a balanced, unquoted closing '}'.
func (l *Level1) scanUntilBrace() (string, bool) {
	start := l.pos
	var quote rune
	depth := 0
	for l.pos < len(l.input) {
		r, w := utf8.DecodeRuneInString(l.input[l.pos:])
		if quote != 0 {
			if r == '\\' {
				l.advance(r, w)
				if l.pos < len(l.input) {
					r2, w2 := utf8.DecodeRuneInString(l.input[l.pos:])
					l.advance(r2, w2)
				}
				continue
			}
			if r == quote {
				quote = 0
			}
			l.advance(r, w)
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
			l.advance(r, w)
		case '{':
			depth++
			l.advance(r, w)
		case '}':
			if depth == 0 {
				body := l.input[start:l.pos]
				l.advance(r, w)
				return body, true
			}
			depth--
			l.advance(r, w)
		default:
			l.advance(r, w)
		}
	}
	return l.input[start:l.pos], false
}
