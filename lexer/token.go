// Package lexer implements Teng's two-level lexer (spec.md §4.1): a
// Level 1 pass that splits raw template bytes into literal text runs
// and directive bodies, and a Level 2 pass that tokenizes the
// expression sublanguage found inside a directive body.
package lexer

import "github.com/gotengo/teng/errlog"

// Form identifies which surface syntax introduced a directive body.
type Form uint8

const (
	// FormTeng is `<?teng <kw> ...?>`.
	FormTeng Form = iota
	// FormShort is `<? ... ?>`, accepted only when the shorttag
	// parameter is enabled; it carries the same body grammar as FormTeng.
	FormShort
	// FormDollarPrint is `${expr}`, an escaping print.
	FormDollarPrint
	// FormPercentPrint is `%{expr}`, a raw (non-escaping) print.
	FormPercentPrint
	// FormHashDict is `#{key}`, a dictionary lookup.
	FormHashDict
)

// ChunkKind distinguishes a literal text run from a directive body in
// the Level 1 token stream.
type ChunkKind uint8

const (
	ChunkText ChunkKind = iota
	ChunkDirective
	ChunkEOF
)

// Chunk is one Level 1 token.
type Chunk struct {
	Kind ChunkKind
	Form Form          // meaningful only when Kind == ChunkDirective
	Text string        // literal text, or the raw body between delimiters
	Pos  errlog.Position
}

// L2TokenKind enumerates the Level 2 (expression) token classes.
type L2TokenKind uint8

const (
	L2EOF L2TokenKind = iota
	L2Ident
	L2Int
	L2Real
	L2String
	L2Op // operator or punctuation, see token text for which one
)

// L2Token is one Level 2 token.
type L2Token struct {
	Kind L2TokenKind
	Text string // identifier name, operator text, or the string's decoded value
	IVal int64
	RVal float64
	Pos  errlog.Position
}

// operator and punctuation symbols recognized by Level 2, ordered
// longest-first so greedy matching picks multi-char operators before
// their single-char prefixes.
var l2Symbols = []string{
	"<=", ">=", "==", "!=", "=~", "!~", "&&", "||", "++", "**", "$$",
	"<", ">", "=", "!", "+", "-", "*", "/", "%", "&", "|", "^", "~",
	"?", ":", ",", ".", "(", ")", "[", "]", "$",
}
