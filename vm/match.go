package vm

import (
	"regexp"

	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/value"
)

// match implements =~/!~: b supplies the pattern, either as a Regex
// value (host/UDF-constructed) or as a plain string treated as a
// regex (the grammar has no regex literal syntax, see DESIGN.md). a is
// matched against it as a string.
func (p *Processor) match(op program.Op, pos errlog.Position) {
	b := p.pop()
	a := p.pop()

	pattern := b.String()
	if r, ok := b.AsRegex(); ok {
		pattern = r.Pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		p.push(p.warnUndef(pos, &value.TypeMismatch{Op: "=~", Left: a.Kind(), Right: b.Kind()}))
		return
	}
	matched := re.MatchString(a.String())
	if op == program.OpNotMatch {
		matched = !matched
	}
	p.push(value.FromBool(matched))
}
