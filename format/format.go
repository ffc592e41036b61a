// Package format applies whitespace modes to literal text runs
// (spec.md §4.6 "Formatter"). It is consulted by the parser at
// compile time, since literal text content (unlike a printed
// expression value) is fully known before the Program ever runs.
package format

import (
	"regexp"
	"strings"
	"sync"

	"github.com/gotengo/teng/program"
	"github.com/tdewolff/minify/v2"
	tdhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

var (
	minifier     *minify.M
	minifierOnce sync.Once
)

func htmlMinifier() *minify.M {
	minifierOnce.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("text/html", tdhtml.Minify)
	})
	return minifier
}

// Apply transforms s per mode. When contentType is "text/html", every
// mode that touches whitespace is applied DOM-aware rather than by a
// blind regex/line split, so markup structure (tag and attribute text,
// `<pre>` content) isn't mangled the way treating the run as plain
// text would: `nowhite`/`nospace` defer to the teacher's own HTML
// minifier, and the remaining line/run-collapsing modes walk the
// parsed node tree (tree.go's html.Parse/html.Render idiom) and
// collapse only text nodes. Every other content type is handled
// directly on the raw string.
func Apply(mode program.FormatMode, contentType, s string) string {
	if contentType == "text/html" {
		switch mode {
		case program.FormatNoWhite, program.FormatNoSpace:
			if out, err := htmlMinifier().String("text/html", s); err == nil {
				return out
			}
		default:
			if out, ok := applyHTMLAware(mode, s); ok {
				return out
			}
		}
	}
	return applyPlain(mode, s)
}

// applyPlain is mode's effect on s treated as plain text, used for
// every non-HTML content type and as the HTML path's parse-failure
// fallback.
func applyPlain(mode program.FormatMode, s string) string {
	switch mode {
	case program.FormatNoWhite, program.FormatNoSpace:
		return whitespaceRun.ReplaceAllString(s, "")
	case program.FormatOneSpace:
		return whitespaceRun.ReplaceAllString(s, " ")
	case program.FormatStripLines:
		lines := strings.Split(s, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimSpace(l)
		}
		return strings.Join(lines, "\n")
	case program.FormatJoinLines:
		lines := strings.Split(s, "\n")
		kept := make([]string, 0, len(lines))
		for _, l := range lines {
			if t := strings.TrimSpace(l); t != "" {
				kept = append(kept, t)
			}
		}
		return strings.Join(kept, " ")
	case program.FormatNoWhiteLines:
		lines := strings.Split(s, "\n")
		kept := make([]string, 0, len(lines))
		for _, l := range lines {
			if strings.TrimSpace(l) != "" {
				kept = append(kept, l)
			}
		}
		return strings.Join(kept, "\n")
	default:
		return s
	}
}

// applyHTMLAware parses s as an HTML fragment, runs applyPlain over
// every text node's data in isolation, and renders the result back.
// Reports ok=false (caller falls back to applyPlain on the raw
// string) if s doesn't parse as a fragment, e.g. a partial tag split
// across two text runs by an intervening directive.
func applyHTMLAware(mode program.FormatMode, s string) (string, bool) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return "", false
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && !isRawTextElement(n.Parent) {
			n.Data = applyPlain(mode, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	var buf strings.Builder
	for _, n := range nodes {
		walk(n)
		if err := html.Render(&buf, n); err != nil {
			return "", false
		}
	}
	return buf.String(), true
}

// isRawTextElement reports whether parent's text content is verbatim
// (whitespace-significant) per the HTML spec, so its text nodes must
// be left untouched by applyHTMLAware.
func isRawTextElement(parent *html.Node) bool {
	if parent == nil || parent.Type != html.ElementNode {
		return false
	}
	switch parent.DataAtom {
	case atom.Pre, atom.Script, atom.Style, atom.Textarea:
		return true
	}
	return false
}
