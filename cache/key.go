// Package cache implements Teng's TemplateCache: a keyed, LRU,
// mtime/size-validated store of compiled artifacts shared across
// concurrent renders (spec.md §4.7).
package cache

import (
	"path/filepath"
	"strings"
)

// Key identifies one TemplateCache entry: the normalized absolute
// paths that feed a single compiled artifact, plus the request
// parameters that change how they're interpreted (spec.md §4.7
// "Key = ... resolved absolute paths of main template + skin + dict +
// lang + params + content-type + encoding").
type Key struct {
	Template    string
	Skin        string
	Dict        string
	Lang        string
	Params      string
	ContentType string
	Encoding    string
}

// normalize resolves every non-empty path field to its absolute,
// cleaned form so two requests that spell the same file differently
// (relative vs. absolute, trailing slash, `..`) hit the same entry.
func (k Key) normalize() Key {
	k.Template = normPath(k.Template)
	k.Skin = normPath(k.Skin)
	k.Dict = normPath(k.Dict)
	k.Params = normPath(k.Params)
	return k
}

func normPath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// String renders the key as the cache's internal lookup string.
func (k Key) String() string {
	var b strings.Builder
	for _, part := range []string{k.Template, k.Skin, k.Dict, k.Lang, k.Params, k.ContentType, k.Encoding} {
		b.WriteString(part)
		b.WriteByte(0)
	}
	return b.String()
}
