// Package dict parses Teng's line-oriented dictionary files (spec.md
// §6): "# comment" lines, "KEY value text" entries with a backslash
// line continuation, later duplicate keys overriding earlier ones.
package dict

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Dictionary is a parsed key->string map loaded from one or more
// dictionary files. It has no notion of a language: layering files
// (e.g. per-language ones) is up to the host, through successive
// LoadFile or Merge calls.
type Dictionary struct {
	entries map[string]string
}

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// New returns an empty Dictionary.
func New() *Dictionary {
	return &Dictionary{entries: make(map[string]string)}
}

// Get looks up key, returning ok=false if it is absent.
func (d *Dictionary) Get(key string) (string, bool) {
	v, ok := d.entries[key]
	return v, ok
}

// Set stores key=value directly, overriding any earlier value; used
// by hosts that build a Dictionary programmatically.
func (d *Dictionary) Set(key, value string) {
	d.entries[key] = value
}

// Len reports the number of distinct keys.
func (d *Dictionary) Len() int { return len(d.entries) }

// LoadFile parses path and merges its entries into d. Later
// occurrences of the same key (within this file or across successive
// LoadFile calls) override earlier ones.
func (d *Dictionary) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dict: open %s: %w", path, err)
	}
	defer f.Close()
	return d.Load(f, path)
}

// Load parses dictionary-format text from r. name is used only in
// error messages.
func (d *Dictionary) Load(r io.Reader, name string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	var pendingKey string
	var pendingVal strings.Builder
	continuing := false

	flush := func() {
		if pendingKey != "" {
			d.entries[pendingKey] = pendingVal.String()
		}
		pendingKey = ""
		pendingVal.Reset()
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if continuing {
			trimmed := strings.TrimPrefix(line, " ")
			if strings.HasSuffix(trimmed, `\`) {
				pendingVal.WriteString(strings.TrimSuffix(trimmed, `\`))
				continue
			}
			pendingVal.WriteString(trimmed)
			continuing = false
			flush()
			continue
		}

		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		sp := strings.IndexAny(trimmed, " \t")
		var key, val string
		if sp < 0 {
			key, val = trimmed, ""
		} else {
			key, val = trimmed[:sp], strings.TrimLeft(trimmed[sp+1:], " \t")
		}
		if !keyPattern.MatchString(key) {
			return fmt.Errorf("dict: %s:%d: invalid key %q", name, lineNo, key)
		}

		if strings.HasSuffix(val, `\`) {
			pendingKey = key
			pendingVal.Reset()
			pendingVal.WriteString(strings.TrimSuffix(val, `\`))
			continuing = true
			continue
		}

		d.entries[key] = val
	}
	flush()
	return scanner.Err()
}

// Merge copies every entry of other into d, overriding existing keys.
func (d *Dictionary) Merge(other *Dictionary) {
	for k, v := range other.entries {
		d.entries[k] = v
	}
}
