// Package config implements Teng's per-template Parameters file
// (spec.md §6) and the engine-wide Settings used to construct a cache
// (SPEC_FULL.md AMBIENT STACK).
package config

import (
	"strconv"

	"github.com/gotengo/teng/dict"
)

// Parameters holds the recognized options from spec.md §6's table.
type Parameters struct {
	Debug             bool
	Bytecode          bool
	ErrorFragment     bool
	LogToOutput       bool
	WatchFiles        bool
	MaxIncludeDepth   int `validate:"gte=1"`
	MaxDebugValLength int `validate:"gte=0"`
	Format            bool
	AlwaysEscape      bool
	PrintEscape       bool
	ShortTag          bool
}

// DefaultParameters returns the documented defaults from spec.md §6.
func DefaultParameters() *Parameters {
	return &Parameters{
		Debug:             false,
		Bytecode:          false,
		ErrorFragment:     false,
		LogToOutput:       false,
		WatchFiles:        true,
		MaxIncludeDepth:   10,
		MaxDebugValLength: 40,
		Format:            true,
		AlwaysEscape:      true,
		PrintEscape:       true,
		ShortTag:          true,
	}
}

// boolFields maps a dictionary key (case as it appears in the params
// file) to the boolean Parameters field it sets.
var boolFields = map[string]func(*Parameters, bool){
	"debug":         func(p *Parameters, v bool) { p.Debug = v },
	"bytecode":      func(p *Parameters, v bool) { p.Bytecode = v },
	"errorfragment": func(p *Parameters, v bool) { p.ErrorFragment = v },
	"logtooutput":   func(p *Parameters, v bool) { p.LogToOutput = v },
	"watchfiles":    func(p *Parameters, v bool) { p.WatchFiles = v },
	"format":        func(p *Parameters, v bool) { p.Format = v },
	"alwaysescape":  func(p *Parameters, v bool) { p.AlwaysEscape = v },
	"printescape":   func(p *Parameters, v bool) { p.PrintEscape = v },
	"shorttag":      func(p *Parameters, v bool) { p.ShortTag = v },
}

var intFields = map[string]func(*Parameters, int){
	"maxincludedepth":   func(p *Parameters, v int) { p.MaxIncludeDepth = v },
	"maxdebugvallength": func(p *Parameters, v int) { p.MaxDebugValLength = v },
}

// LoadParameters parses a Parameters file, which uses the same
// line-oriented format as a Dictionary (spec.md §6: "Same syntax").
// Unknown keys are ignored (they may be template-defined constants
// pulled in from the same file via the Dictionary side-channel).
func LoadParameters(path string) (*Parameters, error) {
	d := dict.New()
	if err := d.LoadFile(path); err != nil {
		return nil, err
	}
	return ParametersFromDict(d), nil
}

// ParametersFromDict builds a Parameters, applying any recognized
// option keys found in d on top of the documented defaults.
func ParametersFromDict(d *dict.Dictionary) *Parameters {
	p := DefaultParameters()
	for key, setter := range boolFields {
		if v, ok := d.Get(key); ok {
			setter(p, parseBool(v))
		}
	}
	for key, setter := range intFields {
		if v, ok := d.Get(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				setter(p, n)
			}
		}
	}
	return p
}

func parseBool(s string) bool {
	switch s {
	case "1", "on", "true", "yes":
		return true
	default:
		return false
	}
}
