// Package cache implements Teng's TemplateCache: independent, keyed,
// LRU, mtime/size-validated stores of compiled Programs and loaded
// Dictionaries shared across concurrent renders (spec.md §4.7).
package cache

import (
	"fmt"
	"os"

	"github.com/gotengo/teng/config"
	"github.com/gotengo/teng/dict"
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/parser"
	"github.com/gotengo/teng/program"
)

// TemplateCache holds the engine's compiled-Program cache and loaded-
// Dictionary cache. They are kept as two independent Stores (spec.md
// §4.7: "Dicts and Programs use independent caches") so a Dictionary
// eviction never disturbs a compiled Program and vice versa.
type TemplateCache struct {
	programs *Store[*program.Program]
	dicts    *Store[*dict.Dictionary]
	watcher  *Watcher
}

// New builds a TemplateCache sized from settings (a nil settings uses
// config.DefaultSettings).
func New(settings *config.Settings) *TemplateCache {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	settings.Normalize()
	return &TemplateCache{
		programs: NewStore[*program.Program](settings.ProgramCacheSize),
		dicts:    NewStore[*dict.Dictionary](settings.DictCacheSize),
	}
}

// GetProgram resolves key.Template (plus any files it includes or
// extends) to a compiled Program, building and inserting it on a miss
// or a stale hit, and collapsing duplicate concurrent builds for the
// same key (spec.md §4.7 steps 1-4). Parse diagnostics are appended to
// log. params.WatchFiles (spec.md §6, a per-render Parameters option)
// decides whether a hit is restated against disk before being reused.
func (c *TemplateCache) GetProgram(key Key, params *config.Parameters, log *errlog.Log) (*program.Program, error) {
	if params == nil {
		params = config.DefaultParameters()
	}
	return c.programs.Resolve(key, params.WatchFiles, func(k Key) (*program.Program, []string, error) {
		body, err := os.ReadFile(k.Template)
		if err != nil {
			return nil, nil, fmt.Errorf("cache: read template %s: %w", k.Template, err)
		}
		src := newTrackingSource()
		p := parser.New(log, src, params)
		prog := p.Compile(k.Template, string(body), k.ContentType)
		deps := append([]string{k.Template}, src.deps()...)
		return prog, deps, nil
	})
}

// GetDict resolves key.Dict (and key.Lang, if the caller composed it
// into the key) to a loaded Dictionary, loading it from disk on a
// miss or a stale hit. params may be nil (defaults apply).
func (c *TemplateCache) GetDict(key Key, params *config.Parameters) (*dict.Dictionary, error) {
	if params == nil {
		params = config.DefaultParameters()
	}
	return c.dicts.Resolve(key, params.WatchFiles, func(k Key) (*dict.Dictionary, []string, error) {
		d := dict.New()
		if k.Dict == "" {
			return d, nil, nil
		}
		if err := d.LoadFile(k.Dict); err != nil {
			return nil, nil, fmt.Errorf("cache: load dict %s: %w", k.Dict, err)
		}
		return d, []string{k.Dict}, nil
	})
}

// SetWatcher attaches w so future invalidations push a live-reload
// notice to any subscriber of the affected key (nil disables this).
func (c *TemplateCache) SetWatcher(w *Watcher) { c.watcher = w }

// InvalidateProgram forces key's Program entry to rebuild on next use.
func (c *TemplateCache) InvalidateProgram(key Key) {
	c.programs.Evict(key)
	if c.watcher != nil {
		c.watcher.Notify(key, key.Template)
	}
}

// InvalidateDict forces key's Dictionary entry to rebuild on next use.
func (c *TemplateCache) InvalidateDict(key Key) { c.dicts.Evict(key) }

// PurgeAll drops every cached Program and Dictionary, e.g. after a
// signed remote invalidation request (see admintoken.go).
func (c *TemplateCache) PurgeAll() {
	c.programs.Purge()
	c.dicts.Purge()
}

// ProgramCount and DictCount report current cache occupancy, mostly
// for diagnostics/metrics endpoints.
func (c *TemplateCache) ProgramCount() int { return c.programs.Len() }
func (c *TemplateCache) DictCount() int    { return c.dicts.Len() }
