package cache

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/gotengo/teng/config"
)

// depStat is a dependency file's (path, mtime, size) snapshot taken
// at build time, restated on every lookup when watchfiles is enabled
// (spec.md §4.7 "a list of (path, mtime, size) pairs used to
// invalidate the entry").
type depStat struct {
	Path    string
	ModTime time.Time
	Size    int64
}

func statDeps(paths []string) ([]depStat, error) {
	out := make([]depStat, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cache: stat %s: %w", p, err)
		}
		out = append(out, depStat{Path: p, ModTime: fi.ModTime(), Size: fi.Size()})
	}
	return out, nil
}

// fresh reports whether every recorded dependency still matches disk.
// A missing or changed file makes the entry stale.
func fresh(deps []depStat) bool {
	for _, d := range deps {
		fi, err := os.Stat(d.Path)
		if err != nil || !fi.ModTime().Equal(d.ModTime) || fi.Size() != d.Size {
			return false
		}
	}
	return true
}

type entry[T any] struct {
	value T
	deps  []depStat
}

// BuildFunc compiles the artifact for key, returning the dependency
// file paths (the main template plus any include/extends/dict files
// actually read) so the Store can snapshot them for invalidation.
type BuildFunc[T any] func(key Key) (T, []string, error)

// Store is a generic keyed LRU with mtime/size validation and
// build-lock collapsing (spec.md §4.7's lookup algorithm): concurrent
// requests for the same stale/missing key share one build via
// singleflight, the way the teacher's own session/token services
// serialize access with a mutex around a map, generalized here to a
// per-key lock so unrelated keys never block each other.
type Store[T any] struct {
	lru   *lru.Cache[string, *entry[T]]
	group singleflight.Group
}

// NewStore creates a Store with the given capacity. Callers are
// expected to have already replaced a zero capacity with
// config.DefaultCacheSize (spec.md §4.7), but a non-positive value is
// clamped here too: hashicorp/golang-lru's lru.New returns a nil
// *lru.Cache for capacity <= 0, which would otherwise leave s.lru nil
// and panic on the first Resolve.
func NewStore[T any](capacity int) *Store[T] {
	if capacity <= 0 {
		capacity = config.DefaultCacheSize
	}
	c, err := lru.New[string, *entry[T]](capacity)
	if err != nil {
		panic(fmt.Sprintf("cache: lru.New(%d): %v", capacity, err))
	}
	return &Store[T]{lru: c}
}

// Resolve returns the cached artifact for key, building it (and
// collapsing concurrent duplicate builds) on a miss or a stale entry.
// watch selects whether a hit is still restated against disk
// (`watchfiles` is a per-render Parameters option, spec.md §6, so it
// is passed in per call rather than fixed at Store construction).
func (s *Store[T]) Resolve(key Key, watch bool, build BuildFunc[T]) (T, error) {
	k := key.normalize()
	ks := k.String()

	if e, ok := s.lru.Get(ks); ok {
		if !watch || fresh(e.deps) {
			return e.value, nil
		}
		s.lru.Remove(ks)
	}

	v, err, _ := s.group.Do(ks, func() (any, error) {
		if e, ok := s.lru.Get(ks); ok && (!watch || fresh(e.deps)) {
			return e, nil
		}
		val, depPaths, err := build(k)
		if err != nil {
			return nil, err
		}
		deps, err := statDeps(depPaths)
		if err != nil {
			return nil, err
		}
		e := &entry[T]{value: val, deps: deps}
		s.lru.Add(ks, e)
		return e, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(*entry[T]).value, nil
}

// Len reports the number of entries currently cached.
func (s *Store[T]) Len() int { return s.lru.Len() }

// Evict drops key, forcing the next Resolve to rebuild.
func (s *Store[T]) Evict(key Key) {
	s.lru.Remove(key.normalize().String())
}

// Purge drops every entry.
func (s *Store[T]) Purge() { s.lru.Purge() }
