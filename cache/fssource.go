package cache

import (
	"os"
	"sync"
)

// trackingSource is a filesystem-backed parser.SourceProvider that
// records every path it is asked to read. The parser itself has no
// concept of "what files did this compile touch" (spec.md §4.7 needs
// exactly that list to drive mtime/size invalidation), so the cache
// supplies its own SourceProvider and recovers the dependency list as
// a side effect of compilation rather than from the parser's API.
type trackingSource struct {
	mu    sync.Mutex
	reads []string
}

func newTrackingSource() *trackingSource {
	return &trackingSource{}
}

func (s *trackingSource) ReadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.reads = append(s.reads, path)
	s.mu.Unlock()
	return string(data), nil
}

// deps returns every path read so far, in read order.
func (s *trackingSource) deps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.reads))
	copy(out, s.reads)
	return out
}
