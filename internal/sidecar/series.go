package sidecar

// SeriesSet records the series ids whose JSON was already written in this run.
// It is not safe for concurrent use; callers processing works in parallel
// must serialize access.
type SeriesSet struct {
	seen map[string]struct{}
}

// NewSeriesSet returns an empty set.
func NewSeriesSet() *SeriesSet {
	return &SeriesSet{seen: make(map[string]struct{})}
}

// Seen reports whether id was added before.
func (s *SeriesSet) Seen(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Add marks id as written.
func (s *SeriesSet) Add(id string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	s.seen[id] = struct{}{}
}

// Len returns the number of recorded series.
func (s *SeriesSet) Len() int { return len(s.seen) }
