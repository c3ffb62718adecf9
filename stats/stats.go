// Package stats tracks progress of a tile enumeration job.
package stats

import "sync/atomic"

// Statistics counts tiles of a job. Counters may be updated concurrently.
type Statistics struct {
	total   atomic.Int64
	visited atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// Snapshot is the serialized form of Statistics.
type Snapshot struct {
	Total   int64 `json:"total"`
	Visited int64 `json:"visited"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

func New(total int64) *Statistics {
	s := &Statistics{}
	s.total.Store(total)
	return s
}

func FromSnapshot(snapshot Snapshot) *Statistics {
	s := New(snapshot.Total)
	s.visited.Store(snapshot.Visited)
	s.skipped.Store(snapshot.Skipped)
	s.failed.Store(snapshot.Failed)
	return s
}

func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		Total:   s.total.Load(),
		Visited: s.visited.Load(),
		Skipped: s.skipped.Load(),
		Failed:  s.failed.Load(),
	}
}

func (s *Statistics) Total() int64   { return s.total.Load() }
func (s *Statistics) Visited() int64 { return s.visited.Load() }
func (s *Statistics) Skipped() int64 { return s.skipped.Load() }
func (s *Statistics) Failed() int64  { return s.failed.Load() }

func (s *Statistics) AddVisited(n int64) { s.visited.Add(n) }
func (s *Statistics) AddSkipped(n int64) { s.skipped.Add(n) }
func (s *Statistics) AddFailed(n int64)  { s.failed.Add(n) }

// Processed returns the number of tiles that were handled in any way.
func (s *Statistics) Processed() int64 {
	return s.visited.Load() + s.skipped.Load() + s.failed.Load()
}

// Remaining returns the number of tiles not processed yet, never negative.
func (s *Statistics) Remaining() int64 {
	return max(s.total.Load()-s.Processed(), 0)
}
