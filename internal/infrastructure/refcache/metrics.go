package refcache

import "sync/atomic"

// Metrics counts cache tier outcomes. Disk hits count separately from
// memory hits so the log line shows where lookups are landing.
type Metrics struct {
	hits     atomic.Uint64
	diskHits atomic.Uint64
	misses   atomic.Uint64
}

type MetricsSnapshot struct {
	Hits     uint64
	DiskHits uint64
	Misses   uint64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:     m.hits.Load(),
		DiskHits: m.diskHits.Load(),
		Misses:   m.misses.Load(),
	}
}

// HitRate is the fraction of lookups served from either tier.
func (s MetricsSnapshot) HitRate() float64 {
	total := s.Hits + s.DiskHits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits+s.DiskHits) / float64(total)
}
