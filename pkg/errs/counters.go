package errs

import "sync/atomic"

// Counters tallies data-quality warnings: problems that
// are logged and skipped rather than aborting the run. Every field is
// safe to increment concurrently from extraction workers.
type Counters struct {
	DroppedEdges        atomic.Int64
	DroppedRestrictions atomic.Int64
	UnresolvedEdges     atomic.Int64
}

func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		DroppedEdges:        c.DroppedEdges.Load(),
		DroppedRestrictions: c.DroppedRestrictions.Load(),
		UnresolvedEdges:     c.UnresolvedEdges.Load(),
	}
}

type CountersSnapshot struct {
	DroppedEdges        int64
	DroppedRestrictions int64
	UnresolvedEdges     int64
}
