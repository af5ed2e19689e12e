// Package debug renders reflection graphs for inspection.
//
// # Outputs
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│  FormatGraph  indented tree, written to stderr by the runner     │
//	│  WriteDOT     Graphviz DOT, one file per method (--dot DIR)      │
//	└──────────────────────────────────────────────────────────────────┘
//
// Both work on chain.Snapshot values, which hold no references into the
// method, so snapshots can be rendered after the method was rewritten.
package debug

import (
	"sort"
	"sync"

	"github.com/mpyw/reflectfold/internal/chain"
)

// Collector gathers graph snapshots from concurrent method visits.
// This keeps debug output ordered independently of worker scheduling.
type Collector struct {
	mu        sync.Mutex
	snapshots []*chain.Snapshot
}

// NewCollector creates a new Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record stores a snapshot. Nil snapshots are ignored.
func (c *Collector) Record(s *chain.Snapshot) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, s)
}

// Snapshots returns the recorded snapshots sorted by method name.
func (c *Collector) Snapshots() []*chain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*chain.Snapshot, len(c.snapshots))
	copy(out, c.snapshots)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Method < out[j].Method
	})
	return out
}
