package agent

import (
	"time"

	"github.com/m-mizutani/argus/pkg/model"
)

// SafetyFloor is the least remaining budget required to start another batch
const SafetyFloor = time.Second

// Governor owns the wall clock budget and batch bookkeeping of one run
type Governor struct {
	mode    model.RunMode
	budget  time.Duration
	now     func() time.Time
	started time.Time

	batches      int
	processed    int
	maxTimestamp int64
	// belowMax is the newest timestamp strictly older than maxTimestamp
	belowMax     int64
	exhausted    bool
}

// NewGovernor starts the budget clock
func NewGovernor(mode model.RunMode, budget time.Duration, now func() time.Time) *Governor {
	if now == nil {
		now = time.Now
	}
	return &Governor{
		mode:    mode,
		budget:  budget,
		now:     now,
		started: now(),
	}
}

// Next reports whether another batch may be fetched. A context run gets exactly one
// batch whatever the budget says.
func (g *Governor) Next() bool {
	if g.mode == model.RunModeContext {
		return g.batches == 0
	}

	elapsed := g.Elapsed()
	if elapsed >= g.budget || g.budget-elapsed < SafetyFloor {
		g.exhausted = true
		return false
	}
	return true
}

// Observe records a processed batch
func (g *Governor) Observe(batch []*model.Event) {
	g.batches++
	g.processed += len(batch)
	for _, e := range batch {
		switch {
		case e.Timestamp > g.maxTimestamp:
			g.belowMax = g.maxTimestamp
			g.maxTimestamp = e.Timestamp
		case e.Timestamp < g.maxTimestamp && e.Timestamp > g.belowMax:
			g.belowMax = e.Timestamp
		}
	}
}

// Elapsed returns time spent since the run started
func (g *Governor) Elapsed() time.Duration {
	return g.now().Sub(g.started)
}

func (g *Governor) Batches() int {
	return g.batches
}

func (g *Governor) Processed() int {
	return g.processed
}

// MaxTimestamp is the newest event timestamp observed, or 0
func (g *Governor) MaxTimestamp() int64 {
	return g.maxTimestamp
}

// Checkpoint is the newest timestamp the scan is known to have fully covered. When the
// budget ran out, unscanned events may share the newest observed timestamp, so the
// checkpoint stays strictly below it.
func (g *Governor) Checkpoint() int64 {
	if g.exhausted {
		return g.belowMax
	}
	return g.maxTimestamp
}

// Exhausted reports whether the loop stopped on the budget
func (g *Governor) Exhausted() bool {
	return g.exhausted
}
