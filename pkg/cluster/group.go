// Package cluster discovers groups of related events: similarity clusters, region time
// windows and identity chains.
package cluster

import (
	"sort"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
)

type Kind string

const (
	KindChain   Kind = "chain"
	KindCluster Kind = "cluster"
	KindWindow  Kind = "window"
)

// Group is a discovered set of related events
type Group struct {
	Kind   Kind
	Events []*model.Event

	// Centroid is the most connected event of a cluster, for display only
	Centroid *model.Event
	// Key is the identity token a chain follows
	Key string
	// Region of a window group
	Region string

	Start int64
	End   int64

	Severity   Severity
	Categories []Category

	AvgSimilarity    float64
	SharedAttributes []string
}

// Size returns the number of events in the group
func (g *Group) Size() int {
	return len(g.Events)
}

// IDs returns event ids in group order
func (g *Group) IDs() []model.EventID {
	ids := make([]model.EventID, len(g.Events))
	for i, e := range g.Events {
		ids[i] = e.ID
	}
	return ids
}

// Contains reports whether the event is a member
func (g *Group) Contains(id model.EventID) bool {
	for _, e := range g.Events {
		if e.ID == id {
			return true
		}
	}
	return false
}

// UniqueSources returns the number of distinct devices
func (g *Group) UniqueSources() int {
	return len(g.Devices())
}

// Devices returns distinct device ids, sorted
func (g *Group) Devices() []string {
	return distinct(g.Events, func(e *model.Event) string { return e.DeviceID })
}

// UniqueRegions returns the number of distinct regions
func (g *Group) UniqueRegions() int {
	return len(g.Regions())
}

// Regions returns distinct regions, sorted
func (g *Group) Regions() []string {
	return distinct(g.Events, func(e *model.Event) string { return e.Region })
}

// Span returns the elapsed time between the first and the last event
func (g *Group) Span() time.Duration {
	return time.Duration(g.End-g.Start) * time.Millisecond
}

func distinct(events []*model.Event, key func(*model.Event) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range events {
		k := key(e)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (g *Group) setSpan() {
	if len(g.Events) == 0 {
		return
	}
	g.Start, g.End = g.Events[0].Timestamp, g.Events[0].Timestamp
	for _, e := range g.Events[1:] {
		if e.Timestamp < g.Start {
			g.Start = e.Timestamp
		}
		if e.Timestamp > g.End {
			g.End = e.Timestamp
		}
	}
}

// sortByTime orders events by timestamp, then id, without touching the input slice
func sortByTime(events []*model.Event) []*model.Event {
	sorted := make([]*model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// BetterBySize reports whether candidate beats incumbent on size alone.
// Ties keep the incumbent.
func BetterBySize(candidate, incumbent *Group) bool {
	if candidate == nil {
		return false
	}
	if incumbent == nil {
		return true
	}
	return candidate.Size() > incumbent.Size()
}

// BetterBySeverity ranks by severity, then size. Ties keep the incumbent.
func BetterBySeverity(candidate, incumbent *Group) bool {
	if candidate == nil {
		return false
	}
	if incumbent == nil {
		return true
	}
	if c := candidate.Severity.Compare(incumbent.Severity); c != 0 {
		return c < 0
	}
	return candidate.Size() > incumbent.Size()
}
