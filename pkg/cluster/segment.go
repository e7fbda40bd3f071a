package cluster

import (
	"sort"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
)

// Segment partitions events by region and greedily groups them into time windows
// anchored at each window's first event. Groups smaller than minSize are dropped; the
// rest are ranked by severity, size and start time.
func Segment(events []*model.Event, window time.Duration, minSize int) []*Group {
	width := window.Milliseconds()

	byRegion := make(map[string][]*model.Event)
	var regions []string
	for _, e := range events {
		r := e.RegionOrUnknown()
		if _, ok := byRegion[r]; !ok {
			regions = append(regions, r)
		}
		byRegion[r] = append(byRegion[r], e)
	}
	sort.Strings(regions)

	var groups []*Group
	for _, region := range regions {
		for _, members := range windows(sortByTime(byRegion[region]), width) {
			if len(members) < minSize {
				continue
			}
			g := &Group{
				Kind:       KindWindow,
				Region:     region,
				Events:     members,
				Categories: unionCategories(members),
			}
			g.Severity = severityOf(g.Categories)
			g.setSpan()
			groups = append(groups, g)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if c := a.Severity.Compare(b.Severity); c != 0 {
			return c < 0
		}
		if a.Size() != b.Size() {
			return a.Size() > b.Size()
		}
		return a.Start < b.Start
	})
	return groups
}

// windows splits time-sorted events in one forward pass
func windows(sorted []*model.Event, width int64) [][]*model.Event {
	var out [][]*model.Event
	var current []*model.Event
	var start int64

	for _, e := range sorted {
		if len(current) > 0 && e.Timestamp-start <= width {
			current = append(current, e)
			continue
		}
		if len(current) > 0 {
			out = append(out, current)
		}
		current = []*model.Event{e}
		start = e.Timestamp
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}
