package cluster

import (
	"sort"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/similarity"
)

// Chain links events that share an identifying attribute (license plate or vehicle)
// over time. A chain breaks where consecutive sightings are more than maxGap apart and
// is kept only if its consecutive links average at least threshold similarity. Each
// event joins at most one chain; longer chains claim events first.
func Chain(events []*model.Event, threshold float64, maxGap time.Duration, minSize int) []*Group {
	gap := maxGap.Milliseconds()
	if minSize < 2 {
		minSize = 2
	}

	byKey := make(map[string][]*model.Event)
	var keys []string
	for _, e := range sortByTime(events) {
		for _, k := range similarity.IdentityKeys(e) {
			if _, ok := byKey[k]; !ok {
				keys = append(keys, k)
			}
			byKey[k] = append(byKey[k], e)
		}
	}
	sort.Strings(keys)

	var candidates []*Group
	for _, key := range keys {
		for _, run := range splitByGap(byKey[key], gap) {
			if len(run) < minSize {
				continue
			}
			g := &Group{Kind: KindChain, Key: key, Events: run}
			g.AvgSimilarity = linkSimilarity(run)
			if g.AvgSimilarity < threshold {
				continue
			}
			g.setSpan()
			g.SharedAttributes = []string{key}
			candidates = append(candidates, g)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Size() != b.Size() {
			return a.Size() > b.Size()
		}
		return a.Span() > b.Span()
	})

	claimed := make(map[model.EventID]bool)
	var chains []*Group
	for _, g := range candidates {
		overlap := false
		for _, e := range g.Events {
			if claimed[e.ID] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for _, e := range g.Events {
			claimed[e.ID] = true
		}
		chains = append(chains, g)
	}
	return chains
}

func splitByGap(sorted []*model.Event, gap int64) [][]*model.Event {
	var out [][]*model.Event
	var current []*model.Event
	for _, e := range sorted {
		if len(current) > 0 && e.Timestamp-current[len(current)-1].Timestamp > gap {
			out = append(out, current)
			current = nil
		}
		current = append(current, e)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func linkSimilarity(run []*model.Event) float64 {
	if len(run) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(run); i++ {
		total += similarity.Compare(run[i-1], run[i]).Score
	}
	return total / float64(len(run)-1)
}
