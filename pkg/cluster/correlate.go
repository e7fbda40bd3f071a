package cluster

import (
	"sort"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/similarity"
)

// Edge is a pair of events whose similarity passed the threshold
type Edge struct {
	A, B   int
	Score  float64
	Shared []string
}

// Edges compares every pair of events and keeps those scoring at least threshold.
// The batch size bounds the quadratic cost.
func Edges(events []*model.Event, threshold float64) []Edge {
	var edges []Edge
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			r := similarity.Compare(events[i], events[j])
			if r.Score >= threshold {
				edges = append(edges, Edge{A: i, B: j, Score: r.Score, Shared: r.Shared})
			}
		}
	}
	return edges
}

// Correlate joins events connected by similarity edges and returns the resulting
// clusters largest first. Singletons and clusters smaller than minSize are dropped.
func Correlate(events []*model.Event, threshold float64, minSize int) []*Group {
	edges := Edges(events, threshold)

	uf := NewUnionFind(len(events))
	degree := make([]int, len(events))
	for _, e := range edges {
		uf.Union(e.A, e.B)
		degree[e.A]++
		degree[e.B]++
	}

	// edges grouped by the root of their endpoints
	byRoot := make(map[int][]Edge)
	for _, e := range edges {
		root := uf.Find(e.A)
		byRoot[root] = append(byRoot[root], e)
	}

	var groups []*Group
	var firstMember []int
	for _, members := range uf.Sets() {
		if len(members) < 2 || len(members) < minSize {
			continue
		}

		g := &Group{Kind: KindCluster}
		centroid := members[0]
		for _, m := range members {
			g.Events = append(g.Events, events[m])
			if degree[m] > degree[centroid] {
				centroid = m
			}
		}
		g.Centroid = events[centroid]
		g.setSpan()

		internal := byRoot[uf.Find(members[0])]
		shared := make(map[string]struct{})
		var total float64
		for _, e := range internal {
			total += e.Score
			for _, s := range e.Shared {
				shared[s] = struct{}{}
			}
		}
		if len(internal) > 0 {
			g.AvgSimilarity = total / float64(len(internal))
		}
		for s := range shared {
			g.SharedAttributes = append(g.SharedAttributes, s)
		}
		sort.Strings(g.SharedAttributes)

		groups = append(groups, g)
		firstMember = append(firstMember, members[0])
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := groups[order[i]], groups[order[j]]
		if a.Size() != b.Size() {
			return a.Size() > b.Size()
		}
		return firstMember[order[i]] < firstMember[order[j]]
	})

	sorted := make([]*Group, len(groups))
	for i, idx := range order {
		sorted[i] = groups[idx]
	}
	return sorted
}
