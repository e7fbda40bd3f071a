package agent

import (
	"github.com/m-mizutani/argus/pkg/cluster"
	"github.com/m-mizutani/argus/pkg/model"
)

type correlationStrategy struct{}

func (x *correlationStrategy) discover(cfg *model.AgentConfig, minSize int) discoverFunc {
	return func(batch []*model.Event) []*cluster.Group {
		return cluster.Correlate(batch, cfg.Threshold, minSize)
	}
}

func (x *correlationStrategy) better(candidate, incumbent *cluster.Group) bool {
	return cluster.BetterBySize(candidate, incumbent)
}

func (x *correlationStrategy) findings(g *cluster.Group) model.Findings {
	if g == nil {
		return &model.CorrelationFindings{}
	}
	f := &model.CorrelationFindings{
		EventIDs:         g.IDs(),
		SharedAttributes: g.SharedAttributes,
		AvgSimilarity:    g.AvgSimilarity,
		UniqueSources:    g.UniqueSources(),
		UniqueRegions:    g.UniqueRegions(),
	}
	if g.Centroid != nil {
		f.CentroidID = g.Centroid.ID
	}
	return f
}
