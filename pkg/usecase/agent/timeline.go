package agent

import (
	"github.com/m-mizutani/argus/pkg/cluster"
	"github.com/m-mizutani/argus/pkg/model"
)

type timelineStrategy struct{}

func (x *timelineStrategy) discover(cfg *model.AgentConfig, minSize int) discoverFunc {
	maxGap := cfg.Minutes("max_gap_minutes", 60)
	return func(batch []*model.Event) []*cluster.Group {
		return cluster.Chain(batch, cfg.Threshold, maxGap, minSize)
	}
}

func (x *timelineStrategy) better(candidate, incumbent *cluster.Group) bool {
	return cluster.BetterBySize(candidate, incumbent)
}

func (x *timelineStrategy) findings(g *cluster.Group) model.Findings {
	if g == nil {
		return &model.TimelineFindings{}
	}
	return &model.TimelineFindings{
		ChainKey:      g.Key,
		EventIDs:      g.IDs(),
		DeviceIDs:     g.Devices(),
		StartTime:     g.Start,
		EndTime:       g.End,
		AvgSimilarity: g.AvgSimilarity,
	}
}
