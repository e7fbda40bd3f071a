package agent

import (
	"github.com/m-mizutani/argus/pkg/cluster"
	"github.com/m-mizutani/argus/pkg/model"
)

type anomalyStrategy struct{}

// discover ignores the similarity threshold: window membership is by time and region only
func (x *anomalyStrategy) discover(cfg *model.AgentConfig, minSize int) discoverFunc {
	window := cfg.Minutes("window_minutes", 30)
	return func(batch []*model.Event) []*cluster.Group {
		return cluster.Segment(batch, window, minSize)
	}
}

func (x *anomalyStrategy) better(candidate, incumbent *cluster.Group) bool {
	return cluster.BetterBySeverity(candidate, incumbent)
}

func (x *anomalyStrategy) findings(g *cluster.Group) model.Findings {
	if g == nil {
		return &model.AnomalyFindings{}
	}
	cats := make([]string, len(g.Categories))
	for i, c := range g.Categories {
		cats[i] = string(c)
	}
	return &model.AnomalyFindings{
		Region:      g.Region,
		Severity:    g.Severity.String(),
		Categories:  cats,
		EventIDs:    g.IDs(),
		StartTime:   g.Start,
		EndTime:     g.End,
		WeaponCount: weaponCount(g),
		PeakCrowd:   peakCrowd(g),
	}
}
