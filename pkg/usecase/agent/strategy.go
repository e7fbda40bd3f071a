package agent

import (
	"github.com/m-mizutani/argus/pkg/cluster"
	"github.com/m-mizutani/argus/pkg/model"
)

// strategy is the agent specific part of a run
type strategy interface {
	// discover builds the batch clusterer for the run's tunables
	discover(cfg *model.AgentConfig, minSize int) discoverFunc
	better(candidate, incumbent *cluster.Group) bool
	// findings renders the run payload. A nil group yields an empty payload.
	findings(g *cluster.Group) model.Findings
}

func strategyOf(agentType model.AgentType) strategy {
	switch agentType {
	case model.AgentTimeline:
		return &timelineStrategy{}
	case model.AgentCorrelation:
		return &correlationStrategy{}
	case model.AgentAnomaly:
		return &anomalyStrategy{}
	default:
		return nil
	}
}

// containing narrows discover to groups that include the anchor event
func containing(anchor model.EventID, discover discoverFunc) discoverFunc {
	return func(batch []*model.Event) []*cluster.Group {
		var out []*cluster.Group
		for _, g := range discover(batch) {
			if g.Contains(anchor) {
				out = append(out, g)
			}
		}
		return out
	}
}
