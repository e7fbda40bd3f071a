package agent

import (
	"context"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// Verdict is the outcome of a duplicate check
type Verdict struct {
	IsDuplicate      bool
	ExistingCount    int
	Threshold        int
	ExistingGroupIDs []model.GroupID
}

// Guard rejects groups that overlap too much with groups the same agent already tagged
type Guard struct {
	repo repository.Repository
}

func NewGuard(repo repository.Repository) *Guard {
	return &Guard{repo: repo}
}

// Check counts how many of ids already carry a tag of agentType. It only reads, so
// repeated checks without a tag write in between agree.
func (g *Guard) Check(ctx context.Context, agentType model.AgentType, ids []model.EventID, threshold int) (*Verdict, error) {
	count, groups, err := g.repo.CountExistingTags(ctx, agentType, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count existing tags",
			goerr.V("agent_type", agentType),
			goerr.V("events", len(ids)))
	}

	threshold = effectiveThreshold(threshold)
	return &Verdict{
		IsDuplicate:      IsDuplicate(count, threshold),
		ExistingCount:    count,
		Threshold:        threshold,
		ExistingGroupIDs: groups,
	}, nil
}

// IsDuplicate applies the overlap rule
func IsDuplicate(existing, threshold int) bool {
	return existing >= effectiveThreshold(threshold)
}

// a non-positive threshold would reject every group
func effectiveThreshold(threshold int) int {
	if threshold < 1 {
		return 1
	}
	return threshold
}
