package agent_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/argus/pkg/usecase/agent"
	"github.com/m-mizutani/gt"
)

func tenTaggedEvents(t *testing.T) (*repository.Memory, []model.EventID) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMemory()

	var ids []model.EventID
	for i := 0; i < 10; i++ {
		e := newEvent(fmt.Sprintf("ev-%d", i), time.Duration(i)*time.Minute)
		putEvents(t, repo, e)
		ids = append(ids, e.ID)
	}
	_, err := repo.ApplyTags(ctx, model.AgentAnomaly, "anomaly-old-1", ids[:6])
	gt.NoError(t, err)
	_, err = repo.ApplyTags(ctx, model.AgentAnomaly, "anomaly-old-2", ids[4:])
	gt.NoError(t, err)
	return repo, ids
}

func TestGuardScenarioAllTagged(t *testing.T) {
	repo, ids := tenTaggedEvents(t)
	guard := agent.NewGuard(repo)

	verdict, err := guard.Check(context.Background(), model.AgentAnomaly, ids, 10)
	gt.NoError(t, err)
	gt.True(t, verdict.IsDuplicate)
	gt.Equal(t, verdict.ExistingCount, 10)
	gt.Equal(t, verdict.ExistingGroupIDs, []model.GroupID{"anomaly-old-1", "anomaly-old-2"})
}

func TestGuardOtherAgentTagsIgnored(t *testing.T) {
	repo, ids := tenTaggedEvents(t)
	guard := agent.NewGuard(repo)

	verdict, err := guard.Check(context.Background(), model.AgentTimeline, ids, 1)
	gt.NoError(t, err)
	gt.False(t, verdict.IsDuplicate)
	gt.Equal(t, verdict.ExistingCount, 0)
	gt.A(t, verdict.ExistingGroupIDs).Length(0)
}

func TestGuardMonotonicInThreshold(t *testing.T) {
	repo, ids := tenTaggedEvents(t)
	guard := agent.NewGuard(repo)
	ctx := context.Background()

	prev := true
	for threshold := 1; threshold <= 15; threshold++ {
		verdict, err := guard.Check(ctx, model.AgentAnomaly, ids, threshold)
		gt.NoError(t, err)
		gt.Equal(t, verdict.IsDuplicate, verdict.ExistingCount >= threshold)
		// once a threshold accepts the group, every higher one does too
		if !prev {
			gt.False(t, verdict.IsDuplicate)
		}
		prev = verdict.IsDuplicate
	}
}

func TestGuardIdempotent(t *testing.T) {
	repo, ids := tenTaggedEvents(t)
	guard := agent.NewGuard(repo)
	ctx := context.Background()

	first, err := guard.Check(ctx, model.AgentAnomaly, ids[3:8], 4)
	gt.NoError(t, err)
	second, err := guard.Check(ctx, model.AgentAnomaly, ids[3:8], 4)
	gt.NoError(t, err)
	gt.Equal(t, *first, *second)
}

func TestIsDuplicateNonPositiveThreshold(t *testing.T) {
	gt.False(t, agent.IsDuplicate(0, 0))
	gt.True(t, agent.IsDuplicate(1, 0))
	gt.True(t, agent.IsDuplicate(1, -3))
	gt.False(t, agent.IsDuplicate(2, 3))
	gt.True(t, agent.IsDuplicate(3, 3))
}
