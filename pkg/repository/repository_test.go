package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/gt"
)

func setupFirestore(t *testing.T) repository.Repository {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.New(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func setupMemory(t *testing.T) repository.Repository {
	return repository.NewMemory()
}

var backends = []struct {
	name  string
	setup func(t *testing.T) repository.Repository
}{
	{"memory", setupMemory},
	{"firestore", setupFirestore},
}

func eachBackend(t *testing.T, fn func(t *testing.T, repo repository.Repository)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.setup(t))
		})
	}
}

// prefix isolates test data when tests share a Firestore database
func prefix() string {
	return fmt.Sprintf("t%d-", time.Now().UnixNano())
}

func TestPutGetEvent(t *testing.T) {
	eachBackend(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		id := model.EventID(prefix() + "e1")

		event := &model.Event{
			ID:            id,
			Timestamp:     time.Now().UnixMilli(),
			DeviceID:      "cam-1",
			Region:        "North",
			Tags:          []string{"fire"},
			LicensePlates: []string{"ABC-123"},
		}
		gt.NoError(t, repo.PutEvent(ctx, event))

		got, err := repo.GetEvent(ctx, id)
		gt.NoError(t, err)
		gt.Equal(t, got.ID, id)
		gt.Equal(t, got.Region, "North")
		gt.Equal(t, got.LicensePlates, []string{"ABC-123"})
		gt.False(t, got.HasTag(model.AgentAnomaly))

		_, err = repo.GetEvent(ctx, model.EventID(prefix()+"missing"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, repository.ErrNotFound))
	})
}

func TestPutEventValidation(t *testing.T) {
	repo := repository.NewMemory()
	gt.Error(t, repo.PutEvent(context.Background(), &model.Event{ID: "e"}))
	gt.Error(t, repo.PutEvent(context.Background(), &model.Event{Timestamp: 1}))
}

func TestFetchCandidates(t *testing.T) {
	eachBackend(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		p := prefix()
		// far future keeps firestore runs independent of stored data
		base := time.Now().Add(24 * 365 * time.Hour).UnixMilli()

		for i := 0; i < 5; i++ {
			gt.NoError(t, repo.PutEvent(ctx, &model.Event{
				ID:        model.EventID(fmt.Sprintf("%se%d", p, i)),
				Timestamp: base + int64(i*1000),
			}))
		}

		t.Run("ordered and paged", func(t *testing.T) {
			first, err := repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{
				AgentType: model.AgentAnomaly,
				Since:     base - 1,
				Until:     base + 4000,
				Limit:     3,
			})
			gt.NoError(t, err)
			gt.A(t, first).Length(3)
			gt.Equal(t, first[0].ID, model.EventID(p+"e0"))
			gt.Equal(t, first[2].ID, model.EventID(p+"e2"))

			second, err := repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{
				AgentType: model.AgentAnomaly,
				Since:     base - 1,
				Until:     base + 4000,
				Offset:    3,
				Limit:     3,
			})
			gt.NoError(t, err)
			gt.A(t, second).Length(2)
			gt.Equal(t, second[0].ID, model.EventID(p+"e3"))
		})

		t.Run("since is exclusive", func(t *testing.T) {
			events, err := repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{
				AgentType: model.AgentAnomaly,
				Since:     base + 2000,
				Until:     base + 4000,
				Limit:     10,
			})
			gt.NoError(t, err)
			gt.A(t, events).Length(2)
			gt.Equal(t, events[0].ID, model.EventID(p+"e3"))
		})

		t.Run("exclude anchor", func(t *testing.T) {
			events, err := repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{
				AgentType: model.AgentAnomaly,
				Since:     base - 1,
				Until:     base + 4000,
				ExcludeID: model.EventID(p + "e1"),
				Limit:     10,
			})
			gt.NoError(t, err)
			gt.A(t, events).Length(4)
			for _, e := range events {
				gt.NotEqual(t, e.ID, model.EventID(p+"e1"))
			}
		})

		t.Run("tagged events are skipped for that agent only", func(t *testing.T) {
			n, err := repo.ApplyTags(ctx, model.AgentTimeline, "timeline-g1", []model.EventID{model.EventID(p + "e0")})
			gt.NoError(t, err)
			gt.Equal(t, n, 1)

			timeline, err := repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{
				AgentType: model.AgentTimeline,
				Since:     base - 1,
				Until:     base + 4000,
				Limit:     10,
			})
			gt.NoError(t, err)
			gt.A(t, timeline).Length(4)

			anomaly, err := repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{
				AgentType: model.AgentAnomaly,
				Since:     base - 1,
				Until:     base + 4000,
				Limit:     10,
			})
			gt.NoError(t, err)
			gt.A(t, anomaly).Length(5)
		})
	})
}

func TestFetchCandidatesValidation(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()

	_, err := repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{AgentType: "bogus", Limit: 1})
	gt.Error(t, err)
	_, err = repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{AgentType: model.AgentAnomaly})
	gt.Error(t, err)
	_, err = repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{AgentType: model.AgentAnomaly, Limit: 1, Offset: -1})
	gt.Error(t, err)
}

func TestApplyAndCountTags(t *testing.T) {
	eachBackend(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		p := prefix()
		ids := []model.EventID{model.EventID(p + "a"), model.EventID(p + "b"), model.EventID(p + "c")}
		for _, id := range ids {
			gt.NoError(t, repo.PutEvent(ctx, &model.Event{ID: id, Timestamp: time.Now().UnixMilli()}))
		}

		count, groups, err := repo.CountExistingTags(ctx, model.AgentCorrelation, ids)
		gt.NoError(t, err)
		gt.Equal(t, count, 0)
		gt.A(t, groups).Length(0)

		// missing ids are ignored, not an error
		n, err := repo.ApplyTags(ctx, model.AgentCorrelation, "correlation-g1", append(ids[:2:2], model.EventID(p+"missing")))
		gt.NoError(t, err)
		gt.Equal(t, n, 2)

		n, err = repo.ApplyTags(ctx, model.AgentCorrelation, "correlation-g2", ids[1:])
		gt.NoError(t, err)
		gt.Equal(t, n, 2)

		n, err = repo.ApplyTags(ctx, model.AgentCorrelation, "correlation-g3", nil)
		gt.NoError(t, err)
		gt.Equal(t, n, 0)

		count, groups, err = repo.CountExistingTags(ctx, model.AgentCorrelation, ids)
		gt.NoError(t, err)
		gt.Equal(t, count, 3)
		gt.Equal(t, groups, []model.GroupID{"correlation-g1", "correlation-g2"})

		// tags are additive
		b, err := repo.GetEvent(ctx, ids[1])
		gt.NoError(t, err)
		gt.Equal(t, b.AgentTags[model.AgentCorrelation], []model.GroupID{"correlation-g1", "correlation-g2"})

		count, _, err = repo.CountExistingTags(ctx, model.AgentAnomaly, ids)
		gt.NoError(t, err)
		gt.Equal(t, count, 0)
	})
}

func TestAgentConfigAndWatermark(t *testing.T) {
	eachBackend(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()

		_, err := repository.NewMemory().GetAgentConfig(ctx, model.AgentTimeline)
		gt.True(t, errors.Is(err, repository.ErrNotFound))

		cfg := model.DefaultAgentConfig(model.AgentTimeline)
		cfg.Watermark = 1000
		gt.NoError(t, repo.PutAgentConfig(ctx, cfg))

		gt.NoError(t, repo.AdvanceWatermark(ctx, model.AgentTimeline, 2000))
		gt.NoError(t, repo.AdvanceWatermark(ctx, model.AgentTimeline, 1500))

		got, err := repo.GetAgentConfig(ctx, model.AgentTimeline)
		gt.NoError(t, err)
		gt.Equal(t, got.Watermark, int64(2000))
		gt.Equal(t, got.BatchSize, cfg.BatchSize)
		gt.Equal(t, got.Float("max_gap_minutes", 0), 60.0)
	})
}

func TestRunLifecycle(t *testing.T) {
	eachBackend(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		run := &model.AgentRun{
			ID:        model.NewRunID(),
			AgentType: model.AgentAnomaly,
			Mode:      model.RunModeCron,
			Status:    model.RunStatusRunning,
			StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		gt.NoError(t, repo.PutRun(ctx, run))

		status := model.RunStatusCompleted
		processed := 12
		summary := "12 events"
		completedAt := run.StartedAt.Add(time.Second)
		gt.NoError(t, repo.UpdateRun(ctx, run.ID, &repository.RunUpdate{
			Status:         &status,
			NodesProcessed: &processed,
			Summary:        &summary,
			CompletedAt:    &completedAt,
			Findings:       &model.AnomalyFindings{Region: "North", Severity: "critical"},
		}))

		got, err := repo.GetRun(ctx, run.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.Status, model.RunStatusCompleted)
		gt.Equal(t, got.NodesProcessed, 12)
		gt.Equal(t, got.Summary, summary)
		gt.NotNil(t, got.CompletedAt)

		findings, ok := got.Findings.(*model.AnomalyFindings)
		gt.True(t, ok)
		gt.Equal(t, findings.Region, "North")

		gt.NoError(t, repo.AppendLog(ctx, &model.RunLog{RunID: run.ID, Level: model.LogLevelInfo, Message: "first", CreatedAt: time.Now()}))
		gt.NoError(t, repo.AppendLog(ctx, &model.RunLog{RunID: run.ID, Level: model.LogLevelWarn, Message: "second", CreatedAt: time.Now().Add(time.Millisecond)}))
		logs, err := repo.ListLogs(ctx, run.ID)
		gt.NoError(t, err)
		gt.A(t, logs).Length(2)
		gt.Equal(t, logs[0].Message, "first")

		err = repo.UpdateRun(ctx, model.NewRunID(), &repository.RunUpdate{Status: &status})
		gt.True(t, errors.Is(err, repository.ErrNotFound))
	})
}

func TestListRuns(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, agent := range []model.AgentType{model.AgentAnomaly, model.AgentTimeline, model.AgentAnomaly} {
		gt.NoError(t, repo.PutRun(ctx, &model.AgentRun{
			ID:        model.RunID(fmt.Sprintf("run-%d", i)),
			AgentType: agent,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.ListRuns(ctx, "", 0)
	gt.NoError(t, err)
	gt.A(t, all).Length(3)
	gt.Equal(t, all[0].ID, model.RunID("run-2"))

	anomaly, err := repo.ListRuns(ctx, model.AgentAnomaly, 1)
	gt.NoError(t, err)
	gt.A(t, anomaly).Length(1)
	gt.Equal(t, anomaly[0].ID, model.RunID("run-2"))
}
