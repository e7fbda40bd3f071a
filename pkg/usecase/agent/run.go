package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/argus/pkg/usecase/history"
	"github.com/m-mizutani/argus/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// RunInput selects the agent and the run mode. A non-empty AnchorEventID selects
// context mode.
type RunInput struct {
	AgentType     model.AgentType
	AnchorEventID model.EventID
	Manual        bool
}

// Mode returns the run mode implied by the input
func (x RunInput) Mode() model.RunMode {
	switch {
	case x.AnchorEventID != "":
		return model.RunModeContext
	case x.Manual:
		return model.RunModeManual
	default:
		return model.RunModeCron
	}
}

// Result is what the caller of a run receives. Store failures are reported through
// Status and Message, never as an error.
type Result struct {
	AgentType model.AgentType
	RunID     model.RunID
	Mode      model.RunMode
	Status    model.RunStatus

	GroupID          model.GroupID
	GroupSize        int
	NodesProcessed   int
	NodesMatched     int
	NodesTagged      int
	Batches          int
	Summary          string
	Findings         model.Findings
	ExistingGroupIDs []model.GroupID
	// Watermark is the advanced watermark, or 0 when it was left untouched
	Watermark        int64

	Message  string
	Duration time.Duration
}

// Run executes one agent end to end
func (u *UseCase) Run(ctx context.Context, input RunInput) *Result {
	mode := input.Mode()
	result := &Result{AgentType: input.AgentType, Mode: mode}

	if err := input.AgentType.Validate(); err != nil {
		result.Status = model.RunStatusFailed
		result.Message = err.Error()
		return result
	}

	cfg, err := u.AgentConfig(ctx, input.AgentType)
	if err != nil {
		logging.From(ctx).Error("failed to resolve agent config", "error", err, "agent_type", input.AgentType)
		result.Status = model.RunStatusFailed
		result.Message = err.Error()
		u.record(result)
		return result
	}
	if !cfg.Enabled {
		result.Status = model.RunStatusSkipped
		result.Message = "agent is disabled"
		u.record(result)
		return result
	}

	run := &model.AgentRun{
		ID:            model.NewRunID(),
		AgentType:     input.AgentType,
		Mode:          mode,
		AnchorEventID: input.AnchorEventID,
		Status:        model.RunStatusRunning,
		StartedAt:     u.now(),
	}
	result.RunID = run.ID
	ctx = logging.WithRun(ctx, run.ID, run.AgentType, run.Mode)

	if err := u.repo.PutRun(ctx, run); err != nil {
		logging.From(ctx).Warn("failed to create run record", "error", err)
	}
	u.appendLog(ctx, run.ID, model.LogLevelInfo, "run started with batch size %d and budget %s", cfg.BatchSize, cfg.MaxExecution)

	u.execute(ctx, run, cfg, input, result)
	u.finish(ctx, run, result)

	return result
}

// RunAll executes the agent types concurrently. Runs do not affect each other; the
// results follow the order of agentTypes.
func (u *UseCase) RunAll(ctx context.Context, agentTypes []model.AgentType, input RunInput) []*Result {
	results := make([]*Result, len(agentTypes))

	var eg errgroup.Group
	for i, agentType := range agentTypes {
		eg.Go(func() error {
			in := input
			in.AgentType = agentType
			results[i] = u.Run(ctx, in)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

// AgentConfig returns the stored tunables of the agent type. When none are stored the
// defaults are saved and returned.
func (u *UseCase) AgentConfig(ctx context.Context, agentType model.AgentType) (*model.AgentConfig, error) {
	cfg, err := u.repo.GetAgentConfig(ctx, agentType)
	if err == nil {
		if err := cfg.Validate(); err != nil {
			return nil, goerr.Wrap(err, "stored agent config is invalid", goerr.V("agent_type", agentType))
		}
		return cfg, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to get agent config", goerr.V("agent_type", agentType))
	}

	def, ok := u.defaults[agentType]
	if !ok {
		def = model.DefaultAgentConfig(agentType)
	}
	cfg = def.Clone()
	if err := u.repo.PutAgentConfig(ctx, cfg); err != nil {
		logging.From(ctx).Warn("failed to save default agent config", "error", err, "agent_type", agentType)
	}
	return cfg, nil
}

func (u *UseCase) execute(ctx context.Context, run *model.AgentRun, cfg *model.AgentConfig, input RunInput, result *Result) {
	strat := strategyOf(run.AgentType)
	discover := strat.discover(cfg, cfg.MinGroupSize(run.Mode))
	gov := NewGovernor(run.Mode, cfg.MaxExecution, u.now)

	var fetch fetchFunc
	if run.Mode == model.RunModeContext {
		anchor, err := u.repo.GetEvent(ctx, input.AnchorEventID)
		if err != nil {
			u.fail(result, goerr.Wrap(err, "failed to get anchor event", goerr.V("event_id", input.AnchorEventID)))
			return
		}
		fetch = u.contextFetch(cfg, anchor)
		discover = containing(anchor.ID, discover)
	} else {
		fetch = u.scanFetch(cfg)
	}

	outcome, err := runLoop(ctx, gov, fetch, discover, strat.better)
	result.NodesProcessed = gov.Processed()
	result.Batches = gov.Batches()
	result.NodesMatched = outcome.Matched
	if err != nil {
		u.fail(result, err)
		return
	}
	if gov.Exhausted() {
		u.appendLog(ctx, run.ID, model.LogLevelInfo, "budget exhausted after %d batches in %s", gov.Batches(), gov.Elapsed())
	}

	best := outcome.Best
	result.Summary = Summarize(run.AgentType, best, run.Mode)
	result.Findings = strat.findings(best)

	if best == nil {
		result.Status = model.RunStatusCompleted
		u.advanceWatermark(ctx, run, cfg, gov.Checkpoint(), result)
		return
	}
	result.GroupSize = best.Size()

	verdict, err := u.guard.Check(ctx, run.AgentType, best.IDs(), cfg.OverlapThreshold)
	if err != nil {
		u.fail(result, err)
		return
	}
	if verdict.IsDuplicate {
		result.Status = model.RunStatusDiscarded
		result.ExistingGroupIDs = verdict.ExistingGroupIDs
		result.Message = fmt.Sprintf("%d of %d events already tagged by %s agent (threshold %d)",
			verdict.ExistingCount, best.Size(), run.AgentType, verdict.Threshold)
		return
	}

	groupID := model.NewGroupID(run.AgentType)
	tagged, err := u.repo.ApplyTags(ctx, run.AgentType, groupID, best.IDs())
	if err != nil {
		u.fail(result, goerr.Wrap(err, "failed to apply tags", goerr.V("group_id", groupID)))
		return
	}
	result.Status = model.RunStatusCompleted
	result.GroupID = groupID
	result.NodesTagged = tagged

	u.advanceWatermark(ctx, run, cfg, gov.Checkpoint(), result)
}

func (u *UseCase) scanFetch(cfg *model.AgentConfig) fetchFunc {
	var since int64
	if cfg.Incremental {
		since = cfg.Watermark
	}

	return func(ctx context.Context, offset int) ([]*model.Event, error) {
		return u.repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{
			AgentType: cfg.AgentType,
			Since:     since,
			Offset:    offset,
			Limit:     cfg.BatchSize,
		})
	}
}

// contextFetch returns the neighbourhood of the anchor with the anchor itself first
func (u *UseCase) contextFetch(cfg *model.AgentConfig, anchor *model.Event) fetchFunc {
	window := cfg.Minutes("context_window_minutes", 60).Milliseconds()
	// Since is exclusive
	since := max(anchor.Timestamp-window-1, 0)
	until := anchor.Timestamp + window

	return func(ctx context.Context, offset int) ([]*model.Event, error) {
		events, err := u.repo.FetchCandidates(ctx, &repository.FetchCandidatesInput{
			AgentType: cfg.AgentType,
			Since:     since,
			Until:     until,
			ExcludeID: anchor.ID,
			Offset:    offset,
			Limit:     cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return append([]*model.Event{anchor}, events...), nil
	}
}

// advanceWatermark moves the incremental checkpoint of a successful forward scan
func (u *UseCase) advanceWatermark(ctx context.Context, run *model.AgentRun, cfg *model.AgentConfig, ts int64, result *Result) {
	if !cfg.Incremental || run.Mode == model.RunModeContext || ts <= cfg.Watermark {
		return
	}
	if err := u.repo.AdvanceWatermark(ctx, run.AgentType, ts); err != nil {
		u.appendLog(ctx, run.ID, model.LogLevelWarn, "failed to advance watermark to %d: %s", ts, err)
		return
	}
	result.Watermark = ts
}

func (u *UseCase) fail(result *Result, err error) {
	result.Status = model.RunStatusFailed
	result.Message = err.Error()
}

// finish closes the run record. Every write here is best effort.
func (u *UseCase) finish(ctx context.Context, run *model.AgentRun, result *Result) {
	completedAt := u.now()
	result.Duration = completedAt.Sub(run.StartedAt)

	update := &repository.RunUpdate{
		Status:         &result.Status,
		NodesProcessed: &result.NodesProcessed,
		NodesMatched:   &result.NodesMatched,
		NodesTagged:    &result.NodesTagged,
		Batches:        &result.Batches,
		GroupSize:      &result.GroupSize,
		Summary:        &result.Summary,
		Findings:       result.Findings,
		CompletedAt:    &completedAt,
	}
	if result.GroupID != "" {
		update.GroupID = &result.GroupID
	}
	if result.Status == model.RunStatusFailed {
		update.Error = &result.Message
	}
	if err := u.repo.UpdateRun(ctx, run.ID, update); err != nil {
		logging.From(ctx).Warn("failed to update run record", "error", err)
	}

	switch result.Status {
	case model.RunStatusFailed:
		u.appendLog(ctx, run.ID, model.LogLevelError, "run failed: %s", result.Message)
	case model.RunStatusDiscarded:
		u.appendLog(ctx, run.ID, model.LogLevelWarn, "run discarded: %s", result.Message)
	default:
		u.appendLog(ctx, run.ID, model.LogLevelInfo, "run completed: processed=%d batches=%d tagged=%d",
			result.NodesProcessed, result.Batches, result.NodesTagged)
	}

	u.record(result)
}

func (u *UseCase) record(result *Result) {
	if u.history != nil {
		u.history.Record(history.Entry{
			RunID:     result.RunID,
			AgentType: result.AgentType,
			Mode:      result.Mode,
			Status:    result.Status,
			GroupID:   result.GroupID,
			GroupSize: result.GroupSize,
			Message:   result.Message,
			Duration:  result.Duration,
		})
	}
	if u.metrics != nil {
		u.metrics.ObserveRun(string(result.AgentType), string(result.Status),
			result.NodesProcessed, result.Batches, result.NodesTagged, result.Duration)
	}
}

// appendLog writes to the run scoped logger and mirrors the row into the store
func (u *UseCase) appendLog(ctx context.Context, runID model.RunID, level model.LogLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger := logging.From(ctx)
	switch level {
	case model.LogLevelError:
		logger.Error(msg)
	case model.LogLevelWarn:
		logger.Warn(msg)
	default:
		logger.Info(msg)
	}

	row := &model.RunLog{
		RunID:     runID,
		Level:     level,
		Message:   msg,
		CreatedAt: u.now(),
	}
	if err := u.repo.AppendLog(ctx, row); err != nil {
		logger.Warn("failed to append run log", "error", err)
	}
}
