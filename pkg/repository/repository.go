package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = goerr.New("not found")
)

// FetchCandidatesInput selects events for one batch
type FetchCandidatesInput struct {
	// AgentType restricts results to events not yet tagged by this agent
	AgentType model.AgentType
	// Since is an exclusive lower bound of Timestamp (epoch ms). Zero means no bound.
	Since int64
	// Until is an inclusive upper bound of Timestamp. Zero means no bound.
	Until     int64
	ExcludeID model.EventID
	Offset    int
	Limit     int
}

// Validate checks the input
func (x *FetchCandidatesInput) Validate() error {
	if err := x.AgentType.Validate(); err != nil {
		return err
	}
	if x.Limit <= 0 {
		return goerr.New("limit must be positive", goerr.V("limit", x.Limit))
	}
	if x.Offset < 0 {
		return goerr.New("offset must not be negative", goerr.V("offset", x.Offset))
	}
	return nil
}

// RunUpdate carries the fields of a run to overwrite. Nil fields are left untouched.
type RunUpdate struct {
	Status         *model.RunStatus
	NodesProcessed *int
	NodesMatched   *int
	NodesTagged    *int
	Batches        *int
	GroupID        *model.GroupID
	GroupSize      *int
	Summary        *string
	Findings       model.Findings
	Error          *string
	CompletedAt    *time.Time
}

// Apply copies the set fields onto run
func (x *RunUpdate) Apply(run *model.AgentRun) {
	if x.Status != nil {
		run.Status = *x.Status
	}
	if x.NodesProcessed != nil {
		run.NodesProcessed = *x.NodesProcessed
	}
	if x.NodesMatched != nil {
		run.NodesMatched = *x.NodesMatched
	}
	if x.NodesTagged != nil {
		run.NodesTagged = *x.NodesTagged
	}
	if x.Batches != nil {
		run.Batches = *x.Batches
	}
	if x.GroupID != nil {
		run.GroupID = *x.GroupID
	}
	if x.GroupSize != nil {
		run.GroupSize = *x.GroupSize
	}
	if x.Summary != nil {
		run.Summary = *x.Summary
	}
	if x.Findings != nil {
		run.Findings = x.Findings
	}
	if x.Error != nil {
		run.Error = *x.Error
	}
	if x.CompletedAt != nil {
		t := *x.CompletedAt
		run.CompletedAt = &t
	}
}

// Repository is the contract of the external event, tag and run store
type Repository interface {
	// PutEvent saves an annotated event
	PutEvent(ctx context.Context, event *model.Event) error

	// GetEvent retrieves an event by ID
	GetEvent(ctx context.Context, id model.EventID) (*model.Event, error)

	// FetchCandidates returns events ordered by Timestamp, then ID
	FetchCandidates(ctx context.Context, input *FetchCandidatesInput) ([]*model.Event, error)

	// ApplyTags appends groupID to the agent's tags of every existing event in ids
	// and returns how many were tagged
	ApplyTags(ctx context.Context, agentType model.AgentType, groupID model.GroupID, ids []model.EventID) (int, error)

	// CountExistingTags counts events in ids already tagged by the agent and returns
	// the distinct group ids found
	CountExistingTags(ctx context.Context, agentType model.AgentType, ids []model.EventID) (int, []model.GroupID, error)

	// GetAgentConfig retrieves stored tunables, or ErrNotFound
	GetAgentConfig(ctx context.Context, agentType model.AgentType) (*model.AgentConfig, error)

	// PutAgentConfig saves tunables
	PutAgentConfig(ctx context.Context, cfg *model.AgentConfig) error

	// AdvanceWatermark raises the stored watermark to ts. It never lowers it.
	AdvanceWatermark(ctx context.Context, agentType model.AgentType, ts int64) error

	// PutRun saves a run record
	PutRun(ctx context.Context, run *model.AgentRun) error

	// UpdateRun overwrites the set fields of a run
	UpdateRun(ctx context.Context, id model.RunID, update *RunUpdate) error

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, id model.RunID) (*model.AgentRun, error)

	// ListRuns retrieves runs newest first. Empty agentType lists all agents.
	ListRuns(ctx context.Context, agentType model.AgentType, limit int) ([]*model.AgentRun, error)

	// AppendLog adds a log row to a run
	AppendLog(ctx context.Context, log *model.RunLog) error

	// ListLogs retrieves log rows of a run, oldest first
	ListLogs(ctx context.Context, runID model.RunID) ([]*model.RunLog, error)
}
