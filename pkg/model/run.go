package model

import (
	"time"

	"github.com/google/uuid"
)

type RunID string

// NewRunID generates a new unique RunID
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

type RunMode string

const (
	RunModeCron    RunMode = "cron"
	RunModeManual  RunMode = "manual"
	RunModeContext RunMode = "context"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusDiscarded RunStatus = "discarded"
	RunStatusFailed    RunStatus = "failed"
	// RunStatusSkipped is only reported to callers; no run record exists for it
	RunStatusSkipped RunStatus = "skipped"
)

// Terminal reports whether the status closes a run
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusDiscarded, RunStatusFailed:
		return true
	default:
		return false
	}
}

// AgentRun is the bookkeeping record of one execution
type AgentRun struct {
	ID            RunID
	AgentType     AgentType
	Mode          RunMode
	AnchorEventID EventID
	Status        RunStatus

	NodesProcessed int
	NodesMatched   int
	NodesTagged    int
	Batches        int

	GroupID   GroupID
	GroupSize int
	Summary   string
	Findings  Findings `firestore:"-"`
	Error     string

	StartedAt   time.Time
	CompletedAt *time.Time
}

// LogLevel of a run log row
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// RunLog is a message attached to a run
type RunLog struct {
	RunID     RunID
	Level     LogLevel
	Message   string
	CreatedAt time.Time
}
