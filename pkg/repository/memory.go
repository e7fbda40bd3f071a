package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory is an in-process Repository with the same semantics as Firestore
type Memory struct {
	mu      sync.RWMutex
	events  map[model.EventID]*model.Event
	configs map[model.AgentType]*model.AgentConfig
	runs    map[model.RunID]*model.AgentRun
	logs    map[model.RunID][]*model.RunLog
}

var _ Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		events:  make(map[model.EventID]*model.Event),
		configs: make(map[model.AgentType]*model.AgentConfig),
		runs:    make(map[model.RunID]*model.AgentRun),
		logs:    make(map[model.RunID][]*model.RunLog),
	}
}

func copyEvent(e *model.Event) *model.Event {
	out := *e
	out.Tags = append([]string(nil), e.Tags...)
	out.Objects = append([]string(nil), e.Objects...)
	out.Weapons = append([]string(nil), e.Weapons...)
	out.Vehicles = append([]string(nil), e.Vehicles...)
	out.LicensePlates = append([]string(nil), e.LicensePlates...)
	out.ClothingColors = append([]string(nil), e.ClothingColors...)
	out.AgentTags = make(map[model.AgentType][]model.GroupID, len(e.AgentTags))
	out.Tagged = make(map[model.AgentType]bool, len(e.AgentTags))
	for k, v := range e.AgentTags {
		out.AgentTags[k] = append([]model.GroupID(nil), v...)
		out.Tagged[k] = len(v) > 0
	}
	return &out
}

func copyRun(r *model.AgentRun) *model.AgentRun {
	out := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func (r *Memory) PutEvent(ctx context.Context, event *model.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = copyEvent(event)
	return nil
}

func (r *Memory) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "event not found", goerr.V("event_id", id))
	}
	return copyEvent(e), nil
}

func (r *Memory) FetchCandidates(ctx context.Context, input *FetchCandidatesInput) ([]*model.Event, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	var matched []*model.Event
	for _, e := range r.events {
		if e.HasTag(input.AgentType) {
			continue
		}
		if input.Since > 0 && e.Timestamp <= input.Since {
			continue
		}
		if input.Until > 0 && e.Timestamp > input.Until {
			continue
		}
		matched = append(matched, copyEvent(e))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp != matched[j].Timestamp {
			return matched[i].Timestamp < matched[j].Timestamp
		}
		return matched[i].ID < matched[j].ID
	})

	// the anchor exclusion is applied after paging, matching the Firestore query
	if input.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[input.Offset:]
	if len(matched) > input.Limit {
		matched = matched[:input.Limit]
	}

	out := make([]*model.Event, 0, len(matched))
	for _, e := range matched {
		if e.ID == input.ExcludeID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Memory) ApplyTags(ctx context.Context, agentType model.AgentType, groupID model.GroupID, ids []model.EventID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tagged := 0
	for _, id := range ids {
		e, ok := r.events[id]
		if !ok {
			continue
		}
		if e.AgentTags == nil {
			e.AgentTags = make(map[model.AgentType][]model.GroupID)
		}
		if e.Tagged == nil {
			e.Tagged = make(map[model.AgentType]bool)
		}
		if !containsGroup(e.AgentTags[agentType], groupID) {
			e.AgentTags[agentType] = append(e.AgentTags[agentType], groupID)
		}
		e.Tagged[agentType] = true
		tagged++
	}
	return tagged, nil
}

func containsGroup(groups []model.GroupID, id model.GroupID) bool {
	for _, g := range groups {
		if g == id {
			return true
		}
	}
	return false
}

func (r *Memory) CountExistingTags(ctx context.Context, agentType model.AgentType, ids []model.EventID) (int, []model.GroupID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	seen := make(map[model.GroupID]struct{})
	var groups []model.GroupID
	for _, id := range uniqueIDs(ids) {
		e, ok := r.events[id]
		if !ok || !e.HasTag(agentType) {
			continue
		}
		count++
		for _, g := range e.AgentTags[agentType] {
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				groups = append(groups, g)
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return count, groups, nil
}

func uniqueIDs(ids []model.EventID) []model.EventID {
	seen := make(map[model.EventID]struct{}, len(ids))
	out := make([]model.EventID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r *Memory) GetAgentConfig(ctx context.Context, agentType model.AgentType) (*model.AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[agentType]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "agent config not found", goerr.V("agent_type", agentType))
	}
	return cfg.Clone(), nil
}

func (r *Memory) PutAgentConfig(ctx context.Context, cfg *model.AgentConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.AgentType] = cfg.Clone()
	return nil
}

func (r *Memory) AdvanceWatermark(ctx context.Context, agentType model.AgentType, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[agentType]
	if !ok {
		return goerr.Wrap(ErrNotFound, "agent config not found", goerr.V("agent_type", agentType))
	}
	if ts > cfg.Watermark {
		cfg.Watermark = ts
	}
	return nil
}

func (r *Memory) PutRun(ctx context.Context, run *model.AgentRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = copyRun(run)
	return nil
}

func (r *Memory) UpdateRun(ctx context.Context, id model.RunID, update *RunUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "run not found", goerr.V("run_id", id))
	}
	update.Apply(run)
	return nil
}

func (r *Memory) GetRun(ctx context.Context, id model.RunID) (*model.AgentRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "run not found", goerr.V("run_id", id))
	}
	return copyRun(run), nil
}

func (r *Memory) ListRuns(ctx context.Context, agentType model.AgentType, limit int) ([]*model.AgentRun, error) {
	r.mu.RLock()
	var runs []*model.AgentRun
	for _, run := range r.runs {
		if agentType != "" && run.AgentType != agentType {
			continue
		}
		runs = append(runs, copyRun(run))
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *Memory) AppendLog(ctx context.Context, log *model.RunLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := *log
	r.logs[log.RunID] = append(r.logs[log.RunID], &entry)
	return nil
}

func (r *Memory) ListLogs(ctx context.Context, runID model.RunID) ([]*model.RunLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.RunLog, 0, len(r.logs[runID]))
	for _, l := range r.logs[runID] {
		entry := *l
		out = append(out, &entry)
	}
	return out, nil
}
