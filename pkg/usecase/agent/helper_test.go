package agent_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

var baseTime = time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC)

func at(d time.Duration) int64 {
	return baseTime.Add(d).UnixMilli()
}

func newEvent(id string, offset time.Duration, modify ...func(*model.Event)) *model.Event {
	e := &model.Event{
		ID:        model.EventID(id),
		Timestamp: at(offset),
		DeviceID:  fmt.Sprintf("cam-%s", id),
	}
	for _, m := range modify {
		m(e)
	}
	return e
}

func region(r string) func(*model.Event) {
	return func(e *model.Event) { e.Region = r }
}

func tags(v ...string) func(*model.Event) {
	return func(e *model.Event) { e.Tags = v }
}

func plates(v ...string) func(*model.Event) {
	return func(e *model.Event) { e.LicensePlates = v }
}

func identical(e *model.Event) {
	e.LicensePlates = []string{"ABC-123"}
	e.Vehicles = []string{"red sedan"}
	e.Tags = []string{"parking lot"}
	e.Objects = []string{"car"}
	e.ClothingColors = []string{"black"}
}

func putEvents(t *testing.T, repo repository.Repository, events ...*model.Event) {
	t.Helper()
	for _, e := range events {
		gt.NoError(t, repo.PutEvent(context.Background(), e))
	}
}

// fireInNorth returns n fire events 45 seconds apart
func fireInNorth(n int) []*model.Event {
	events := make([]*model.Event, n)
	for i := range events {
		events[i] = newEvent(fmt.Sprintf("fire-%02d", i), time.Duration(i)*45*time.Second,
			region("North"), tags("fire"))
	}
	return events
}

// fakeClock only moves when told to
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime.Add(24 * time.Hour)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// slowRepo advances the clock on every batch fetch
type slowRepo struct {
	*repository.Memory
	clock *fakeClock
	delay time.Duration
}

func (r *slowRepo) FetchCandidates(ctx context.Context, input *repository.FetchCandidatesInput) ([]*model.Event, error) {
	r.clock.Advance(r.delay)
	return r.Memory.FetchCandidates(ctx, input)
}

// racingRepo tags every fetched event with another group right after the fetch, as a
// concurrent run of the same agent would
type racingRepo struct {
	*repository.Memory
	groupID model.GroupID
}

func (r *racingRepo) FetchCandidates(ctx context.Context, input *repository.FetchCandidatesInput) ([]*model.Event, error) {
	events, err := r.Memory.FetchCandidates(ctx, input)
	if err != nil {
		return nil, err
	}
	ids := make([]model.EventID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if _, err := r.Memory.ApplyTags(ctx, input.AgentType, r.groupID, ids); err != nil {
		return nil, err
	}
	return events, nil
}

// failingRepo fails selected operations
type failingRepo struct {
	*repository.Memory
	failFetch       bool
	failBookkeeping bool
}

var errUnavailable = goerr.New("store unavailable")

func (r *failingRepo) FetchCandidates(ctx context.Context, input *repository.FetchCandidatesInput) ([]*model.Event, error) {
	if r.failFetch {
		return nil, errUnavailable
	}
	return r.Memory.FetchCandidates(ctx, input)
}

func (r *failingRepo) PutRun(ctx context.Context, run *model.AgentRun) error {
	if r.failBookkeeping {
		return errUnavailable
	}
	return r.Memory.PutRun(ctx, run)
}

func (r *failingRepo) UpdateRun(ctx context.Context, id model.RunID, update *repository.RunUpdate) error {
	if r.failBookkeeping {
		return errUnavailable
	}
	return r.Memory.UpdateRun(ctx, id, update)
}

func (r *failingRepo) AppendLog(ctx context.Context, log *model.RunLog) error {
	if r.failBookkeeping {
		return errUnavailable
	}
	return r.Memory.AppendLog(ctx, log)
}
