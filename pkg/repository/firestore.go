package repository

import (
	"context"
	"errors"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionEvents  = "events"
	collectionConfigs = "agent_configs"
	collectionRuns    = "agent_runs"
	collectionLogs    = "logs"

	// maximum writes in one transaction
	maxTxWrites = 500
)

// Firestore implements Repository on Cloud Firestore.
//
// FetchCandidates needs a composite index on (Tagged.<agent> ASC, Timestamp ASC) for
// every agent type.
type Firestore struct {
	client *firestore.Client
}

var _ Repository = (*Firestore)(nil)

// runDoc stores a run with its findings variant in a separate field so it can be decoded
type runDoc struct {
	Run         *model.AgentRun
	Timeline    *model.TimelineFindings
	Correlation *model.CorrelationFindings
	Anomaly     *model.AnomalyFindings
}

func newRunDoc(run *model.AgentRun) *runDoc {
	doc := &runDoc{Run: run}
	switch f := run.Findings.(type) {
	case *model.TimelineFindings:
		doc.Timeline = f
	case *model.CorrelationFindings:
		doc.Correlation = f
	case *model.AnomalyFindings:
		doc.Anomaly = f
	}
	return doc
}

func (d *runDoc) toRun() *model.AgentRun {
	run := d.Run
	if run == nil {
		run = &model.AgentRun{}
	}
	switch {
	case d.Timeline != nil:
		run.Findings = d.Timeline
	case d.Correlation != nil:
		run.Findings = d.Correlation
	case d.Anomaly != nil:
		run.Findings = d.Anomaly
	}
	return run
}

func findingsField(f model.Findings) string {
	switch f.(type) {
	case *model.TimelineFindings:
		return "Timeline"
	case *model.CorrelationFindings:
		return "Correlation"
	case *model.AnomalyFindings:
		return "Anomaly"
	default:
		return ""
	}
}

// New creates a Firestore repository for the database in the project
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}
	return &Firestore{client: client}, nil
}

// Close releases the client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (r *Firestore) PutEvent(ctx context.Context, event *model.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	// every agent type needs an explicit Tagged flag to be matched by the candidate query
	doc := copyEvent(event)
	for _, t := range model.AgentTypes() {
		doc.Tagged[t] = len(doc.AgentTags[t]) > 0
	}

	if _, err := r.client.Collection(collectionEvents).Doc(string(event.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put event", goerr.V("event_id", event.ID))
	}
	return nil
}

func (r *Firestore) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	snap, err := r.client.Collection(collectionEvents).Doc(string(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrNotFound, "event not found", goerr.V("event_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get event", goerr.V("event_id", id))
	}

	var event model.Event
	if err := snap.DataTo(&event); err != nil {
		return nil, goerr.Wrap(err, "failed to decode event", goerr.V("event_id", id))
	}
	return &event, nil
}

func (r *Firestore) FetchCandidates(ctx context.Context, input *FetchCandidatesInput) ([]*model.Event, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	q := r.client.Collection(collectionEvents).
		Where("Tagged."+string(input.AgentType), "==", false)
	if input.Since > 0 {
		q = q.Where("Timestamp", ">", input.Since)
	}
	if input.Until > 0 {
		q = q.Where("Timestamp", "<=", input.Until)
	}
	q = q.OrderBy("Timestamp", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Offset(input.Offset).
		Limit(input.Limit)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var events []*model.Event
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query candidates",
				goerr.V("agent_type", input.AgentType),
				goerr.V("offset", input.Offset))
		}

		var event model.Event
		if err := snap.DataTo(&event); err != nil {
			return nil, goerr.Wrap(err, "failed to decode event", goerr.V("doc_id", snap.Ref.ID))
		}
		if event.ID == input.ExcludeID {
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}

func (r *Firestore) eventRefs(ids []model.EventID) []*firestore.DocumentRef {
	unique := uniqueIDs(ids)
	refs := make([]*firestore.DocumentRef, len(unique))
	for i, id := range unique {
		refs[i] = r.client.Collection(collectionEvents).Doc(string(id))
	}
	return refs
}

func (r *Firestore) ApplyTags(ctx context.Context, agentType model.AgentType, groupID model.GroupID, ids []model.EventID) (int, error) {
	refs := r.eventRefs(ids)
	updates := []firestore.Update{
		{FieldPath: firestore.FieldPath{"AgentTags", string(agentType)}, Value: firestore.ArrayUnion(string(groupID))},
		{FieldPath: firestore.FieldPath{"Tagged", string(agentType)}, Value: true},
	}

	total := 0
	for start := 0; start < len(refs); start += maxTxWrites {
		end := min(start+maxTxWrites, len(refs))
		chunk := refs[start:end]

		tagged := 0
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			tagged = 0
			snaps, err := tx.GetAll(chunk)
			if err != nil {
				return goerr.Wrap(err, "failed to read events for tagging")
			}
			for _, snap := range snaps {
				if !snap.Exists() {
					continue
				}
				if err := tx.Update(snap.Ref, updates); err != nil {
					return goerr.Wrap(err, "failed to tag event", goerr.V("event_id", snap.Ref.ID))
				}
				tagged++
			}
			return nil
		})
		if err != nil {
			return total, goerr.Wrap(err, "failed to apply tags",
				goerr.V("agent_type", agentType),
				goerr.V("group_id", groupID))
		}
		total += tagged
	}
	return total, nil
}

func (r *Firestore) CountExistingTags(ctx context.Context, agentType model.AgentType, ids []model.EventID) (int, []model.GroupID, error) {
	refs := r.eventRefs(ids)
	if len(refs) == 0 {
		return 0, nil, nil
	}

	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return 0, nil, goerr.Wrap(err, "failed to read events for duplicate check", goerr.V("agent_type", agentType))
	}

	count := 0
	seen := make(map[model.GroupID]struct{})
	var groups []model.GroupID
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var event model.Event
		if err := snap.DataTo(&event); err != nil {
			return 0, nil, goerr.Wrap(err, "failed to decode event", goerr.V("doc_id", snap.Ref.ID))
		}
		if !event.HasTag(agentType) {
			continue
		}
		count++
		for _, g := range event.AgentTags[agentType] {
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				groups = append(groups, g)
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return count, groups, nil
}

func (r *Firestore) GetAgentConfig(ctx context.Context, agentType model.AgentType) (*model.AgentConfig, error) {
	snap, err := r.client.Collection(collectionConfigs).Doc(string(agentType)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrNotFound, "agent config not found", goerr.V("agent_type", agentType))
		}
		return nil, goerr.Wrap(err, "failed to get agent config", goerr.V("agent_type", agentType))
	}

	var cfg model.AgentConfig
	if err := snap.DataTo(&cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode agent config", goerr.V("agent_type", agentType))
	}
	return &cfg, nil
}

func (r *Firestore) PutAgentConfig(ctx context.Context, cfg *model.AgentConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := r.client.Collection(collectionConfigs).Doc(string(cfg.AgentType)).Set(ctx, cfg); err != nil {
		return goerr.Wrap(err, "failed to put agent config", goerr.V("agent_type", cfg.AgentType))
	}
	return nil
}

func (r *Firestore) AdvanceWatermark(ctx context.Context, agentType model.AgentType, ts int64) error {
	ref := r.client.Collection(collectionConfigs).Doc(string(agentType))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return goerr.Wrap(ErrNotFound, "agent config not found", goerr.V("agent_type", agentType))
			}
			return err
		}
		var cfg model.AgentConfig
		if err := snap.DataTo(&cfg); err != nil {
			return goerr.Wrap(err, "failed to decode agent config")
		}
		if ts <= cfg.Watermark {
			return nil
		}
		return tx.Update(ref, []firestore.Update{{Path: "Watermark", Value: ts}})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to advance watermark", goerr.V("agent_type", agentType), goerr.V("watermark", ts))
	}
	return nil
}

func (r *Firestore) PutRun(ctx context.Context, run *model.AgentRun) error {
	if _, err := r.client.Collection(collectionRuns).Doc(string(run.ID)).Set(ctx, newRunDoc(run)); err != nil {
		return goerr.Wrap(err, "failed to put run", goerr.V("run_id", run.ID))
	}
	return nil
}

func (r *Firestore) UpdateRun(ctx context.Context, id model.RunID, update *RunUpdate) error {
	var updates []firestore.Update
	set := func(field string, v any) {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"Run", field}, Value: v})
	}

	if update.Status != nil {
		set("Status", *update.Status)
	}
	if update.NodesProcessed != nil {
		set("NodesProcessed", *update.NodesProcessed)
	}
	if update.NodesMatched != nil {
		set("NodesMatched", *update.NodesMatched)
	}
	if update.NodesTagged != nil {
		set("NodesTagged", *update.NodesTagged)
	}
	if update.Batches != nil {
		set("Batches", *update.Batches)
	}
	if update.GroupID != nil {
		set("GroupID", *update.GroupID)
	}
	if update.GroupSize != nil {
		set("GroupSize", *update.GroupSize)
	}
	if update.Summary != nil {
		set("Summary", *update.Summary)
	}
	if update.Error != nil {
		set("Error", *update.Error)
	}
	if update.CompletedAt != nil {
		set("CompletedAt", *update.CompletedAt)
	}
	if field := findingsField(update.Findings); field != "" {
		updates = append(updates, firestore.Update{Path: field, Value: update.Findings})
	}

	if len(updates) == 0 {
		return nil
	}

	if _, err := r.client.Collection(collectionRuns).Doc(string(id)).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(ErrNotFound, "run not found", goerr.V("run_id", id))
		}
		return goerr.Wrap(err, "failed to update run", goerr.V("run_id", id))
	}
	return nil
}

func (r *Firestore) GetRun(ctx context.Context, id model.RunID) (*model.AgentRun, error) {
	snap, err := r.client.Collection(collectionRuns).Doc(string(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrNotFound, "run not found", goerr.V("run_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get run", goerr.V("run_id", id))
	}

	var doc runDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode run", goerr.V("run_id", id))
	}
	return doc.toRun(), nil
}

func (r *Firestore) ListRuns(ctx context.Context, agentType model.AgentType, limit int) ([]*model.AgentRun, error) {
	q := r.client.Collection(collectionRuns).Query
	if agentType != "" {
		q = q.Where("Run.AgentType", "==", string(agentType))
	}
	q = q.OrderBy("Run.StartedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var runs []*model.AgentRun
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list runs", goerr.V("agent_type", agentType))
		}
		var doc runDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run", goerr.V("doc_id", snap.Ref.ID))
		}
		runs = append(runs, doc.toRun())
	}
	return runs, nil
}

func (r *Firestore) AppendLog(ctx context.Context, log *model.RunLog) error {
	logs := r.client.Collection(collectionRuns).Doc(string(log.RunID)).Collection(collectionLogs)
	if _, _, err := logs.Add(ctx, log); err != nil {
		return goerr.Wrap(err, "failed to append run log", goerr.V("run_id", log.RunID))
	}
	return nil
}

func (r *Firestore) ListLogs(ctx context.Context, runID model.RunID) ([]*model.RunLog, error) {
	iter := r.client.Collection(collectionRuns).Doc(string(runID)).Collection(collectionLogs).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var logs []*model.RunLog
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list run logs", goerr.V("run_id", runID))
		}
		var log model.RunLog
		if err := snap.DataTo(&log); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run log", goerr.V("doc_id", snap.Ref.ID))
		}
		logs = append(logs, &log)
	}
	return logs, nil
}
