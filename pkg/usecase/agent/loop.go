package agent

import (
	"context"

	"github.com/m-mizutani/argus/pkg/cluster"
	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// fetchFunc returns the batch starting at offset
type fetchFunc func(ctx context.Context, offset int) ([]*model.Event, error)

// discoverFunc returns the qualifying groups of one batch
type discoverFunc func(batch []*model.Event) []*cluster.Group

// betterFunc reports whether candidate replaces incumbent as the best group
type betterFunc func(candidate, incumbent *cluster.Group) bool

type loopOutcome struct {
	Best    *cluster.Group
	// Matched counts events of every qualifying group seen across batches
	Matched int
}

// runLoop fetches batches sequentially until the governor stops it or a batch comes
// back empty, keeping the best group seen. A fetch error ends the loop; the best group
// found so far is still returned with it.
func runLoop(ctx context.Context, gov *Governor, fetch fetchFunc, discover discoverFunc, better betterFunc) (*loopOutcome, error) {
	out := &loopOutcome{}
	offset := 0

	for gov.Next() {
		batch, err := fetch(ctx, offset)
		if err != nil {
			return out, goerr.Wrap(err, "failed to fetch candidate batch",
				goerr.V("offset", offset),
				goerr.V("batch", gov.Batches()+1))
		}
		if len(batch) == 0 {
			break
		}
		gov.Observe(batch)
		offset += len(batch)

		for _, g := range discover(batch) {
			out.Matched += g.Size()
			if better(g, out.Best) {
				out.Best = g
			}
		}
	}

	return out, nil
}
