package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pable/cs-round-features/internal/aggregator"
	"github.com/pable/cs-round-features/internal/logger"
	"github.com/pable/cs-round-features/internal/model"
)

// Source yields one decoded match.
type Source interface {
	Name() string
	Load(ctx context.Context) (*model.RawMatch, error)
}

// Static is a Source over a match that is already in memory.
type Static struct {
	Match *model.RawMatch
}

func (s Static) Name() string { return s.Match.Source }

func (s Static) Load(context.Context) (*model.RawMatch, error) { return s.Match, nil }

// Rejection is a match that produced no rows.
type Rejection struct {
	Source  string
	MatchID string
	Err     error
}

// Batch is the outcome of RunAll.
type Batch struct {
	Dataset  aggregator.Dataset
	Results  []*MatchResult // accepted matches, in input order
	Rejected []Rejection
}

// RunAll processes sources in parallel, at most Config.Workers at a time.
// Matches share no state; results are joined in input order. A match that
// fails to load or is rejected is recorded in Batch.Rejected and does not
// stop the batch. Cancelling ctx aborts the batch and discards partial
// results.
func (r *Runner) RunAll(ctx context.Context, sources []Source) (*Batch, error) {
	type outcome struct {
		result *MatchResult
		reject *Rejection
	}
	outcomes := make([]outcome, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.Config.Workers))
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := src.Load(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				outcomes[i].reject = &Rejection{Source: src.Name(), Err: fmt.Errorf("load %s: %w", src.Name(), err)}
				return nil
			}
			res, err := r.Run(gctx, raw)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				outcomes[i].reject = &Rejection{Source: src.Name(), MatchID: raw.MatchID, Err: err}
				return nil
			}
			outcomes[i].result = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run batch: %w", err)
	}

	batch := &Batch{}
	var tables []aggregator.MatchTable
	for _, o := range outcomes {
		switch {
		case o.reject != nil:
			batch.Rejected = append(batch.Rejected, *o.reject)
			r.Logger.Warn(ctx, "match rejected",
				logger.String("source", o.reject.Source), logger.Error(o.reject.Err))
		case o.result != nil:
			batch.Results = append(batch.Results, o.result)
			tables = append(tables, aggregator.MatchTable{MatchID: o.result.MatchID, Table: o.result.Table})
		}
	}

	ds, err := aggregator.Aggregate(tables)
	if err != nil {
		return nil, fmt.Errorf("aggregate batch: %w", err)
	}
	batch.Dataset = ds
	return batch, nil
}
