// Package pipeline runs the extraction stages for one match, and for many
// matches in parallel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pable/cs-round-features/internal/config"
	"github.com/pable/cs-round-features/internal/features"
	"github.com/pable/cs-round-features/internal/logger"
	"github.com/pable/cs-round-features/internal/metrics"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/normalize"
	"github.com/pable/cs-round-features/internal/rounds"
	"github.com/pable/cs-round-features/internal/snapshot"
	"github.com/pable/cs-round-features/internal/validate"
)

// Skip reasons.
const (
	// SkipSnapshotUnavailable marks a round where a whole side has no
	// player snapshot.
	SkipSnapshotUnavailable = "snapshot_unavailable"

	// SkipMissingHistory marks a round whose previous round was skipped.
	// Streaks and carry-over need the previous row, so one skipped round
	// costs every later round of its half; the next half start recovers.
	SkipMissingHistory = "missing_history"
)

// Skip is a round left out of the output.
type Skip struct {
	RoundNum int
	Reason   string
	Err      error
}

// MatchResult is everything the pipeline learned about one match.
type MatchResult struct {
	MatchID  string
	MapName  string
	Source   string
	Table    validate.Table
	Dropped  []normalize.Drop
	Skipped  []Skip
	Duration time.Duration
}

// Runner processes matches. It holds no per-match state, so one Runner may
// serve many goroutines.
type Runner struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metrics.Manager
}

// NewRunner fills nil dependencies with defaults.
func NewRunner(cfg *config.Config, log logger.Logger, m *metrics.Manager) *Runner {
	if cfg == nil {
		cfg = config.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewManager()
	}
	return &Runner{Config: cfg, Logger: log, Metrics: m}
}

// Run turns one decoded match into its validated feature table. A round
// sequence violation rejects the whole match; rounds without a usable
// snapshot or history are skipped and logged.
func (r *Runner) Run(ctx context.Context, raw *model.RawMatch) (*MatchResult, error) {
	start := time.Now()
	log := r.Logger.Named("pipeline").With(logger.MatchID(raw.MatchID))

	res, err := r.run(ctx, log, raw)
	if err != nil {
		r.Metrics.MatchProcessed(metrics.OutcomeRejected, time.Since(start))
		return nil, err
	}
	res.Duration = time.Since(start)
	r.Metrics.MatchProcessed(metrics.OutcomeOK, res.Duration)
	log.Info(ctx, "match processed",
		logger.Int("rows", len(res.Table.Rows)),
		logger.Int("valid", res.Table.Report.ValidRounds),
		logger.Int("skipped", len(res.Skipped)),
		logger.Int("dropped", len(res.Dropped)),
		logger.Float64("seconds", res.Duration.Seconds()))
	return res, nil
}

func (r *Runner) run(ctx context.Context, log logger.Logger, raw *model.RawMatch) (*MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &MatchResult{MatchID: raw.MatchID, MapName: raw.MapName, Source: raw.Source}

	norm := normalize.Normalize(raw, normalize.WithLogger(ctx, log.Named("normalize")))
	res.Dropped = norm.Dropped
	for reason, n := range norm.DropCounts() {
		r.Metrics.RecordsDropped(reason, n)
	}
	if len(norm.Dropped) > 0 {
		log.Warn(ctx, "records dropped", logger.Int("count", len(norm.Dropped)))
	}

	segs, err := rounds.Resolve(norm.Events, r.Config.Schedule())
	if err != nil {
		log.Error(ctx, "match rejected", logger.Error(err))
		return nil, fmt.Errorf("resolve rounds of %s: %w", raw.MatchID, err)
	}

	eng := features.Engine{Schedule: r.Config.Schedule(), MapName: raw.MapName}
	window := r.Config.Window()
	var history []model.FeatureRow
	for _, seg := range segs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := seg.Round.RoundNum

		snap, err := snapshot.Select(seg, window)
		if err != nil {
			var unavailable *snapshot.SnapshotUnavailableError
			if !errors.As(err, &unavailable) {
				return nil, fmt.Errorf("select snapshot of round %d: %w", n, err)
			}
			r.skip(ctx, log, res, n, SkipSnapshotUnavailable, err)
			continue
		}
		if snap.CT.Imputed+snap.T.Imputed > 0 {
			log.Debug(ctx, "players imputed", logger.RoundNum(n),
				logger.Int("ct", snap.CT.Imputed), logger.Int("t", snap.T.Imputed))
		}

		row, err := eng.Derive(seg.Round, snap, history)
		if err != nil {
			var derr *features.FeatureDerivationError
			if !errors.As(err, &derr) {
				return nil, fmt.Errorf("derive round %d: %w", n, err)
			}
			r.skip(ctx, log, res, n, SkipMissingHistory, err)
			continue
		}
		history = append(history, row)
		r.Metrics.RoundEmitted()
	}

	res.Table = validate.Validate(history, r.Config.Limits())
	for _, c := range res.Table.Report.Checks {
		r.Metrics.ValidationFailures(c.Name, c.Failures)
	}
	return res, nil
}

func (r *Runner) skip(ctx context.Context, log logger.Logger, res *MatchResult, n int, reason string, err error) {
	res.Skipped = append(res.Skipped, Skip{RoundNum: n, Reason: reason, Err: err})
	r.Metrics.RoundSkipped(reason)
	log.Warn(ctx, "round skipped", logger.RoundNum(n), logger.String("reason", reason), logger.Error(err))
}
