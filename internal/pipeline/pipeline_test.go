package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pable/cs-round-features/internal/aggregator"
	"github.com/pable/cs-round-features/internal/config"
	"github.com/pable/cs-round-features/internal/fixture"
	"github.com/pable/cs-round-features/internal/logger"
	"github.com/pable/cs-round-features/internal/metrics"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/rounds"
)

func newTestRunner() *Runner {
	cfg := config.New()
	cfg.Workers = 2
	return NewRunner(cfg, nil, metrics.NewManager())
}

func cleanMatch(id string) *model.RawMatch {
	return fixture.Raw(fixture.Options{MatchID: id, PistolMoney: 800})
}

// without returns m minus the records keep rejects.
func without(m *model.RawMatch, drop func(model.RawRecord) bool) *model.RawMatch {
	out := *m
	out.Records = nil
	for _, rec := range m.Records {
		if !drop(rec) {
			out.Records = append(out.Records, rec)
		}
	}
	return &out
}

func inRound(rec model.RawRecord, n int) bool {
	ts, _ := rec.Fields["timestamp"].(float64)
	base := float64(n-1) * fixture.RoundLength
	return ts >= base && ts < base+fixture.RoundLength
}

func TestRunCleanMatch(t *testing.T) {
	r := newTestRunner()
	res, err := r.Run(context.Background(), cleanMatch("m1"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Table.Rows) != 16 {
		t.Fatalf("expected 16 rows, got %d", len(res.Table.Rows))
	}
	if res.Table.Report.ValidRounds != 16 {
		t.Errorf("expected 16 valid rounds, got %d", res.Table.Report.ValidRounds)
	}
	if len(res.Skipped) != 0 || len(res.Dropped) != 0 {
		t.Errorf("unexpected skips %v or drops %v", res.Skipped, res.Dropped)
	}
	if res.MatchID != "m1" || res.MapName != "de_mirage" {
		t.Errorf("unexpected identity %s/%s", res.MatchID, res.MapName)
	}

	want := `
# HELP csfeatures_pipeline_rounds_emitted_total Feature rows derived.
# TYPE csfeatures_pipeline_rounds_emitted_total counter
csfeatures_pipeline_rounds_emitted_total 16
`
	if err := testutil.GatherAndCompare(r.Metrics.Registry(), strings.NewReader(want), "csfeatures_pipeline_rounds_emitted_total"); err != nil {
		t.Error(err)
	}
}

func TestRunSkipsRoundWithoutSnapshots(t *testing.T) {
	raw := without(cleanMatch("m1"), func(rec model.RawRecord) bool {
		return rec.Kind == "player_snapshot" && inRound(rec, 5) && rec.Fields["side"] == "CT"
	})

	res, err := newTestRunner().Run(context.Background(), raw)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Round 5 has no CT state; 6 to 12 lack their previous round; 13 opens
	// the second half and needs no history.
	if len(res.Skipped) != 8 {
		t.Fatalf("expected 8 skipped rounds, got %d: %+v", len(res.Skipped), res.Skipped)
	}
	if res.Skipped[0].RoundNum != 5 || res.Skipped[0].Reason != SkipSnapshotUnavailable {
		t.Errorf("first skip: %+v", res.Skipped[0])
	}
	for _, s := range res.Skipped[1:] {
		if s.Reason != SkipMissingHistory {
			t.Errorf("round %d: reason %s", s.RoundNum, s.Reason)
		}
	}

	var got []int
	for _, row := range res.Table.Rows {
		got = append(got, row.RoundNum)
	}
	want := []int{1, 2, 3, 4, 13, 14, 15, 16}
	if len(got) != len(want) {
		t.Fatalf("rows: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rows: got %v, want %v", got, want)
			break
		}
	}
}

func TestRunCountsDroppedRecords(t *testing.T) {
	raw := cleanMatch("m1")
	raw.Records = append(raw.Records,
		model.RawRecord{Kind: "bomb_planted", Tick: -1, Fields: map[string]any{"timestamp": 50.0}},
		model.RawRecord{Kind: "player_snapshot", Tick: -1, Fields: map[string]any{
			"timestamp": 20.0, "player_id": "x", "side": "CT", "money": -5,
		}},
	)

	res, err := newTestRunner().Run(context.Background(), raw)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Dropped) != 2 {
		t.Errorf("expected 2 dropped records, got %d", len(res.Dropped))
	}
	if len(res.Table.Rows) != 16 {
		t.Errorf("expected 16 rows, got %d", len(res.Table.Rows))
	}
}

func TestRunRejectsBrokenSequence(t *testing.T) {
	raw := without(cleanMatch("m1"), func(rec model.RawRecord) bool {
		return rec.Kind == "round_end" && inRound(rec, 3)
	})

	_, err := newTestRunner().Run(context.Background(), raw)
	var seqErr *rounds.RoundSequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("expected *RoundSequenceError, got %v", err)
	}
	if !errors.Is(err, rounds.ErrRoundSequence) {
		t.Errorf("expected ErrRoundSequence in chain")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner().Run(ctx, cleanMatch("m1"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type failingSource struct{ name string }

func (f failingSource) Name() string { return f.name }

func (f failingSource) Load(context.Context) (*model.RawMatch, error) {
	return nil, errors.New("unreadable")
}

func TestRunAll(t *testing.T) {
	broken := without(cleanMatch("m3"), func(rec model.RawRecord) bool {
		return rec.Kind == "freeze_end" && inRound(rec, 2)
	})
	sources := []Source{
		Static{Match: cleanMatch("m2")},
		failingSource{name: "missing.dem"},
		Static{Match: broken},
		Static{Match: cleanMatch("m1")},
	}

	batch, err := newTestRunner().RunAll(context.Background(), sources)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(batch.Results) != 2 || len(batch.Rejected) != 2 {
		t.Fatalf("expected 2 results and 2 rejections, got %d and %d", len(batch.Results), len(batch.Rejected))
	}
	if batch.Rejected[0].Source != "missing.dem" {
		t.Errorf("first rejection: %+v", batch.Rejected[0])
	}
	if batch.Rejected[1].MatchID != "m3" {
		t.Errorf("second rejection: %+v", batch.Rejected[1])
	}

	ds := batch.Dataset
	if len(ds.Matches) != 2 || ds.Matches[0] != "m2" || ds.Matches[1] != "m1" {
		t.Errorf("matches out of input order: %v", ds.Matches)
	}
	if len(ds.Rows) != 32 {
		t.Fatalf("expected 32 rows, got %d", len(ds.Rows))
	}
	if ds.Rows[0].MatchID != "m2" || ds.Rows[0].RoundNum != 1 || ds.Rows[16].MatchID != "m1" {
		t.Errorf("unexpected row order: %s/%d, %s", ds.Rows[0].MatchID, ds.Rows[0].RoundNum, ds.Rows[16].MatchID)
	}
}

func TestRunAllDuplicateMatch(t *testing.T) {
	_, err := newTestRunner().RunAll(context.Background(), []Source{
		Static{Match: cleanMatch("m1")},
		Static{Match: cleanMatch("m1")},
	})
	var dup *aggregator.DuplicateMatchError
	if !errors.As(err, &dup) {
		t.Errorf("expected *DuplicateMatchError, got %v", err)
	}
}

func TestRunAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner().RunAll(ctx, []Source{Static{Match: cleanMatch("m1")}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunOvertimeMatch(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(&buf, "info")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	raw := fixture.Raw(fixture.Options{MatchID: "ot", Rounds: 33, PistolMoney: 800})

	res, err := NewRunner(config.New(), log, metrics.NewManager()).Run(context.Background(), raw)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Table.Rows) != 33 || res.Table.Report.ValidRounds != 33 || len(res.Skipped) != 0 {
		t.Fatalf("rows %d valid %d skipped %d", len(res.Table.Rows), res.Table.Report.ValidRounds, len(res.Skipped))
	}
	for _, n := range []int{25, 28, 31} {
		r := res.Table.Rows[n-1]
		if r.RoundNum != n || r.CTRoundsWonStreak+r.TRoundsWonStreak != 0 || r.CTEquipmentCarriedOver+r.TEquipmentCarriedOver != 0 {
			t.Errorf("round %d should start fresh: %+v", n, r.Features)
		}
	}

	out := buf.String()
	for _, want := range []string{"match processed", "match_id=ot", "rows=33", "seconds="} {
		if !strings.Contains(out, want) {
			t.Errorf("log lacks %q: %s", want, out)
		}
	}
}
