package features

import (
	"errors"
	"testing"

	"github.com/pable/cs-round-features/internal/fixture"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/normalize"
	"github.com/pable/cs-round-features/internal/rounds"
	"github.com/pable/cs-round-features/internal/snapshot"
)

type derived struct {
	rounds []model.Round
	snaps  []model.RoundSnapshot
	rows   []model.FeatureRow
}

func deriveFixture(t *testing.T, o fixture.Options) derived {
	t.Helper()
	res := normalize.Normalize(fixture.Raw(o))
	segs, err := rounds.Resolve(res.Events, model.DefaultSchedule())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	eng := Engine{Schedule: model.DefaultSchedule(), MapName: "de_mirage"}

	var d derived
	for _, seg := range segs {
		snap, err := snapshot.Select(seg, snapshot.DefaultWindow())
		if err != nil {
			t.Fatalf("round %d: Select: %v", seg.Round.RoundNum, err)
		}
		row, err := eng.Derive(seg.Round, snap, d.rows)
		if err != nil {
			t.Fatalf("round %d: Derive: %v", seg.Round.RoundNum, err)
		}
		d.rounds = append(d.rounds, seg.Round)
		d.snaps = append(d.snaps, snap)
		d.rows = append(d.rows, row)
	}
	return d
}

func TestSyntheticSixteenRounds(t *testing.T) {
	rows := deriveFixture(t, fixture.Options{Rounds: 16}).rows
	if len(rows) != 16 {
		t.Fatalf("expected 16 rows, got %d", len(rows))
	}

	r1 := rows[0]
	if r1.CTMoneyTotal != 4000*5 || r1.TMoneyTotal != 4000*5 {
		t.Errorf("pistol money_total: CT %d T %d, want 20000", r1.CTMoneyTotal, r1.TMoneyTotal)
	}
	if r1.CTCash != 4000*5 || r1.TCash != 4000*5 {
		t.Errorf("pistol cash: CT %d T %d, want 20000", r1.CTCash, r1.TCash)
	}
	if r1.CTAWPCount+r1.TAWPCount+r1.CTRifleCount+r1.TRifleCount != 0 {
		t.Errorf("pistol round should have no AWP or rifle: %+v", r1.Features)
	}
	if r1.MapName != "de_mirage" || r1.IsOvertime {
		t.Errorf("round 1 header: map=%s overtime=%v", r1.MapName, r1.IsOvertime)
	}

	r12, r13 := rows[11], rows[12]
	if r13.CTTeam != r12.TTeam || r13.TTeam != r12.CTTeam {
		t.Errorf("round 13 should swap sides: r12 CT=%s T=%s, r13 CT=%s T=%s",
			r12.CTTeam, r12.TTeam, r13.CTTeam, r13.TTeam)
	}
	if r13.HalfIndex != r12.HalfIndex+1 {
		t.Errorf("half index: r12 %d r13 %d", r12.HalfIndex, r13.HalfIndex)
	}
}

func TestStreaks(t *testing.T) {
	rows := deriveFixture(t, fixture.Options{Rounds: 16}).rows

	for _, i := range []int{0, 12} {
		r := rows[i]
		if r.CTRoundsWonStreak+r.CTRoundsLostStreak+r.TRoundsWonStreak+r.TRoundsLostStreak != 0 {
			t.Errorf("round %d: streaks should be reset, got %+v", r.RoundNum, r.Features)
		}
	}

	// CT won round 1.
	r2 := rows[1]
	if r2.CTRoundsWonStreak != 1 || r2.TRoundsLostStreak != 1 || r2.CTRoundsLostStreak != 0 {
		t.Errorf("round 2 streaks: %+v", r2.Features)
	}
	// T won round 2.
	r3 := rows[2]
	if r3.CTRoundsWonStreak != 0 || r3.CTRoundsLostStreak != 1 || r3.TRoundsWonStreak != 1 {
		t.Errorf("round 3 streaks: %+v", r3.Features)
	}
}

func TestStreaksFollowTeamIdentity(t *testing.T) {
	// T wins everything: team A wins 1-12 as T, team B wins 13-16 as T.
	rows := deriveFixture(t, fixture.Options{
		Rounds: 16,
		Winner: func(int) model.Side { return model.SideT },
	}).rows

	if got := rows[11].TRoundsWonStreak; got != 11 {
		t.Errorf("round 12 T won streak: got %d, want 11", got)
	}
	r16 := rows[15]
	if r16.TRoundsWonStreak != 3 || r16.CTRoundsLostStreak != 3 {
		t.Errorf("round 16 streaks: T won %d, CT lost %d", r16.TRoundsWonStreak, r16.CTRoundsLostStreak)
	}
	if r16.CTScore != 12 || r16.TScore != 3 || r16.ScoreDiff != 9 {
		t.Errorf("round 16 score: CT %d T %d diff %d", r16.CTScore, r16.TScore, r16.ScoreDiff)
	}
}

func TestCarryOver(t *testing.T) {
	rows := deriveFixture(t, fixture.Options{Rounds: 16}).rows

	for _, i := range []int{0, 12} {
		r := rows[i]
		if r.CTEquipmentCarriedOver != 0 || r.TEquipmentCarriedOver != 0 ||
			r.CTSurvivorsPrevious != 0 || r.TSurvivorsPrevious != 0 ||
			r.CTEquipmentSavedValue != 0 || r.TEquipmentSavedValue != 0 {
			t.Errorf("round %d: carry-over should be zero, got %+v", r.RoundNum, r.Features)
		}
	}

	// Round 2 follows the pistol round: CT kept two players but no equipment.
	r2 := rows[1]
	if r2.CTSurvivorsPrevious != 2 || r2.CTEquipmentSavedValue != 0 || r2.CTEquipmentCarriedOver != 5*4700 {
		t.Errorf("round 2 carry-over: %+v", r2.Features)
	}

	// Round 3 follows a T win with two rifles saved.
	r3 := rows[2]
	if r3.TSurvivorsPrevious != 2 || r3.TEquipmentSavedValue != 2*4700 {
		t.Errorf("round 3 T saved: survivors %d value %d", r3.TSurvivorsPrevious, r3.TEquipmentSavedValue)
	}
	if r3.TEquipmentCarriedOver != 5*4700-2*4700 {
		t.Errorf("round 3 T carried over: got %d", r3.TEquipmentCarriedOver)
	}
	if r3.CTSurvivorsPrevious != 0 || r3.CTEquipmentCarriedOver != 5*4700 {
		t.Errorf("round 3 CT carry-over: %+v", r3.Features)
	}
}

func TestOvertimeSwitchesReset(t *testing.T) {
	rows := deriveFixture(t, fixture.Options{Rounds: 33}).rows
	if len(rows) != 33 {
		t.Fatalf("expected 33 rows, got %d", len(rows))
	}

	if got := rows[23].HalfIndex; got != 1 {
		t.Errorf("round 24 half index: got %d, want 1", got)
	}
	for half, n := range []int{25, 28, 31} {
		r := rows[n-1]
		if want := half + 2; r.HalfIndex != want {
			t.Errorf("round %d half index: got %d, want %d", n, r.HalfIndex, want)
		}
		if !r.IsOvertime {
			t.Errorf("round %d should be overtime", n)
		}
		if r.CTRoundsWonStreak+r.CTRoundsLostStreak+r.TRoundsWonStreak+r.TRoundsLostStreak != 0 {
			t.Errorf("round %d: streaks should be reset, got %+v", n, r.Features)
		}
		if r.CTEquipmentCarriedOver != 0 || r.TEquipmentCarriedOver != 0 ||
			r.CTSurvivorsPrevious != 0 || r.TSurvivorsPrevious != 0 ||
			r.CTEquipmentSavedValue != 0 || r.TEquipmentSavedValue != 0 {
			t.Errorf("round %d: carry-over should be zero, got %+v", n, r.Features)
		}

		// The round after a switch carries the switch round's result.
		next := rows[n]
		won, lost := next.CTRoundsWonStreak, next.TRoundsLostStreak
		survivors := next.CTSurvivorsPrevious
		if n%2 == 0 {
			won, lost = next.TRoundsWonStreak, next.CTRoundsLostStreak
			survivors = next.TSurvivorsPrevious
		}
		if won != 1 || lost != 1 {
			t.Errorf("round %d streaks: won %d lost %d, want 1 and 1", n+1, won, lost)
		}
		if survivors != 2 {
			t.Errorf("round %d survivors of the winner: got %d, want 2", n+1, survivors)
		}
		if next.CTEquipmentCarriedOver != 5*4700 || next.TEquipmentCarriedOver != 5*4700 {
			t.Errorf("round %d carried over: CT %d T %d", n+1, next.CTEquipmentCarriedOver, next.TEquipmentCarriedOver)
		}
	}
}

func TestEconomyAndUtility(t *testing.T) {
	r2 := deriveFixture(t, fixture.Options{Rounds: 2}).rows[1]

	if r2.TMoneyTotal != 5*6700 || r2.TCash != 5*2000 || r2.TCashAvg != 2000 {
		t.Errorf("T economy: total %d cash %d avg %v", r2.TMoneyTotal, r2.TCash, r2.TCashAvg)
	}
	if r2.TEquipmentValue != 5*4700 || r2.TEquipmentValueAvg != 4700 {
		t.Errorf("T equipment: %d avg %v", r2.TEquipmentValue, r2.TEquipmentValueAvg)
	}
	if r2.TRifleCount != 5 || r2.CTRifleCount != 5 || r2.CTAKCount != 0 {
		t.Errorf("rifles: T %d CT %d CT AK %d", r2.TRifleCount, r2.CTRifleCount, r2.CTAKCount)
	}
	if r2.TSmokeCount != 5 || r2.TFlashCount != 5 {
		t.Errorf("T utility: smoke %d flash %d", r2.TSmokeCount, r2.TFlashCount)
	}
	if want := 5*300 + 5*200; r2.TUtilityValue != want || r2.CTUtilityValue != want {
		t.Errorf("utility value: T %d CT %d, want %d", r2.TUtilityValue, r2.CTUtilityValue, want)
	}
	if r2.CTArmorCount != 5 || r2.THelmetCount != 5 {
		t.Errorf("armor: CT %d T helmets %d", r2.CTArmorCount, r2.THelmetCount)
	}
}

func TestDeriveMissingHistory(t *testing.T) {
	d := deriveFixture(t, fixture.Options{Rounds: 14})
	eng := Engine{Schedule: model.DefaultSchedule()}

	// Round 5 without round 4 in the history.
	_, err := eng.Derive(d.rounds[4], d.snaps[4], d.rows[:3])
	var derr *FeatureDerivationError
	if !errors.As(err, &derr) || derr.RoundNum != 5 || derr.Missing != 4 {
		t.Fatalf("expected FeatureDerivationError for round 5, got %v", err)
	}

	// A half start needs no history, so the chain recovers at round 13.
	row, err := eng.Derive(d.rounds[12], d.snaps[12], nil)
	if err != nil {
		t.Fatalf("round 13 without history: %v", err)
	}
	if row.CTEquipmentCarriedOver != 0 || row.CTRoundsWonStreak != 0 {
		t.Errorf("round 13 should start fresh: %+v", row.Features)
	}
	if _, err := eng.Derive(d.rounds[13], d.snaps[13], []model.FeatureRow{row}); err != nil {
		t.Errorf("round 14 after recovered round 13: %v", err)
	}
}
