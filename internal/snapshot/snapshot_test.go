package snapshot

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pable/cs-round-features/internal/fixture"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/normalize"
	"github.com/pable/cs-round-features/internal/rounds"
)

func sec(s float64) time.Duration { return time.Duration(math.Round(s*1000)) * time.Millisecond }

// segment wraps snapshots into round 1 with freeze end at 15s and round end at 90s.
func segment(events ...model.GameEvent) rounds.Segment {
	return rounds.Segment{
		Round:  model.Round{RoundNum: 1},
		Start:  model.RoundStart{RoundNum: 1},
		Freeze: model.FreezeEnd{RoundNum: 1, Timestamp: sec(15)},
		End:    model.RoundEnd{RoundNum: 1, Timestamp: sec(90), Winner: model.SideCT},
		Events: events,
	}
}

func snap(id string, side model.Side, t float64, money int) model.PlayerSnapshot {
	return model.PlayerSnapshot{Timestamp: sec(t), PlayerID: id, Side: side, Money: money, Alive: true}
}

func TestSelectFixtureGunRound(t *testing.T) {
	res := normalize.Normalize(fixture.Raw(fixture.Options{Rounds: 2}))
	segs, err := rounds.Resolve(res.Events, model.DefaultSchedule())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	rs, err := Select(segs[1], DefaultWindow())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if rs.Target != sec(fixture.RoundLength+fixture.FreezeLength+fixture.TargetOffset) {
		t.Errorf("target: got %v", rs.Target)
	}

	tSide := rs.T
	if tSide.Players != 5 || tSide.Imputed != 0 {
		t.Fatalf("T players=%d imputed=%d", tSide.Players, tSide.Imputed)
	}
	if tSide.StartResources != 5*6700 || tSide.TotalMoney != 5*2000 || tSide.TotalEquipmentValue != 5*4700 {
		t.Errorf("T economy: %+v", tSide)
	}
	if tSide.AvgMoney != 2000 {
		t.Errorf("T avg money: got %v", tSide.AvgMoney)
	}
	if tSide.WeaponCounts[model.WeaponRifle] != 5 || tSide.AKCount != 5 {
		t.Errorf("T rifles=%d ak=%d", tSide.WeaponCounts[model.WeaponRifle], tSide.AKCount)
	}
	// Four smokes held plus one thrown before the target.
	if tSide.UtilityCounts[model.UtilitySmoke] != 5 {
		t.Errorf("T smokes: got %d, want 5", tSide.UtilityCounts[model.UtilitySmoke])
	}
	if rs.CT.AKCount != 0 || rs.CT.HelmetCount != 5 {
		t.Errorf("CT ak=%d helmets=%d", rs.CT.AKCount, rs.CT.HelmetCount)
	}

	// Round 2 is won by T: two survivors with their kits.
	if rs.TEnd.Survivors != 2 || rs.TEnd.SavedValue != 2*4700 {
		t.Errorf("T end state: %+v", rs.TEnd)
	}
	if rs.CTEnd.Survivors != 0 || rs.CTEnd.EquipmentValue != 0 {
		t.Errorf("CT end state: %+v", rs.CTEnd)
	}
}

func TestSelectClosestWithTiesToEarlier(t *testing.T) {
	seg := segment(
		snap("ct1", model.SideCT, 16.6, 100), // 0.4s early
		snap("ct1", model.SideCT, 17.4, 200), // 0.4s late, ties lose
		snap("t1", model.SideT, 16.8, 300),
		snap("t1", model.SideT, 17.1, 400), // closest
	)
	rs, err := Select(seg, DefaultWindow())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if rs.CT.TotalMoney != 100 {
		t.Errorf("CT tie should pick the earlier snapshot, got money %d", rs.CT.TotalMoney)
	}
	if rs.T.TotalMoney != 400 {
		t.Errorf("T should pick the closest snapshot, got money %d", rs.T.TotalMoney)
	}
	if rs.CT.StartResources != 100 || rs.T.StartResources != 300 {
		t.Errorf("start resources: CT %d T %d", rs.CT.StartResources, rs.T.StartResources)
	}
}

func TestSelectImputesMissingPlayers(t *testing.T) {
	seg := segment(
		snap("ct1", model.SideCT, 17.0, 1000),
		snap("ct2", model.SideCT, 5.0, 700),  // before the window
		snap("ct2", model.SideCT, 12.0, 650), // latest before the window
		snap("t1", model.SideT, 40.0, 900),   // only after the window
	)
	rs, err := Select(seg, DefaultWindow())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if rs.CT.Players != 2 || rs.CT.Imputed != 1 || rs.CT.TotalMoney != 1650 {
		t.Errorf("CT: players=%d imputed=%d money=%d", rs.CT.Players, rs.CT.Imputed, rs.CT.TotalMoney)
	}
	if rs.T.Imputed != 1 || rs.T.TotalMoney != 900 {
		t.Errorf("T: imputed=%d money=%d", rs.T.Imputed, rs.T.TotalMoney)
	}
}

func TestSelectThrownUtilityWindow(t *testing.T) {
	seg := segment(
		snap("ct1", model.SideCT, 17.0, 0),
		snap("t1", model.SideT, 17.0, 0),
		model.GrenadeThrown{Timestamp: sec(14), PlayerID: "t1", Utility: model.UtilityFlash}, // during freeze time
		model.GrenadeThrown{Timestamp: sec(16), PlayerID: "t1", Utility: model.UtilityFlash},
		model.GrenadeThrown{Timestamp: sec(17), PlayerID: "ct1", Side: model.SideCT, Utility: model.UtilityHE},
		model.GrenadeThrown{Timestamp: sec(30), PlayerID: "t1", Utility: model.UtilitySmoke}, // after target
	)
	rs, err := Select(seg, DefaultWindow())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if rs.T.UtilityCounts[model.UtilityFlash] != 1 || rs.T.UtilityCounts[model.UtilitySmoke] != 0 {
		t.Errorf("T utility: %v", rs.T.UtilityCounts)
	}
	if rs.CT.UtilityCounts[model.UtilityHE] != 1 {
		t.Errorf("CT utility: %v", rs.CT.UtilityCounts)
	}
}

func TestSelectSideUnavailable(t *testing.T) {
	seg := segment(snap("ct1", model.SideCT, 17.0, 800))
	_, err := Select(seg, DefaultWindow())

	var unavailable *SnapshotUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *SnapshotUnavailableError, got %v", err)
	}
	if unavailable.Side != model.SideT || unavailable.RoundNum != 1 {
		t.Errorf("unexpected error fields: %+v", unavailable)
	}
}
