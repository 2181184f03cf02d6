// Package features derives the per-round feature row from a resolved round,
// its selected snapshot and the rows already derived for the match.
package features

import (
	"fmt"

	"github.com/pable/cs-round-features/internal/equipment"
	"github.com/pable/cs-round-features/internal/model"
)

// FeatureDerivationError means a round needed the previous round's row and
// it was not in the history. Only this round is excluded.
type FeatureDerivationError struct {
	RoundNum int
	Missing  int
}

func (e *FeatureDerivationError) Error() string {
	return fmt.Sprintf("round %d: previous round %d missing from history", e.RoundNum, e.Missing)
}

// Engine derives feature rows for one match.
type Engine struct {
	Schedule model.Schedule
	MapName  string
}

// Derive builds the row of round. history holds the rows derived so far for
// the same match, in round order; Derive only reads it. Rounds opening a half
// start with zero streaks and nothing carried over, so they need no history.
func (e Engine) Derive(round model.Round, snap model.RoundSnapshot, history []model.FeatureRow) (model.FeatureRow, error) {
	row := model.FeatureRow{
		RoundNum:    round.RoundNum,
		HalfIndex:   round.HalfIndex,
		CTTeam:      round.CTTeam,
		TTeam:       round.TTeam,
		RoundWinner: round.Winner,
		Aftermath:   model.Aftermath{CT: snap.CTEnd, T: snap.TEnd},
	}

	f := &row.Features
	f.MapName = e.MapName
	f.IsOvertime = round.IsOvertime
	f.CTScore = round.CTScore
	f.TScore = round.TScore
	f.ScoreDiff = round.CTScore - round.TScore

	economy(f, snap.CT, snap.T)
	armament(f, snap.CT, snap.T)
	utility(f, snap.CT, snap.T)

	if e.Schedule.StartsHalf(round.RoundNum) {
		return row, nil
	}
	prev, ok := previous(history, round.RoundNum-1)
	if !ok {
		return model.FeatureRow{}, &FeatureDerivationError{RoundNum: round.RoundNum, Missing: round.RoundNum - 1}
	}
	momentum(f, round, prev)
	carryOver(f, round, snap, prev)
	return row, nil
}

func previous(history []model.FeatureRow, n int) (model.FeatureRow, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].RoundNum == n {
			return history[i], true
		}
	}
	return model.FeatureRow{}, false
}

func economy(f *model.Features, ct, t model.TeamState) {
	f.CTMoneyTotal = ct.StartResources
	f.TMoneyTotal = t.StartResources
	f.CTCash = ct.TotalMoney
	f.TCash = t.TotalMoney
	f.CTCashAvg = ct.AvgMoney
	f.TCashAvg = t.AvgMoney
	f.CTArmorCount = ct.ArmorCount
	f.TArmorCount = t.ArmorCount
	f.CTHelmetCount = ct.HelmetCount
	f.THelmetCount = t.HelmetCount
	f.CTDefuserCount = ct.DefuserCount

	f.CTEquipmentValue = ct.TotalEquipmentValue
	f.TEquipmentValue = t.TotalEquipmentValue
	f.CTEquipmentValueAvg = ct.AvgEquipmentValue
	f.TEquipmentValueAvg = t.AvgEquipmentValue
}

func armament(f *model.Features, ct, t model.TeamState) {
	f.CTAWPCount = ct.WeaponCounts[model.WeaponAWP]
	f.TAWPCount = t.WeaponCounts[model.WeaponAWP]
	f.CTSSGCount = ct.WeaponCounts[model.WeaponSSG]
	f.TSSGCount = t.WeaponCounts[model.WeaponSSG]
	f.CTRifleCount = ct.WeaponCounts[model.WeaponRifle]
	f.TRifleCount = t.WeaponCounts[model.WeaponRifle]
	f.CTSMGCount = ct.WeaponCounts[model.WeaponSMG]
	f.TSMGCount = t.WeaponCounts[model.WeaponSMG]
	f.CTHeavyCount = ct.WeaponCounts[model.WeaponHeavy]
	f.THeavyCount = t.WeaponCounts[model.WeaponHeavy]
	f.CTAKCount = ct.AKCount
}

func utility(f *model.Features, ct, t model.TeamState) {
	f.CTSmokeCount = ct.UtilityCounts[model.UtilitySmoke]
	f.TSmokeCount = t.UtilityCounts[model.UtilitySmoke]
	f.CTMoloCount = ct.UtilityCounts[model.UtilityMolotov] + ct.UtilityCounts[model.UtilityIncendiary]
	f.TMoloCount = t.UtilityCounts[model.UtilityMolotov] + t.UtilityCounts[model.UtilityIncendiary]
	f.CTFlashCount = ct.UtilityCounts[model.UtilityFlash]
	f.TFlashCount = t.UtilityCounts[model.UtilityFlash]
	f.CTHECount = ct.UtilityCounts[model.UtilityHE]
	f.THECount = t.UtilityCounts[model.UtilityHE]
	f.CTUtilityValue = utilityValue(ct.UtilityCounts)
	f.TUtilityValue = utilityValue(t.UtilityCounts)
}

func utilityValue(counts map[model.UtilityKind]int) int {
	total := 0
	for kind, n := range counts {
		total += n * equipment.UtilityPrice(kind)
	}
	return total
}

// momentum extends each team's streak with the previous round's result. The
// streaks are tracked per team: prev is read through the side that team
// occupied in prev.
func momentum(f *model.Features, round model.Round, prev model.FeatureRow) {
	streak := func(side model.Side) (won, lost int) {
		team := round.TeamOn(side)
		prevSide := prev.SideOf(team)
		pw, pl := prev.Streaks(prevSide)
		if prev.RoundWinner == prevSide {
			return pw + 1, 0
		}
		return 0, pl + 1
	}
	f.CTRoundsWonStreak, f.CTRoundsLostStreak = streak(model.SideCT)
	f.TRoundsWonStreak, f.TRoundsLostStreak = streak(model.SideT)
}

// carryOver reads how each team finished the previous round.
func carryOver(f *model.Features, round model.Round, snap model.RoundSnapshot, prev model.FeatureRow) {
	end := func(side model.Side) model.EndState {
		return prev.Aftermath.Side(prev.SideOf(round.TeamOn(side)))
	}
	ctEnd, tEnd := end(model.SideCT), end(model.SideT)

	f.CTSurvivorsPrevious = ctEnd.Survivors
	f.TSurvivorsPrevious = tEnd.Survivors
	f.CTEquipmentSavedValue = ctEnd.SavedValue
	f.TEquipmentSavedValue = tEnd.SavedValue
	f.CTEquipmentCarriedOver = snap.CT.TotalEquipmentValue - ctEnd.EquipmentValue
	f.TEquipmentCarriedOver = snap.T.TotalEquipmentValue - tEnd.EquipmentValue
}
