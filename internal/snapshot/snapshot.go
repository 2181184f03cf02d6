// Package snapshot picks, for each round, the player states at a fixed instant
// after the buy phase and folds them into per-side team states.
package snapshot

import (
	"fmt"
	"time"

	"github.com/pable/cs-round-features/internal/equipment"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/rounds"
)

// Window locates the target instant relative to FreezeEnd.
type Window struct {
	Offset    time.Duration
	Tolerance time.Duration
}

// DefaultWindow is freeze end + 2s, accepting snapshots up to 0.5s away.
func DefaultWindow() Window {
	return Window{Offset: 2 * time.Second, Tolerance: 500 * time.Millisecond}
}

// SnapshotUnavailableError means no snapshot at all exists for one side of a
// round. Only that round is skipped.
type SnapshotUnavailableError struct {
	RoundNum int
	Side     model.Side
}

func (e *SnapshotUnavailableError) Error() string {
	return fmt.Sprintf("round %d: no snapshot for side %s", e.RoundNum, e.Side)
}

// pick is the state chosen for one player.
type pick struct {
	snap    model.PlayerSnapshot
	imputed bool
}

// Select builds the round snapshot of seg. Each player contributes the
// snapshot closest to the target within the tolerance, earlier winning ties.
// A player with nothing in the window is imputed from the latest earlier
// snapshot, or the earliest later one when there is none.
func Select(seg rounds.Segment, w Window) (model.RoundSnapshot, error) {
	target := seg.Freeze.Timestamp + w.Offset
	out := model.RoundSnapshot{RoundNum: seg.Round.RoundNum, Target: target}

	byPlayer, order := groupByPlayer(seg.Snapshots(), seg.End.Timestamp)

	picks := make(map[string]pick, len(order))
	for _, id := range order {
		picks[id] = choose(byPlayer[id], target, w.Tolerance)
	}

	thrown := thrownBySide(seg.Grenades(), picks, seg.Freeze.Timestamp, target)

	for _, side := range []model.Side{model.SideCT, model.SideT} {
		ts := teamState(side, order, picks, byPlayer, thrown[side])
		if ts.Players == 0 {
			return model.RoundSnapshot{}, &SnapshotUnavailableError{RoundNum: seg.Round.RoundNum, Side: side}
		}
		end := endState(side, order, byPlayer)
		if side == model.SideCT {
			out.CT, out.CTEnd = ts, end
		} else {
			out.T, out.TEnd = ts, end
		}
	}
	return out, nil
}

// groupByPlayer keeps snapshots at or before the round end, in time order,
// and remembers the order players first appear in.
func groupByPlayer(snaps []model.PlayerSnapshot, end time.Duration) (map[string][]model.PlayerSnapshot, []string) {
	by := make(map[string][]model.PlayerSnapshot)
	var order []string
	for _, s := range snaps {
		if s.Timestamp > end {
			continue
		}
		if _, seen := by[s.PlayerID]; !seen {
			order = append(order, s.PlayerID)
		}
		by[s.PlayerID] = append(by[s.PlayerID], s)
	}
	return by, order
}

func choose(snaps []model.PlayerSnapshot, target, tol time.Duration) pick {
	best := -1
	var bestDist time.Duration
	for i, s := range snaps {
		d := abs(s.Timestamp - target)
		if d > tol {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return pick{snap: snaps[best]}
	}

	before := -1
	for i, s := range snaps {
		if s.Timestamp < target {
			before = i
		}
	}
	if before >= 0 {
		return pick{snap: snaps[before], imputed: true}
	}
	return pick{snap: snaps[0], imputed: true}
}

// thrownBySide counts grenades thrown after freeze end and up to the target.
// A throw with no side takes the side of the thrower's picked snapshot.
func thrownBySide(grenades []model.GrenadeThrown, picks map[string]pick, freeze, target time.Duration) map[model.Side]map[model.UtilityKind]int {
	out := map[model.Side]map[model.UtilityKind]int{
		model.SideCT: {},
		model.SideT:  {},
	}
	for _, g := range grenades {
		if g.Timestamp <= freeze || g.Timestamp > target {
			continue
		}
		side := g.Side
		if side == model.SideUnknown {
			p, ok := picks[g.PlayerID]
			if !ok {
				continue
			}
			side = p.snap.Side
		}
		if counts, ok := out[side]; ok {
			counts[g.Utility]++
		}
	}
	return out
}

func teamState(side model.Side, order []string, picks map[string]pick, by map[string][]model.PlayerSnapshot, thrown map[model.UtilityKind]int) model.TeamState {
	ts := model.TeamState{
		WeaponCounts:  make(map[model.WeaponKind]int),
		UtilityCounts: make(map[model.UtilityKind]int),
	}
	for _, id := range order {
		p := picks[id]
		s := p.snap
		if s.Side != side {
			continue
		}
		ts.Players++
		if p.imputed {
			ts.Imputed++
		}
		first := by[id][0]
		ts.StartResources += first.Money + first.EquipmentValue
		ts.TotalMoney += s.Money
		ts.TotalEquipmentValue += s.EquipmentValue

		for _, w := range s.Weapons {
			ts.WeaponCounts[w]++
		}
		for _, u := range s.Utility {
			ts.UtilityCounts[u]++
		}
		for _, item := range s.Inventory {
			if item == equipment.AK47 {
				ts.AKCount++
			}
		}
		if s.Armor > 0 {
			ts.ArmorCount++
		}
		if s.HasHelmet {
			ts.HelmetCount++
		}
		if s.HasDefuser {
			ts.DefuserCount++
		}
		if s.Alive {
			ts.AliveCount++
		}
	}
	for u, n := range thrown {
		ts.UtilityCounts[u] += n
	}
	if ts.Players > 0 {
		ts.AvgMoney = float64(ts.TotalMoney) / float64(ts.Players)
		ts.AvgEquipmentValue = float64(ts.TotalEquipmentValue) / float64(ts.Players)
	}
	return ts
}

// endState reads each player's last snapshot of the round.
func endState(side model.Side, order []string, by map[string][]model.PlayerSnapshot) model.EndState {
	var es model.EndState
	for _, id := range order {
		snaps := by[id]
		last := snaps[len(snaps)-1]
		if last.Side != side {
			continue
		}
		es.EquipmentValue += last.EquipmentValue
		if last.Alive {
			es.Survivors++
			es.SavedValue += last.EquipmentValue
		}
	}
	return es
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
