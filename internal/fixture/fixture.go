// Package fixture builds synthetic, well-formed matches for tests.
package fixture

import (
	"fmt"

	"github.com/pable/cs-round-features/internal/model"
)

// Round timing inside a synthetic match, in seconds from the round start.
const (
	RoundLength  = 100.0
	FreezeLength = 15.0
	TargetOffset = 2.0
	EndOffset    = 95.0
)

// Options describes a synthetic match. Zero values pick defaults.
type Options struct {
	MatchID  string
	MapName  string
	Rounds   int
	Schedule model.Schedule

	// Winner returns the winning side of round n. Default: CT wins odd rounds.
	Winner func(n int) model.Side

	// StartTName and StartCTName are clan names of the teams starting on
	// T and CT. Empty means the recording carries no names.
	StartTName  string
	StartCTName string

	// PistolMoney is each player's balance in pistol rounds. Default 4000.
	PistolMoney int
}

func (o *Options) defaults() {
	if o.MatchID == "" {
		o.MatchID = "synthetic"
	}
	if o.MapName == "" {
		o.MapName = "de_mirage"
	}
	if o.Rounds == 0 {
		o.Rounds = 16
	}
	if o.Schedule == (model.Schedule{}) {
		o.Schedule = model.DefaultSchedule()
	}
	if o.Winner == nil {
		o.Winner = func(n int) model.Side {
			if n%2 == 1 {
				return model.SideCT
			}
			return model.SideT
		}
	}
	if o.PistolMoney == 0 {
		o.PistolMoney = 4000
	}
}

// Player ids: team A starts on T, team B on CT.
func PlayerID(team model.TeamIdentity, i int) string {
	return fmt.Sprintf("%s%d", team, i)
}

// SideOfA returns the side team A plays in round n.
func SideOfA(s model.Schedule, n int) model.Side {
	if s.HalfIndex(n)%2 == 0 {
		return model.SideT
	}
	return model.SideCT
}

// Raw builds the decoder output of a synthetic match. Every round has a
// RoundStart, a FreezeEnd, ten snapshots at round start, ten at the target
// instant, ten shortly before RoundEnd, and (from round 2) one smoke thrown by
// the first player of the T side before the target instant.
//
// Rounds opening a half are pistol rounds: PistolMoney each, no equipment.
// Other rounds are gun rounds: 2000 balance and a rifle kit worth 4700.
func Raw(o Options) *model.RawMatch {
	o.defaults()
	m := &model.RawMatch{MatchID: o.MatchID, MapName: o.MapName, Source: "fixture", TickRate: 64}

	add := func(kind string, fields map[string]any) {
		m.Records = append(m.Records, model.RawRecord{Kind: kind, Tick: -1, Fields: fields})
	}

	for n := 1; n <= o.Rounds; n++ {
		base := float64(n-1) * RoundLength
		freeze := base + FreezeLength
		target := freeze + TargetOffset
		pistol := o.Schedule.StartsHalf(n)
		winner := o.Winner(n)

		add("round_start", map[string]any{"timestamp": base, "round_num": n})
		add("freeze_end", map[string]any{"timestamp": freeze, "round_num": n})

		sideA := SideOfA(o.Schedule, n)
		for _, team := range []model.TeamIdentity{model.TeamA, model.TeamB} {
			side := sideA
			name := o.StartTName
			if team == model.TeamB {
				side = sideA.Opposite()
				name = o.StartCTName
			}
			for i := 1; i <= 5; i++ {
				id := PlayerID(team, i)
				start := snapshot(id, side, name, base+1)
				mid := snapshot(id, side, name, target)
				end := snapshot(id, side, name, base+EndOffset-1)

				if pistol {
					start["money"] = o.PistolMoney
					mid["money"] = o.PistolMoney
					mid["inventory"] = []string{pistolFor(side)}
					end["money"] = o.PistolMoney
				} else {
					start["money"] = 6700
					mid["money"] = 2000
					mid["equipment_value"] = 4700
					mid["armor"] = 100
					mid["has_helmet"] = true
					mid["inventory"] = gunKit(side, i)
					end["money"] = 2000
				}
				// Winners keep two players alive; losers are wiped. Dead
				// players hold nothing.
				alive := side == winner && i <= 2
				end["alive"] = alive
				if alive && !pistol {
					end["equipment_value"] = 4700
				}

				add("player_snapshot", start)
				add("player_snapshot", mid)
				add("player_snapshot", end)
			}

			if !pistol && side == model.SideT {
				add("grenade_thrown", map[string]any{
					"timestamp": freeze + 1, "player_id": PlayerID(team, 1), "grenade_type": "Smoke Grenade",
				})
			}
		}

		add("round_end", map[string]any{"timestamp": base + EndOffset, "round_num": n, "winner": winner.String()})
	}
	return m
}

func snapshot(id string, side model.Side, team string, ts float64) map[string]any {
	f := map[string]any{
		"timestamp":       ts,
		"player_id":       id,
		"side":            side.String(),
		"money":           0,
		"equipment_value": 0,
		"alive":           true,
	}
	if team != "" {
		f["team"] = team
	}
	return f
}

func pistolFor(side model.Side) string {
	if side == model.SideCT {
		return "USP-S"
	}
	return "Glock-18"
}

// gunKit is a rifle, a pistol, a smoke and a flash. The first T player has
// already thrown the smoke by the target instant.
func gunKit(side model.Side, i int) []string {
	rifle := "M4A4"
	if side == model.SideT {
		rifle = "AK-47"
	}
	kit := []string{rifle, pistolFor(side), "Flashbang"}
	if !(side == model.SideT && i == 1) {
		kit = append(kit, "Smoke Grenade")
	}
	return kit
}
