package parser

import (
	"time"

	"github.com/pable/cs-round-features/internal/model"
)

// defaultFreeze is used when a round ends without a freeze time end event.
const defaultFreeze = 15 * time.Second

// playerState is one sampled player, decoupled from the decoder's types.
type playerState struct {
	ID        string
	Side      model.Side
	Team      string
	Money     int
	Equipment int
	Armor     int
	Helmet    bool
	Defuser   bool
	Health    int
	Alive     bool
	Inventory []string
}

// recorder turns decoder callbacks into raw records. Records of the open
// round are buffered and only kept once the round ends with a winner, so an
// abandoned or restarted round leaves nothing behind.
type recorder struct {
	sample time.Duration

	records []model.RawRecord
	open    []model.RawRecord
	round   int
	inRound bool
	start   time.Duration
	frozen  bool
	sampled bool
	last    time.Duration
}

func newRecorder(sample time.Duration) *recorder {
	return &recorder{sample: sample}
}

// matchStart drops everything recorded so far. Warmup and knife rounds come
// before it.
func (r *recorder) matchStart() {
	r.records = nil
	r.open = nil
	r.round = 0
	r.inRound = false
}

func (r *recorder) roundStart(tick int, ts time.Duration) {
	if !r.inRound {
		r.round++
	}
	r.open = nil
	r.inRound = true
	r.start = ts
	r.frozen = false
	r.sampled = false
	r.add(tick, "round_start", ts, map[string]any{"round_num": r.round})
}

func (r *recorder) freezeEnd(tick int, ts time.Duration) {
	if !r.inRound || r.frozen {
		return
	}
	r.frozen = true
	r.add(tick, "freeze_end", ts, map[string]any{"round_num": r.round})
}

// due reports whether a periodic sample should be taken at ts.
func (r *recorder) due(ts time.Duration) bool {
	return r.inRound && (!r.sampled || ts-r.last >= r.sample)
}

func (r *recorder) players(tick int, ts time.Duration, players []playerState) {
	if !r.inRound {
		return
	}
	r.sampled = true
	r.last = ts
	for _, p := range players {
		fields := map[string]any{
			"player_id":       p.ID,
			"side":            p.Side.String(),
			"money":           p.Money,
			"equipment_value": p.Equipment,
			"armor":           p.Armor,
			"has_helmet":      p.Helmet,
			"has_defuser":     p.Defuser,
			"health":          p.Health,
			"alive":           p.Alive,
			"inventory":       p.Inventory,
		}
		if p.Team != "" {
			fields["team"] = p.Team
		}
		r.add(tick, "player_snapshot", ts, fields)
	}
}

func (r *recorder) grenade(tick int, ts time.Duration, playerID string, side model.Side, kind string) {
	if !r.inRound || playerID == "" {
		return
	}
	fields := map[string]any{"player_id": playerID, "grenade_type": kind}
	if side != model.SideUnknown {
		fields["side"] = side.String()
	}
	r.add(tick, "grenade_thrown", ts, fields)
}

// roundEnd closes the open round. A round without a winner is discarded and
// its number reused.
func (r *recorder) roundEnd(tick int, ts time.Duration, winner model.Side) {
	if !r.inRound {
		return
	}
	r.inRound = false
	if winner != model.SideCT && winner != model.SideT {
		r.open = nil
		r.round--
		return
	}
	if !r.frozen {
		freeze := min(r.start+defaultFreeze, ts)
		r.open = append(r.open, model.RawRecord{
			Kind: "freeze_end", Tick: -1,
			Fields: map[string]any{"timestamp": freeze.Seconds(), "round_num": r.round},
		})
	}
	r.add(tick, "round_end", ts, map[string]any{"round_num": r.round, "winner": winner.String()})
	r.records = append(r.records, r.open...)
	r.open = nil
}

func (r *recorder) add(tick int, kind string, ts time.Duration, fields map[string]any) {
	fields["timestamp"] = ts.Seconds()
	r.open = append(r.open, model.RawRecord{Kind: kind, Tick: tick, Fields: fields})
}
