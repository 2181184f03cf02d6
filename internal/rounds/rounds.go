// Package rounds groups an ordered event stream into rounds and tracks the
// score and side mapping of both teams across side switches.
package rounds

import (
	"sort"

	"github.com/pable/cs-round-features/internal/model"
)

// Segment is one resolved round and the player events that happened in it.
type Segment struct {
	Round  model.Round
	Start  model.RoundStart
	Freeze model.FreezeEnd
	End    model.RoundEnd
	Events []model.GameEvent // snapshots and grenades, in stream order
}

// Snapshots returns the player snapshots of the segment.
func (s Segment) Snapshots() []model.PlayerSnapshot {
	var out []model.PlayerSnapshot
	for _, ev := range s.Events {
		if snap, ok := ev.(model.PlayerSnapshot); ok {
			out = append(out, snap)
		}
	}
	return out
}

// Grenades returns the grenades thrown during the segment.
func (s Segment) Grenades() []model.GrenadeThrown {
	var out []model.GrenadeThrown
	for _, ev := range s.Events {
		if g, ok := ev.(model.GrenadeThrown); ok {
			out = append(out, g)
		}
	}
	return out
}

type state int

const (
	awaitingRoundStart state = iota
	inRound                  // RoundStart seen, FreezeEnd pending
	awaitingRoundEnd         // FreezeEnd seen
)

type resolver struct {
	schedule model.Schedule
	state    state
	cur      Segment
	next     int
	ct, t    model.TeamIdentity
	scores   map[model.TeamIdentity]int
	out      []Segment
}

// Resolve walks events, which must already be in total order, and returns one
// segment per round in round order. Any violation of the round marker
// sequence rejects the whole match with a *RoundSequenceError.
func Resolve(events []model.GameEvent, schedule model.Schedule) ([]Segment, error) {
	r := &resolver{
		schedule: schedule,
		next:     1,
		scores:   make(map[model.TeamIdentity]int),
	}
	for _, ev := range events {
		if err := r.step(ev); err != nil {
			return nil, err
		}
	}
	if r.state != awaitingRoundStart {
		return nil, sequenceError(r.cur.Start.RoundNum, "stream ended inside an open round")
	}
	if len(r.out) == 0 {
		return nil, sequenceError(0, "no complete rounds")
	}
	return r.out, nil
}

func (r *resolver) step(ev model.GameEvent) error {
	switch e := ev.(type) {
	case model.RoundStart:
		if r.state != awaitingRoundStart {
			return sequenceError(r.cur.Start.RoundNum, "round_start for round %d before round_end", e.RoundNum)
		}
		if e.RoundNum != r.next {
			return sequenceError(e.RoundNum, "expected round %d", r.next)
		}
		r.cur = Segment{Start: e}
		r.state = inRound

	case model.FreezeEnd:
		switch {
		case r.state == awaitingRoundStart:
			return sequenceError(e.RoundNum, "freeze_end outside a round")
		case r.state == awaitingRoundEnd:
			return sequenceError(e.RoundNum, "duplicate freeze_end")
		case e.RoundNum != r.cur.Start.RoundNum:
			return sequenceError(r.cur.Start.RoundNum, "freeze_end labelled round %d", e.RoundNum)
		}
		r.cur.Freeze = e
		r.state = awaitingRoundEnd

	case model.RoundEnd:
		switch {
		case r.state == awaitingRoundStart:
			return sequenceError(e.RoundNum, "round_end before round_start")
		case r.state == inRound:
			return sequenceError(e.RoundNum, "round_end without freeze_end")
		case e.RoundNum != r.cur.Start.RoundNum:
			return sequenceError(r.cur.Start.RoundNum, "round_end labelled round %d", e.RoundNum)
		case e.Winner != model.SideCT && e.Winner != model.SideT:
			return sequenceError(e.RoundNum, "round_end without a winner")
		}
		r.cur.End = e
		r.emit()

	default:
		// Player events between rounds carry no round state.
		if r.state != awaitingRoundStart {
			r.cur.Events = append(r.cur.Events, ev)
		}
	}
	return nil
}

// emit closes the current round. The side switch check runs here, before the
// round's mapping and scores are recorded.
func (r *resolver) emit() {
	n := r.cur.Start.RoundNum
	if n == 1 {
		r.ct, r.t = identities(r.cur.Snapshots())
	} else if r.schedule.IsSwitch(n) {
		r.ct, r.t = r.t, r.ct
	}

	r.cur.Round = model.Round{
		RoundNum:   n,
		CTScore:    r.scores[r.ct],
		TScore:     r.scores[r.t],
		CTTeam:     r.ct,
		TTeam:      r.t,
		IsOvertime: r.schedule.IsOvertime(n),
		HalfIndex:  r.schedule.HalfIndex(n),
		Winner:     r.cur.End.Winner,
	}
	r.scores[r.cur.Round.WinnerTeam()]++

	r.out = append(r.out, r.cur)
	r.cur = Segment{}
	r.next = n + 1
	r.state = awaitingRoundStart
}

// identities names the teams from the first round's snapshots: the most
// common clan name on each side. Without two distinct names the teams are
// labelled by their starting side.
func identities(snaps []model.PlayerSnapshot) (ct, t model.TeamIdentity) {
	ct = majority(snaps, model.SideCT)
	t = majority(snaps, model.SideT)
	if ct == "" || t == "" || ct == t {
		return model.TeamB, model.TeamA
	}
	return ct, t
}

func majority(snaps []model.PlayerSnapshot, side model.Side) model.TeamIdentity {
	counts := make(map[model.TeamIdentity]int)
	for _, s := range snaps {
		if s.Side == side && s.Team != "" {
			counts[s.Team]++
		}
	}
	names := make([]model.TeamIdentity, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
