package rounds

import (
	"errors"
	"testing"
	"time"

	"github.com/pable/cs-round-features/internal/fixture"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/normalize"
)

func sec(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// markers builds the three round markers of round n starting at t.
func markers(n int, t float64, winner model.Side) []model.GameEvent {
	return []model.GameEvent{
		model.RoundStart{RoundNum: n, Timestamp: sec(t)},
		model.FreezeEnd{RoundNum: n, Timestamp: sec(t + 15)},
		model.RoundEnd{RoundNum: n, Timestamp: sec(t + 90), Winner: winner},
	}
}

func resolveFixture(t *testing.T, o fixture.Options) []Segment {
	t.Helper()
	res := normalize.Normalize(fixture.Raw(o))
	if len(res.Dropped) != 0 {
		t.Fatalf("fixture produced drops: %+v", res.Dropped)
	}
	segs, err := Resolve(res.Events, model.DefaultSchedule())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return segs
}

func TestResolveCountsRounds(t *testing.T) {
	segs := resolveFixture(t, fixture.Options{Rounds: 16})
	if len(segs) != 16 {
		t.Fatalf("expected 16 segments, got %d", len(segs))
	}
	for i, s := range segs {
		if s.Round.RoundNum != i+1 {
			t.Errorf("segment %d: round_num %d", i, s.Round.RoundNum)
		}
		if got := len(s.Snapshots()); got != 30 {
			t.Errorf("round %d: expected 30 snapshots, got %d", s.Round.RoundNum, got)
		}
	}
	if len(segs[0].Grenades()) != 0 || len(segs[1].Grenades()) != 1 {
		t.Error("expected grenades only in gun rounds")
	}
}

func TestResolveSwapsTeamsAtSwitch(t *testing.T) {
	segs := resolveFixture(t, fixture.Options{Rounds: 30})

	r1 := segs[0].Round
	if r1.CTTeam != model.TeamB || r1.TTeam != model.TeamA {
		t.Fatalf("round 1 mapping: CT=%s T=%s", r1.CTTeam, r1.TTeam)
	}
	for _, s := range segs[1:] {
		prev := segs[s.Round.RoundNum-2].Round
		cur := s.Round
		if model.DefaultSchedule().IsSwitch(cur.RoundNum) {
			if cur.CTTeam != prev.TTeam || cur.TTeam != prev.CTTeam {
				t.Errorf("round %d: mapping not swapped exactly", cur.RoundNum)
			}
			if cur.HalfIndex != prev.HalfIndex+1 {
				t.Errorf("round %d: half index %d after %d", cur.RoundNum, cur.HalfIndex, prev.HalfIndex)
			}
		} else if cur.CTTeam != prev.CTTeam {
			t.Errorf("round %d: mapping changed without a switch", cur.RoundNum)
		}
	}
	if !segs[24].Round.IsOvertime || segs[23].Round.IsOvertime {
		t.Error("overtime should start at round 25")
	}
}

func TestResolveScoresFollowTeams(t *testing.T) {
	// CT wins rounds 1-12, then T wins 13-16. Team B holds CT in the first
	// half, so it leads 12-0 and keeps its score after moving to T.
	winner := func(n int) model.Side {
		if n <= 12 {
			return model.SideCT
		}
		return model.SideT
	}
	segs := resolveFixture(t, fixture.Options{Rounds: 16, Winner: winner})

	r12 := segs[11].Round
	if r12.CTScore != 11 || r12.TScore != 0 {
		t.Errorf("round 12 start: CT %d T %d, want 11-0", r12.CTScore, r12.TScore)
	}
	r13 := segs[12].Round
	if r13.TTeam != model.TeamB || r13.TScore != 12 || r13.CTScore != 0 {
		t.Errorf("round 13 start: CT %s %d, T %s %d", r13.CTTeam, r13.CTScore, r13.TTeam, r13.TScore)
	}
	r16 := segs[15].Round
	if r16.TeamScore(model.TeamB) != 15 {
		t.Errorf("round 16: team B score %d, want 15", r16.TeamScore(model.TeamB))
	}
}

func TestResolveClanNames(t *testing.T) {
	segs := resolveFixture(t, fixture.Options{Rounds: 14, StartTName: "MOUZ", StartCTName: "Vitality"})
	if segs[0].Round.CTTeam != "Vitality" || segs[0].Round.TTeam != "MOUZ" {
		t.Errorf("round 1 names: CT=%s T=%s", segs[0].Round.CTTeam, segs[0].Round.TTeam)
	}
	if segs[13].Round.CTTeam != "MOUZ" {
		t.Errorf("round 14 CT team: got %s, want MOUZ", segs[13].Round.CTTeam)
	}
}

func TestResolveRejectsBadSequences(t *testing.T) {
	cases := map[string][]model.GameEvent{
		"gap": append(markers(1, 0, model.SideCT), markers(3, 100, model.SideT)...),
		"first round not 1": markers(2, 0, model.SideCT),
		"end before start": {
			model.RoundEnd{RoundNum: 1, Timestamp: sec(1), Winner: model.SideCT},
		},
		"end without freeze": {
			model.RoundStart{RoundNum: 1, Timestamp: sec(0)},
			model.RoundEnd{RoundNum: 1, Timestamp: sec(90), Winner: model.SideCT},
		},
		"duplicate freeze": {
			model.RoundStart{RoundNum: 1, Timestamp: sec(0)},
			model.FreezeEnd{RoundNum: 1, Timestamp: sec(15)},
			model.FreezeEnd{RoundNum: 1, Timestamp: sec(16)},
			model.RoundEnd{RoundNum: 1, Timestamp: sec(90), Winner: model.SideCT},
		},
		"open round": markers(1, 0, model.SideCT)[:2],
		"empty":      nil,
	}
	for name, events := range cases {
		_, err := Resolve(events, model.DefaultSchedule())
		if !errors.Is(err, ErrRoundSequence) {
			t.Errorf("%s: expected ErrRoundSequence, got %v", name, err)
			continue
		}
		var seqErr *RoundSequenceError
		if !errors.As(err, &seqErr) {
			t.Errorf("%s: expected *RoundSequenceError, got %T", name, err)
		}
	}
}

func TestResolveIgnoresEventsBetweenRounds(t *testing.T) {
	events := []model.GameEvent{
		model.PlayerSnapshot{Timestamp: 0, PlayerID: "warmup", Side: model.SideCT},
	}
	events = append(events, markers(1, 1, model.SideT)...)
	segs, err := Resolve(events, model.DefaultSchedule())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(segs[0].Events) != 0 {
		t.Errorf("snapshot before round 1 should be ignored, got %d events", len(segs[0].Events))
	}
	if segs[0].Round.CTTeam != model.TeamB || segs[0].Round.Winner != model.SideT {
		t.Errorf("unexpected round %+v", segs[0].Round)
	}
}
