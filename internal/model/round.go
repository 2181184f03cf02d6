package model

import "time"

// Round is one resolved round. CTScore and TScore are the scores of the teams
// occupying each side at round start, not a per-identity tally: after a
// switch the values move with the teams.
type Round struct {
	RoundNum   int
	CTScore    int
	TScore     int
	CTTeam     TeamIdentity
	TTeam      TeamIdentity
	IsOvertime bool
	HalfIndex  int
	Winner     Side
}

// SideOf returns the side team occupies in this round.
func (r Round) SideOf(team TeamIdentity) Side {
	switch team {
	case r.CTTeam:
		return SideCT
	case r.TTeam:
		return SideT
	default:
		return SideUnknown
	}
}

// TeamOn returns the team occupying side in this round.
func (r Round) TeamOn(side Side) TeamIdentity {
	if side == SideCT {
		return r.CTTeam
	}
	return r.TTeam
}

// TeamScore is the identity-aware score of team at round start.
func (r Round) TeamScore(team TeamIdentity) int {
	switch team {
	case r.CTTeam:
		return r.CTScore
	case r.TTeam:
		return r.TScore
	default:
		return 0
	}
}

// WinnerTeam is the identity of the team that won the round.
func (r Round) WinnerTeam() TeamIdentity {
	return r.TeamOn(r.Winner)
}

// TeamState aggregates the selected snapshots of one side.
type TeamState struct {
	Players             int
	Imputed             int
	TotalMoney          int
	AvgMoney            float64
	TotalEquipmentValue int
	AvgEquipmentValue   float64
	StartResources      int // money + equipment at each player's first snapshot of the round
	WeaponCounts        map[WeaponKind]int
	UtilityCounts       map[UtilityKind]int
	AKCount             int
	ArmorCount          int
	HelmetCount         int
	DefuserCount        int
	AliveCount          int
}

// EndState is one side's state at its last snapshot before RoundEnd.
type EndState struct {
	Survivors      int
	SavedValue     int // equipment value held by survivors
	EquipmentValue int
}

// RoundSnapshot is the selected game state of one round.
type RoundSnapshot struct {
	RoundNum int
	Target   time.Duration
	CT       TeamState
	T        TeamState
	CTEnd    EndState
	TEnd     EndState
}

// Team returns the state of side.
func (s RoundSnapshot) Team(side Side) TeamState {
	if side == SideCT {
		return s.CT
	}
	return s.T
}

// End returns the end-of-round state of side.
func (s RoundSnapshot) End(side Side) EndState {
	if side == SideCT {
		return s.CTEnd
	}
	return s.TEnd
}
