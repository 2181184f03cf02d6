package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Side represents which role a team occupies for a block of rounds.
type Side int

const (
	SideUnknown Side = 0
	SideT       Side = 2
	SideCT      Side = 3
)

func (s Side) String() string {
	switch s {
	case SideT:
		return "T"
	case SideCT:
		return "CT"
	default:
		return "?"
	}
}

// Opposite returns the other playable side. Unknown stays unknown.
func (s Side) Opposite() Side {
	switch s {
	case SideT:
		return SideCT
	case SideCT:
		return SideT
	default:
		return SideUnknown
	}
}

// ParseSide accepts the spellings decoders use for the two sides.
func ParseSide(v string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "CT", "COUNTERTERRORIST", "COUNTER-TERRORIST", "COUNTER_TERRORIST", "3":
		return SideCT, nil
	case "T", "TERRORIST", "TERRORISTS", "2":
		return SideT, nil
	default:
		return SideUnknown, fmt.Errorf("unknown side %q", v)
	}
}

// Value implements driver.Valuer so sides are stored as "CT"/"T".
func (s Side) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *Side) Scan(src any) error {
	switch v := src.(type) {
	case string:
		side, err := ParseSide(v)
		if err != nil {
			return err
		}
		*s = side
	case []byte:
		return s.Scan(string(v))
	case int64:
		*s = Side(v)
	case nil:
		*s = SideUnknown
	default:
		return fmt.Errorf("scan side from %T", src)
	}
	return nil
}

// TeamIdentity identifies a team for the whole match, independent of side.
type TeamIdentity string

// Default identities when the recording carries no clan names.
const (
	TeamA TeamIdentity = "A" // started the match on T
	TeamB TeamIdentity = "B" // started the match on CT
)

// Schedule encodes when sides switch. Switches are driven by round number
// only, never by score.
type Schedule struct {
	RegulationSwitchRound  int
	OvertimeSwitchInterval int
}

// DefaultSchedule is the MR12 schedule with MR3 overtime halves.
func DefaultSchedule() Schedule {
	return Schedule{RegulationSwitchRound: 13, OvertimeSwitchInterval: 3}
}

// RegulationRounds is the number of rounds before overtime starts.
func (s Schedule) RegulationRounds() int {
	return 2 * (s.RegulationSwitchRound - 1)
}

// IsOvertime reports whether round n is played in overtime.
func (s Schedule) IsOvertime(n int) bool {
	return n > s.RegulationRounds()
}

// IsSwitch reports whether sides flip right before round n.
func (s Schedule) IsSwitch(n int) bool {
	if n == s.RegulationSwitchRound {
		return true
	}
	if !s.IsOvertime(n) || s.OvertimeSwitchInterval <= 0 {
		return false
	}
	return (n-s.RegulationRounds()-1)%s.OvertimeSwitchInterval == 0
}

// HalfIndex counts the switches that happened up to and including round n.
func (s Schedule) HalfIndex(n int) int {
	if n < s.RegulationSwitchRound {
		return 0
	}
	if !s.IsOvertime(n) {
		return 1
	}
	if s.OvertimeSwitchInterval <= 0 {
		return 1
	}
	return 2 + (n-s.RegulationRounds()-1)/s.OvertimeSwitchInterval
}

// StartsHalf reports whether round n opens a half: the first round of the
// match or the first round after a switch.
func (s Schedule) StartsHalf(n int) bool {
	return n == 1 || s.IsSwitch(n)
}
