package model

import (
	"sort"
	"time"
)

// EventKind orders events that share a timestamp.
type EventKind int

const (
	KindRoundStart EventKind = iota
	KindFreezeEnd
	KindPlayerSnapshot
	KindGrenadeThrown
	KindRoundEnd
)

func (k EventKind) String() string {
	switch k {
	case KindRoundStart:
		return "round_start"
	case KindFreezeEnd:
		return "freeze_end"
	case KindPlayerSnapshot:
		return "player_snapshot"
	case KindGrenadeThrown:
		return "grenade_thrown"
	case KindRoundEnd:
		return "round_end"
	default:
		return "unknown"
	}
}

// GameEvent is one canonical, typed event of a match.
type GameEvent interface {
	Kind() EventKind
	Time() time.Duration
}

// WeaponKind is the category of a primary or secondary weapon.
type WeaponKind int

const (
	WeaponPistol WeaponKind = iota
	WeaponSMG
	WeaponHeavy
	WeaponRifle
	WeaponAWP
	WeaponSSG
)

func (w WeaponKind) String() string {
	switch w {
	case WeaponPistol:
		return "pistol"
	case WeaponSMG:
		return "smg"
	case WeaponHeavy:
		return "heavy"
	case WeaponRifle:
		return "rifle"
	case WeaponAWP:
		return "awp"
	case WeaponSSG:
		return "ssg"
	default:
		return "unknown"
	}
}

// UtilityKind is the category of a grenade.
type UtilityKind int

const (
	UtilitySmoke UtilityKind = iota
	UtilityFlash
	UtilityHE
	UtilityMolotov
	UtilityIncendiary
	UtilityDecoy
)

func (u UtilityKind) String() string {
	switch u {
	case UtilitySmoke:
		return "smoke"
	case UtilityFlash:
		return "flash"
	case UtilityHE:
		return "he"
	case UtilityMolotov:
		return "molotov"
	case UtilityIncendiary:
		return "incendiary"
	case UtilityDecoy:
		return "decoy"
	default:
		return "unknown"
	}
}

type RoundStart struct {
	RoundNum  int
	Timestamp time.Duration
}

type FreezeEnd struct {
	RoundNum  int
	Timestamp time.Duration
}

// PlayerSnapshot is the state of one player at one instant.
type PlayerSnapshot struct {
	Timestamp      time.Duration
	PlayerID       string
	Side           Side
	Team           TeamIdentity // empty when the decoder has no clan name
	Money          int
	EquipmentValue int
	Weapons        []WeaponKind
	Utility        []UtilityKind
	Inventory      []string // canonical item names, used for per-weapon counts
	Armor          int
	HasHelmet      bool
	HasDefuser     bool
	Alive          bool
}

// GrenadeThrown records a grenade leaving a player's inventory.
type GrenadeThrown struct {
	Timestamp time.Duration
	PlayerID  string
	Side      Side // SideUnknown when the decoder did not report it
	Utility   UtilityKind
}

type RoundEnd struct {
	RoundNum  int
	Timestamp time.Duration
	Winner    Side
}

func (RoundStart) Kind() EventKind     { return KindRoundStart }
func (FreezeEnd) Kind() EventKind      { return KindFreezeEnd }
func (PlayerSnapshot) Kind() EventKind { return KindPlayerSnapshot }
func (GrenadeThrown) Kind() EventKind  { return KindGrenadeThrown }
func (RoundEnd) Kind() EventKind       { return KindRoundEnd }

func (e RoundStart) Time() time.Duration     { return e.Timestamp }
func (e FreezeEnd) Time() time.Duration      { return e.Timestamp }
func (e PlayerSnapshot) Time() time.Duration { return e.Timestamp }
func (e GrenadeThrown) Time() time.Duration  { return e.Timestamp }
func (e RoundEnd) Time() time.Duration       { return e.Timestamp }

// SortEvents orders events by timestamp, then kind priority. Input order is
// kept for full ties.
func SortEvents(events []GameEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].Time(), events[j].Time()
		if ti != tj {
			return ti < tj
		}
		return events[i].Kind() < events[j].Kind()
	})
}
