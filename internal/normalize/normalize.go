// Package normalize turns a decoder's raw records into canonical, typed and
// ordered game events.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pable/cs-round-features/internal/equipment"
	"github.com/pable/cs-round-features/internal/logger"
	"github.com/pable/cs-round-features/internal/model"
)

// Field aliases used by the decoders we read.
var (
	timestampFields = []string{"timestamp", "time", "seconds"}
	roundFields     = []string{"round_num", "round", "round_number"}
	playerFields    = []string{"player_id", "steamid", "steam_id", "name"}
	sideFields      = []string{"team_side", "side", "team_name", "team_num"}
	teamFields      = []string{"team", "team_id", "team_clan_name", "clan_name"}
	moneyFields     = []string{"money", "balance", "cash"}
	equipFields     = []string{"equipment_value", "current_equip_value", "equip_value"}
	inventoryFields = []string{"inventory", "weapons", "items"}
	armorFields     = []string{"armor", "armor_value"}
	aliveFields     = []string{"alive", "is_alive"}
	winnerFields    = []string{"winner", "winner_side", "round_winner"}
	grenadeFields   = []string{"grenade_type", "utility", "weapon"}
)

var kinds = map[string]model.EventKind{
	"round_start":          model.KindRoundStart,
	"freeze_end":           model.KindFreezeEnd,
	"round_freeze_end":     model.KindFreezeEnd,
	"freezetime_end":       model.KindFreezeEnd,
	"round_freezetime_end": model.KindFreezeEnd,
	"player_snapshot":      model.KindPlayerSnapshot,
	"player_state":         model.KindPlayerSnapshot,
	"grenade_thrown":       model.KindGrenadeThrown,
	"grenade_throw":        model.KindGrenadeThrown,
	"round_end":            model.KindRoundEnd,
}

// Drop is a record that did not become an event.
type Drop struct {
	Index int
	Kind  string
	Err   error
}

// Result is the normalizer output for one match.
type Result struct {
	Events  []model.GameEvent
	Dropped []Drop
}

// DropCounts groups dropped records by reason: "unknown_kind" or the name of
// the offending field.
func (r Result) DropCounts() map[string]int {
	out := make(map[string]int)
	for _, d := range r.Dropped {
		out[Reason(d.Err)]++
	}
	return out
}

// Reason is a short label for a drop error, suitable for metrics.
func Reason(err error) string {
	var mal *MalformedRecordError
	switch {
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	case errors.As(err, &mal):
		return mal.Field
	default:
		return "other"
	}
}

// Option configures Normalize.
type Option func(*options)

type options struct {
	log logger.Logger
	ctx context.Context
}

// WithLogger logs every dropped record at debug level.
func WithLogger(ctx context.Context, l logger.Logger) Option {
	return func(o *options) {
		o.ctx = ctx
		o.log = l
	}
}

// Normalize maps every record of match to exactly one event or one drop.
// Events come back in total order: timestamp, then kind priority, then input
// order.
func Normalize(match *model.RawMatch, opts ...Option) Result {
	o := options{log: logger.Nop(), ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{Events: make([]model.GameEvent, 0, len(match.Records))}
	for i, rec := range match.Records {
		ev, err := decode(i, rec, match.TickRate)
		if err != nil {
			res.Dropped = append(res.Dropped, Drop{Index: i, Kind: rec.Kind, Err: err})
			o.log.Debug(o.ctx, "record dropped",
				logger.MatchID(match.MatchID), logger.Int("index", i), logger.Error(err))
			continue
		}
		res.Events = append(res.Events, ev)
	}
	model.SortEvents(res.Events)
	return res
}

// Record maps a single raw record. tickRate converts ticks to time when the
// record carries no explicit timestamp.
func Record(rec model.RawRecord, tickRate float64) (model.GameEvent, error) {
	return decode(0, rec, tickRate)
}

func decode(idx int, rec model.RawRecord, tickRate float64) (model.GameEvent, error) {
	kind, ok := kinds[strings.ToLower(strings.TrimSpace(rec.Kind))]
	if !ok {
		return nil, fmt.Errorf("record %d: %w: %q", idx, ErrUnknownKind, rec.Kind)
	}
	r := record{idx: idx, kind: rec.Kind, fields: rec.Fields}
	if r.fields == nil {
		r.fields = map[string]any{}
	}

	ts, err := r.timestamp(rec.Tick, tickRate)
	if err != nil {
		return nil, err
	}

	switch kind {
	case model.KindRoundStart:
		n, err := r.roundNum()
		if err != nil {
			return nil, err
		}
		return model.RoundStart{RoundNum: n, Timestamp: ts}, nil
	case model.KindFreezeEnd:
		n, err := r.roundNum()
		if err != nil {
			return nil, err
		}
		return model.FreezeEnd{RoundNum: n, Timestamp: ts}, nil
	case model.KindRoundEnd:
		n, err := r.roundNum()
		if err != nil {
			return nil, err
		}
		w, err := r.side(winnerFields, true)
		if err != nil {
			return nil, err
		}
		return model.RoundEnd{RoundNum: n, Timestamp: ts, Winner: w}, nil
	case model.KindGrenadeThrown:
		return r.grenade(ts)
	default:
		return r.snapshot(ts)
	}
}

type record struct {
	idx    int
	kind   string
	fields map[string]any
}

func (r record) malformed(field, format string, args ...any) error {
	return &MalformedRecordError{Index: r.idx, Kind: r.kind, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (r record) timestamp(tick int, tickRate float64) (time.Duration, error) {
	if v, name, ok := lookup(r.fields, timestampFields...); ok {
		secs, err := asFloat(v)
		if err != nil {
			return 0, r.malformed(name, "%v", err)
		}
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, r.malformed(name, "invalid timestamp %v", secs)
		}
		return time.Duration(math.Round(secs * float64(time.Second))), nil
	}
	if v, ok := r.fields["tick"]; ok && v != nil {
		t, err := asInt(v)
		if err != nil {
			return 0, r.malformed("tick", "%v", err)
		}
		tick = t
	}
	if tickRate <= 0 || tick < 0 {
		return 0, r.malformed("timestamp", "missing (no timestamp and no usable tick)")
	}
	return time.Duration(math.Round(float64(tick) / tickRate * float64(time.Second))), nil
}

func (r record) roundNum() (int, error) {
	v, name, ok := lookup(r.fields, roundFields...)
	if !ok {
		return 0, r.malformed(name, "missing")
	}
	n, err := asInt(v)
	if err != nil {
		return 0, r.malformed(name, "%v", err)
	}
	if n < 1 {
		return 0, r.malformed(name, "round number %d < 1", n)
	}
	return n, nil
}

func (r record) side(names []string, required bool) (model.Side, error) {
	v, name, ok := lookup(r.fields, names...)
	if !ok {
		if required {
			return model.SideUnknown, r.malformed(name, "missing")
		}
		return model.SideUnknown, nil
	}
	s, err := asString(v)
	if err != nil {
		return model.SideUnknown, r.malformed(name, "%v", err)
	}
	side, err := model.ParseSide(s)
	if err != nil {
		return model.SideUnknown, r.malformed(name, "%v", err)
	}
	return side, nil
}

func (r record) nonNegative(names []string, required bool) (int, error) {
	v, name, ok := lookup(r.fields, names...)
	if !ok {
		if required {
			return 0, r.malformed(name, "missing")
		}
		return 0, nil
	}
	n, err := asInt(v)
	if err != nil {
		return 0, r.malformed(name, "%v", err)
	}
	if n < 0 {
		return 0, r.malformed(name, "negative value %d", n)
	}
	return n, nil
}

func (r record) flag(name string) (bool, error) {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return false, nil
	}
	b, err := asBool(v)
	if err != nil {
		return false, r.malformed(name, "%v", err)
	}
	return b, nil
}

func (r record) playerID() (string, error) {
	v, name, ok := lookup(r.fields, playerFields...)
	if !ok {
		return "", r.malformed(name, "missing")
	}
	id, err := asString(v)
	if err != nil {
		return "", r.malformed(name, "%v", err)
	}
	if id == "" || id == "0" {
		return "", r.malformed(name, "empty player id")
	}
	return id, nil
}

func (r record) snapshot(ts time.Duration) (model.GameEvent, error) {
	snap := model.PlayerSnapshot{Timestamp: ts}

	var err error
	if snap.PlayerID, err = r.playerID(); err != nil {
		return nil, err
	}
	if snap.Side, err = r.side(sideFields, true); err != nil {
		return nil, err
	}
	if v, _, ok := lookup(r.fields, teamFields...); ok {
		if s, err := asString(v); err == nil {
			snap.Team = model.TeamIdentity(s)
		}
	}
	if snap.Money, err = r.nonNegative(moneyFields, true); err != nil {
		return nil, err
	}
	if snap.EquipmentValue, err = r.nonNegative(equipFields, true); err != nil {
		return nil, err
	}
	if snap.Armor, err = r.nonNegative(armorFields, false); err != nil {
		return nil, err
	}
	if snap.HasHelmet, err = r.flag("has_helmet"); err != nil {
		return nil, err
	}
	if snap.HasDefuser, err = r.flag("has_defuser"); err != nil {
		return nil, err
	}
	if snap.Alive, err = r.alive(); err != nil {
		return nil, err
	}

	if v, name, ok := lookup(r.fields, inventoryFields...); ok {
		items, err := asStrings(v)
		if err != nil {
			return nil, r.malformed(name, "%v", err)
		}
		for _, raw := range items {
			it, ok := equipment.Lookup(raw)
			if !ok {
				continue
			}
			switch it.Category {
			case equipment.CategoryWeapon:
				snap.Weapons = append(snap.Weapons, it.Weapon)
			case equipment.CategoryUtility:
				snap.Utility = append(snap.Utility, it.Utility)
			default:
				if it.Name == "Defuse Kit" {
					snap.HasDefuser = true
				}
			}
			snap.Inventory = append(snap.Inventory, it.Name)
		}
	}
	return snap, nil
}

// alive defaults to true when neither an alive flag nor health is present.
func (r record) alive() (bool, error) {
	if v, name, ok := lookup(r.fields, aliveFields...); ok {
		b, err := asBool(v)
		if err != nil {
			return false, r.malformed(name, "%v", err)
		}
		return b, nil
	}
	if v, ok := r.fields["health"]; ok && v != nil {
		hp, err := asInt(v)
		if err != nil {
			return false, r.malformed("health", "%v", err)
		}
		return hp > 0, nil
	}
	return true, nil
}

func (r record) grenade(ts time.Duration) (model.GameEvent, error) {
	id, err := r.playerID()
	if err != nil {
		return nil, err
	}
	side, err := r.side(sideFields, false)
	if err != nil {
		return nil, err
	}
	v, name, ok := lookup(r.fields, grenadeFields...)
	if !ok {
		return nil, r.malformed(name, "missing")
	}
	s, err := asString(v)
	if err != nil {
		return nil, r.malformed(name, "%v", err)
	}
	it, ok := equipment.Lookup(s)
	if !ok || it.Category != equipment.CategoryUtility {
		return nil, r.malformed(name, "not a grenade: %q", s)
	}
	return model.GrenadeThrown{Timestamp: ts, PlayerID: id, Side: side, Utility: it.Utility}, nil
}
