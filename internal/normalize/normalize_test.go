package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/pable/cs-round-features/internal/model"
)

func rec(kind string, fields map[string]any) model.RawRecord {
	return model.RawRecord{Kind: kind, Tick: -1, Fields: fields}
}

func snapFields(ts float64, id, side string, money int) map[string]any {
	return map[string]any{
		"timestamp":       ts,
		"player_id":       id,
		"side":            side,
		"money":           money,
		"equipment_value": 0,
	}
}

func TestNormalizeOrdersByTimeThenKind(t *testing.T) {
	match := &model.RawMatch{
		MatchID: "m1",
		Records: []model.RawRecord{
			rec("round_end", map[string]any{"timestamp": 10.0, "round_num": 1, "winner": "CT"}),
			rec("player_snapshot", snapFields(10.0, "p1", "CT", 800)),
			rec("freeze_end", map[string]any{"timestamp": 1.0, "round_num": 1}),
			rec("round_start", map[string]any{"timestamp": 1.0, "round_num": 1}),
		},
	}

	res := Normalize(match)
	if len(res.Dropped) != 0 {
		t.Fatalf("unexpected drops: %+v", res.Dropped)
	}
	want := []model.EventKind{model.KindRoundStart, model.KindFreezeEnd, model.KindPlayerSnapshot, model.KindRoundEnd}
	if len(res.Events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(res.Events))
	}
	for i, k := range want {
		if res.Events[i].Kind() != k {
			t.Errorf("event %d: got %v, want %v", i, res.Events[i].Kind(), k)
		}
	}
}

func TestNormalizeDropsBadRecords(t *testing.T) {
	match := &model.RawMatch{
		Records: []model.RawRecord{
			rec("bomb_planted", map[string]any{"timestamp": 1.0}),
			rec("player_snapshot", snapFields(2.0, "p1", "CT", -50)),
			rec("round_start", map[string]any{"timestamp": 3.0}),
			rec("round_end", map[string]any{"timestamp": 4.0, "round_num": 1, "winner": "spectator"}),
			rec("player_snapshot", snapFields(5.0, "p2", "T", 800)),
		},
	}

	res := Normalize(match)
	if len(res.Events) != 1 {
		t.Fatalf("expected 1 surviving event, got %d", len(res.Events))
	}
	if len(res.Dropped) != 4 {
		t.Fatalf("expected 4 drops, got %d", len(res.Dropped))
	}
	if !errors.Is(res.Dropped[0].Err, ErrUnknownKind) {
		t.Errorf("drop 0: expected ErrUnknownKind, got %v", res.Dropped[0].Err)
	}

	var mal *MalformedRecordError
	if !errors.As(res.Dropped[1].Err, &mal) || mal.Field != "money" || mal.Index != 1 {
		t.Errorf("drop 1: expected malformed money at index 1, got %v", res.Dropped[1].Err)
	}
	if !errors.As(res.Dropped[2].Err, &mal) || mal.Field != "round_num" {
		t.Errorf("drop 2: expected missing round_num, got %v", res.Dropped[2].Err)
	}

	counts := res.DropCounts()
	if counts["unknown_kind"] != 1 || counts["money"] != 1 || counts["winner"] != 1 {
		t.Errorf("unexpected drop counts: %v", counts)
	}
}

func TestRecordAliases(t *testing.T) {
	r := model.RawRecord{
		Kind: "player_state",
		Tick: 1280,
		Fields: map[string]any{
			"steamid":             uint64(76561198000000001),
			"team_num":            3,
			"team_clan_name":      "Vitality",
			"balance":             "4150",
			"current_equip_value": 5700.0,
			"armor_value":         100,
			"has_helmet":          1,
			"health":              0,
			"weapons":             "AK-47, Smoke Grenade,Flashbang, weapon_knife_karambit, Defuse Kit",
		},
	}

	ev, err := Record(r, 64)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	snap, ok := ev.(model.PlayerSnapshot)
	if !ok {
		t.Fatalf("expected PlayerSnapshot, got %T", ev)
	}
	if snap.Timestamp != 20*time.Second {
		t.Errorf("timestamp from ticks: got %v, want 20s", snap.Timestamp)
	}
	if snap.PlayerID != "76561198000000001" || snap.Side != model.SideCT || snap.Team != "Vitality" {
		t.Errorf("identity fields wrong: %+v", snap)
	}
	if snap.Money != 4150 || snap.EquipmentValue != 5700 || snap.Armor != 100 || !snap.HasHelmet {
		t.Errorf("economy fields wrong: %+v", snap)
	}
	if snap.Alive {
		t.Error("health 0 should mean dead")
	}
	if !snap.HasDefuser {
		t.Error("defuse kit in inventory should set HasDefuser")
	}
	if len(snap.Weapons) != 1 || snap.Weapons[0] != model.WeaponRifle {
		t.Errorf("weapons: got %v", snap.Weapons)
	}
	if len(snap.Utility) != 2 {
		t.Errorf("utility: got %v", snap.Utility)
	}
	if len(snap.Inventory) != 4 {
		t.Errorf("unknown cosmetics should be skipped, inventory = %v", snap.Inventory)
	}
}

func TestRecordGrenade(t *testing.T) {
	ev, err := Record(rec("grenade_thrown", map[string]any{
		"seconds": 17.5, "name": "ropz", "weapon": "weapon_molotov",
	}), 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	g := ev.(model.GrenadeThrown)
	if g.Utility != model.UtilityMolotov || g.Side != model.SideUnknown || g.PlayerID != "ropz" {
		t.Errorf("unexpected grenade event %+v", g)
	}

	_, err = Record(rec("grenade_thrown", map[string]any{
		"seconds": 17.5, "name": "ropz", "weapon": "AWP",
	}), 0)
	var mal *MalformedRecordError
	if !errors.As(err, &mal) || mal.Field != "weapon" {
		t.Errorf("expected malformed weapon, got %v", err)
	}
}

func TestRecordWithoutTimestamp(t *testing.T) {
	_, err := Record(rec("round_start", map[string]any{"round_num": 1}), 64)
	var mal *MalformedRecordError
	if !errors.As(err, &mal) || mal.Field != "timestamp" {
		t.Errorf("expected missing timestamp, got %v", err)
	}
}
