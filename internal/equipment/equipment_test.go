package equipment

import (
	"testing"

	"github.com/pable/cs-round-features/internal/model"
)

func TestLookupSpellings(t *testing.T) {
	cases := []struct {
		in   string
		name string
		cat  Category
	}{
		{"AK-47", AK47, CategoryWeapon},
		{"weapon_ak47", AK47, CategoryWeapon},
		{"M4A1", "M4A1-S", CategoryWeapon},
		{"CZ75 Auto", "CZ75-Auto", CategoryWeapon},
		{"HE Grenade", "High Explosive Grenade", CategoryUtility},
		{"weapon_incgrenade", "Incendiary Grenade", CategoryUtility},
		{"Kevlar + Helmet", "Kevlar & Helmet", CategoryOther},
	}
	for _, c := range cases {
		it, ok := Lookup(c.in)
		if !ok {
			t.Errorf("Lookup(%q): not found", c.in)
			continue
		}
		if it.Name != c.name || it.Category != c.cat {
			t.Errorf("Lookup(%q) = %s/%d, want %s/%d", c.in, it.Name, it.Category, c.name, c.cat)
		}
	}

	if _, ok := Lookup("Karambit | Doppler"); ok {
		t.Error("knife skins are not catalogued")
	}
}

func TestWeaponCategories(t *testing.T) {
	want := map[string]model.WeaponKind{
		"AWP":     model.WeaponAWP,
		"SSG 08":  model.WeaponSSG,
		"SCAR-20": model.WeaponRifle,
		"Negev":   model.WeaponHeavy,
		"MP9":     model.WeaponSMG,
		"USP-S":   model.WeaponPistol,
	}
	for name, kind := range want {
		it, _ := Lookup(name)
		if it.Weapon != kind {
			t.Errorf("%s: got %v, want %v", name, it.Weapon, kind)
		}
	}
}

func TestUtilityPricesMatchCatalogue(t *testing.T) {
	for _, e := range catalogue {
		if e.item.Category != CategoryUtility {
			continue
		}
		if got := UtilityPrice(e.item.Utility); got != e.item.Price {
			t.Errorf("%s: UtilityPrice=%d, catalogue=%d", e.item.Name, got, e.item.Price)
		}
	}
	if MaxCarry(model.UtilityFlash) != 2 || MaxCarry(model.UtilitySmoke) != 1 {
		t.Error("unexpected carry limits")
	}
}
