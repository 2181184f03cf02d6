// Package equipment is the catalogue of buyable items: which category each
// weapon belongs to, grenade kinds, and buy-menu prices.
package equipment

import (
	"strings"
	"unicode"

	"github.com/pable/cs-round-features/internal/model"
)

// Category groups items by how the feature engine counts them.
type Category int

const (
	CategoryOther Category = iota
	CategoryWeapon
	CategoryUtility
)

// Item is one catalogue entry.
type Item struct {
	Name     string // canonical name, as it appears in inventories
	Price    int
	Category Category
	Weapon   model.WeaponKind  // valid when Category == CategoryWeapon
	Utility  model.UtilityKind // valid when Category == CategoryUtility
}

// AK47 is the canonical name of the rifle counted by ct_ak_count.
const AK47 = "AK-47"

func weapon(name string, kind model.WeaponKind, price int, aliases ...string) entry {
	return entry{Item{Name: name, Price: price, Category: CategoryWeapon, Weapon: kind}, aliases}
}

func utility(name string, kind model.UtilityKind, price int, aliases ...string) entry {
	return entry{Item{Name: name, Price: price, Category: CategoryUtility, Utility: kind}, aliases}
}

func other(name string, price int, aliases ...string) entry {
	return entry{Item{Name: name, Price: price, Category: CategoryOther}, aliases}
}

type entry struct {
	item    Item
	aliases []string
}

var catalogue = []entry{
	// Pistols
	weapon("Glock-18", model.WeaponPistol, 200, "glock"),
	weapon("USP-S", model.WeaponPistol, 200, "usp_silencer", "usp"),
	weapon("P2000", model.WeaponPistol, 200, "hkp2000"),
	weapon("Dual Berettas", model.WeaponPistol, 300, "elite"),
	weapon("P250", model.WeaponPistol, 300),
	weapon("Tec-9", model.WeaponPistol, 500, "tec9"),
	weapon("Five-SeveN", model.WeaponPistol, 500, "fiveseven"),
	weapon("CZ75-Auto", model.WeaponPistol, 500, "CZ75 Auto", "cz75a"),
	weapon("Desert Eagle", model.WeaponPistol, 700, "deagle"),
	weapon("R8 Revolver", model.WeaponPistol, 600, "revolver"),

	// SMGs
	weapon("MAC-10", model.WeaponSMG, 1050, "mac10"),
	weapon("MP9", model.WeaponSMG, 1250),
	weapon("MP7", model.WeaponSMG, 1500),
	weapon("MP5-SD", model.WeaponSMG, 1500, "mp5sd"),
	weapon("UMP-45", model.WeaponSMG, 1200, "ump45"),
	weapon("P90", model.WeaponSMG, 2350),
	weapon("PP-Bizon", model.WeaponSMG, 1400, "bizon"),

	// Heavy
	weapon("Nova", model.WeaponHeavy, 1050),
	weapon("Sawed-Off", model.WeaponHeavy, 1100, "sawedoff"),
	weapon("MAG-7", model.WeaponHeavy, 1300, "mag7"),
	weapon("XM1014", model.WeaponHeavy, 2000),
	weapon("M249", model.WeaponHeavy, 5200),
	weapon("Negev", model.WeaponHeavy, 1700),

	// Rifles, including the auto-snipers
	weapon("Galil AR", model.WeaponRifle, 1800, "galilar", "galil"),
	weapon("FAMAS", model.WeaponRifle, 1950),
	weapon(AK47, model.WeaponRifle, 2700, "ak47"),
	weapon("M4A4", model.WeaponRifle, 2900),
	weapon("M4A1-S", model.WeaponRifle, 2900, "m4a1_silencer", "M4A1"),
	weapon("SG 553", model.WeaponRifle, 3000, "sg556", "sg553"),
	weapon("AUG", model.WeaponRifle, 3300),
	weapon("G3SG1", model.WeaponRifle, 5000),
	weapon("SCAR-20", model.WeaponRifle, 5000, "scar20"),

	// Snipers
	weapon("SSG 08", model.WeaponSSG, 1700, "ssg08", "scout"),
	weapon("AWP", model.WeaponAWP, 4750),

	// Grenades
	utility("Smoke Grenade", model.UtilitySmoke, 300, "smokegrenade", "smoke"),
	utility("Flashbang", model.UtilityFlash, 200, "flash"),
	utility("High Explosive Grenade", model.UtilityHE, 300, "HE Grenade", "hegrenade", "he"),
	utility("Molotov", model.UtilityMolotov, 400, "molotovgrenade", "molo"),
	utility("Incendiary Grenade", model.UtilityIncendiary, 500, "incgrenade", "incendiarygrenade", "incendiary"),
	utility("Decoy Grenade", model.UtilityDecoy, 50, "decoygrenade", "decoy"),

	// Gear and everything that is never counted
	other("Kevlar Vest", 650, "vest"),
	other("Kevlar & Helmet", 1000, "Kevlar + Helmet", "vesthelm"),
	other("Zeus x27", 200, "taser"),
	other("Defuse Kit", 400, "defuser"),
	other("C4 Explosive", 0, "C4", "c4"),
	other("Knife", 0, "knife", "knife_t", "Stock Knife"),
}

var index = buildIndex()

func buildIndex() map[string]Item {
	idx := make(map[string]Item, len(catalogue)*2)
	for _, e := range catalogue {
		idx[key(e.item.Name)] = e.item
		for _, a := range e.aliases {
			idx[key(a)] = e.item
		}
	}
	return idx
}

// key folds a decoder spelling ("weapon_ak47", "AK-47", "ak 47") to one form.
func key(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "weapon_")
	name = strings.TrimPrefix(name, "item_")
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup resolves a decoder's item name. Knives with skin names and other
// unknown cosmetics are not in the catalogue and report ok == false.
func Lookup(name string) (Item, bool) {
	it, ok := index[key(name)]
	return it, ok
}

// UtilityPrice is the buy-menu price of a grenade kind.
func UtilityPrice(kind model.UtilityKind) int {
	switch kind {
	case model.UtilitySmoke, model.UtilityHE:
		return 300
	case model.UtilityFlash:
		return 200
	case model.UtilityMolotov:
		return 400
	case model.UtilityIncendiary:
		return 500
	case model.UtilityDecoy:
		return 50
	default:
		return 0
	}
}

// MaxCarry is how many grenades of kind one player may hold.
func MaxCarry(kind model.UtilityKind) int {
	if kind == model.UtilityFlash {
		return 2
	}
	return 1
}
