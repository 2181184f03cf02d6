package model

import (
	"fmt"
	"reflect"
	"strconv"
)

// Features are the 51 derived columns of one round. The `col` tag is the
// column name of the output table; the field order is the column order.
type Features struct {
	MapName    string `col:"map_name"`
	IsOvertime bool   `col:"is_overtime"`
	CTScore    int    `col:"ct_score"`
	TScore     int    `col:"t_score"`
	ScoreDiff  int    `col:"score_diff"`

	// Economy
	CTMoneyTotal   int     `col:"ct_money_total"`
	TMoneyTotal    int     `col:"t_money_total"`
	CTCash         int     `col:"ct_cash"`
	TCash          int     `col:"t_cash"`
	CTCashAvg      float64 `col:"ct_cash_avg"`
	TCashAvg       float64 `col:"t_cash_avg"`
	CTArmorCount   int     `col:"ct_armor_count"`
	TArmorCount    int     `col:"t_armor_count"`
	CTHelmetCount  int     `col:"ct_helmet_count"`
	THelmetCount   int     `col:"t_helmet_count"`
	CTDefuserCount int     `col:"ct_defuser_count"`

	// Armament
	CTAWPCount   int `col:"ct_awp_count"`
	TAWPCount    int `col:"t_awp_count"`
	CTSSGCount   int `col:"ct_ssg_count"`
	TSSGCount    int `col:"t_ssg_count"`
	CTRifleCount int `col:"ct_rifle_count"`
	TRifleCount  int `col:"t_rifle_count"`
	CTSMGCount   int `col:"ct_smg_count"`
	TSMGCount    int `col:"t_smg_count"`
	CTHeavyCount int `col:"ct_heavy_count"`
	THeavyCount  int `col:"t_heavy_count"`
	CTAKCount    int `col:"ct_ak_count"`

	// Utility
	CTSmokeCount   int `col:"ct_smoke_count"`
	TSmokeCount    int `col:"t_smoke_count"`
	CTMoloCount    int `col:"ct_molo_count"`
	TMoloCount     int `col:"t_molo_count"`
	CTFlashCount   int `col:"ct_flash_count"`
	TFlashCount    int `col:"t_flash_count"`
	CTHECount      int `col:"ct_he_count"`
	THECount       int `col:"t_he_count"`
	CTUtilityValue int `col:"ct_utility_value"`
	TUtilityValue  int `col:"t_utility_value"`

	// Equipment
	CTEquipmentValue    int     `col:"ct_equipment_value"`
	TEquipmentValue     int     `col:"t_equipment_value"`
	CTEquipmentValueAvg float64 `col:"ct_equipment_value_avg"`
	TEquipmentValueAvg  float64 `col:"t_equipment_value_avg"`

	// Momentum
	CTRoundsWonStreak  int `col:"ct_rounds_won_streak"`
	CTRoundsLostStreak int `col:"ct_rounds_lost_streak"`
	TRoundsWonStreak   int `col:"t_rounds_won_streak"`
	TRoundsLostStreak  int `col:"t_rounds_lost_streak"`

	// Previous round
	CTSurvivorsPrevious    int `col:"ct_survivors_previous"`
	TSurvivorsPrevious     int `col:"t_survivors_previous"`
	CTEquipmentSavedValue  int `col:"ct_equipment_saved_value"`
	TEquipmentSavedValue   int `col:"t_equipment_saved_value"`
	CTEquipmentCarriedOver int `col:"ct_equipment_carried_over"`
	TEquipmentCarriedOver  int `col:"t_equipment_carried_over"`
}

// Aftermath is how each side finished the round. It feeds the next round's
// carry-over features and is not part of the output table.
type Aftermath struct {
	CT EndState
	T  EndState
}

// Side returns the end state of side.
func (a Aftermath) Side(side Side) EndState {
	if side == SideCT {
		return a.CT
	}
	return a.T
}

// FeatureRow is one output observation. It is never modified after the
// feature engine returns it.
type FeatureRow struct {
	RoundNum  int          `col:"round_num"`
	HalfIndex int          `col:"half_index"`
	CTTeam    TeamIdentity `col:"ct_team"`
	TTeam     TeamIdentity `col:"t_team"`
	Features
	RoundWinner Side      `col:"round_winner"`
	Aftermath   Aftermath `col:"-"`
}

// SideOf returns the side team occupied in this round.
func (r FeatureRow) SideOf(team TeamIdentity) Side {
	switch team {
	case r.CTTeam:
		return SideCT
	case r.TTeam:
		return SideT
	default:
		return SideUnknown
	}
}

// TeamScore is the score of team at round start.
func (r FeatureRow) TeamScore(team TeamIdentity) int {
	switch r.SideOf(team) {
	case SideCT:
		return r.CTScore
	case SideT:
		return r.TScore
	default:
		return 0
	}
}

// Streaks returns the won and lost streaks of side.
func (r FeatureRow) Streaks(side Side) (won, lost int) {
	if side == SideCT {
		return r.CTRoundsWonStreak, r.CTRoundsLostStreak
	}
	return r.TRoundsWonStreak, r.TRoundsLostStreak
}

// column locates one tagged field inside FeatureRow.
type column struct {
	name  string
	index []int
}

var (
	sideType    = reflect.TypeOf(SideUnknown)
	rowColumns  = collectColumns(reflect.TypeOf(FeatureRow{}), nil)
	featureCols = collectColumns(reflect.TypeOf(Features{}), nil)
)

func collectColumns(t reflect.Type, prefix []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			cols = append(cols, collectColumns(f.Type, idx)...)
			continue
		}
		name := f.Tag.Get("col")
		if name == "" || name == "-" {
			continue
		}
		cols = append(cols, column{name: name, index: idx})
	}
	return cols
}

// Columns returns the names of every FeatureRow column in output order.
func Columns() []string {
	names := make([]string, len(rowColumns))
	for i, c := range rowColumns {
		names[i] = c.name
	}
	return names
}

// FeatureNames returns the names of the derived feature columns.
func FeatureNames() []string {
	names := make([]string, len(featureCols))
	for i, c := range featureCols {
		names[i] = c.name
	}
	return names
}

// Cells returns the row's column values as storage-friendly scalars:
// sides and identities become strings, booleans become 0/1.
func (r FeatureRow) Cells() []any {
	v := reflect.ValueOf(r)
	out := make([]any, len(rowColumns))
	for i, c := range rowColumns {
		f := v.FieldByIndex(c.index)
		switch {
		case f.Type() == sideType:
			out[i] = Side(f.Int()).String()
		case f.Kind() == reflect.Bool:
			out[i] = boolInt(f.Bool())
		case f.Kind() == reflect.String:
			out[i] = f.String()
		default:
			out[i] = f.Interface()
		}
	}
	return out
}

// ScanTargets returns pointers to the row's column fields, in column order,
// for use with database/sql Scan.
func (r *FeatureRow) ScanTargets() []any {
	v := reflect.ValueOf(r).Elem()
	out := make([]any, len(rowColumns))
	for i, c := range rowColumns {
		out[i] = v.FieldByIndex(c.index).Addr().Interface()
	}
	return out
}

// Strings formats the row's column values for text output.
func (r FeatureRow) Strings() []string {
	v := reflect.ValueOf(r)
	out := make([]string, len(rowColumns))
	for i, c := range rowColumns {
		f := v.FieldByIndex(c.index)
		switch {
		case f.Type() == sideType:
			out[i] = Side(f.Int()).String()
		case f.Kind() == reflect.Bool:
			out[i] = strconv.Itoa(boolInt(f.Bool()))
		case f.Kind() == reflect.Int:
			out[i] = strconv.FormatInt(f.Int(), 10)
		case f.Kind() == reflect.Float64:
			out[i] = strconv.FormatFloat(f.Float(), 'f', -1, 64)
		default:
			out[i] = f.String()
		}
	}
	return out
}

// SetColumn parses s into the column called name.
func (r *FeatureRow) SetColumn(name, s string) error {
	v := reflect.ValueOf(r).Elem()
	for _, c := range rowColumns {
		if c.name != name {
			continue
		}
		f := v.FieldByIndex(c.index)
		switch {
		case f.Type() == sideType:
			side, err := ParseSide(s)
			if err != nil {
				return fmt.Errorf("column %s: %w", name, err)
			}
			f.SetInt(int64(side))
		case f.Kind() == reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("column %s: %w", name, err)
			}
			f.SetBool(b)
		case f.Kind() == reflect.Int:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("column %s: %w", name, err)
			}
			f.SetInt(n)
		case f.Kind() == reflect.Float64:
			x, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("column %s: %w", name, err)
			}
			f.SetFloat(x)
		default:
			f.SetString(s)
		}
		return nil
	}
	return fmt.Errorf("unknown column %q", name)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
