// Package validate runs deterministic consistency checks over the feature rows
// of one match. Findings are data: rows are flagged, never dropped.
package validate

import (
	"fmt"
	"sort"

	"github.com/pable/cs-round-features/internal/equipment"
	"github.com/pable/cs-round-features/internal/model"
)

// Severity decides whether a failed check invalidates its row.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Limits are the game-rule bounds the checks enforce.
type Limits struct {
	MoneyCap    int // per player
	RosterSize  int
	PistolMoney int // per player, first round of the match
	Schedule    model.Schedule
}

// DefaultLimits are the competitive MR12 rules.
func DefaultLimits() Limits {
	return Limits{MoneyCap: 16000, RosterSize: 5, PistolMoney: 800, Schedule: model.DefaultSchedule()}
}

// Row is a feature row with its validation outcome.
type Row struct {
	model.FeatureRow
	Valid  bool
	Failed []string // names of failed error-severity checks
}

// Finding is one failed check on one round.
type Finding struct {
	Check    string   `yaml:"check"`
	Severity Severity `yaml:"severity"`
	RoundNum int      `yaml:"round_num"`
	Detail   string   `yaml:"detail"`
}

// CheckResult summarises one check over the whole match.
type CheckResult struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Severity    Severity `yaml:"severity"`
	Passed      bool     `yaml:"passed"`
	Failures    int      `yaml:"failures"`
	Rounds      []int    `yaml:"rounds,omitempty"`
}

// Report is the validation summary of one match.
type Report struct {
	TotalRounds int           `yaml:"total_rounds"`
	ValidRounds int           `yaml:"valid_rounds"`
	Errors      int           `yaml:"errors"`
	Warnings    int           `yaml:"warnings"`
	Checks      []CheckResult `yaml:"checks"`
	Findings    []Finding     `yaml:"findings,omitempty"`
}

// Table is the validated output of one match.
type Table struct {
	Rows   []Row
	Report Report
}

// FeatureRows returns the rows without their validation outcome.
func (t Table) FeatureRows() []model.FeatureRow {
	out := make([]model.FeatureRow, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.FeatureRow
	}
	return out
}

// pair is a row and the row of the round right before it, when present.
type pair struct {
	cur  model.FeatureRow
	prev *model.FeatureRow
}

type check struct {
	name        string
	description string
	severity    Severity
	run         func(p pair, lim Limits) []string
}

var checks = []check{
	{"money_range", "Cash and money totals within the money cap", SeverityError, moneyRange},
	{"weapon_counts", "Weapon and gear counts within the roster size", SeverityError, weaponCounts},
	{"utility_counts", "Grenade counts within per-player carry limits", SeverityError, utilityCounts},
	{"score_progression", "Scores grow by exactly one per round", SeverityError, scoreProgression},
	{"streak_resets", "Streaks are zero at the start of every half", SeverityError, streakResets},
	{"carry_over_resets", "Carry-over features are zero at the start of every half", SeverityError, carryOverResets},
	{"winner_consistency", "The team that scored won the previous round", SeverityWarning, winnerConsistency},
	{"pistol_round", "Round 1 has pistol round money and no AWP or rifle", SeverityWarning, pistolRound},
}

// CheckNames lists the checks in the order they run.
func CheckNames() []string {
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.name
	}
	return names
}

// Validate checks rows, which may arrive in any order, and returns them
// sorted by round with their outcome and the match report.
func Validate(rows []model.FeatureRow, lim Limits) Table {
	sorted := append([]model.FeatureRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RoundNum < sorted[j].RoundNum })

	table := Table{Rows: make([]Row, len(sorted))}
	results := make([]CheckResult, len(checks))
	for i, c := range checks {
		results[i] = CheckResult{Name: c.name, Description: c.description, Severity: c.severity, Passed: true}
	}

	for i, cur := range sorted {
		p := pair{cur: cur}
		if i > 0 && sorted[i-1].RoundNum == cur.RoundNum-1 {
			p.prev = &sorted[i-1]
		}

		row := Row{FeatureRow: cur, Valid: true}
		for ci, c := range checks {
			details := c.run(p, lim)
			if len(details) == 0 {
				continue
			}
			res := &results[ci]
			res.Passed = false
			res.Failures++
			res.Rounds = append(res.Rounds, cur.RoundNum)
			for _, d := range details {
				table.Report.Findings = append(table.Report.Findings, Finding{
					Check: c.name, Severity: c.severity, RoundNum: cur.RoundNum, Detail: d,
				})
			}
			if c.severity == SeverityError {
				row.Valid = false
				row.Failed = append(row.Failed, c.name)
				table.Report.Errors++
			} else {
				table.Report.Warnings++
			}
		}
		if row.Valid {
			table.Report.ValidRounds++
		}
		table.Rows[i] = row
	}

	table.Report.TotalRounds = len(sorted)
	table.Report.Checks = results
	return table
}

func moneyRange(p pair, lim Limits) []string {
	r := p.cur
	teamCap := lim.MoneyCap * lim.RosterSize
	var out []string
	within := func(name string, v, max int) {
		if v < 0 || v > max {
			out = append(out, fmt.Sprintf("%s=%d outside [0, %d]", name, v, max))
		}
	}
	within("ct_money_total", r.CTMoneyTotal, teamCap)
	within("t_money_total", r.TMoneyTotal, teamCap)
	within("ct_cash", r.CTCash, teamCap)
	within("t_cash", r.TCash, teamCap)
	for name, avg := range map[string]float64{"ct_cash_avg": r.CTCashAvg, "t_cash_avg": r.TCashAvg} {
		if avg < 0 || avg > float64(lim.MoneyCap) {
			out = append(out, fmt.Sprintf("%s=%.1f outside [0, %d]", name, avg, lim.MoneyCap))
		}
	}
	sort.Strings(out)
	return out
}

func weaponCounts(p pair, lim Limits) []string {
	r := p.cur
	counts := []struct {
		name string
		v    int
	}{
		{"ct_awp_count", r.CTAWPCount}, {"t_awp_count", r.TAWPCount},
		{"ct_ssg_count", r.CTSSGCount}, {"t_ssg_count", r.TSSGCount},
		{"ct_rifle_count", r.CTRifleCount}, {"t_rifle_count", r.TRifleCount},
		{"ct_smg_count", r.CTSMGCount}, {"t_smg_count", r.TSMGCount},
		{"ct_heavy_count", r.CTHeavyCount}, {"t_heavy_count", r.THeavyCount},
		{"ct_ak_count", r.CTAKCount},
		{"ct_armor_count", r.CTArmorCount}, {"t_armor_count", r.TArmorCount},
		{"ct_helmet_count", r.CTHelmetCount}, {"t_helmet_count", r.THelmetCount},
		{"ct_defuser_count", r.CTDefuserCount},
	}
	var out []string
	for _, c := range counts {
		if c.v < 0 || c.v > lim.RosterSize {
			out = append(out, fmt.Sprintf("%s=%d outside [0, %d]", c.name, c.v, lim.RosterSize))
		}
	}
	return out
}

func utilityCounts(p pair, lim Limits) []string {
	r := p.cur
	smoke := lim.RosterSize * equipment.MaxCarry(model.UtilitySmoke)
	flash := lim.RosterSize * equipment.MaxCarry(model.UtilityFlash)
	he := lim.RosterSize * equipment.MaxCarry(model.UtilityHE)
	molo := lim.RosterSize * equipment.MaxCarry(model.UtilityMolotov)

	counts := []struct {
		name   string
		v, max int
	}{
		{"ct_smoke_count", r.CTSmokeCount, smoke}, {"t_smoke_count", r.TSmokeCount, smoke},
		{"ct_flash_count", r.CTFlashCount, flash}, {"t_flash_count", r.TFlashCount, flash},
		{"ct_he_count", r.CTHECount, he}, {"t_he_count", r.THECount, he},
		{"ct_molo_count", r.CTMoloCount, molo}, {"t_molo_count", r.TMoloCount, molo},
	}
	var out []string
	for _, c := range counts {
		if c.v < 0 || c.v > c.max {
			out = append(out, fmt.Sprintf("%s=%d outside [0, %d]", c.name, c.v, c.max))
		}
	}
	if r.CTUtilityValue < 0 || r.TUtilityValue < 0 {
		out = append(out, "negative utility value")
	}
	return out
}

// scoreProgression compares team scores, not side scores, so it holds across
// side switches.
func scoreProgression(p pair, _ Limits) []string {
	r := p.cur
	if r.CTScore < 0 || r.TScore < 0 {
		return []string{fmt.Sprintf("negative score %d-%d", r.CTScore, r.TScore)}
	}
	if r.RoundNum == 1 {
		if r.CTScore != 0 || r.TScore != 0 {
			return []string{fmt.Sprintf("round 1 starts at %d-%d", r.CTScore, r.TScore)}
		}
		return nil
	}
	if p.prev == nil {
		if got := r.CTScore + r.TScore; got != r.RoundNum-1 {
			return []string{fmt.Sprintf("%d rounds scored before round %d", got, r.RoundNum)}
		}
		return nil
	}
	prev := *p.prev
	var out []string
	total := 0
	for _, team := range []model.TeamIdentity{r.CTTeam, r.TTeam} {
		if prev.SideOf(team) == model.SideUnknown {
			return []string{fmt.Sprintf("team %s not present in round %d", team, prev.RoundNum)}
		}
		delta := r.TeamScore(team) - prev.TeamScore(team)
		if delta < 0 {
			out = append(out, fmt.Sprintf("team %s score decreased by %d", team, -delta))
		}
		total += delta
	}
	if total != 1 {
		out = append(out, fmt.Sprintf("score increased by %d (expected 1)", total))
	}
	return out
}

func winnerConsistency(p pair, _ Limits) []string {
	r := p.cur
	if r.RoundWinner != model.SideCT && r.RoundWinner != model.SideT {
		return []string{fmt.Sprintf("round_winner %q is not CT or T", r.RoundWinner)}
	}
	if p.prev == nil {
		return nil
	}
	prev := *p.prev
	winner := prev.CTTeam
	if prev.RoundWinner == model.SideT {
		winner = prev.TTeam
	}
	for _, team := range []model.TeamIdentity{r.CTTeam, r.TTeam} {
		if r.TeamScore(team) > prev.TeamScore(team) && team != winner {
			return []string{fmt.Sprintf("team %s scored but %s won round %d", team, winner, prev.RoundNum)}
		}
	}
	return nil
}

// halfStart reports whether the row opens a half, either by the schedule or
// because the half index moved since the previous row.
func halfStart(p pair, lim Limits) bool {
	if lim.Schedule.StartsHalf(p.cur.RoundNum) {
		return true
	}
	return p.prev != nil && p.prev.HalfIndex != p.cur.HalfIndex
}

func streakResets(p pair, lim Limits) []string {
	if !halfStart(p, lim) {
		return nil
	}
	r := p.cur
	if r.CTRoundsWonStreak != 0 || r.CTRoundsLostStreak != 0 || r.TRoundsWonStreak != 0 || r.TRoundsLostStreak != 0 {
		return []string{"streaks not reset at half start"}
	}
	return nil
}

func carryOverResets(p pair, lim Limits) []string {
	if !halfStart(p, lim) {
		return nil
	}
	r := p.cur
	if r.CTSurvivorsPrevious != 0 || r.TSurvivorsPrevious != 0 ||
		r.CTEquipmentSavedValue != 0 || r.TEquipmentSavedValue != 0 ||
		r.CTEquipmentCarriedOver != 0 || r.TEquipmentCarriedOver != 0 {
		return []string{"carry-over not reset at half start"}
	}
	return nil
}

func pistolRound(p pair, lim Limits) []string {
	r := p.cur
	if r.RoundNum != 1 {
		return nil
	}
	want := lim.PistolMoney * lim.RosterSize
	var out []string
	if r.CTMoneyTotal != want {
		out = append(out, fmt.Sprintf("CT money %d (expected %d)", r.CTMoneyTotal, want))
	}
	if r.TMoneyTotal != want {
		out = append(out, fmt.Sprintf("T money %d (expected %d)", r.TMoneyTotal, want))
	}
	if r.CTAWPCount > 0 || r.TAWPCount > 0 {
		out = append(out, "AWPs present in pistol round")
	}
	if r.CTRifleCount > 0 || r.TRifleCount > 0 {
		out = append(out, "rifles present in pistol round")
	}
	return out
}
