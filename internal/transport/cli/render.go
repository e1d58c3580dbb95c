package cli

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"perkplanner.dev/internal/persistence/indexdb"
	"perkplanner.dev/internal/persistence/library"
	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/sheet"
	"perkplanner.dev/internal/planner/special"
)

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	border   lipgloss.Style
	taken    lipgloss.Style
	eligible lipgloss.Style
	override lipgloss.Style
	locked   lipgloss.Style
	dim      lipgloss.Style
}

func newStyles(color bool) styles {
	r := lipgloss.NewRenderer(os.Stdout)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD166")),
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7F7F7")).Padding(0, 1),
		cell:     r.NewStyle().Padding(0, 1),
		border:   r.NewStyle().Foreground(lipgloss.Color("#4F5B66")),
		taken:    r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#06D6A0")),
		eligible: r.NewStyle().Padding(0, 1),
		override: r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FFD166")),
		locked:   r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#6C757D")),
		dim:      r.NewStyle().Foreground(lipgloss.Color("#6C757D")),
	}
}

func (st styles) table(headers []string, rows [][]string, cellStyle func(row, col int) lipgloss.Style) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.border).
		BorderHeader(true).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			if cellStyle != nil {
				return cellStyle(row, col)
			}
			return st.cell
		})
	return t.String()
}

// perkStyle picks the style for a perk row: taken, purchasable, unlocked by
// a bonus, or out of reach.
func (st styles) perkStyle(r sheet.PerkRow) lipgloss.Style {
	switch {
	case r.NextEligible && r.ViaOverride:
		return st.override
	case r.NextEligible:
		return st.eligible
	case r.Rank > 0:
		return st.taken
	}
	return st.locked
}

func renderBuild(st styles, b *build.Build, cat catalogs.Catalog, chart bool) string {
	s := sheet.Project(b, cat)
	var out []string

	name := s.Name
	if name == "" {
		name = "Unnamed build"
	}
	out = append(out, st.title.Render(name)+st.dim.Render(fmt.Sprintf("  %s, %s", s.Gender, s.Difficulty)))

	attrRows := make([][]string, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		eff := strconv.Itoa(a.Effective)
		if a.Effective != a.Base {
			eff += fmt.Sprintf(" (+%d)", a.Effective-a.Base)
		}
		attrRows = append(attrRows, []string{a.Attribute.String(), strconv.Itoa(a.Base), eff})
	}
	out = append(out, st.table([]string{"S.P.E.C.I.A.L.", "Base", "Effective"}, attrRows, nil))
	out = append(out, fmt.Sprintf("Points: %d assigned, %d remaining", s.AssignedPoints, s.RemainingPoints))
	out = append(out, fmt.Sprintf("Levels: %d of %d spent, %d remaining (required level %d)",
		s.Spent, s.LevelCap, s.Remaining, s.Stats.RequiredLevel))

	var perkRows [][]string
	for _, g := range s.Perks {
		for _, r := range g.Perks {
			if r.Rank == 0 {
				continue
			}
			perkRows = append(perkRows, []string{r.Name, g.Attribute.Letter(), fmt.Sprintf("%d/%d", r.Rank, r.MaxRank)})
		}
	}
	if len(perkRows) > 0 {
		out = append(out, st.table([]string{"Perk", "", "Rank"}, perkRows, nil))
	}

	for _, g := range s.Bonuses {
		names := make([]string, 0, len(g.Bonuses))
		for _, r := range g.Bonuses {
			names = append(names, r.Name)
		}
		out = append(out, fmt.Sprintf("%s: %s", titleCase(g.Category), strings.Join(names, ", ")))
	}

	out = append(out, renderStats(st, s.Stats))
	if chart {
		out = append(out, renderChart(st, s))
	}
	return strings.Join(out, "\n")
}

func renderStats(st styles, s sheet.Stats) string {
	sprint := "unlimited"
	if !math.IsInf(s.SprintTime, 1) {
		sprint = fmt.Sprintf("%.1fs", s.SprintTime)
	}
	rows := [][]string{
		{"Health", fmt.Sprintf("%.0f", s.Health), fmt.Sprintf("%.0f base, +%.1f per level", s.BaseHealth, s.HealthPerLevel)},
		{"Action Points", fmt.Sprintf("%.0f", s.AP), "sprint " + sprint},
		{"Carry Weight", humanize.Comma(int64(s.CarryWeight)), ""},
		{"Melee Damage", fmt.Sprintf("x%.2f", s.MeleeDamageMul), ""},
		{"XP Gain", fmt.Sprintf("x%.2f", s.XPMul), ""},
		{"Critical Meter", fmt.Sprintf("%d hits", s.HitsPerCrit), ""},
		{"Prices", fmt.Sprintf("buy x%.2f", s.BuyPriceMul), fmt.Sprintf("sell x%.2f", s.SellPriceMul)},
	}
	return st.table([]string{"Stat", "Value", ""}, rows, nil)
}

// renderChart lays the perk catalog out as a grid: one column per attribute,
// one row per requirement slot.
func renderChart(st styles, s sheet.Sheet) string {
	headers := make([]string, 0, len(s.Perks))
	depth := 0
	for _, g := range s.Perks {
		headers = append(headers, g.Attribute.String())
		if len(g.Perks) > depth {
			depth = len(g.Perks)
		}
	}
	rows := make([][]string, depth)
	for i := range rows {
		rows[i] = make([]string, len(s.Perks))
		for j, g := range s.Perks {
			if i < len(g.Perks) {
				r := g.Perks[i]
				rows[i][j] = fmt.Sprintf("%s %d/%d", r.Name, r.Rank, r.MaxRank)
			}
		}
	}
	return st.table(headers, rows, func(row, col int) lipgloss.Style {
		if row >= 0 && col < len(s.Perks) && row < len(s.Perks[col].Perks) {
			return st.perkStyle(s.Perks[col].Perks[row])
		}
		return st.cell
	})
}

func renderPerk(st styles, b *build.Build, p catalogs.PerkDef) string {
	cur := b.Rank(p.ID)
	rows := make([][]string, 0, len(p.Ranks))
	for i, rd := range p.Ranks {
		rank := i + 1
		status := ""
		switch {
		case rank <= cur:
			status = "taken"
		default:
			met, via := b.Eligibility(p.ID, rank)
			switch {
			case via:
				status = "unlocked by bonus"
			case !met && rd.Level > b.LevelCap():
				status = fmt.Sprintf("needs level %d", rd.Level)
			case !met:
				status = fmt.Sprintf("needs %s %d", p.Attribute, rd.Requires)
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(rank),
			strconv.Itoa(rd.Requires),
			strconv.Itoa(rd.Level),
			strconv.Itoa(rd.Cost),
			rd.Description,
			status,
		})
	}
	title := st.title.Render(b.PerkName(p.ID)) + st.dim.Render(fmt.Sprintf("  %s, rank %d of %d", p.Attribute, cur, p.MaxRank()))
	body := st.table([]string{"Rank", p.Attribute.Letter(), "Level", "Cost", "Effect", ""}, rows, func(row, col int) lipgloss.Style {
		if row < cur {
			return st.taken
		}
		return st.cell
	})
	return title + "\n" + body
}

func renderSpecial(st styles, b *build.Build, cat catalogs.Catalog, attrs []special.Attribute) string {
	s := sheet.Project(b, cat)
	var out []string
	for _, a := range attrs {
		var group sheet.PerkGroup
		for _, g := range s.Perks {
			if g.Attribute == a {
				group = g
			}
		}
		row := s.Attribute(a)
		out = append(out, st.title.Render(a.String())+st.dim.Render(fmt.Sprintf("  base %d, effective %d", row.Base, row.Effective)))
		rows := make([][]string, 0, len(group.Perks))
		for _, r := range group.Perks {
			next := "max"
			if r.HasNext {
				next = fmt.Sprintf("%s %d, level %d", a.Letter(), r.NextRequires, r.NextLevel)
			}
			rows = append(rows, []string{r.Name, fmt.Sprintf("%d/%d", r.Rank, r.MaxRank), next})
		}
		out = append(out, st.table([]string{"Perk", "Rank", "Next"}, rows, func(i, _ int) lipgloss.Style {
			if i < 0 || i >= len(group.Perks) {
				return st.cell
			}
			return st.perkStyle(group.Perks[i])
		}))
	}
	return strings.Join(out, "\n")
}

func renderBonusCatalog(st styles, b *build.Build, cat catalogs.Catalog, category string) string {
	var rows [][]string
	var active []bool
	for _, id := range cat.BonusIDs() {
		def, ok := cat.Bonus(id)
		if !ok || (category != "" && def.Category != category) {
			continue
		}
		on := b.IsBonusActive(id)
		mark := ""
		if on {
			mark = "*"
		}
		rows = append(rows, []string{mark, def.Name, def.Category, describeBonus(b, def)})
		active = append(active, on)
	}
	return st.table([]string{"", "Bonus", "Category", "Effect"}, rows, func(row, _ int) lipgloss.Style {
		if row >= 0 && row < len(active) && active[row] {
			return st.taken
		}
		return st.cell
	})
}

func describeBonus(b *build.Build, def catalogs.BonusDef) string {
	if def.Description != "" {
		return def.Description
	}
	if a, d, ok := def.AttributeDelta(); ok {
		return fmt.Sprintf("%+d %s", d, a)
	}
	if def.Kind == catalogs.KindUnlockOverride {
		return fmt.Sprintf("unlocks %s rank %d", b.PerkName(def.Perk), def.Rank)
	}
	parts := make([]string, 0, len(def.Effects))
	for _, k := range sortedKeys(def.Effects) {
		parts = append(parts, fmt.Sprintf("%s %g", k, def.Effects[k]))
	}
	return strings.Join(parts, ", ")
}

func renderLibrary(st styles, entries []library.Entry, index map[string]indexdb.BuildRow, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{e.Name, humanize.RelTime(e.ModTime, now, "ago", "from now"), humanize.Bytes(uint64(e.Size)), "", ""}
		if r, ok := index[e.Path]; ok {
			row[3] = fmt.Sprintf("%d/%d", r.Spent, r.LevelCap)
			row[4] = fmt.Sprintf("%d perks, %d ranks", r.Perks, r.Ranks)
		}
		rows = append(rows, row)
	}
	return st.table([]string{"Build", "Saved", "Size", "Levels", "Perks"}, rows, nil)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
