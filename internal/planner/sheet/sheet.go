// Package sheet derives the read-only summary of a build. Project is pure and
// recomputed on every call; nothing here is cached between mutations.
package sheet

import (
	"sort"

	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/special"
)

type Sheet struct {
	Name       string
	Gender     build.Gender
	Difficulty build.Difficulty

	Attributes      []AttributeRow
	AssignedPoints  int
	RemainingPoints int

	Perks []PerkGroup

	LevelCap  int
	Spent     int
	Remaining int

	Bonuses []BonusGroup

	Stats Stats
}

type AttributeRow struct {
	Attribute special.Attribute
	Base      int
	Effective int
	Bonuses   []string // active bonus ids that change this attribute
}

type PerkGroup struct {
	Attribute special.Attribute
	Perks     []PerkRow
}

type PerkRow struct {
	ID      string
	Name    string
	Rank    int
	MaxRank int

	// Next rank details; zero when the perk is maxed.
	HasNext      bool
	NextRequires int
	NextLevel    int
	NextCost     int
	// NextEligible is true when the next rank's requirement is met and the
	// remaining budget covers its cost.
	NextEligible bool
	// ViaOverride is true when only an unlock-override bonus meets the
	// requirement of the next rank.
	ViaOverride bool
}

type BonusGroup struct {
	Category string
	Bonuses  []BonusRow
}

type BonusRow struct {
	ID   string
	Name string
	Kind catalogs.BonusKind
}

// categoryOrder is the display order of bonus categories; unknown ones
// follow alphabetically.
var categoryOrder = map[string]int{
	"bobblehead": 0,
	"book":       1,
	"magazine":   2,
	"companion":  3,
	"other":      4,
}

func Project(b *build.Build, cat catalogs.Catalog) Sheet {
	s := Sheet{
		Name:       b.Name(),
		Gender:     b.Gender(),
		Difficulty: b.Difficulty(),
		LevelCap:   b.LevelCap(),
		Spent:      b.Spent(),
	}
	s.Remaining = s.LevelCap - s.Spent
	s.AssignedPoints, s.RemainingPoints = b.AttributePoints()

	active := b.ActiveBonuses()
	for _, a := range special.All {
		row := AttributeRow{Attribute: a, Base: b.Base(a), Effective: b.Effective(a)}
		for _, id := range active {
			if def, ok := cat.Bonus(id); ok {
				if attr, _, ok := def.AttributeDelta(); ok && attr == a {
					row.Bonuses = append(row.Bonuses, id)
				}
			}
		}
		s.Attributes = append(s.Attributes, row)
	}

	female := b.Gender() == build.Female
	groups := map[special.Attribute]*PerkGroup{}
	for _, a := range special.All {
		groups[a] = &PerkGroup{Attribute: a}
	}
	for _, id := range cat.PerkIDs() {
		p, ok := cat.Perk(id)
		if !ok {
			continue
		}
		row := PerkRow{ID: id, Name: p.DisplayName(female), Rank: b.Rank(id), MaxRank: p.MaxRank()}
		if next, ok := p.Rank(row.Rank + 1); ok {
			row.HasNext = true
			row.NextRequires = next.Requires
			row.NextLevel = next.Level
			row.NextCost = next.Cost
			met, via := b.Eligibility(id, row.Rank+1)
			row.NextEligible = met && next.Cost <= s.Remaining
			row.ViaOverride = via
		}
		groups[p.Attribute].Perks = append(groups[p.Attribute].Perks, row)
	}
	for _, a := range special.All {
		if g := groups[a]; len(g.Perks) > 0 {
			s.Perks = append(s.Perks, *g)
		}
	}

	s.Bonuses = groupBonuses(active, cat)
	s.Stats = derive(b, cat)
	return s
}

func groupBonuses(active []string, cat catalogs.Catalog) []BonusGroup {
	byCat := map[string][]BonusRow{}
	for _, id := range active {
		def, ok := cat.Bonus(id)
		if !ok {
			continue
		}
		byCat[def.Category] = append(byCat[def.Category], BonusRow{ID: id, Name: def.Name, Kind: def.Kind})
	}
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		oi, iok := categoryOrder[cats[i]]
		oj, jok := categoryOrder[cats[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		}
		return cats[i] < cats[j]
	})
	out := make([]BonusGroup, 0, len(cats))
	for _, c := range cats {
		out = append(out, BonusGroup{Category: c, Bonuses: byCat[c]})
	}
	return out
}

// Row finds a perk row by id.
func (s Sheet) Row(perkID string) (PerkRow, bool) {
	for _, g := range s.Perks {
		for _, r := range g.Perks {
			if r.ID == perkID {
				return r, true
			}
		}
	}
	return PerkRow{}, false
}

func (s Sheet) Attribute(a special.Attribute) AttributeRow {
	for _, r := range s.Attributes {
		if r.Attribute == a {
			return r
		}
	}
	return AttributeRow{Attribute: a}
}
