package catalogs

import "perkplanner.dev/internal/planner/special"

// On-disk shapes. A perk may list explicit ranks or just the required
// level of each rank; perk-level requires/description fill the gaps.

type perksDoc struct {
	Perks []perkEntry `yaml:"perks"`
}

type perkEntry struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	FemaleName  string            `yaml:"female_name"`
	Attribute   special.Attribute `yaml:"attribute"`
	Requires    int               `yaml:"requires"`
	Description string            `yaml:"description"`
	Levels      []int             `yaml:"levels"`
	Ranks       []RankDef         `yaml:"ranks"`
}

func (e perkEntry) def() PerkDef {
	p := PerkDef{
		ID:         e.ID,
		Name:       e.Name,
		FemaleName: e.FemaleName,
		Attribute:  e.Attribute,
	}
	if len(e.Ranks) > 0 {
		p.Ranks = make([]RankDef, len(e.Ranks))
		copy(p.Ranks, e.Ranks)
	} else {
		for _, lvl := range e.Levels {
			p.Ranks = append(p.Ranks, RankDef{Level: lvl})
		}
	}
	for i := range p.Ranks {
		if p.Ranks[i].Requires == 0 {
			p.Ranks[i].Requires = e.Requires
		}
		if p.Ranks[i].Description == "" {
			p.Ranks[i].Description = e.Description
		}
	}
	return p
}

type bonusesDoc struct {
	Bonuses []BonusDef `yaml:"bonuses"`
}
