package catalogs

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// minSimilarity is the score below which a fuzzy match is rejected.
const minSimilarity = 0.6

// FindPerk resolves user text to a perk: exact id, exact name (either
// variant), then the closest name by edit distance.
func (c *Catalogs) FindPerk(query string) (PerkDef, error) {
	q := normalize(query)
	if q == "" {
		return PerkDef{}, fmt.Errorf("you must specify a perk")
	}
	if p, ok := c.Perks.ByID[query]; ok {
		return p, nil
	}
	best, bestScore := "", 0.0
	for _, id := range c.Perks.Order {
		p := c.Perks.ByID[id]
		for _, name := range []string{p.Name, p.FemaleName, p.ID} {
			if name == "" {
				continue
			}
			n := normalize(name)
			if n == q {
				return p, nil
			}
			if s := similarity(q, n); s > bestScore {
				best, bestScore = id, s
			}
		}
	}
	if bestScore < minSimilarity {
		return PerkDef{}, fmt.Errorf("unknown perk: %s", query)
	}
	return c.Perks.ByID[best], nil
}

// FindBonus resolves user text to a bonus the same way FindPerk does.
func (c *Catalogs) FindBonus(query string) (BonusDef, error) {
	q := normalize(query)
	if q == "" {
		return BonusDef{}, fmt.Errorf("you must specify a bonus")
	}
	if b, ok := c.Bonuses.ByID[query]; ok {
		return b, nil
	}
	best, bestScore := "", 0.0
	for _, id := range c.Bonuses.Order {
		b := c.Bonuses.ByID[id]
		for _, name := range []string{b.Name, b.ID} {
			n := normalize(name)
			if n == q {
				return b, nil
			}
			if s := similarity(q, n); s > bestScore {
				best, bestScore = id, s
			}
		}
	}
	if bestScore < minSimilarity {
		return BonusDef{}, fmt.Errorf("unknown bonus: %s", query)
	}
	return c.Bonuses.ByID[best], nil
}

func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

func ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// similarity averages the whole-string ratio with the best word-to-word
// ratio, so "lady" still finds "lady killer".
func similarity(a, b string) float64 {
	base := ratio(a, b)
	parts := 0.0
	for _, wa := range strings.Fields(a) {
		for _, wb := range strings.Fields(b) {
			if r := ratio(wa, wb); r > parts {
				parts = r
			}
		}
	}
	return (base + parts) / 2
}
