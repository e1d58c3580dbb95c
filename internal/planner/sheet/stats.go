package sheet

import (
	"math"

	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/special"
)

// Stats are the character numbers implied by a build at its required level.
type Stats struct {
	RequiredLevel  int
	BaseHealth     float64
	HealthPerLevel float64
	Health         float64
	AP             float64
	XPMul          float64
	MeleeDamageMul float64
	HitsPerCrit    int
	CarryWeight    int
	BuyPriceMul    float64
	SellPriceMul   float64
	SprintTime     float64 // seconds
}

// Vendor and sprint constants of the base game.
const (
	basePriceMul     = 3.5
	pricePerCharisma = 0.15
	minBuyPriceMul   = 1.2
	maxSellPriceMul  = 0.8

	sprintBaseDrain   = 1.05
	sprintDrainPerEnd = 0.05
	sprintAPPerSecond = 12.0
)

// Effects folds the effects of purchased perks and active bonuses.
func Effects(b *build.Build, cat catalogs.Catalog) catalogs.Effects {
	var out catalogs.Effects
	for _, sel := range b.Perks() {
		if p, ok := cat.Perk(sel.ID); ok {
			out = out.Merge(p.EffectsAt(sel.Rank))
		}
	}
	return out.Merge(b.BonusEffects())
}

// RequiredLevel is the lowest character level that can hold the build: high
// enough for every purchased rank and for every level spent.
func RequiredLevel(b *build.Build, cat catalogs.Catalog) int {
	lvl := b.Spent() + 1
	for _, sel := range b.Perks() {
		p, ok := cat.Perk(sel.ID)
		if !ok {
			continue
		}
		if rd, ok := p.Rank(sel.Rank); ok && rd.Level > lvl {
			lvl = rd.Level
		}
	}
	return lvl
}

func derive(b *build.Build, cat catalogs.Catalog) Stats {
	d := b.Rules().Derived
	eff := Effects(b, cat)
	str := float64(b.Effective(special.Strength))
	end := float64(b.Effective(special.Endurance))
	cha := float64(b.Effective(special.Charisma))
	intl := float64(b.Effective(special.Intelligence))
	agi := float64(b.Effective(special.Agility))

	var st Stats
	st.RequiredLevel = RequiredLevel(b, cat)
	st.HealthPerLevel = d.BaseHealthPerLevel + end*d.LevelHealthPerEnd
	st.BaseHealth = d.BaseHealth + end*d.HealthPerEndurance + eff.Get(catalogs.EffectHPAdd)
	st.Health = st.BaseHealth + st.HealthPerLevel*float64(st.RequiredLevel-1)
	st.AP = d.BaseAP + agi*d.APPerAgility + eff.Get(catalogs.EffectAPAdd)
	st.XPMul = 1 + intl*d.XPPerIntelligence + eff.Get(catalogs.EffectXPAdd)
	st.MeleeDamageMul = 1 + str*d.MeleePerStrength + eff.Get(catalogs.EffectMeleeDamageAdd)
	st.HitsPerCrit = HitsPerCrit(b.Effective(special.Luck))

	carry := d.CarryWeight
	if b.Difficulty() == build.Survival {
		carry = d.SurvivalCarryWeight
	}
	st.CarryWeight = carry + b.Effective(special.Strength)*d.CarryPerStrength + int(eff.Get(catalogs.EffectCarryWeightAdd))

	st.BuyPriceMul = math.Max((basePriceMul-cha*pricePerCharisma)/(1+eff.Get(catalogs.EffectBuyPriceSub)), minBuyPriceMul)
	st.SellPriceMul = math.Min(1/st.BuyPriceMul, maxSellPriceMul)

	apPerSec := (sprintBaseDrain - sprintDrainPerEnd*end) * sprintAPPerSecond * eff.Get(catalogs.EffectSprintDrainMul)
	if apPerSec > 0 {
		st.SprintTime = st.AP / apPerSec
	} else {
		st.SprintTime = math.Inf(1)
	}
	return st
}

// HitsPerCrit is the number of V.A.T.S. hits needed to fill the critical
// meter at a given Luck.
func HitsPerCrit(luck int) int {
	switch {
	case luck <= 1:
		return 14
	case luck == 2:
		return 12
	case luck == 3:
		return 10
	case luck == 4:
		return 9
	case luck == 5:
		return 8
	case luck <= 7:
		return 7
	case luck <= 9:
		return 6
	case luck <= 12:
		return 5
	case luck <= 18:
		return 4
	case luck <= 29:
		return 3
	case luck <= 62:
		return 2
	}
	return 1
}
