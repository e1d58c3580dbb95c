package catalogs

// Effects maps an effect key to its value. Additive keys sum across
// sources; multiplicative keys (suffix _mul) multiply.
type Effects map[string]float64

const (
	EffectHPAdd          = "hp_add"
	EffectAPAdd          = "ap_add"
	EffectCarryWeightAdd = "carry_weight_add"
	EffectMeleeDamageAdd = "melee_damage_add"
	EffectBuyPriceSub    = "buy_price_sub"
	EffectSprintDrainMul = "sprint_drain_mul"
	EffectXPAdd          = "xp_add"
)

func isMul(key string) bool { return key == EffectSprintDrainMul }

// Merge folds other into e and returns the result. A nil receiver is fine.
func (e Effects) Merge(other Effects) Effects {
	if len(other) == 0 {
		return e
	}
	if e == nil {
		e = Effects{}
	}
	for k, v := range other {
		cur, ok := e[k]
		switch {
		case !ok:
			e[k] = v
		case isMul(k):
			e[k] = cur * v
		default:
			e[k] = cur + v
		}
	}
	return e
}

// Get returns the folded value of key, or its identity when absent.
func (e Effects) Get(key string) float64 {
	if v, ok := e[key]; ok {
		return v
	}
	if isMul(key) {
		return 1
	}
	return 0
}
