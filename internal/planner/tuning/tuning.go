package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"perkplanner.dev/internal/planner/special"
)

type Tuning struct {
	BaseMin        int `yaml:"base_min" json:"base_min"`
	BaseMax        int `yaml:"base_max" json:"base_max"`
	AllocationPool int `yaml:"allocation_pool" json:"allocation_pool"`

	MaxLevel        int `yaml:"max_level" json:"max_level"`
	DefaultLevelCap int `yaml:"default_level_cap" json:"default_level_cap"`

	Derived DerivedStats `yaml:"derived" json:"derived"`
}

// DerivedStats holds the constants of the character stat formulas.
type DerivedStats struct {
	BaseHealth          float64 `yaml:"base_health" json:"base_health"`
	HealthPerEndurance  float64 `yaml:"health_per_endurance" json:"health_per_endurance"`
	BaseHealthPerLevel  float64 `yaml:"base_health_per_level" json:"base_health_per_level"`
	LevelHealthPerEnd   float64 `yaml:"level_health_per_endurance" json:"level_health_per_endurance"`
	BaseAP              float64 `yaml:"base_ap" json:"base_ap"`
	APPerAgility        float64 `yaml:"ap_per_agility" json:"ap_per_agility"`
	XPPerIntelligence   float64 `yaml:"xp_per_intelligence" json:"xp_per_intelligence"`
	MeleePerStrength    float64 `yaml:"melee_per_strength" json:"melee_per_strength"`
	CarryWeight         int     `yaml:"carry_weight" json:"carry_weight"`
	SurvivalCarryWeight int     `yaml:"survival_carry_weight" json:"survival_carry_weight"`
	CarryPerStrength    int     `yaml:"carry_per_strength" json:"carry_per_strength"`
}

func Defaults() Tuning {
	return Tuning{
		BaseMin:         1,
		BaseMax:         11,
		AllocationPool:  28,
		MaxLevel:        255,
		DefaultLevelCap: 50,
		Derived: DerivedStats{
			BaseHealth:          80,
			HealthPerEndurance:  5,
			BaseHealthPerLevel:  2.5,
			LevelHealthPerEnd:   0.5,
			BaseAP:              60,
			APPerAgility:        10,
			XPPerIntelligence:   0.03,
			MeleePerStrength:    0.1,
			CarryWeight:         200,
			SurvivalCarryWeight: 75,
			CarryPerStrength:    10,
		},
	}
}

// Load reads path over Defaults; keys absent from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.BaseMin < 0 || t.BaseMax < t.BaseMin {
		return fmt.Errorf("base range %d..%d is empty", t.BaseMin, t.BaseMax)
	}
	if t.AllocationPool < special.Count*t.BaseMin {
		return fmt.Errorf("allocation_pool %d cannot hold the minimum allocation %d", t.AllocationPool, special.Count*t.BaseMin)
	}
	if t.MaxLevel < 1 {
		return fmt.Errorf("max_level must be at least 1")
	}
	if t.DefaultLevelCap < 1 || t.DefaultLevelCap > t.MaxLevel {
		return fmt.Errorf("default_level_cap %d outside 1..%d", t.DefaultLevelCap, t.MaxLevel)
	}
	return nil
}

func (t Tuning) Limits() special.Limits {
	return special.Limits{Min: t.BaseMin, Max: t.BaseMax, Pool: t.AllocationPool}
}
