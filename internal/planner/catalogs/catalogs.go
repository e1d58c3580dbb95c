package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"perkplanner.dev/internal/planner/special"
)

// Catalog is the read-only view the planner consumes.
type Catalog interface {
	Perk(id string) (PerkDef, bool)
	Bonus(id string) (BonusDef, bool)
	PerkIDs() []string
	BonusIDs() []string
}

type Catalogs struct {
	Perks   PerkCatalog
	Bonuses BonusCatalog

	// Digest covers both catalogs; build files record it.
	Digest string
}

type PerkCatalog struct {
	Order  []string
	ByID   map[string]PerkDef
	Digest string
}

type BonusCatalog struct {
	Order  []string
	ByID   map[string]BonusDef
	Digest string
}

type PerkDef struct {
	ID         string            `yaml:"id" json:"id"`
	Name       string            `yaml:"name" json:"name"`
	FemaleName string            `yaml:"female_name,omitempty" json:"female_name,omitempty"`
	Attribute  special.Attribute `yaml:"attribute" json:"attribute"`
	Ranks      []RankDef         `yaml:"ranks" json:"ranks"`
}

type RankDef struct {
	Requires    int     `yaml:"requires" json:"requires"` // attribute value
	Level       int     `yaml:"level" json:"level"`
	Cost        int     `yaml:"cost" json:"cost"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Effects     Effects `yaml:"effects,omitempty" json:"effects,omitempty"`
}

func (p PerkDef) MaxRank() int { return len(p.Ranks) }

// Rank returns rank r (1-based).
func (p PerkDef) Rank(r int) (RankDef, bool) {
	if r < 1 || r > len(p.Ranks) {
		return RankDef{}, false
	}
	return p.Ranks[r-1], true
}

// CostThrough sums the cost of ranks 1..r.
func (p PerkDef) CostThrough(r int) int {
	n := 0
	for i := 0; i < r && i < len(p.Ranks); i++ {
		n += p.Ranks[i].Cost
	}
	return n
}

func (p PerkDef) DisplayName(female bool) string {
	if female && p.FemaleName != "" {
		return p.FemaleName
	}
	return p.Name
}

// EffectsAt folds effects for a perk held at rank r: each key takes the
// value of the highest rank <= r that declares it.
func (p PerkDef) EffectsAt(r int) Effects {
	var out Effects
	for i := 0; i < r && i < len(p.Ranks); i++ {
		for k, v := range p.Ranks[i].Effects {
			if out == nil {
				out = Effects{}
			}
			out[k] = v
		}
	}
	return out
}

type BonusKind string

const (
	KindAttributeBoost  BonusKind = "attribute-boost"
	KindUnlockOverride  BonusKind = "unlock-override"
	KindCompanionEffect BonusKind = "companion-effect"
	KindPassiveEffect   BonusKind = "passive-effect"
)

type BonusDef struct {
	ID          string             `yaml:"id" json:"id"`
	Name        string             `yaml:"name" json:"name"`
	Category    string             `yaml:"category" json:"category"` // "bobblehead","book","magazine","companion","other"
	Kind        BonusKind          `yaml:"kind" json:"kind"`
	Group       string             `yaml:"group,omitempty" json:"group,omitempty"` // at most one member of a group is active
	Attribute   *special.Attribute `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Delta       int                `yaml:"delta,omitempty" json:"delta,omitempty"`
	Perk        string             `yaml:"perk,omitempty" json:"perk,omitempty"`
	Rank        int                `yaml:"rank,omitempty" json:"rank,omitempty"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Effects     Effects            `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// AttributeDelta reports the attribute change this bonus grants while active.
func (b BonusDef) AttributeDelta() (special.Attribute, int, bool) {
	if b.Attribute == nil || b.Delta == 0 {
		return 0, 0, false
	}
	return *b.Attribute, b.Delta, true
}

// Unlocks reports whether this bonus overrides the requirement of perk/rank.
func (b BonusDef) Unlocks(perk string, rank int) bool {
	return b.Kind == KindUnlockOverride && b.Perk == perk && b.Rank == rank
}

func (c *Catalogs) Perk(id string) (PerkDef, bool) {
	if c == nil {
		return PerkDef{}, false
	}
	p, ok := c.Perks.ByID[id]
	return p, ok
}

func (c *Catalogs) Bonus(id string) (BonusDef, bool) {
	if c == nil {
		return BonusDef{}, false
	}
	b, ok := c.Bonuses.ByID[id]
	return b, ok
}

// CatalogDigest identifies the content both catalogs were built from.
func (c *Catalogs) CatalogDigest() string {
	if c == nil {
		return ""
	}
	return c.Digest
}

func (c *Catalogs) PerkIDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.Perks.Order...)
}

func (c *Catalogs) BonusIDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.Bonuses.Order...)
}

// Load reads perks.yaml and bonuses.yaml from configDir.
func Load(configDir string) (*Catalogs, error) {
	perksRaw, err := os.ReadFile(filepath.Join(configDir, "perks.yaml"))
	if err != nil {
		return nil, err
	}
	bonusesRaw, err := os.ReadFile(filepath.Join(configDir, "bonuses.yaml"))
	if err != nil {
		return nil, err
	}
	return Parse(perksRaw, bonusesRaw)
}

// Parse builds catalogs from raw perks/bonuses YAML documents.
func Parse(perksRaw, bonusesRaw []byte) (*Catalogs, error) {
	if err := validateDoc(perksSchema, perksRaw); err != nil {
		return nil, fmt.Errorf("perks.yaml: %w", err)
	}
	if err := validateDoc(bonusesSchema, bonusesRaw); err != nil {
		return nil, fmt.Errorf("bonuses.yaml: %w", err)
	}

	var pd perksDoc
	if err := yaml.Unmarshal(perksRaw, &pd); err != nil {
		return nil, fmt.Errorf("perks.yaml: %w", err)
	}
	var bd bonusesDoc
	if err := yaml.Unmarshal(bonusesRaw, &bd); err != nil {
		return nil, fmt.Errorf("bonuses.yaml: %w", err)
	}
	perks := make([]PerkDef, 0, len(pd.Perks))
	for _, e := range pd.Perks {
		perks = append(perks, e.def())
	}

	c, err := build(perks, bd.Bonuses)
	if err != nil {
		return nil, err
	}
	c.Perks.Digest = sha256Hex(perksRaw)
	c.Bonuses.Digest = sha256Hex(bonusesRaw)
	c.Digest = sha256Hex([]byte(c.Perks.Digest + c.Bonuses.Digest))
	return c, nil
}

// New builds catalogs from in-memory definitions, in the given order.
func New(perks []PerkDef, bonuses []BonusDef) (*Catalogs, error) {
	c, err := build(perks, bonuses)
	if err != nil {
		return nil, err
	}
	pj, _ := json.Marshal(perks)
	bj, _ := json.Marshal(bonuses)
	c.Perks.Digest = sha256Hex(pj)
	c.Bonuses.Digest = sha256Hex(bj)
	c.Digest = sha256Hex([]byte(c.Perks.Digest + c.Bonuses.Digest))
	return c, nil
}

func build(perks []PerkDef, bonuses []BonusDef) (*Catalogs, error) {
	c := &Catalogs{
		Perks:   PerkCatalog{ByID: map[string]PerkDef{}},
		Bonuses: BonusCatalog{ByID: map[string]BonusDef{}},
	}
	for _, p := range perks {
		p.Ranks = append([]RankDef(nil), p.Ranks...)
		if err := checkPerk(&p); err != nil {
			return nil, err
		}
		if _, dup := c.Perks.ByID[p.ID]; dup {
			return nil, fmt.Errorf("perk %s: duplicate id", p.ID)
		}
		c.Perks.ByID[p.ID] = p
		c.Perks.Order = append(c.Perks.Order, p.ID)
	}
	groupCategory := map[string]string{}
	for _, b := range bonuses {
		if err := checkBonus(b, c.Perks.ByID); err != nil {
			return nil, err
		}
		if _, dup := c.Bonuses.ByID[b.ID]; dup {
			return nil, fmt.Errorf("bonus %s: duplicate id", b.ID)
		}
		if b.Group != "" {
			if cat, ok := groupCategory[b.Group]; ok && cat != b.Category {
				return nil, fmt.Errorf("bonus %s: group %s spans categories %s and %s", b.ID, b.Group, cat, b.Category)
			}
			groupCategory[b.Group] = b.Category
		}
		c.Bonuses.ByID[b.ID] = b
		c.Bonuses.Order = append(c.Bonuses.Order, b.ID)
	}
	return c, nil
}

func checkPerk(p *PerkDef) error {
	if p.ID == "" {
		return fmt.Errorf("perk %q: empty id", p.Name)
	}
	if !p.Attribute.Valid() {
		return fmt.Errorf("perk %s: invalid attribute", p.ID)
	}
	if len(p.Ranks) == 0 {
		return fmt.Errorf("perk %s: no ranks", p.ID)
	}
	for i := range p.Ranks {
		r := &p.Ranks[i]
		if r.Cost == 0 {
			r.Cost = 1
		}
		if r.Level == 0 {
			r.Level = 1
		}
		if r.Cost < 0 || r.Requires < 0 {
			return fmt.Errorf("perk %s rank %d: negative requirement or cost", p.ID, i+1)
		}
		if i == 0 {
			continue
		}
		prev := p.Ranks[i-1]
		if r.Requires < prev.Requires || r.Level < prev.Level || r.Cost < prev.Cost {
			return fmt.Errorf("perk %s rank %d: requirement or cost decreases", p.ID, i+1)
		}
		if r.Requires == prev.Requires && r.Level == prev.Level {
			return fmt.Errorf("perk %s rank %d: requirement does not increase", p.ID, i+1)
		}
	}
	return nil
}

func checkBonus(b BonusDef, perks map[string]PerkDef) error {
	if b.ID == "" {
		return fmt.Errorf("bonus %q: empty id", b.Name)
	}
	switch b.Kind {
	case KindAttributeBoost:
		if _, _, ok := b.AttributeDelta(); !ok {
			return fmt.Errorf("bonus %s: attribute-boost needs attribute and delta", b.ID)
		}
	case KindUnlockOverride:
		p, ok := perks[b.Perk]
		if !ok {
			return fmt.Errorf("bonus %s: unknown perk %q", b.ID, b.Perk)
		}
		if b.Rank < 1 || b.Rank > p.MaxRank() {
			return fmt.Errorf("bonus %s: perk %s has no rank %d", b.ID, b.Perk, b.Rank)
		}
	case KindCompanionEffect, KindPassiveEffect:
	default:
		return fmt.Errorf("bonus %s: unknown kind %q", b.ID, b.Kind)
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
