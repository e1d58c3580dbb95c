// Package build holds the character build aggregate. Every mutation either
// succeeds with all invariants intact or fails with an *Error and leaves the
// build exactly as it was.
package build

import (
	"errors"

	"perkplanner.dev/internal/planner/bonus"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/special"
	"perkplanner.dev/internal/planner/tuning"
)

// Build is owned by a single session; it has no internal locking.
type Build struct {
	cat   catalogs.Catalog
	rules tuning.Tuning

	name       string
	gender     Gender
	difficulty Difficulty

	attrs    special.Set
	bonuses  *bonus.Tracker
	perks    map[string]int
	levelCap int
}

// Selected is a purchased perk and its highest rank.
type Selected struct {
	ID   string
	Rank int
}

// New returns an empty build: every base at the minimum, nothing purchased,
// the default level cap.
func New(cat catalogs.Catalog, rules tuning.Tuning) *Build {
	return &Build{
		cat:        cat,
		rules:      rules,
		gender:     Male,
		difficulty: Normal,
		attrs:      special.NewSet(rules.Limits()),
		bonuses:    bonus.NewTracker(cat),
		perks:      map[string]int{},
		levelCap:   rules.DefaultLevelCap,
	}
}

func (b *Build) Catalog() catalogs.Catalog { return b.cat }
func (b *Build) Rules() tuning.Tuning      { return b.rules }

// Clone returns an independent copy sharing only the catalog.
func (b *Build) Clone() *Build {
	c := *b
	c.bonuses = b.bonuses.Clone()
	c.perks = make(map[string]int, len(b.perks))
	for id, r := range b.perks {
		c.perks[id] = r
	}
	return &c
}

// Queries.

func (b *Build) Name() string           { return b.name }
func (b *Build) Gender() Gender         { return b.gender }
func (b *Build) Difficulty() Difficulty { return b.difficulty }
func (b *Build) LevelCap() int          { return b.levelCap }

func (b *Build) Base(a special.Attribute) int { return b.attrs.Base(a) }

func (b *Build) Effective(a special.Attribute) int { return b.attrs.Effective(a, b.bonuses) }

// AttributePoints reports points assigned above the minimum and points left
// in the allocation pool.
func (b *Build) AttributePoints() (assigned, remaining int) {
	lim := b.rules.Limits()
	return b.attrs.Assigned(lim), b.attrs.Remaining(lim)
}

func (b *Build) Rank(perkID string) int { return b.perks[perkID] }

// Spent is the sum of the costs of every purchased rank.
func (b *Build) Spent() int {
	n := 0
	for id, r := range b.perks {
		if p, ok := b.cat.Perk(id); ok {
			n += p.CostThrough(r)
		}
	}
	return n
}

func (b *Build) Remaining() int { return b.levelCap - b.Spent() }

func (b *Build) IsBonusActive(id string) bool { return b.bonuses.IsActive(id) }

// ActiveBonuses returns the active bonus ids, sorted.
func (b *Build) ActiveBonuses() []string { return b.bonuses.Active() }

// BonusEffects folds the effects of the active bonuses.
func (b *Build) BonusEffects() catalogs.Effects { return b.bonuses.Effects() }

// Perks lists purchased perks in catalog order.
func (b *Build) Perks() []Selected {
	out := make([]Selected, 0, len(b.perks))
	for _, id := range b.cat.PerkIDs() {
		if r := b.perks[id]; r > 0 {
			out = append(out, Selected{ID: id, Rank: r})
		}
	}
	return out
}

// Eligibility reports whether rank of perkID is unlocked under the current
// attributes, bonuses and cap, and whether only an override unlocks it.
// The level budget is not considered.
func (b *Build) Eligibility(perkID string, rank int) (met, viaOverride bool) {
	p, ok := b.cat.Perk(perkID)
	if !ok {
		return false, false
	}
	rd, ok := p.Rank(rank)
	if !ok {
		return false, false
	}
	direct := directlyMet(p, rd, b.attrs, b.bonuses, b.levelCap)
	override := b.bonuses.Unlocks(perkID, rank)
	return direct || override, !direct && override
}

// Mutations.

// SetLevelCap changes the level budget. Lowering it below what is spent, or
// below the level a purchased rank requires, is refused.
func (b *Build) SetLevelCap(n int) error {
	if n < 1 || n > b.rules.MaxLevel {
		return newError(CodeInvalidCap, "", "level cap must be between 1 and %d", b.rules.MaxLevel)
	}
	if spent := b.Spent(); n < spent {
		return newError(CodeCapBelowSpent, "", "level cap %d is below the %d levels spent; remove perks first", n, spent)
	}
	if id, bad := b.firstInvalid(b.attrs, b.bonuses, n); bad {
		return newError(CodeWouldInvalidatePerk, id, "level cap %d would invalidate %s", n, b.perkName(id))
	}
	b.levelCap = n
	return nil
}

func (b *Build) SetBaseAttribute(a special.Attribute, v int) error {
	next, err := b.attrs.WithBase(a, v, b.rules.Limits())
	if err != nil {
		return &Error{Code: CodeOutOfRange, Msg: err.Error(), Err: err}
	}
	if id, bad := b.firstInvalid(next, b.bonuses, b.levelCap); bad {
		return newError(CodeWouldInvalidatePerk, id, "%s %d would invalidate %s", a, v, b.perkName(id))
	}
	b.attrs = next
	return nil
}

// ActivateBonus is idempotent. Activating a member of an exclusive group
// replaces the active member, which is refused if a purchased rank depends on
// the one being replaced.
func (b *Build) ActivateBonus(id string) error {
	next := b.bonuses.Clone()
	if err := next.Activate(id); err != nil {
		return bonusError(err)
	}
	if pid, bad := b.firstInvalid(b.attrs, next, b.levelCap); bad {
		return newError(CodeWouldInvalidatePerk, pid, "activating %s would invalidate %s", id, b.perkName(pid))
	}
	b.bonuses = next
	return nil
}

// DeactivateBonus is idempotent, but refuses to pull a bonus out from under a
// purchased rank that depends on it.
func (b *Build) DeactivateBonus(id string) error {
	next := b.bonuses.Clone()
	if err := next.Deactivate(id); err != nil {
		return bonusError(err)
	}
	if pid, bad := b.firstInvalid(b.attrs, next, b.levelCap); bad {
		return newError(CodeWouldInvalidatePerk, pid, "deactivating %s would invalidate %s", id, b.perkName(pid))
	}
	b.bonuses = next
	return nil
}

// ToggleBonus flips id and reports whether it is now active.
func (b *Build) ToggleBonus(id string) (bool, error) {
	if b.bonuses.IsActive(id) {
		if err := b.DeactivateBonus(id); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := b.ActivateBonus(id); err != nil {
		return false, err
	}
	return true, nil
}

// PurchasePerkRank buys target, which must be exactly one above the current
// rank.
func (b *Build) PurchasePerkRank(perkID string, target int) error {
	p, ok := b.cat.Perk(perkID)
	if !ok {
		return newError(CodeUnknownPerk, perkID, "unknown perk: %s", perkID)
	}
	cur := b.perks[perkID]
	if target != cur+1 || target > p.MaxRank() {
		if cur >= p.MaxRank() {
			return newError(CodeRankOutOfRange, perkID, "%s is already at max rank %d", b.perkName(perkID), p.MaxRank())
		}
		return newError(CodeRankOutOfRange, perkID, "%s: next purchasable rank is %d, not %d", b.perkName(perkID), cur+1, target)
	}
	rd, _ := p.Rank(target)
	if !legal(p, target, rd, b.attrs, b.bonuses, b.levelCap) {
		if rd.Level > b.levelCap {
			return newError(CodeRequirementUnmet, perkID, "%s rank %d requires level %d", b.perkName(perkID), target, rd.Level)
		}
		return newError(CodeRequirementUnmet, perkID, "%s rank %d requires %s %d", b.perkName(perkID), target, p.Attribute, rd.Requires)
	}
	if spent := b.Spent(); spent+rd.Cost > b.levelCap {
		return newError(CodeInsufficientLevels, perkID, "%s rank %d costs %d but only %d of %d levels remain",
			b.perkName(perkID), target, rd.Cost, b.levelCap-spent, b.levelCap)
	}
	b.perks[perkID] = target
	return nil
}

// RefundPerkRank drops the top rank of perkID. It is always legal.
func (b *Build) RefundPerkRank(perkID string) error {
	if _, ok := b.cat.Perk(perkID); !ok {
		return newError(CodeUnknownPerk, perkID, "unknown perk: %s", perkID)
	}
	cur := b.perks[perkID]
	if cur == 0 {
		return newError(CodeNoRankToRefund, perkID, "%s has no rank to refund", b.perkName(perkID))
	}
	if cur == 1 {
		delete(b.perks, perkID)
	} else {
		b.perks[perkID] = cur - 1
	}
	return nil
}

// SetPerkRank walks perkID to rank one rank at a time. It is all-or-nothing.
func (b *Build) SetPerkRank(perkID string, rank int) error {
	p, ok := b.cat.Perk(perkID)
	if !ok {
		return newError(CodeUnknownPerk, perkID, "unknown perk: %s", perkID)
	}
	if rank < 0 || rank > p.MaxRank() {
		return newError(CodeRankOutOfRange, perkID, "%s has ranks 1 to %d", b.perkName(perkID), p.MaxRank())
	}
	next := b.Clone()
	for next.perks[perkID] < rank {
		if err := next.PurchasePerkRank(perkID, next.perks[perkID]+1); err != nil {
			return err
		}
	}
	for next.perks[perkID] > rank {
		if err := next.RefundPerkRank(perkID); err != nil {
			return err
		}
	}
	b.perks = next.perks
	return nil
}

// RemovePerk refunds every rank of perkID.
func (b *Build) RemovePerk(perkID string) error {
	if b.perks[perkID] == 0 {
		if _, ok := b.cat.Perk(perkID); !ok {
			return newError(CodeUnknownPerk, perkID, "unknown perk: %s", perkID)
		}
		return newError(CodeNoRankToRefund, perkID, "%s is not taken", b.perkName(perkID))
	}
	return b.SetPerkRank(perkID, 0)
}

// Reset clears attributes, bonuses, perks and metadata. The level cap stays.
func (b *Build) Reset() {
	b.attrs = special.NewSet(b.rules.Limits())
	b.bonuses.Clear()
	b.perks = map[string]int{}
	b.name = ""
	b.gender = Male
	b.difficulty = Normal
}

func (b *Build) SetName(name string)           { b.name = name }
func (b *Build) SetGender(g Gender)            { b.gender = g }
func (b *Build) SetDifficulty(d Difficulty)    { b.difficulty = d }
func (b *Build) PerkName(perkID string) string { return b.perkName(perkID) }

func (b *Build) perkName(id string) string {
	if p, ok := b.cat.Perk(id); ok {
		return p.DisplayName(b.gender == Female)
	}
	return id
}

// firstInvalid checks every purchased rank against a candidate state and
// returns the first perk, in catalog order, that would lose legality.
func (b *Build) firstInvalid(attrs special.Set, bonuses *bonus.Tracker, levelCap int) (string, bool) {
	for _, id := range b.cat.PerkIDs() {
		cur := b.perks[id]
		if cur == 0 {
			continue
		}
		p, _ := b.cat.Perk(id)
		for r := 1; r <= cur; r++ {
			rd, _ := p.Rank(r)
			if !legal(p, r, rd, attrs, bonuses, levelCap) {
				return id, true
			}
		}
	}
	return "", false
}

func directlyMet(p catalogs.PerkDef, rd catalogs.RankDef, attrs special.Set, bonuses *bonus.Tracker, levelCap int) bool {
	return attrs.Effective(p.Attribute, bonuses) >= rd.Requires && rd.Level <= levelCap
}

func legal(p catalogs.PerkDef, rank int, rd catalogs.RankDef, attrs special.Set, bonuses *bonus.Tracker, levelCap int) bool {
	return bonuses.Unlocks(p.ID, rank) || directlyMet(p, rd, attrs, bonuses, levelCap)
}

func bonusError(err error) error {
	var ue *bonus.UnknownError
	if errors.As(err, &ue) {
		return &Error{Code: CodeUnknownBonus, Msg: ue.Error(), Err: err}
	}
	return err
}
