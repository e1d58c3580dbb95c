// Package bonus tracks which catalog bonuses are active and what they
// contribute. It never looks at purchased perks; legality is the build's job.
package bonus

import (
	"fmt"
	"sort"

	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/special"
)

// Lookup is the slice of the catalog the tracker needs.
type Lookup interface {
	Bonus(id string) (catalogs.BonusDef, bool)
}

// UnknownError is returned for ids the catalog does not define.
type UnknownError struct {
	ID string
}

func (e *UnknownError) Error() string { return fmt.Sprintf("unknown bonus: %s", e.ID) }

// Tracker holds the ids of active bonuses; definitions stay in the catalog.
type Tracker struct {
	cat    Lookup
	active map[string]struct{}
}

func NewTracker(cat Lookup) *Tracker {
	return &Tracker{cat: cat, active: map[string]struct{}{}}
}

// Activate is idempotent. Activating a member of an exclusive group
// deactivates the other members of that group.
func (t *Tracker) Activate(id string) error {
	def, ok := t.cat.Bonus(id)
	if !ok {
		return &UnknownError{ID: id}
	}
	for _, other := range t.InGroup(def.Group) {
		delete(t.active, other)
	}
	t.active[id] = struct{}{}
	return nil
}

// Deactivate is idempotent.
func (t *Tracker) Deactivate(id string) error {
	if _, ok := t.cat.Bonus(id); !ok {
		return &UnknownError{ID: id}
	}
	delete(t.active, id)
	return nil
}

func (t *Tracker) IsActive(id string) bool {
	_, ok := t.active[id]
	return ok
}

// InGroup returns the active ids of an exclusive group, sorted. The empty
// group has no members.
func (t *Tracker) InGroup(group string) []string {
	if group == "" {
		return nil
	}
	var out []string
	for _, id := range t.Active() {
		if def, ok := t.cat.Bonus(id); ok && def.Group == group {
			out = append(out, id)
		}
	}
	return out
}

// Delta sums the attribute deltas of active bonuses.
func (t *Tracker) Delta(a special.Attribute) int {
	n := 0
	for id := range t.active {
		def, _ := t.cat.Bonus(id)
		if attr, d, ok := def.AttributeDelta(); ok && attr == a {
			n += d
		}
	}
	return n
}

// Unlocks reports whether any active bonus overrides perk/rank.
func (t *Tracker) Unlocks(perk string, rank int) bool {
	for id := range t.active {
		if def, ok := t.cat.Bonus(id); ok && def.Unlocks(perk, rank) {
			return true
		}
	}
	return false
}

// Active returns the active ids, sorted.
func (t *Tracker) Active() []string {
	out := make([]string, 0, len(t.active))
	for id := range t.active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (t *Tracker) Len() int { return len(t.active) }

// Effects folds the effects of every active bonus.
func (t *Tracker) Effects() catalogs.Effects {
	var out catalogs.Effects
	for _, id := range t.Active() {
		def, _ := t.cat.Bonus(id)
		out = out.Merge(def.Effects)
	}
	return out
}

func (t *Tracker) Clone() *Tracker {
	c := &Tracker{cat: t.cat, active: make(map[string]struct{}, len(t.active))}
	for id := range t.active {
		c.active[id] = struct{}{}
	}
	return c
}

// Clear deactivates everything.
func (t *Tracker) Clear() {
	t.active = map[string]struct{}{}
}
