package bonus

import (
	"errors"
	"testing"

	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/special"
)

func testCatalog(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	end := special.Endurance
	str := special.Strength
	c, err := catalogs.New(
		[]catalogs.PerkDef{{
			ID: "toughness", Name: "Toughness", Attribute: special.Endurance,
			Ranks: []catalogs.RankDef{{Requires: 4, Cost: 2}},
		}},
		[]catalogs.BonusDef{
			{ID: "bobblehead_endurance", Name: "Bobblehead-Endurance", Category: "bobblehead", Kind: catalogs.KindAttributeBoost, Attribute: &end, Delta: 1},
			{ID: "book_endurance", Name: "Book", Category: "book", Kind: catalogs.KindAttributeBoost, Group: "special_book", Attribute: &end, Delta: 1},
			{ID: "book_strength", Name: "Book", Category: "book", Kind: catalogs.KindAttributeBoost, Group: "special_book", Attribute: &str, Delta: 1},
			{ID: "override", Name: "Override", Category: "other", Kind: catalogs.KindUnlockOverride, Perk: "toughness", Rank: 1},
			{ID: "dogmeat", Name: "Dogmeat", Category: "companion", Kind: catalogs.KindCompanionEffect, Effects: catalogs.Effects{catalogs.EffectCarryWeightAdd: 25}},
		},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func TestActivateIsIdempotent(t *testing.T) {
	tr := NewTracker(testCatalog(t))
	for i := 0; i < 3; i++ {
		if err := tr.Activate("bobblehead_endurance"); err != nil {
			t.Fatalf("activate: %v", err)
		}
	}
	if got := tr.Delta(special.Endurance); got != 1 {
		t.Fatalf("delta: got %d want 1", got)
	}
	if tr.Len() != 1 {
		t.Fatalf("len: %d", tr.Len())
	}
	if err := tr.Deactivate("bobblehead_endurance"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := tr.Deactivate("bobblehead_endurance"); err != nil {
		t.Fatalf("second deactivate: %v", err)
	}
	if tr.IsActive("bobblehead_endurance") || tr.Delta(special.Endurance) != 0 {
		t.Fatalf("still active")
	}
}

func TestDeltaSumsPerAttribute(t *testing.T) {
	tr := NewTracker(testCatalog(t))
	_ = tr.Activate("bobblehead_endurance")
	_ = tr.Activate("book_endurance")
	if got := tr.Delta(special.Endurance); got != 2 {
		t.Fatalf("endurance: got %d", got)
	}
	if got := tr.Delta(special.Strength); got != 0 {
		t.Fatalf("strength: got %d", got)
	}
}

func TestGroupKeepsOneMember(t *testing.T) {
	tr := NewTracker(testCatalog(t))
	_ = tr.Activate("bobblehead_endurance")
	_ = tr.Activate("book_endurance")
	if err := tr.Activate("book_strength"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got := tr.InGroup("special_book"); len(got) != 1 || got[0] != "book_strength" {
		t.Fatalf("group: %v", got)
	}
	if tr.Delta(special.Endurance) != 1 || tr.Delta(special.Strength) != 1 {
		t.Fatalf("delta: E %d S %d", tr.Delta(special.Endurance), tr.Delta(special.Strength))
	}
	if !tr.IsActive("bobblehead_endurance") || tr.InGroup("") != nil {
		t.Fatalf("ungrouped bonus affected")
	}
}

func TestUnknownBonus(t *testing.T) {
	tr := NewTracker(testCatalog(t))
	var ue *UnknownError
	if err := tr.Activate("nope"); !errors.As(err, &ue) || ue.ID != "nope" {
		t.Fatalf("activate: %v", err)
	}
	if err := tr.Deactivate("nope"); !errors.As(err, &ue) {
		t.Fatalf("deactivate: %v", err)
	}
}

func TestUnlocksAndEffects(t *testing.T) {
	tr := NewTracker(testCatalog(t))
	if tr.Unlocks("toughness", 1) {
		t.Fatalf("unlocked before activation")
	}
	_ = tr.Activate("override")
	_ = tr.Activate("dogmeat")
	if !tr.Unlocks("toughness", 1) || tr.Unlocks("toughness", 2) {
		t.Fatalf("unlocks mismatch")
	}
	if got := tr.Effects().Get(catalogs.EffectCarryWeightAdd); got != 25 {
		t.Fatalf("carry: %v", got)
	}
	if got := tr.Active(); len(got) != 2 || got[0] != "dogmeat" || got[1] != "override" {
		t.Fatalf("active: %v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tr := NewTracker(testCatalog(t))
	_ = tr.Activate("bobblehead_endurance")
	c := tr.Clone()
	_ = c.Deactivate("bobblehead_endurance")
	if !tr.IsActive("bobblehead_endurance") {
		t.Fatalf("clone shares state")
	}
	c.Clear()
	if c.Len() != 0 || tr.Len() != 1 {
		t.Fatalf("clear leaked")
	}
}
