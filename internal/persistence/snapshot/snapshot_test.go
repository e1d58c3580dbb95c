package snapshot

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zstd"

	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/special"
	"perkplanner.dev/internal/planner/tuning"
)

func load(t *testing.T) (*catalogs.Catalogs, tuning.Tuning) {
	t.Helper()
	cat, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	rules, err := tuning.Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	return cat, rules
}

func sampleBuild(t *testing.T, cat *catalogs.Catalogs, rules tuning.Tuning) *build.Build {
	t.Helper()
	b := build.New(cat, rules)
	b.SetName("Sole Survivor")
	b.SetGender(build.Female)
	b.SetDifficulty(build.Survival)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	must(b.SetBaseAttribute(special.Strength, 6))
	must(b.SetBaseAttribute(special.Endurance, 3))
	must(b.ActivateBonus("bobblehead_endurance"))
	must(b.ActivateBonus("quest_awareness"))
	must(b.ActivateBonus("companion_dogmeat"))
	must(b.SetPerkRank("strong_back", 2))
	must(b.SetPerkRank("toughness", 2))
	must(b.PurchasePerkRank("awareness", 1))
	must(b.SetLevelCap(20))
	return b
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if got := build.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %q (%v)", code, got, err)
	}
}

func rawFile(t *testing.T, v BuildV1) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := write(&buf, v); err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	cat, rules := load(t)
	b := sampleBuild(t, cat, rules)
	data, err := Encode(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data, cat, rules)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, a := range special.All {
		if got.Effective(a) != b.Effective(a) || got.Base(a) != b.Base(a) {
			t.Fatalf("%s: got %d/%d want %d/%d", a, got.Base(a), got.Effective(a), b.Base(a), b.Effective(a))
		}
	}
	if !reflect.DeepEqual(got.Perks(), b.Perks()) {
		t.Fatalf("perks: got %v want %v", got.Perks(), b.Perks())
	}
	if !reflect.DeepEqual(got.ActiveBonuses(), b.ActiveBonuses()) {
		t.Fatalf("bonuses: got %v want %v", got.ActiveBonuses(), b.ActiveBonuses())
	}
	if got.LevelCap() != 20 || got.Spent() != b.Spent() {
		t.Fatalf("cap/spent: %d/%d", got.LevelCap(), got.Spent())
	}
	if got.Name() != "Sole Survivor" || got.Gender() != build.Female || got.Difficulty() != build.Survival {
		t.Fatalf("metadata: %q %q %q", got.Name(), got.Gender(), got.Difficulty())
	}
}

func TestHeaderCarriesCatalogDigest(t *testing.T) {
	cat, rules := load(t)
	data, err := Encode(build.New(cat, rules))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	v, err := Inspect(data)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if v.Header.Format != Format || v.Header.Version != Version || v.Header.CatalogDigest != cat.Digest {
		t.Fatalf("header: %+v", v.Header)
	}
}

func TestPurchaseThenRefundEncodesEqual(t *testing.T) {
	cat, rules := load(t)
	b := sampleBuild(t, cat, rules)
	before := FromBuild(b)
	if err := b.PurchasePerkRank("iron_fist", 1); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := b.RefundPerkRank("iron_fist"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if after := FromBuild(b); !reflect.DeepEqual(before, after) {
		t.Fatalf("state differs after refund:\n%+v\n%+v", before, after)
	}
}

func TestDecodeUnknownReferences(t *testing.T) {
	cat, rules := load(t)
	base := FromBuild(sampleBuild(t, cat, rules))

	v := base
	v.Perks = append(append([]PerkV1(nil), base.Perks...), PerkV1{ID: "power_attack", Rank: 1})
	_, err := Decode(rawFile(t, v), cat, rules)
	wantCode(t, err, build.CodeUnknownReference)

	v = base
	v.Bonuses = append(append([]string(nil), base.Bonuses...), "bobblehead_charm")
	_, err = Decode(rawFile(t, v), cat, rules)
	wantCode(t, err, build.CodeUnknownReference)

	v = base
	v.Attributes = map[string]int{"charm": 3}
	_, err = Decode(rawFile(t, v), cat, rules)
	wantCode(t, err, build.CodeUnknownReference)
}

func TestDecodeMalformed(t *testing.T) {
	cat, rules := load(t)

	_, err := Decode([]byte("not a build"), cat, rules)
	wantCode(t, err, build.CodeMalformedData)

	v := FromBuild(build.New(cat, rules))
	v.Header.Version = 2
	_, err = Decode(rawFile(t, v), cat, rules)
	wantCode(t, err, build.CodeMalformedData)

	v = FromBuild(build.New(cat, rules))
	v.LevelCap = 0
	_, err = Decode(rawFile(t, v), cat, rules)
	wantCode(t, err, build.CodeMalformedData)

	v = FromBuild(build.New(cat, rules))
	v.Perks = []PerkV1{{ID: "iron_fist", Rank: 1}, {ID: "iron_fist", Rank: 2}}
	_, err = Decode(rawFile(t, v), cat, rules)
	wantCode(t, err, build.CodeMalformedData)

	v = FromBuild(build.New(cat, rules))
	v.Bonuses = []string{"special_book_luck", "special_book_strength"}
	_, err = Decode(rawFile(t, v), cat, rules)
	wantCode(t, err, build.CodeMalformedData)

	// A header line alone, with no body.
	var buf bytes.Buffer
	enc, _ := zstd.NewWriter(&buf)
	_, _ = enc.Write([]byte(`{"format":"perkplanner.build","version":1}` + "\n"))
	_ = enc.Close()
	_, err = Decode(buf.Bytes(), cat, rules)
	wantCode(t, err, build.CodeMalformedData)
}

func TestDecodeRevalidatesInvariants(t *testing.T) {
	cat, rules := load(t)

	// Toughness needs Endurance 1 here, but rank 5 needs level 46.
	v := FromBuild(build.New(cat, rules))
	v.Perks = []PerkV1{{ID: "toughness", Rank: 5}}
	v.LevelCap = 40
	_, err := Decode(rawFile(t, v), cat, rules)
	wantCode(t, err, build.CodeMalformedData)
	if !errors.Is(err, build.ErrWouldInvalidatePerk) {
		t.Fatalf("cause not kept: %v", err)
	}

	// Awareness needs Perception 3.
	v = FromBuild(build.New(cat, rules))
	v.Perks = []PerkV1{{ID: "awareness", Rank: 1}}
	_, err = Decode(rawFile(t, v), cat, rules)
	if !errors.Is(err, build.ErrMalformedData) || !errors.Is(err, build.ErrRequirementUnmet) {
		t.Fatalf("requirement: %v", err)
	}

	// Spent above the cap.
	v = FromBuild(build.New(cat, rules))
	v.Perks = []PerkV1{{ID: "iron_fist", Rank: 1}, {ID: "big_leagues", Rank: 1}}
	v.Attributes = map[string]int{"strength": 2}
	v.LevelCap = 1
	_, err = Decode(rawFile(t, v), cat, rules)
	if !errors.Is(err, build.ErrCapBelowSpent) {
		t.Fatalf("cap: %v", err)
	}

	// Base allocation above the pool.
	v = FromBuild(build.New(cat, rules))
	v.Attributes = map[string]int{"strength": 11, "perception": 11, "endurance": 11}
	_, err = Decode(rawFile(t, v), cat, rules)
	if !errors.Is(err, build.ErrOutOfRange) {
		t.Fatalf("pool: %v", err)
	}
}

func TestWriteReadFile(t *testing.T) {
	cat, rules := load(t)
	b := sampleBuild(t, cat, rules)
	path := filepath.Join(t.TempDir(), "builds", "sole.build")
	if err := WriteFile(path, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFile(path, cat, rules)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(FromBuild(got), FromBuild(b)) {
		t.Fatalf("file round trip differs")
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".build-*"))
	if len(matches) != 0 {
		t.Fatalf("temp files left: %v", matches)
	}
}
