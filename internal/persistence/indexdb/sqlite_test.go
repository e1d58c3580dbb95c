package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"perkplanner.dev/internal/persistence/snapshot"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/tuning"
)

func TestSQLiteIndex_RecordSaveKeepsID(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	v := snapshot.BuildV1{
		Header:   snapshot.Header{Format: snapshot.Format, Version: snapshot.Version, CatalogDigest: "abc"},
		LevelCap: 20,
		Bonuses:  []string{"companion_dogmeat"},
		Perks:    []snapshot.PerkV1{{ID: "iron_fist", Rank: 2}, {ID: "toughness", Rank: 1}},
	}
	saved := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first, err := idx.RecordSave(ctx, RowFor("melee", "/b/melee.build", 123, saved, v, 3))
	if err != nil {
		t.Fatalf("RecordSave: %v", err)
	}
	if first.ID == "" || first.Ranks != 3 || first.Perks != 2 || first.Bonuses != 1 {
		t.Fatalf("row: %+v", first)
	}
	second, err := idx.RecordSave(ctx, RowFor("melee", "/b/melee.build", 130, saved.Add(time.Hour), v, 3))
	if err != nil {
		t.Fatalf("RecordSave again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("id changed: %s -> %s", first.ID, second.ID)
	}

	rows, err := idx.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].Size != 130 || !rows[0].Saved().Equal(saved.Add(time.Hour)) {
		t.Fatalf("rows: %+v", rows)
	}
	r, ok, err := idx.Get(ctx, "melee")
	if err != nil || !ok || r.CatalogDigest != "abc" || r.Spent != 3 {
		t.Fatalf("Get: %+v %v %v", r, ok, err)
	}
	if _, ok, err := idx.Get(ctx, "nope"); ok || err != nil {
		t.Fatalf("Get missing: %v %v", ok, err)
	}
}

func TestSQLiteIndex_Prune(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	now := time.Now()
	for _, n := range []string{"a", "b", "c"} {
		if _, err := idx.RecordSave(ctx, RowFor(n, "/b/"+n+".build", 1, now, snapshot.BuildV1{LevelCap: 1}, 0)); err != nil {
			t.Fatalf("RecordSave %s: %v", n, err)
		}
	}
	n, err := idx.Prune(ctx, []string{"/b/a.build"})
	if err != nil || n != 2 {
		t.Fatalf("Prune: %d %v", n, err)
	}
	rows, _ := idx.List(ctx)
	if len(rows) != 1 || rows[0].Name != "a" {
		t.Fatalf("rows: %+v", rows)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if err := idx.UpsertCatalogs(ctx, cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	d, err := idx.CatalogDigest(ctx, "perks")
	if err != nil || d != cats.Perks.Digest {
		t.Fatalf("perks digest: %q %v", d, err)
	}
	d, err = idx.CatalogDigest(ctx, "tuning")
	if err != nil || d != TuningDigest(tuning.Defaults()) {
		t.Fatalf("tuning digest: %q %v", d, err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&count); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if count != 3 {
		t.Fatalf("catalog rows: %d", count)
	}
	var version string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version); err != nil || version != "1" {
		t.Fatalf("schema_version: %q %v", version, err)
	}
}
