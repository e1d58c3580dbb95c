package archive

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"perkplanner.dev/internal/persistence/snapshot"
	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/tuning"
)

func TestArchiveBuild_CopiesExistingFile(t *testing.T) {
	cat, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	b := build.New(cat, tuning.Defaults())
	if err := b.PurchasePerkRank("iron_fist", 1); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "melee.build")
	if err := snapshot.WriteFile(src, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	want, _ := os.ReadFile(src)

	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	dst, ok, err := ArchiveBuild(dir, src, now)
	if err != nil || !ok {
		t.Fatalf("archive: ok=%v err=%v", ok, err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("copy differs: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, Dir, "melee", "meta.json"))
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("meta json: %v", err)
	}
	if meta.Name != "melee" || meta.Perks != 1 || meta.LevelCap != 50 || meta.CatalogDigest != cat.Digest {
		t.Fatalf("meta: %+v", meta)
	}

	copies, err := Copies(dir, "melee")
	if err != nil || len(copies) != 1 || copies[0] != dst {
		t.Fatalf("copies: %v %v", copies, err)
	}
}

func TestArchiveBuild_MissingFileIsNotArchived(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := ArchiveBuild(dir, filepath.Join(dir, "nope.build"), time.Now())
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, Dir)); !os.IsNotExist(err) {
		t.Fatalf("archive dir created: %v", err)
	}
}
