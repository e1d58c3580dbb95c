package library

import (
	"os"
	"path/filepath"
	"testing"

	"perkplanner.dev/internal/persistence/archive"
	"perkplanner.dev/internal/persistence/snapshot"
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
	return cat, tuning.Defaults()
}

func TestSaveLoadList(t *testing.T) {
	cat, rules := load(t)
	lib := New(filepath.Join(t.TempDir(), "builds"))

	entries, err := lib.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("empty list: %v %v", entries, err)
	}

	b := build.New(cat, rules)
	if err := b.SetBaseAttribute(special.Luck, 4); err != nil {
		t.Fatalf("luck: %v", err)
	}
	e, err := lib.Save("melee", b)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if e.Name != "melee" || e.Size == 0 {
		t.Fatalf("entry: %+v", e)
	}
	if _, err := lib.Save("", build.New(cat, rules)); err == nil {
		t.Fatalf("expected error for unnamed save")
	}
	if _, err := lib.Save("glass cannon", build.New(cat, rules)); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err = lib.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "glass cannon" || entries[1].Name != "melee" {
		t.Fatalf("list: %+v", entries)
	}

	got, _, err := lib.Load("melee", cat, rules)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Base(special.Luck) != 4 {
		t.Fatalf("luck: %d", got.Base(special.Luck))
	}
	if _, _, err := lib.Load(e.Path, cat, rules); err != nil {
		t.Fatalf("load by path: %v", err)
	}
}

func TestResolveMissing(t *testing.T) {
	lib := New(t.TempDir())
	if _, err := lib.Resolve("nope"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := lib.Resolve(" "); err == nil {
		t.Fatalf("expected error for empty ref")
	}
}

func TestPathRejectsSeparators(t *testing.T) {
	lib := New(t.TempDir())
	if _, err := lib.Path("../escape"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".build-123.tmp"), []byte("x"), 0o644)
	entries, err := New(dir).List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("list: %+v %v", entries, err)
	}
}

func TestSaveArchivesPreviousCopy(t *testing.T) {
	cat, rules := load(t)
	lib := New(filepath.Join(t.TempDir(), "builds"))

	b := build.New(cat, rules)
	if _, err := lib.Save("melee", b); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if copies, _ := archive.Copies(lib.Dir, "melee"); len(copies) != 0 {
		t.Fatalf("first save archived: %v", copies)
	}
	if err := b.SetBaseAttribute(special.Strength, 3); err != nil {
		t.Fatalf("strength: %v", err)
	}
	if _, err := lib.Save("melee", b); err != nil {
		t.Fatalf("second save: %v", err)
	}
	copies, err := archive.Copies(lib.Dir, "melee")
	if err != nil || len(copies) != 1 {
		t.Fatalf("copies: %v %v", copies, err)
	}
	old, err := snapshot.ReadFile(copies[0], cat, rules)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if old.Base(special.Strength) != 1 {
		t.Fatalf("archived copy is not the previous build")
	}
	entries, _ := lib.List()
	if len(entries) != 1 {
		t.Fatalf("archive leaked into list: %+v", entries)
	}
}
