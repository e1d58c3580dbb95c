package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRepoTuning(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	if tu.BaseMin != 1 || tu.AllocationPool != 28 {
		t.Fatalf("unexpected tuning: %+v", tu)
	}
	if tu.Limits().Max != tu.BaseMax {
		t.Fatalf("limits mismatch")
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("default_level_cap: 10\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.DefaultLevelCap != 10 {
		t.Fatalf("default_level_cap=%d want 10", tu.DefaultLevelCap)
	}
	if tu.MaxLevel != Defaults().MaxLevel || tu.Derived.BaseAP != 60 {
		t.Fatalf("defaults lost: %+v", tu)
	}
}

func TestLoadRejectsBadCap(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("max_level: 20\ndefault_level_cap: 30\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected cap above max_level rejected")
	}
}
