package log

import (
	"testing"
	"time"
)

func TestJournalRoundTripAndRotation(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	j.w.now = func() time.Time { return clock }

	if err := j.Write(Entry{Session: "s1", Seq: 1, Line: "set str 5", OK: true, LevelCap: 50}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := j.Write(Entry{Session: "s1", Seq: 2, Line: "add toughness", Code: "E_REQUIREMENT_UNMET", LevelCap: 50}); err != nil {
		t.Fatalf("write: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if err := j.Write(Entry{Session: "s1", Seq: 3, Line: "cap 10", OK: true, LevelCap: 10}); err != nil {
		t.Fatalf("write after rotation: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := JournalFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files: %v", files)
	}
	first, err := ReadJournal(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(first) != 2 || first[1].Code != "E_REQUIREMENT_UNMET" || first[0].Line != "set str 5" {
		t.Fatalf("entries: %+v", first)
	}
	second, _ := ReadJournal(files[1])
	if len(second) != 1 || second[0].LevelCap != 10 {
		t.Fatalf("entries: %+v", second)
	}
}

func TestJournalAppendsToExistingHour(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 2; i++ {
		j := NewJournal(dir)
		j.w.now = func() time.Time { return clock }
		if err := j.Write(Entry{Seq: i}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		_ = j.Close()
	}
	files, _ := JournalFiles(dir)
	if len(files) != 1 {
		t.Fatalf("files: %v", files)
	}
	entries, err := ReadJournal(files[0])
	if err != nil || len(entries) != 2 || entries[1].Seq != 2 {
		t.Fatalf("entries: %+v %v", entries, err)
	}
}

func TestNilJournalIsNoop(t *testing.T) {
	var j *Journal
	if err := j.Write(Entry{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
