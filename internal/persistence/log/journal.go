package log

import (
	"encoding/json"
	"time"
)

const journalPrefix = "session"

// Entry is one command of an interactive session and its outcome.
type Entry struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session"`
	Seq     int       `json:"seq"`
	Line    string    `json:"line"`
	OK      bool      `json:"ok"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`

	// Budget after the command, for replay checks.
	Spent    int `json:"spent"`
	LevelCap int `json:"level_cap"`
}

// Journal writes session entries to dir/session-<hour>.jsonl.zst.
type Journal struct{ w *JSONLZstdWriter }

func NewJournal(dir string) *Journal {
	return &Journal{w: NewJSONLZstdWriter(dir, journalPrefix)}
}

func (j *Journal) Write(e Entry) error {
	if j == nil {
		return nil
	}
	return j.w.Write(e)
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.w.Close()
}

// JournalFiles lists the journal files in dir, oldest first.
func JournalFiles(dir string) ([]string, error) { return ListFiles(dir, journalPrefix) }

// ReadJournal decodes every entry of one journal file.
func ReadJournal(path string) ([]Entry, error) {
	var out []Entry
	err := ReadFile(path, func(line []byte) error {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}
