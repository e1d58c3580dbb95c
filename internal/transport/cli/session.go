// Package cli is the line-oriented front end of the planner. Every input line
// is parsed into one command, applied to the current build and answered with
// a Result.
package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"perkplanner.dev/internal/persistence/indexdb"
	"perkplanner.dev/internal/persistence/library"
	plog "perkplanner.dev/internal/persistence/log"
	"perkplanner.dev/internal/persistence/snapshot"
	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/tuning"
)

// Result is the answer to one command.
type Result struct {
	// Message is a one-line status such as "Added Toughness rank 2".
	Message string
	// Detail is a rendered block (tables, lists) printed after Message.
	Detail string
	Err    error
	// Exit asks the caller to end the session.
	Exit bool
}

// Options wire the optional collaborators of a session. A nil Index or
// Journal disables that feature.
type Options struct {
	Catalogs *catalogs.Catalogs
	Rules    tuning.Tuning
	Library  *library.Library
	Index    *indexdb.SQLiteIndex
	Journal  *plog.Journal
	Color    bool
	Now      func() time.Time
}

type Session struct {
	cat     *catalogs.Catalogs
	rules   tuning.Tuning
	lib     *library.Library
	index   *indexdb.SQLiteIndex
	journal *plog.Journal
	now     func() time.Time

	id        string
	seq       int
	build     *build.Build
	showChart bool
	styles    styles

	res Result
}

func NewSession(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		cat:     opts.Catalogs,
		rules:   opts.Rules,
		lib:     opts.Library,
		index:   opts.Index,
		journal: opts.Journal,
		now:     now,
		id:      uuid.NewString(),
		build:   build.New(opts.Catalogs, opts.Rules),
		styles:  newStyles(opts.Color),
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Build() *build.Build { return s.build }

// SetID replaces the session id recorded in the journal.
func (s *Session) SetID(id string) { s.id = id }

// Exec runs one input line. Blank lines are a no-op and are not journaled.
func (s *Session) Exec(line string) Result {
	args := strings.Fields(line)
	if len(args) == 0 {
		return Result{}
	}
	s.res = Result{}

	var out bytes.Buffer
	root := s.commands()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	if err := root.Execute(); err != nil {
		s.res.Err = err
	}
	if s.res.Detail == "" && out.Len() > 0 {
		s.res.Detail = strings.TrimRight(out.String(), "\n")
	}
	s.seq++
	s.record(line, s.res)
	return s.res
}

// View renders the current build the way the REPL shows it between commands.
func (s *Session) View() string {
	return renderBuild(s.styles, s.build, s.cat, s.showChart)
}

func (s *Session) record(line string, res Result) {
	if s.journal == nil {
		return
	}
	e := plog.Entry{
		Time:     s.now().UTC(),
		Session:  s.id,
		Seq:      s.seq,
		Line:     line,
		OK:       res.Err == nil,
		Message:  res.Message,
		Spent:    s.build.Spent(),
		LevelCap: s.build.LevelCap(),
	}
	if res.Err != nil {
		e.Code = build.CodeOf(res.Err)
		e.Message = res.Err.Error()
	}
	// Journal write errors are ignored.
	_ = s.journal.Write(e)
}

// save writes the build to the library and records it in the index.
func (s *Session) save(name string) (library.Entry, error) {
	if s.lib == nil {
		return library.Entry{}, errors.New("no build library configured")
	}
	ent, err := s.lib.Save(name, s.build)
	if err != nil {
		return ent, err
	}
	if s.index != nil {
		row := indexdb.RowFor(ent.Name, ent.Path, ent.Size, ent.ModTime, snapshot.FromBuild(s.build), s.build.Spent())
		if _, err := s.index.RecordSave(context.Background(), row); err != nil {
			return ent, err
		}
	}
	return ent, nil
}

func (s *Session) load(ref string) error {
	if s.lib == nil {
		return errors.New("no build library configured")
	}
	b, _, err := s.lib.Load(ref, s.cat, s.rules)
	if err != nil {
		return err
	}
	s.build = b
	return nil
}

// indexRows maps build file paths to their index rows. Lookup failures only
// drop the extra columns from the listing.
func (s *Session) indexRows() map[string]indexdb.BuildRow {
	if s.index == nil {
		return nil
	}
	rows, err := s.index.List(context.Background())
	if err != nil {
		return nil
	}
	out := make(map[string]indexdb.BuildRow, len(rows))
	for _, r := range rows {
		out[r.Path] = r
	}
	return out
}
