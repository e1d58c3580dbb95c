package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"perkplanner.dev/internal/persistence/library"
	persistlog "perkplanner.dev/internal/persistence/log"
	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/tuning"
	"perkplanner.dev/internal/transport/cli"
)

func main() {
	var (
		journalDir = flag.String("journal", "", "journal directory containing session-*.jsonl.zst")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		buildsDir  = flag.String("builds", "", "build library to seed the scratch library from (optional)")
		sessionID  = flag.String("session", "", "replay only this session id (optional)")
		verbose    = flag.Bool("v", false, "print every replayed command")
	)
	flag.Parse()

	if *journalDir == "" {
		fmt.Fprintln(os.Stderr, "missing -journal")
		os.Exit(2)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	files, err := persistlog.JournalFiles(*journalDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *journalDir)
		os.Exit(1)
	}

	sessions, order, err := readSessions(files, *sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}

	// Saves and loads run against a scratch copy of the library.
	scratch, err := os.MkdirTemp("", "perkplanner-replay-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, "scratch dir:", err)
		os.Exit(1)
	}
	defer os.RemoveAll(scratch)
	if *buildsDir != "" {
		if err := seedLibrary(*buildsDir, scratch); err != nil {
			fmt.Fprintln(os.Stderr, "seed library:", err)
			os.Exit(1)
		}
	}
	lib := library.New(scratch)

	var checked int
	for _, id := range order {
		sess := cli.NewSession(cli.Options{Catalogs: cats, Rules: tune, Library: lib})
		sess.SetID(id)
		for _, e := range sessions[id] {
			res := sess.Exec(e.Line)
			if *verbose {
				fmt.Printf("%s #%d %q ok=%v\n", id, e.Seq, e.Line, res.Err == nil)
			}
			if err := compare(e, res, sess.Build()); err != nil {
				fmt.Fprintf(os.Stderr, "replay: session %s seq %d %q: %v\n", id, e.Seq, e.Line, err)
				os.Exit(1)
			}
			checked++
		}
	}
	fmt.Printf("replay ok: checked=%d commands in %d sessions (%d files)\n", checked, len(order), len(files))
}

// readSessions groups journal entries by session, in the order sessions first
// appear, with each session sorted by sequence number.
func readSessions(files []string, only string) (map[string][]persistlog.Entry, []string, error) {
	sessions := map[string][]persistlog.Entry{}
	var order []string
	for _, path := range files {
		entries, err := persistlog.ReadJournal(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		for _, e := range entries {
			if only != "" && e.Session != only {
				continue
			}
			if _, ok := sessions[e.Session]; !ok {
				order = append(order, e.Session)
			}
			sessions[e.Session] = append(sessions[e.Session], e)
		}
	}
	for _, id := range order {
		s := sessions[id]
		sort.SliceStable(s, func(i, j int) bool { return s[i].Seq < s[j].Seq })
	}
	return sessions, order, nil
}

func compare(e persistlog.Entry, res cli.Result, b *build.Build) error {
	ok := res.Err == nil
	if ok != e.OK {
		return fmt.Errorf("outcome mismatch: got ok=%v (%v) want ok=%v (%s)", ok, res.Err, e.OK, e.Message)
	}
	if code := build.CodeOf(res.Err); code != e.Code {
		return fmt.Errorf("code mismatch: got=%q want=%q", code, e.Code)
	}
	if b.Spent() != e.Spent || b.LevelCap() != e.LevelCap {
		return fmt.Errorf("budget mismatch: got=%d/%d want=%d/%d", b.Spent(), b.LevelCap(), e.Spent, e.LevelCap)
	}
	return nil
}

func seedLibrary(src, dst string) error {
	ents, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, de := range ents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), library.Ext) {
			continue
		}
		if err := copyFile(filepath.Join(src, de.Name()), filepath.Join(dst, de.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
