package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"perkplanner.dev/internal/config"
	"perkplanner.dev/internal/persistence/indexdb"
	"perkplanner.dev/internal/persistence/library"
	persistlog "perkplanner.dev/internal/persistence/log"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/tuning"
	"perkplanner.dev/internal/transport/cli"
)

func main() { os.Exit(run()) }

func run() int {
	var (
		envFile    = flag.String("env", ".env", "dotenv file read before the environment (ignored if missing)")
		configDir  = flag.String("configs", "", "config directory (default: $PERKPLANNER_CONFIG_DIR or ./configs)")
		dataDir    = flag.String("data", "", "data directory for builds, index and journal")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		noColor    = flag.Bool("nocolor", false, "disable colored output")
		noIndex    = flag.Bool("no_index", false, "do not record saves in the sqlite index")
		noJournal  = flag.Bool("no_journal", false, "do not journal session commands")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [build]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stdout, "[perkplanner] ", log.LstdFlags)

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if *configDir != "" {
		cfg.ConfigDir = *configDir
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
		cfg.IndexDB = filepath.Join(cfg.DataDir, "index.db")
		cfg.JournalDir = filepath.Join(cfg.DataDir, "journal")
	}
	cfg.NoIndex = cfg.NoIndex || *noIndex
	cfg.NoJournal = cfg.NoJournal || *noJournal

	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	// The index is a read model; planning works without it.
	var idx *indexdb.SQLiteIndex
	if !cfg.NoIndex {
		idx, err = indexdb.OpenSQLite(cfg.IndexDB)
		if err != nil {
			logger.Printf("index disabled: %v", err)
			idx = nil
		} else {
			defer idx.Close()
			if err := idx.UpsertCatalogs(context.Background(), cats, tune); err != nil {
				logger.Printf("index catalogs: %v", err)
			}
		}
	}
	var journal *persistlog.Journal
	if !cfg.NoJournal {
		journal = persistlog.NewJournal(cfg.JournalDir)
		defer journal.Close()
	}

	sess := cli.NewSession(cli.Options{
		Catalogs: cats,
		Rules:    tune,
		Library:  library.New(cfg.BuildsDir()),
		Index:    idx,
		Journal:  journal,
		Color:    cfg.Color() && !*noColor,
	})

	// From here on, return instead of exiting so the index and journal close.
	if err := loadInitial(sess, flag.Arg(0)); err != nil {
		logger.Print(err)
		return 1
	}
	return repl(sess, os.Stdin, os.Stdout)
}

// loadInitial loads the build named on the command line, if any.
func loadInitial(sess *cli.Session, ref string) error {
	if ref == "" {
		return nil
	}
	if res := sess.Exec("load " + ref); res.Err != nil {
		return fmt.Errorf("load %s: %w", ref, res.Err)
	}
	return nil
}

func repl(sess *cli.Session, in io.Reader, out io.Writer) int {
	sc := bufio.NewScanner(in)
	fmt.Fprintln(out, sess.View())
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			if err := sc.Err(); err != nil {
				fmt.Fprintln(os.Stderr, "read:", err)
				return 1
			}
			return 0
		}
		res := sess.Exec(sc.Text())
		if res.Exit {
			return 0
		}
		if res.Err != nil {
			fmt.Fprintln(out, "error:", res.Err)
			continue
		}
		if res.Detail != "" {
			fmt.Fprintln(out, res.Detail)
		}
		if res.Message != "" {
			fmt.Fprintln(out, res.Message)
		}
		if res.Detail == "" && strings.TrimSpace(sc.Text()) != "" {
			fmt.Fprintln(out, sess.View())
		}
	}
}
