package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"perkplanner.dev/internal/config"
	"perkplanner.dev/internal/persistence/indexdb"
	"perkplanner.dev/internal/persistence/library"
	"perkplanner.dev/internal/persistence/snapshot"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/sheet"
	"perkplanner.dev/internal/planner/tuning"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "show":
			showCmd(os.Args[2:])
			return
		case "reindex":
			reindexCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

type env struct {
	cfg  config.Config
	cats *catalogs.Catalogs
	tune tuning.Tuning
}

// commonFlags registers the flags every subcommand shares and returns a
// loader to call after fs.Parse.
func commonFlags(fs *flag.FlagSet) func() env {
	envFile := fs.String("env", ".env", "dotenv file (ignored if missing)")
	dataDir := fs.String("data", "", "data directory (default: $PERKPLANNER_DATA_DIR)")
	configDir := fs.String("configs", "", "config directory (default: $PERKPLANNER_CONFIG_DIR or ./configs)")
	return func() env {
		cfg, err := config.Load(*envFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		if *dataDir != "" {
			cfg.DataDir = *dataDir
			cfg.IndexDB = filepath.Join(cfg.DataDir, "index.db")
		}
		if *configDir != "" {
			cfg.ConfigDir = *configDir
		}
		cats, err := catalogs.Load(cfg.ConfigDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load catalogs:", err)
			os.Exit(1)
		}
		tune, err := tuning.Load(filepath.Join(cfg.ConfigDir, "tuning.yaml"))
		if os.IsNotExist(err) {
			tune, err = tuning.Defaults(), nil
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		return env{cfg: cfg, cats: cats, tune: tune}
	}
}

func openIndex(cfg config.Config) *indexdb.SQLiteIndex {
	idx, err := indexdb.OpenSQLite(cfg.IndexDB)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	return idx
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	load := commonFlags(fs)
	_ = fs.Parse(args)
	e := load()

	entries, err := library.New(e.cfg.BuildsDir()).List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	now := time.Now()
	for _, ent := range entries {
		fmt.Printf("%-24s %8s  %s\n", ent.Name, humanize.Bytes(uint64(ent.Size)), humanize.RelTime(ent.ModTime, now, "ago", "from now"))
	}
}

func showCmd(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	load := commonFlags(fs)
	asJSON := fs.Bool("json", false, "print the decoded file as JSON")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: admin show [flags] <build>")
		os.Exit(2)
	}
	e := load()

	path, err := library.New(e.cfg.BuildsDir()).Resolve(strings.Join(fs.Args(), " "))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	v, err := snapshot.Inspect(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, "inspect:", err)
		os.Exit(1)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}

	fmt.Printf("file      %s (%s compressed)\n", path, humanize.Bytes(uint64(len(data))))
	fmt.Printf("format    %s v%d\n", v.Header.Format, v.Header.Version)
	stale := ""
	if v.Header.CatalogDigest != "" && v.Header.CatalogDigest != e.cats.Digest {
		stale = " (catalogs changed since save)"
	}
	fmt.Printf("catalogs  %s%s\n", v.Header.CatalogDigest, stale)

	b, err := v.Restore(e.cats, e.tune)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	s := sheet.Project(b, e.cats)
	fmt.Printf("build     %q %s, %s\n", s.Name, s.Gender, s.Difficulty)
	fmt.Printf("levels    %d of %d spent, required level %d\n", s.Spent, s.LevelCap, s.Stats.RequiredLevel)
	for _, a := range s.Attributes {
		fmt.Printf("  %-12s %2d (%d)\n", a.Attribute, a.Base, a.Effective)
	}
	for _, sel := range b.Perks() {
		fmt.Printf("  %-24s rank %d\n", b.PerkName(sel.ID), sel.Rank)
	}
	for _, id := range b.ActiveBonuses() {
		fmt.Printf("  + %s\n", id)
	}
}

// reindexCmd rebuilds the index from the files in the build library.
func reindexCmd(args []string) {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	load := commonFlags(fs)
	_ = fs.Parse(args)
	e := load()

	ctx := context.Background()
	idx := openIndex(e.cfg)
	defer idx.Close()

	entries, err := library.New(e.cfg.BuildsDir()).List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	var indexed, skipped int
	keep := make([]string, 0, len(entries))
	for _, ent := range entries {
		data, err := os.ReadFile(ent.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", ent.Name, err)
			skipped++
			continue
		}
		v, err := snapshot.Inspect(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", ent.Name, err)
			skipped++
			continue
		}
		b, err := v.Restore(e.cats, e.tune)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", ent.Name, err)
			skipped++
			continue
		}
		if _, err := idx.RecordSave(ctx, indexdb.RowFor(ent.Name, ent.Path, ent.Size, ent.ModTime, v, b.Spent())); err != nil {
			fmt.Fprintln(os.Stderr, "record:", err)
			os.Exit(1)
		}
		keep = append(keep, ent.Path)
		indexed++
	}
	pruned, err := idx.Prune(ctx, keep)
	if err != nil {
		fmt.Fprintln(os.Stderr, "prune:", err)
		os.Exit(1)
	}
	if err := idx.UpsertCatalogs(ctx, e.cats, e.tune); err != nil {
		fmt.Fprintln(os.Stderr, "catalogs:", err)
		os.Exit(1)
	}
	fmt.Printf("reindex ok: indexed=%d skipped=%d pruned=%d db=%s\n", indexed, skipped, pruned, e.cfg.IndexDB)
}
