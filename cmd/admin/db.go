package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"perkplanner.dev/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	load := commonFlags(fs)
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "builds"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	e := load()

	ctx := context.Background()
	idx := openIndex(e.cfg)
	defer idx.Close()

	switch q {
	case "builds":
		rows, err := idx.List(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		if *limit > 0 && len(rows) > *limit {
			rows = rows[:*limit]
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "catalogs":
		for _, name := range []string{"perks", "bonuses", "tuning"} {
			d, err := idx.CatalogDigest(ctx, name)
			if err != nil {
				fmt.Fprintln(os.Stderr, "query:", err)
				os.Exit(1)
			}
			printJSON(struct {
				Name    string `json:"name"`
				Digest  string `json:"digest"`
				Current bool   `json:"current"`
			}{name, d, d != "" && d == currentDigest(e, name)})
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
}

func currentDigest(e env, name string) string {
	switch name {
	case "perks":
		return e.cats.Perks.Digest
	case "bonuses":
		return e.cats.Bonuses.Digest
	case "tuning":
		return indexdb.TuningDigest(e.tune)
	}
	return ""
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
