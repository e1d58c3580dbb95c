// Package indexdb keeps a queryable SQLite index of saved builds. The build
// files stay the source of truth; the index can always be rebuilt from them.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"perkplanner.dev/internal/persistence/snapshot"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/tuning"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sqlx.DB
}

// BuildRow is one saved build as recorded in the index.
type BuildRow struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	Path          string `db:"path"`
	CatalogDigest string `db:"catalog_digest"`
	LevelCap      int    `db:"level_cap"`
	Spent         int    `db:"spent"`
	Perks         int    `db:"perks"`
	Ranks         int    `db:"ranks"`
	Bonuses       int    `db:"bonuses"`
	Size          int64  `db:"size"`
	SavedAt       string `db:"saved_at"`
}

// Saved parses SavedAt; a bad value reads as the zero time.
func (r BuildRow) Saved() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, r.SavedAt)
	return t
}

// RowFor summarizes a decoded build file.
func RowFor(name, path string, size int64, savedAt time.Time, v snapshot.BuildV1, spent int) BuildRow {
	r := BuildRow{
		Name:          name,
		Path:          path,
		CatalogDigest: v.Header.CatalogDigest,
		LevelCap:      v.LevelCap,
		Spent:         spent,
		Perks:         len(v.Perks),
		Bonuses:       len(v.Bonuses),
		Size:          size,
		SavedAt:       savedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, p := range v.Perks {
		r.Ranks += p.Rank
	}
	return r
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			catalog_digest TEXT NOT NULL,
			level_cap INTEGER NOT NULL,
			spent INTEGER NOT NULL,
			perks INTEGER NOT NULL,
			ranks INTEGER NOT NULL,
			bonuses INTEGER NOT NULL,
			size INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_name ON builds(name);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// RecordSave upserts r by path. A build keeps its id across saves.
func (s *SQLiteIndex) RecordSave(ctx context.Context, r BuildRow) (BuildRow, error) {
	if s == nil {
		return r, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return r, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.GetContext(ctx, &id, `SELECT id FROM builds WHERE path=?`, r.Path)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
	case err != nil:
		return r, err
	default:
		r.ID = id
	}
	if _, err := tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO builds
		(id,name,path,catalog_digest,level_cap,spent,perks,ranks,bonuses,size,saved_at)
		VALUES (:id,:name,:path,:catalog_digest,:level_cap,:spent,:perks,:ranks,:bonuses,:size,:saved_at)`, r); err != nil {
		return r, err
	}
	return r, tx.Commit()
}

// List returns every indexed build, newest first.
func (s *SQLiteIndex) List(ctx context.Context) ([]BuildRow, error) {
	var rows []BuildRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM builds ORDER BY saved_at DESC, name ASC`)
	return rows, err
}

// Get finds a build by name. ok is false when none is indexed.
func (s *SQLiteIndex) Get(ctx context.Context, name string) (BuildRow, bool, error) {
	var r BuildRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM builds WHERE name=? ORDER BY saved_at DESC LIMIT 1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	return r, err == nil, err
}

// Prune deletes rows whose path is not in keep and reports how many went.
func (s *SQLiteIndex) Prune(ctx context.Context, keep []string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var paths []string
	if err := tx.SelectContext(ctx, &paths, `SELECT path FROM builds`); err != nil {
		return 0, err
	}
	want := make(map[string]bool, len(keep))
	for _, p := range keep {
		want[p] = true
	}
	n := 0
	for _, p := range paths {
		if want[p] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM builds WHERE path=?`, p); err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

// UpsertCatalogs records the reference data builds were indexed against.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	{
		defs := make([]catalogs.PerkDef, 0, len(cats.Perks.Order))
		for _, id := range cats.Perks.Order {
			defs = append(defs, cats.Perks.ByID[id])
		}
		if b, _ := json.Marshal(defs); len(b) > 0 {
			rows = append(rows, kv{name: "perks", digest: cats.Perks.Digest, json: b})
		}
	}
	{
		defs := make([]catalogs.BonusDef, 0, len(cats.Bonuses.Order))
		for _, id := range cats.Bonuses.Order {
			defs = append(defs, cats.Bonuses.ByID[id])
		}
		if b, _ := json.Marshal(defs); len(b) > 0 {
			rows = append(rows, kv{name: "bonuses", digest: cats.Bonuses.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		rows = append(rows, kv{name: "tuning", digest: TuningDigest(tune), json: b})
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TuningDigest is the digest recorded for tune.
func TuningDigest(tune tuning.Tuning) string {
	b, _ := json.Marshal(tune)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CatalogDigest returns the recorded digest for name, or "".
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.GetContext(ctx, &d, `SELECT digest FROM catalogs WHERE name=?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return d, err
}
