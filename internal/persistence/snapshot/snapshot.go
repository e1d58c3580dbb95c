// Package snapshot encodes builds for storage. A saved build is a zstd stream
// holding one JSON header line followed by the JSON body.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/special"
	"perkplanner.dev/internal/planner/tuning"
)

const (
	Format  = "perkplanner.build"
	Version = 1

	// maxDecoded bounds the decompressed size of a build file.
	maxDecoded = 4 << 20
)

type Header struct {
	Format        string `json:"format"`
	Version       int    `json:"version"`
	CatalogDigest string `json:"catalog_digest,omitempty"`
}

type BuildV1 struct {
	Header Header `json:"header"`

	Name       string `json:"name,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	LevelCap   int    `json:"level_cap"`

	Attributes map[string]int `json:"attributes"`
	Bonuses    []string       `json:"bonuses"`
	Perks      []PerkV1       `json:"perks"`
}

type PerkV1 struct {
	ID   string `json:"id"`
	Rank int    `json:"rank"`
}

// digester is implemented by catalogs that can name their content.
type digester interface {
	CatalogDigest() string
}

// FromBuild captures b. The result holds no timestamps, so equal builds
// produce equal payloads.
func FromBuild(b *build.Build) BuildV1 {
	v := BuildV1{
		Header:     Header{Format: Format, Version: Version},
		Name:       b.Name(),
		Gender:     string(b.Gender()),
		Difficulty: string(b.Difficulty()),
		LevelCap:   b.LevelCap(),
		Attributes: make(map[string]int, special.Count),
		Bonuses:    b.ActiveBonuses(),
		Perks:      []PerkV1{},
	}
	if d, ok := b.Catalog().(digester); ok {
		v.Header.CatalogDigest = d.CatalogDigest()
	}
	for _, a := range special.All {
		name, _ := a.MarshalText()
		v.Attributes[string(name)] = b.Base(a)
	}
	for _, sel := range b.Perks() {
		v.Perks = append(v.Perks, PerkV1{ID: sel.ID, Rank: sel.Rank})
	}
	return v
}

func Encode(b *build.Build) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, FromBuild(b)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func write(w io.Writer, v BuildV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(v.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&v); err != nil {
		enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Inspect decodes the structure of a saved build without resolving any
// reference against a catalog.
func Inspect(data []byte) (BuildV1, error) {
	var v BuildV1
	dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderMaxMemory(maxDecoded))
	if err != nil {
		return v, malformed("open zstd stream", err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(io.LimitReader(dec, maxDecoded), 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return v, malformed("read header", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return v, malformed("parse header", err)
	}
	if h.Format != Format {
		return v, malformed(fmt.Sprintf("unknown format %q", h.Format), nil)
	}
	if h.Version != Version {
		return v, malformed(fmt.Sprintf("unsupported version %d", h.Version), nil)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return v, malformed("read body", err)
	}
	if err := validateBody(body); err != nil {
		return v, malformed("invalid body", err)
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, malformed("parse body", err)
	}
	if v.Header != h {
		return v, malformed("header line does not match body", nil)
	}
	seen := map[string]bool{}
	for _, p := range v.Perks {
		if seen[p.ID] {
			return v, malformed(fmt.Sprintf("perk %s listed twice", p.ID), nil)
		}
		seen[p.ID] = true
	}
	return v, nil
}

// Decode rebuilds a build from data. Every field is re-applied through the
// build's own operations, so a decoded build satisfies the same invariants as
// one built by hand. Ids the catalog does not know fail with
// E_UNKNOWN_REFERENCE; anything else wrong fails with E_MALFORMED_DATA.
func Decode(data []byte, cat catalogs.Catalog, rules tuning.Tuning) (*build.Build, error) {
	v, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	return v.Restore(cat, rules)
}

// Restore applies v to a fresh build.
func (v BuildV1) Restore(cat catalogs.Catalog, rules tuning.Tuning) (*build.Build, error) {
	attrs := map[special.Attribute]int{}
	for name, val := range v.Attributes {
		a, ok := attributeByName(name)
		if !ok {
			return nil, unknownRef("attribute", name)
		}
		attrs[a] = val
	}
	groups := map[string]string{}
	for _, id := range v.Bonuses {
		def, ok := cat.Bonus(id)
		if !ok {
			return nil, unknownRef("bonus", id)
		}
		if def.Group == "" {
			continue
		}
		if other, dup := groups[def.Group]; dup && other != id {
			return nil, malformed("bonuses", fmt.Errorf("%s and %s are both in group %s", other, id, def.Group))
		}
		groups[def.Group] = id
	}
	for _, p := range v.Perks {
		if _, ok := cat.Perk(p.ID); !ok {
			return nil, unknownRef("perk", p.ID)
		}
	}

	b := build.New(cat, rules)
	b.SetName(v.Name)
	if v.Gender != "" {
		g, err := build.ParseGender(v.Gender)
		if err != nil {
			return nil, malformed("gender", err)
		}
		b.SetGender(g)
	}
	if v.Difficulty != "" {
		d, err := build.ParseDifficulty(v.Difficulty)
		if err != nil {
			return nil, malformed("difficulty", err)
		}
		b.SetDifficulty(d)
	}

	// Raising from the minimum one attribute at a time only grows the sum,
	// so any order reaches a legal final allocation.
	for _, a := range special.All {
		if val, ok := attrs[a]; ok {
			if err := b.SetBaseAttribute(a, val); err != nil {
				return nil, malformed("attributes", err)
			}
		}
	}
	for _, id := range v.Bonuses {
		if err := b.ActivateBonus(id); err != nil {
			return nil, malformed("bonuses", err)
		}
	}

	// Buy under the widest cap, then narrow to the saved one so the cap
	// check sees the full purchase set.
	if err := b.SetLevelCap(rules.MaxLevel); err != nil {
		return nil, malformed("level cap", err)
	}
	perks := append([]PerkV1(nil), v.Perks...)
	order := map[string]int{}
	for i, id := range cat.PerkIDs() {
		order[id] = i
	}
	sort.SliceStable(perks, func(i, j int) bool { return order[perks[i].ID] < order[perks[j].ID] })
	for _, p := range perks {
		for r := 1; r <= p.Rank; r++ {
			if err := b.PurchasePerkRank(p.ID, r); err != nil {
				return nil, malformed("perks", err)
			}
		}
	}
	if err := b.SetLevelCap(v.LevelCap); err != nil {
		return nil, malformed("level cap", err)
	}
	return b, nil
}

// WriteFile saves b to path atomically.
func WriteFile(path string, b *build.Build) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".build-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp, FromBuild(b)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func ReadFile(path string, cat catalogs.Catalog, rules tuning.Tuning) (*build.Build, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, cat, rules)
}

func attributeByName(name string) (special.Attribute, bool) {
	for _, a := range special.All {
		if n, _ := a.MarshalText(); string(n) == name {
			return a, true
		}
	}
	return 0, false
}

func malformed(what string, err error) error {
	return &build.Error{Code: build.CodeMalformedData, Msg: "malformed build: " + what, Err: err}
}

func unknownRef(kind, id string) error {
	return &build.Error{Code: build.CodeUnknownReference, Msg: fmt.Sprintf("build references unknown %s %q", kind, id)}
}
