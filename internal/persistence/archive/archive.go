// Package archive keeps the previous copy of a build file before it is
// overwritten.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"perkplanner.dev/internal/persistence/snapshot"
)

// Dir is the library subdirectory archived copies live under.
const Dir = "archive"

type Meta struct {
	Name          string `json:"name"`
	Source        string `json:"source"`
	Copy          string `json:"copy"`
	CatalogDigest string `json:"catalog_digest,omitempty"`
	LevelCap      int    `json:"level_cap"`
	Perks         int    `json:"perks"`
	ArchivedAt    string `json:"archived_at"`
}

// ArchiveBuild copies the build file at path into
// `libDir/archive/<name>/<stamp>.build` and writes a meta.json beside it.
// It returns archived=false when there is nothing at path yet.
func ArchiveBuild(libDir, path string, now time.Time) (archivedPath string, archived bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	archiveDir := filepath.Join(libDir, Dir, name)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	stamp := now.UTC().Format("20060102T150405.000000000Z")
	dst := filepath.Join(archiveDir, stamp+ext)
	if err := copyFile(path, dst); err != nil {
		return "", false, err
	}

	meta := Meta{
		Name:       name,
		Source:     path,
		Copy:       filepath.Base(dst),
		ArchivedAt: now.UTC().Format(time.RFC3339Nano),
	}
	// Unreadable files are archived as-is; the meta just has less in it.
	if v, err := snapshot.Inspect(data); err == nil {
		meta.CatalogDigest = v.Header.CatalogDigest
		meta.LevelCap = v.LevelCap
		meta.Perks = len(v.Perks)
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return dst, true, nil
}

// Copies lists the archived copies of name, oldest first.
func Copies(libDir, name string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(libDir, Dir, name, "*.build"))
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}
	return matches, nil
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
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
