// Package library manages the directory of saved builds.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"perkplanner.dev/internal/persistence/archive"
	"perkplanner.dev/internal/persistence/snapshot"
	"perkplanner.dev/internal/planner/build"
	"perkplanner.dev/internal/planner/catalogs"
	"perkplanner.dev/internal/planner/tuning"
)

// Ext is the extension of saved build files.
const Ext = ".build"

type Library struct {
	Dir string
}

func New(dir string) *Library { return &Library{Dir: dir} }

// Entry describes one saved build on disk.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Path returns the file a build called name is saved to.
func (l *Library) Path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("a build name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid build name: %q", name)
	}
	return filepath.Join(l.Dir, name+Ext), nil
}

// Resolve finds the file ref names: ref as given, ref with the extension,
// then the same two inside the library directory.
func (l *Library) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("you must specify a build")
	}
	candidates := []string{ref, ref + Ext}
	if !filepath.IsAbs(ref) {
		candidates = append(candidates, filepath.Join(l.Dir, ref), filepath.Join(l.Dir, ref+Ext))
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && st.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("unable to find build file for %q", ref)
}

// Save writes b under name and returns the written entry. A file already
// saved under name is archived first.
func (l *Library) Save(name string, b *build.Build) (Entry, error) {
	path, err := l.Path(name)
	if err != nil {
		return Entry{}, err
	}
	if _, _, err := archive.ArchiveBuild(l.Dir, path, time.Now()); err != nil {
		return Entry{}, fmt.Errorf("archive previous %s: %w", name, err)
	}
	if err := snapshot.WriteFile(path, b); err != nil {
		return Entry{}, err
	}
	return stat(path)
}

// Load resolves ref and decodes it against cat.
func (l *Library) Load(ref string, cat catalogs.Catalog, rules tuning.Tuning) (*build.Build, Entry, error) {
	path, err := l.Resolve(ref)
	if err != nil {
		return nil, Entry{}, err
	}
	b, err := snapshot.ReadFile(path, cat, rules)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	e, err := stat(path)
	return b, e, err
}

// List returns every saved build, sorted by name. A missing directory is an
// empty library.
func (l *Library) List() ([]Entry, error) {
	ents, err := os.ReadDir(l.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, de := range ents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), Ext) || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		e, err := stat(filepath.Join(l.Dir, de.Name()))
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func stat(path string) (Entry, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:    strings.TrimSuffix(filepath.Base(path), Ext),
		Path:    path,
		Size:    st.Size(),
		ModTime: st.ModTime(),
	}, nil
}
