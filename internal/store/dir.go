package store

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// FileSuffix is appended to a category name to form its collection file name.
const FileSuffix = "-collection.json"

// Dir resolves category collections inside a data directory.
type Dir struct {
	Root string
}

// NewDir returns a Dir rooted at root.
func NewDir(root string) Dir {
	return Dir{Root: root}
}

// Path returns the collection file path of a category.
func (d Dir) Path(category string) string {
	return filepath.Join(d.Root, category+FileSuffix)
}

// Open loads the collection of a category and applies its label.
func (d Dir) Open(category, label string) *Store {
	s := Load(d.Path(category))
	s.SetLabel(label)
	return s
}

// Exists reports whether the category has a backing file.
func (d Dir) Exists(category string) bool {
	info, err := os.Stat(d.Path(category))
	return err == nil && !info.IsDir()
}

// ClearResult describes the outcome of clearing one category.
type ClearResult struct {
	Err      error
	Category string
	Path     string
	Removed  bool
}

// Clear deletes the collection file of every category in the set.
// Categories are processed in name order and a failure on one does not stop
// the rest.
func (d Dir) Clear(categories map[string]struct{}) []ClearResult {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]ClearResult, 0, len(names))
	for _, name := range names {
		path := d.Path(name)
		removed, err := Remove(path)
		if err != nil {
			log.Error().Err(err).Str("category", name).Str("path", path).Msg("Failed to clear collection")
		}
		results = append(results, ClearResult{
			Category: name,
			Path:     path,
			Removed:  removed,
			Err:      err,
		})
	}

	return results
}

// CategorySet builds a set from category names, dropping duplicates.
func CategorySet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
