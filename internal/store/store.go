// Package store keeps per-category GeoJSON feature collections on local disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/woozymasta/gpsmarker/internal/fsutil"
	"github.com/woozymasta/gpsmarker/internal/geo"

	"github.com/rs/zerolog/log"
)

// LabelKey is the collection property holding the category label.
const LabelKey = "Type"

// ErrPersistence is returned when a collection cannot be written to disk.
var ErrPersistence = errors.New("persistence error")

// Store is a FeatureCollection backed by a single file.
// It is not safe for concurrent use.
type Store struct {
	fc   *geo.FeatureCollection
	path string
}

// Load reads the collection at path. A missing or unparsable file yields an
// empty collection; absence is not an error.
func Load(path string) *Store {
	s := &Store{path: path, fc: geo.NewFeatureCollection()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Collection unreadable, starting empty")
		}
		return s
	}

	fc, err := geo.ParseFeatureCollection(data)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Collection unparsable, starting empty")
		return s
	}

	log.Debug().
		Str("path", path).
		Int("features", len(fc.Features)).
		Msg("Collection loaded")

	s.fc = fc
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Collection returns the in-memory collection.
func (s *Store) Collection() *geo.FeatureCollection { return s.fc }

// Len returns the number of stored features.
func (s *Store) Len() int { return len(s.fc.Features) }

// SetLabel sets the collection "Type" property.
func (s *Store) SetLabel(label string) {
	if label == "" {
		return
	}
	s.fc.Properties[LabelKey] = label
}

// Append adds a feature at the end of the collection. Duplicates are kept.
func (s *Store) Append(f geo.Feature) {
	s.fc.Features = append(s.fc.Features, f)
}

// Persist serializes the whole collection and replaces the backing file.
// The write goes through a temporary file in the same directory and a rename.
func (s *Store) Persist() error {
	data, err := json.Marshal(s.fc)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersistence, s.path, err)
	}

	if err := fsutil.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Debug().
		Str("path", s.path).
		Int("features", len(s.fc.Features)).
		Int("bytes", len(data)).
		Msg("Collection persisted")

	return nil
}

// Clear deletes the backing file and empties the in-memory collection,
// keeping its properties. It reports whether a file was removed.
func (s *Store) Clear() (bool, error) {
	removed, err := Remove(s.path)
	if err != nil {
		return false, err
	}

	s.fc.Features = []geo.Feature{}
	return removed, nil
}

// Remove deletes a collection file. A missing file is not an error.
func Remove(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	log.Debug().Str("path", path).Msg("Collection removed")
	return true, nil
}
