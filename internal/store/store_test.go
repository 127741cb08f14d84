package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/woozymasta/gpsmarker/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointFeature(t *testing.T, lat, lon float64) geo.Feature {
	t.Helper()
	f, err := geo.NewFeature(geo.Point, map[string]string{"surface": "paved"}, geo.Sample{
		Latitude:   lat,
		Longitude:  lon,
		CapturedAt: time.Now(),
	})
	require.NoError(t, err)
	return f
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "none-collection.json"))

	fc := s.Collection()
	assert.Equal(t, geo.CollectionType, fc.Type)
	assert.Empty(t, fc.Features)
	assert.NotNil(t, fc.Features)
}

func TestLoadUnparsableFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad-collection.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := Load(path)
	assert.Equal(t, 0, s.Len())
}

func TestPersistEmptyIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidewalk-collection.json")

	s := Load(path)
	require.NoError(t, s.Persist())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	again := Load(path)
	assert.Equal(t, s.Collection(), again.Collection())

	require.NoError(t, again.Persist())
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAppendPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curbramp-collection.json")
	s := Load(path)
	s.SetLabel("CurbRamps")

	for i := 0; i < 3; i++ {
		s.Append(pointFeature(t, 47+float64(i), -122))
		require.NoError(t, s.Persist())

		reloaded := Load(path)
		assert.Equal(t, s.Collection(), reloaded.Collection())
	}

	reloaded := Load(path)
	require.Equal(t, 3, reloaded.Len())
	assert.Equal(t, 47.0, reloaded.Collection().Features[0].Geometry.Coordinates[0].Lat())
	assert.Equal(t, 49.0, reloaded.Collection().Features[2].Geometry.Coordinates[0].Lat())
	assert.Equal(t, "CurbRamps", reloaded.Collection().Properties[LabelKey])
}

func TestAppendDoesNotDeduplicate(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "x-collection.json"))
	f := pointFeature(t, 1, 1)
	s.Append(f)
	s.Append(f)
	assert.Equal(t, 2, s.Len())
}

func TestPersistFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s := Load(filepath.Join(blocker, "sidewalk-collection.json"))
	s.Append(pointFeature(t, 1, 1))

	err := s.Persist()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := Load(filepath.Join(dir, "crossing-collection.json"))
	s.Append(pointFeature(t, 1, 1))
	require.NoError(t, s.Persist())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "crossing-collection.json", entries[0].Name())
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidewalk-collection.json")
	s := Load(path)
	s.Append(pointFeature(t, 1, 1))
	require.NoError(t, s.Persist())

	removed, err := s.Clear()
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, s.Len())
	assert.NoFileExists(t, path)

	removed, err = s.Clear()
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLoadRejectsMalformedPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curbramp-collection.json")
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[-122.3]},"properties":{}}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	s := Load(path)
	assert.Equal(t, 0, s.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}
