package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/woozymasta/gpsmarker/internal/geo"
	"github.com/woozymasta/gpsmarker/internal/location"
	"github.com/woozymasta/gpsmarker/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixQueue hands out queued fixes in order; an empty queue means no fix.
type fixQueue struct {
	fixes []geo.Sample
	calls int
}

func (q *fixQueue) CurrentFix(context.Context) (geo.Sample, error) {
	q.calls++
	if len(q.fixes) == 0 {
		return geo.Sample{}, location.ErrNoFix
	}
	f := q.fixes[0]
	q.fixes = q.fixes[1:]
	return f, nil
}

func (q *fixQueue) push(fixes ...geo.Sample) { q.fixes = append(q.fixes, fixes...) }

type memStore struct {
	err      error
	features []geo.Feature
	persists int
}

func (m *memStore) Append(f geo.Feature) { m.features = append(m.features, f) }

func (m *memStore) Persist() error {
	m.persists++
	return m.err
}

type surfaceCall struct {
	op string
	id string
}

type recordingSurface struct {
	calls []surfaceCall
}

func (r *recordingSurface) AddAnnotation(id, _ string, _ geo.Sample) {
	r.calls = append(r.calls, surfaceCall{"add", id})
}
func (r *recordingSurface) RemoveAnnotation(id string) {
	r.calls = append(r.calls, surfaceCall{"remove", id})
}
func (r *recordingSurface) AddOverlay(_, _ geo.Sample) {
	r.calls = append(r.calls, surfaceCall{"overlay", ""})
}
func (r *recordingSurface) Clear() { r.calls = append(r.calls, surfaceCall{"clear", ""}) }

func fix(lat, lon, hacc float64) geo.Sample {
	return geo.Sample{Latitude: lat, Longitude: lon, HorizontalAccuracy: hacc, VerticalAccuracy: 3}
}

func newSession(t *testing.T, g geo.GeometryType, q *fixQueue, st Store, sf Surface) *Session {
	t.Helper()
	ids := 0
	s, err := New(Options{
		Category: "test",
		Geometry: g,
		Provider: q,
		Store:    st,
		Surface:  sf,
		NewID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	})
	require.NoError(t, err)
	return s
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{Geometry: "Polygon", Provider: &fixQueue{}, Store: &memStore{}})
	assert.Error(t, err)

	_, err = New(Options{Geometry: geo.Point, Store: &memStore{}})
	assert.Error(t, err)

	_, err = New(Options{Geometry: geo.Point, Provider: &fixQueue{}})
	assert.Error(t, err)
}

func TestPointCaptureCommit(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(47.65, -122.30, 5))
	st := &memStore{}
	s := newSession(t, geo.Point, q, st, nil)

	require.NoError(t, s.CapturePoint(context.Background()))
	assert.Equal(t, Completed, s.State())

	f, err := s.Commit(map[string]string{"curb ramp type": "blended"})
	require.NoError(t, err)

	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.Samples())
	require.Len(t, st.features, 1)
	assert.Equal(t, 1, st.persists)

	got := st.features[0]
	assert.Equal(t, f, got)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, geo.Point, got.Geometry.Type)
	assert.Equal(t, []geo.Position{{-122.30, 47.65}}, got.Geometry.Coordinates)
	assert.Equal(t, "blended", got.Properties["curb ramp type"])
}

func TestLineCaptureCommit(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(47.60, -122.33, 3), fix(47.61, -122.34, 4))
	st := &memStore{}
	sf := &recordingSurface{}
	s := newSession(t, geo.LineString, q, st, sf)

	require.NoError(t, s.CaptureStart(context.Background()))
	assert.Equal(t, StartCaptured, s.State())

	require.NoError(t, s.CaptureEnd(context.Background()))
	assert.Equal(t, Completed, s.State())

	_, err := s.Commit(nil)
	require.NoError(t, err)

	require.Len(t, st.features, 1)
	line := st.features[0]
	assert.Equal(t, geo.LineString, line.Geometry.Type)
	assert.Equal(t, []geo.Position{{-122.33, 47.60}, {-122.34, 47.61}}, line.Geometry.Coordinates)

	assert.Equal(t, []surfaceCall{
		{"add", AnnotationStart},
		{"add", AnnotationEnd},
		{"overlay", ""},
		{"clear", ""},
	}, sf.calls)
}

func TestSecondStartReplacesPendingStart(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 2), fix(2, 2, 2), fix(3, 3, 2))
	st := &memStore{}
	sf := &recordingSurface{}
	s := newSession(t, geo.LineString, q, st, sf)

	require.NoError(t, s.CaptureStart(context.Background()))
	require.NoError(t, s.CaptureStart(context.Background()))
	assert.Equal(t, StartCaptured, s.State())
	require.Len(t, s.Samples(), 1)
	assert.Equal(t, 2.0, s.Samples()[0].Latitude)

	require.NoError(t, s.CaptureEnd(context.Background()))
	_, err := s.Commit(nil)
	require.NoError(t, err)
	assert.Equal(t, []geo.Position{{2, 2}, {3, 3}}, st.features[0].Geometry.Coordinates)

	assert.Equal(t, surfaceCall{"remove", AnnotationStart}, sf.calls[1])
}

func TestSecondPointReplacesSample(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 2), fix(2, 2, 2))
	st := &memStore{}
	s := newSession(t, geo.Point, q, st, nil)

	require.NoError(t, s.CapturePoint(context.Background()))
	require.NoError(t, s.CapturePoint(context.Background()))
	_, err := s.Commit(nil)
	require.NoError(t, err)
	assert.Equal(t, []geo.Position{{2, 2}}, st.features[0].Geometry.Coordinates)
}

func TestLocationUnavailableAbortsWithoutStateChange(t *testing.T) {
	q := &fixQueue{}
	st := &memStore{}
	s := newSession(t, geo.LineString, q, st, nil)

	err := s.CaptureStart(context.Background())
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Equal(t, Idle, s.State())

	q.push(fix(1, 1, 1))
	require.NoError(t, s.CaptureStart(context.Background()))

	err = s.CaptureEnd(context.Background())
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Equal(t, StartCaptured, s.State())
	assert.Len(t, s.Samples(), 1)
}

func TestInvalidSampleIsUnavailable(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, -3))
	s := newSession(t, geo.Point, q, &memStore{}, nil)

	err := s.CapturePoint(context.Background())
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Equal(t, Idle, s.State())
}

func TestAccuracyGate(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 10))
	s := newSession(t, geo.Point, q, &memStore{}, nil)

	require.NoError(t, s.CapturePoint(context.Background()))
	assert.Equal(t, Completed, s.State())
	_, pending := s.Decision()
	assert.False(t, pending)

	q2 := &fixQueue{}
	q2.push(fix(1, 1, 12))
	s2 := newSession(t, geo.Point, q2, &memStore{}, nil)

	err := s2.CapturePoint(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLowAccuracy)

	var low *LowAccuracyError
	require.True(t, errors.As(err, &low))
	assert.Equal(t, 12.0, low.Sample.HorizontalAccuracy)
	assert.Equal(t, 11.0, low.Threshold)
	assert.Equal(t, StepPoint, low.Step)
	assert.Equal(t, Idle, s2.State())
}

func TestProceedUsesRejectedSample(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(5, 6, 25), fix(9, 9, 1))
	st := &memStore{}
	s := newSession(t, geo.Point, q, st, nil)

	err := s.CapturePoint(context.Background())
	require.ErrorIs(t, err, ErrLowAccuracy)
	calls := q.calls

	require.NoError(t, s.Proceed())
	assert.Equal(t, calls, q.calls, "proceed must not fetch a new fix")
	assert.Equal(t, Completed, s.State())

	_, err = s.Commit(nil)
	require.NoError(t, err)
	assert.Equal(t, []geo.Position{{6, 5}}, st.features[0].Geometry.Coordinates)

	assert.ErrorIs(t, s.Proceed(), ErrNoDecision)
}

func TestProceedLineSteps(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 30), fix(2, 2, 40))
	st := &memStore{}
	s := newSession(t, geo.LineString, q, st, nil)

	require.ErrorIs(t, s.CaptureStart(context.Background()), ErrLowAccuracy)
	require.NoError(t, s.Proceed())
	assert.Equal(t, StartCaptured, s.State())

	require.ErrorIs(t, s.CaptureEnd(context.Background()), ErrLowAccuracy)
	assert.Equal(t, StartCaptured, s.State())
	require.NoError(t, s.Proceed())
	assert.Equal(t, Completed, s.State())

	_, err := s.Commit(nil)
	require.NoError(t, err)
	assert.Equal(t, []geo.Position{{1, 1}, {2, 2}}, st.features[0].Geometry.Coordinates)
}

func TestRetryDropsDecision(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 30), fix(2, 2, 3))
	s := newSession(t, geo.Point, q, &memStore{}, nil)

	require.ErrorIs(t, s.CapturePoint(context.Background()), ErrLowAccuracy)
	require.NoError(t, s.Retry())
	assert.Equal(t, Idle, s.State())
	assert.ErrorIs(t, s.Retry(), ErrNoDecision)

	require.NoError(t, s.CapturePoint(context.Background()))
	assert.Equal(t, 2.0, s.Samples()[0].Latitude)
}

func TestNewCaptureReplacesDecision(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 30), fix(2, 2, 3))
	s := newSession(t, geo.Point, q, &memStore{}, nil)

	require.ErrorIs(t, s.CapturePoint(context.Background()), ErrLowAccuracy)
	require.NoError(t, s.CapturePoint(context.Background()))

	_, pending := s.Decision()
	assert.False(t, pending)
	assert.Equal(t, 2.0, s.Samples()[0].Latitude)
}

func TestCancel(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 1), fix(2, 2, 1), fix(3, 3, 1))
	st := &memStore{}
	sf := &recordingSurface{}
	s := newSession(t, geo.LineString, q, st, sf)

	assert.ErrorIs(t, s.Cancel(), ErrInvalidState)

	require.NoError(t, s.CaptureStart(context.Background()))
	require.NoError(t, s.Cancel())
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.Samples())

	require.NoError(t, s.CaptureStart(context.Background()))
	require.NoError(t, s.CaptureEnd(context.Background()))
	require.NoError(t, s.Cancel())
	assert.Equal(t, Idle, s.State())

	assert.Empty(t, st.features)
	assert.Equal(t, 0, st.persists)
	assert.Equal(t, surfaceCall{"clear", ""}, sf.calls[len(sf.calls)-1])
}

func TestCancelPendingDecision(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 50))
	s := newSession(t, geo.Point, q, &memStore{}, nil)

	require.ErrorIs(t, s.CapturePoint(context.Background()), ErrLowAccuracy)
	require.NoError(t, s.Cancel())
	assert.ErrorIs(t, s.Proceed(), ErrNoDecision)
}

func TestInvalidTransitions(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 1), fix(2, 2, 1))
	line := newSession(t, geo.LineString, q, &memStore{}, nil)

	assert.ErrorIs(t, line.CaptureEnd(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, line.CapturePoint(context.Background()), ErrInvalidState)
	_, err := line.Commit(nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, line.CaptureStart(context.Background()))
	_, err = line.Commit(nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StartCaptured, line.State())

	require.NoError(t, line.CaptureEnd(context.Background()))
	assert.ErrorIs(t, line.CaptureStart(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, line.CaptureEnd(context.Background()), ErrInvalidState)

	point := newSession(t, geo.Point, &fixQueue{}, &memStore{}, nil)
	assert.ErrorIs(t, point.CaptureStart(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, point.CaptureEnd(context.Background()), ErrInvalidState)
}

func TestCommitFailureStillResets(t *testing.T) {
	q := &fixQueue{}
	q.push(fix(1, 1, 1))
	st := &memStore{err: store.ErrPersistence}
	s := newSession(t, geo.Point, q, st, nil)

	require.NoError(t, s.CapturePoint(context.Background()))
	_, err := s.Commit(nil)
	assert.ErrorIs(t, err, store.ErrPersistence)
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, s.Samples())
}

func TestSequentialCommitsAgainstFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidewalk-collection.json")
	st := store.Load(path)

	q := &fixQueue{}
	s := newSession(t, geo.LineString, q, st, nil)

	const n = 4
	for i := 0; i < n; i++ {
		q.push(fix(float64(i), 0, 1), fix(float64(i), 1, 1))
		require.NoError(t, s.CaptureStart(context.Background()))
		require.NoError(t, s.CaptureEnd(context.Background()))
		_, err := s.Commit(map[string]string{"surface": "paved"})
		require.NoError(t, err)

		reloaded := store.Load(path)
		assert.Equal(t, st.Collection(), reloaded.Collection())
	}

	reloaded := store.Load(path)
	require.Equal(t, n, reloaded.Len())
	for i, f := range reloaded.Collection().Features {
		assert.Equal(t, float64(i), f.Geometry.Coordinates[0].Lat())
		assert.Equal(t, fmt.Sprintf("id-%d", i+1), f.ID)
	}
}
