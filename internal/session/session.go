// Package session drives the capture workflow of one point or line feature.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/woozymasta/gpsmarker/internal/config"
	"github.com/woozymasta/gpsmarker/internal/geo"
	"github.com/woozymasta/gpsmarker/internal/location"
	"github.com/woozymasta/gpsmarker/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrLocationUnavailable is returned when the provider has no fix.
	// The session state is left unchanged.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrLowAccuracy is wrapped by LowAccuracyError.
	ErrLowAccuracy = errors.New("low accuracy")
	// ErrInvalidState is returned for operations not allowed in the current state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrNoDecision is returned by Proceed and Retry without a rejected fix.
	ErrNoDecision = errors.New("no pending accuracy decision")
)

// State of a recording session.
type State int

const (
	Idle State = iota
	StartCaptured
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case StartCaptured:
		return "start-captured"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Step identifies which capture produced a sample.
type Step int

const (
	StepPoint Step = iota
	StepStart
	StepEnd
)

func (s Step) String() string {
	switch s {
	case StepStart:
		return "start"
	case StepEnd:
		return "end"
	default:
		return "point"
	}
}

// LowAccuracyError holds a fix rejected by the accuracy gate until the
// caller decides to proceed with it or retry.
type LowAccuracyError struct {
	Sample    geo.Sample
	Threshold float64
	Step      Step
}

func (e *LowAccuracyError) Error() string {
	return fmt.Sprintf("current horizontal accuracy is %.1f meters, over the %.0f meter threshold",
		e.Sample.HorizontalAccuracy, e.Threshold)
}

func (e *LowAccuracyError) Unwrap() error { return ErrLowAccuracy }

// Store receives committed features.
type Store interface {
	Append(f geo.Feature)
	Persist() error
}

// Options configure a Session.
type Options struct {
	Provider  location.Provider
	Store     Store
	Surface   Surface          // optional
	NewID     func() string    // optional, defaults to random UUIDs
	Category  string
	Title     string           // annotation title for points
	Geometry  geo.GeometryType // arity 1 (Point) or 2 (LineString)
	Threshold float64          // meters, defaults to config.DefaultAccuracyThreshold
}

// Session is the capture state machine. It is driven from a single flow and
// is not safe for concurrent use.
type Session struct {
	provider  location.Provider
	store     Store
	surface   Surface
	newID     func() string
	decision  *LowAccuracyError
	category  string
	title     string
	samples   []geo.Sample
	geometry  geo.GeometryType
	threshold float64
	state     State
}

// New returns an idle session.
func New(opts Options) (*Session, error) {
	if opts.Geometry.Arity() == 0 {
		return nil, fmt.Errorf("unsupported geometry %q", opts.Geometry)
	}
	if opts.Provider == nil {
		return nil, errors.New("location provider is required")
	}
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}

	s := &Session{
		provider:  opts.Provider,
		store:     opts.Store,
		surface:   opts.Surface,
		newID:     opts.NewID,
		category:  opts.Category,
		title:     opts.Title,
		geometry:  opts.Geometry,
		threshold: opts.Threshold,
	}
	if s.surface == nil {
		s.surface = NopSurface{}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.threshold <= 0 {
		s.threshold = config.DefaultAccuracyThreshold
	}
	if s.title == "" {
		s.title = opts.Category
	}

	return s, nil
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Geometry returns the geometry type the session captures.
func (s *Session) Geometry() geo.GeometryType { return s.geometry }

// Samples returns the captured samples in capture order.
func (s *Session) Samples() []geo.Sample {
	return append([]geo.Sample(nil), s.samples...)
}

// Decision returns the fix waiting for a proceed or retry decision.
func (s *Session) Decision() (*LowAccuracyError, bool) {
	return s.decision, s.decision != nil
}

// CaptureStart records the start of a line. Repeating it before the end is
// captured replaces the start sample.
func (s *Session) CaptureStart(ctx context.Context) error {
	return s.capture(ctx, StepStart)
}

// CaptureEnd records the end of a line and completes it.
func (s *Session) CaptureEnd(ctx context.Context) error {
	return s.capture(ctx, StepEnd)
}

// CapturePoint records a point and completes it. Repeating it before commit
// replaces the sample.
func (s *Session) CapturePoint(ctx context.Context) error {
	return s.capture(ctx, StepPoint)
}

// Proceed accepts the fix held by the last accuracy rejection. No new fix is
// requested.
func (s *Session) Proceed() error {
	if s.decision == nil {
		return ErrNoDecision
	}

	d := s.decision
	s.decision = nil
	if err := s.allowed(d.Step); err != nil {
		return err
	}

	log.Info().
		Str("category", s.category).
		Str("step", d.Step.String()).
		Float64("hacc", d.Sample.HorizontalAccuracy).
		Msg("Low accuracy fix accepted")

	s.apply(d.Step, d.Sample)
	return nil
}

// Retry drops the fix held by the last accuracy rejection.
func (s *Session) Retry() error {
	if s.decision == nil {
		return ErrNoDecision
	}
	s.decision = nil
	return nil
}

// Cancel discards pending samples and returns to Idle.
func (s *Session) Cancel() error {
	if s.state == Idle && s.decision == nil {
		return fmt.Errorf("%w: nothing to cancel", ErrInvalidState)
	}

	log.Debug().Str("category", s.category).Str("state", s.state.String()).Msg("Capture cancelled")
	s.reset()
	return nil
}

// Commit builds the feature from the captured samples and properties,
// appends it to the store and persists the store. The session returns to
// Idle whatever the save outcome; a persistence failure is returned as error.
func (s *Session) Commit(props map[string]string) (geo.Feature, error) {
	if s.state != Completed {
		return geo.Feature{}, fmt.Errorf("%w: commit requires %s, session is %s", ErrInvalidState, Completed, s.state)
	}
	defer s.reset()

	f, err := geo.NewFeature(s.geometry, props, s.samples...)
	if err != nil {
		metrics.CapturesTotal.WithLabelValues(s.category, metrics.OutcomeFailure).Inc()
		return geo.Feature{}, err
	}
	f.ID = s.newID()

	s.store.Append(f)
	if err := s.store.Persist(); err != nil {
		metrics.CapturesTotal.WithLabelValues(s.category, metrics.OutcomeFailure).Inc()
		log.Error().Err(err).Str("category", s.category).Msg("Recording failed to save")
		return f, err
	}

	metrics.CapturesTotal.WithLabelValues(s.category, metrics.OutcomeSuccess).Inc()
	log.Info().
		Str("category", s.category).
		Str("id", f.ID).
		Str("geometry", string(f.Geometry.Type)).
		Int("properties", len(f.Properties)).
		Msg("Recording saved")

	return f, nil
}

func (s *Session) allowed(step Step) error {
	switch step {
	case StepPoint:
		if s.geometry != geo.Point {
			return fmt.Errorf("%w: point capture in a %s session", ErrInvalidState, s.geometry)
		}
		if s.state == StartCaptured {
			return fmt.Errorf("%w: point capture while %s", ErrInvalidState, s.state)
		}
	case StepStart:
		if s.geometry != geo.LineString {
			return fmt.Errorf("%w: line start in a %s session", ErrInvalidState, s.geometry)
		}
		if s.state == Completed {
			return fmt.Errorf("%w: line already completed", ErrInvalidState)
		}
	case StepEnd:
		if s.geometry != geo.LineString {
			return fmt.Errorf("%w: line end in a %s session", ErrInvalidState, s.geometry)
		}
		if s.state != StartCaptured {
			return fmt.Errorf("%w: line end requires %s, session is %s", ErrInvalidState, StartCaptured, s.state)
		}
	}
	return nil
}

func (s *Session) capture(ctx context.Context, step Step) error {
	if err := s.allowed(step); err != nil {
		return err
	}
	s.decision = nil

	fix, err := s.provider.CurrentFix(ctx)
	if err != nil {
		log.Warn().Err(err).Str("category", s.category).Str("step", step.String()).Msg("Unable to get location information")
		return fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if err := fix.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	log.Debug().
		Str("category", s.category).
		Str("step", step.String()).
		Float64("lon", fix.Longitude).
		Float64("lat", fix.Latitude).
		Float64("hacc", fix.HorizontalAccuracy).
		Float64("vacc", fix.VerticalAccuracy).
		Msg("Fix received")

	if fix.HorizontalAccuracy > s.threshold {
		metrics.LowAccuracyTotal.WithLabelValues(s.category).Inc()
		s.decision = &LowAccuracyError{Sample: fix, Threshold: s.threshold, Step: step}
		return s.decision
	}

	s.apply(step, fix)
	return nil
}

func (s *Session) apply(step Step, fix geo.Sample) {
	switch step {
	case StepStart:
		if len(s.samples) > 0 {
			s.surface.RemoveAnnotation(AnnotationStart)
		}
		s.samples = []geo.Sample{fix}
		s.surface.AddAnnotation(AnnotationStart, "Start", fix)
		s.state = StartCaptured

	case StepEnd:
		start := s.samples[0]
		s.samples = []geo.Sample{start, fix}
		s.surface.AddAnnotation(AnnotationEnd, "End", fix)
		s.surface.AddOverlay(start, fix)
		s.state = Completed

	case StepPoint:
		if len(s.samples) > 0 {
			s.surface.RemoveAnnotation(AnnotationPoint)
		}
		s.samples = []geo.Sample{fix}
		s.surface.AddAnnotation(AnnotationPoint, s.title, fix)
		s.state = Completed
	}
}

func (s *Session) reset() {
	s.surface.Clear()
	s.samples = nil
	s.decision = nil
	s.state = Idle
}
