package session

import (
	"github.com/woozymasta/gpsmarker/internal/geo"

	"github.com/rs/zerolog/log"
)

// Annotation identifiers used on the Surface.
const (
	AnnotationStart = "start"
	AnnotationEnd   = "end"
	AnnotationPoint = "point"
)

// Surface displays the pins and lines of the capture in progress.
type Surface interface {
	AddAnnotation(id, title string, s geo.Sample)
	RemoveAnnotation(id string)
	AddOverlay(from, to geo.Sample)
	Clear()
}

// NopSurface ignores every call.
type NopSurface struct{}

func (NopSurface) AddAnnotation(string, string, geo.Sample) {}
func (NopSurface) RemoveAnnotation(string)                  {}
func (NopSurface) AddOverlay(geo.Sample, geo.Sample)        {}
func (NopSurface) Clear()                                   {}

// LogSurface reports surface changes through the logger.
type LogSurface struct {
	Category string
}

func (l LogSurface) AddAnnotation(id, title string, s geo.Sample) {
	log.Info().
		Str("category", l.Category).
		Str("pin", id).
		Str("title", title).
		Float64("lon", s.Longitude).
		Float64("lat", s.Latitude).
		Float64("hacc", s.HorizontalAccuracy).
		Msg("Pin dropped")
}

func (l LogSurface) RemoveAnnotation(id string) {
	log.Debug().Str("category", l.Category).Str("pin", id).Msg("Pin removed")
}

func (l LogSurface) AddOverlay(from, to geo.Sample) {
	g := geo.Geometry{Type: geo.LineString, Coordinates: []geo.Position{from.Position(), to.Position()}}
	log.Info().
		Str("category", l.Category).
		Float64("length_m", g.LengthMeters()).
		Msg("Line drawn")
}

func (l LogSurface) Clear() {
	log.Trace().Str("category", l.Category).Msg("Surface cleared")
}
