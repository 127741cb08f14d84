package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Orb converts the geometry to its orb equivalent.
func (g Geometry) Orb() orb.Geometry {
	switch g.Type {
	case Point:
		if len(g.Coordinates) == 0 {
			return nil
		}
		return orb.Point(g.Coordinates[0])
	case LineString:
		ls := make(orb.LineString, 0, len(g.Coordinates))
		for _, p := range g.Coordinates {
			ls = append(ls, orb.Point(p))
		}
		return ls
	}
	return nil
}

// LengthMeters returns the geodesic length of a LineString, 0 for Points.
func (g Geometry) LengthMeters() float64 {
	if g.Type != LineString {
		return 0
	}
	return orbgeo.LengthHaversine(g.Orb())
}

// Summary holds aggregate measurements over a collection.
type Summary struct {
	Bound        orb.Bound
	Points       int
	Lines        int
	LengthMeters float64
}

// Features returns the total feature count.
func (s Summary) Features() int {
	return s.Points + s.Lines
}

// Summarize counts features by geometry and accumulates line length and bounds.
// The bound is only meaningful when Features() > 0.
func (fc *FeatureCollection) Summarize() Summary {
	var sum Summary
	first := true

	for _, f := range fc.Features {
		g := f.Geometry.Orb()
		if g == nil {
			continue
		}

		switch f.Geometry.Type {
		case Point:
			sum.Points++
		case LineString:
			sum.Lines++
			sum.LengthMeters += f.Geometry.LengthMeters()
		}

		if first {
			sum.Bound = g.Bound()
			first = false
		} else {
			sum.Bound = sum.Bound.Union(g.Bound())
		}
	}

	return sum
}
