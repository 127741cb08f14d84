// Package geo handles GPS samples and the GeoJSON structures they are stored in.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// CollectionType is the fixed GeoJSON type of a feature collection.
const CollectionType = "FeatureCollection"

// FeatureType is the fixed GeoJSON type of a feature.
const FeatureType = "Feature"

var (
	// ErrInvalidGeometry is returned when a geometry does not match its type
	// arity or holds a malformed position.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrInvalidCollection is returned when a document is not a FeatureCollection.
	ErrInvalidCollection = errors.New("invalid feature collection")
)

// GeometryType is the GeoJSON geometry type of a captured feature.
type GeometryType string

const (
	Point      GeometryType = "Point"
	LineString GeometryType = "LineString"
)

// Arity returns the number of positions a geometry of this type holds,
// or 0 for unsupported types.
func (t GeometryType) Arity() int {
	switch t {
	case Point:
		return 1
	case LineString:
		return 2
	default:
		return 0
	}
}

// ParseGeometryType accepts the GeoJSON spelling of a geometry type.
func ParseGeometryType(s string) (GeometryType, error) {
	t := GeometryType(s)
	if t.Arity() == 0 {
		return "", fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, s)
	}
	return t, nil
}

// Position is a single coordinate pair, always [Lon, Lat].
type Position [2]float64

// Lon returns the longitude.
func (p Position) Lon() float64 { return p[0] }

// Lat returns the latitude.
func (p Position) Lat() float64 { return p[1] }

// Validate checks the longitude and latitude ranges.
func (p Position) Validate() error {
	switch {
	case math.IsNaN(p[0]) || p[0] < -180 || p[0] > 180:
		return fmt.Errorf("%w: longitude %v", ErrInvalidGeometry, p[0])
	case math.IsNaN(p[1]) || p[1] < -90 || p[1] > 90:
		return fmt.Errorf("%w: latitude %v", ErrInvalidGeometry, p[1])
	}
	return nil
}

// UnmarshalJSON requires exactly two numbers in range. A fixed size array
// would silently pad or truncate.
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: position: %v", ErrInvalidGeometry, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: null position", ErrInvalidGeometry)
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: position has %d values, want 2", ErrInvalidGeometry, len(raw))
	}
	if raw[0] == nil || raw[1] == nil {
		return fmt.Errorf("%w: position has a null value", ErrInvalidGeometry)
	}

	pos := Position{*raw[0], *raw[1]}
	if err := pos.Validate(); err != nil {
		return err
	}
	*p = pos
	return nil
}

// FeatureCollection represents a collection of captured features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type       string            `json:"type" yaml:"type"`
	Features   []Feature         `json:"features" yaml:"features"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Feature represents a single captured feature with geometry and properties.
type Feature struct {
	ID         string            `json:"id,omitempty" yaml:"id,omitempty"`
	Type       string            `json:"type" yaml:"type"`
	Geometry   Geometry          `json:"geometry" yaml:"geometry"`
	Properties map[string]string `json:"properties" yaml:"properties"`
}

// Geometry represents a Point or a two-position LineString.
// Coordinates holds one position for a Point and two for a LineString.
type Geometry struct {
	Type        GeometryType
	Coordinates []Position
}

// NewFeatureCollection returns an empty collection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:       CollectionType,
		Features:   []Feature{},
		Properties: map[string]string{},
	}
}

// NewFeature builds a feature of the given type from captured samples, in
// capture order. The properties map is copied.
func NewFeature(t GeometryType, props map[string]string, samples ...Sample) (Feature, error) {
	if t.Arity() == 0 || len(samples) != t.Arity() {
		return Feature{}, fmt.Errorf("%w: %s needs %d samples, got %d", ErrInvalidGeometry, t, t.Arity(), len(samples))
	}

	coords := make([]Position, 0, len(samples))
	for _, s := range samples {
		coords = append(coords, s.Position())
	}

	properties := make(map[string]string, len(props))
	for k, v := range props {
		properties[k] = v
	}

	return Feature{
		Type:       FeatureType,
		Geometry:   Geometry{Type: t, Coordinates: coords},
		Properties: properties,
	}, nil
}

// Validate checks that the coordinate count matches the geometry type.
func (g Geometry) Validate() error {
	arity := g.Type.Arity()
	if arity == 0 {
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, g.Type)
	}
	if len(g.Coordinates) != arity {
		return fmt.Errorf("%w: %s has %d positions, want %d", ErrInvalidGeometry, g.Type, len(g.Coordinates), arity)
	}
	for _, p := range g.Coordinates {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// coordinates returns the GeoJSON shaped coordinates value.
func (g Geometry) coordinates() interface{} {
	if g.Type == Point && len(g.Coordinates) == 1 {
		return g.Coordinates[0]
	}
	return g.Coordinates
}

// MarshalJSON encodes the geometry with a bare position for Points and a
// position array for LineStrings.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type        GeometryType `json:"type"`
		Coordinates interface{}  `json:"coordinates"`
	}{g.Type, g.coordinates()})
}

// UnmarshalJSON decodes and validates a geometry.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t, err := ParseGeometryType(raw.Type)
	if err != nil {
		return err
	}

	var coords []Position
	switch t {
	case Point:
		var p Position
		if err := json.Unmarshal(raw.Coordinates, &p); err != nil {
			return fmt.Errorf("%w: point coordinates: %v", ErrInvalidGeometry, err)
		}
		coords = []Position{p}
	case LineString:
		if err := json.Unmarshal(raw.Coordinates, &coords); err != nil {
			return fmt.Errorf("%w: line coordinates: %v", ErrInvalidGeometry, err)
		}
	}

	parsed := Geometry{Type: t, Coordinates: coords}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*g = parsed
	return nil
}

// MarshalYAML mirrors the JSON shape so exports read the same in both formats.
func (g Geometry) MarshalYAML() (interface{}, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return struct {
		Type        GeometryType `yaml:"type"`
		Coordinates interface{}  `yaml:"coordinates,flow"`
	}{g.Type, g.coordinates()}, nil
}

// Validate checks the collection type and every feature geometry.
func (fc *FeatureCollection) Validate() error {
	if fc.Type != CollectionType {
		return fmt.Errorf("%w: type %q", ErrInvalidCollection, fc.Type)
	}
	for i, f := range fc.Features {
		if f.Type != FeatureType {
			return fmt.Errorf("%w: feature %d has type %q", ErrInvalidCollection, i, f.Type)
		}
		if err := f.Geometry.Validate(); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return nil
}

// ParseFeatureCollection decodes and validates a GeoJSON FeatureCollection.
func ParseFeatureCollection(data []byte) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}

	if fc.Features == nil {
		fc.Features = []Feature{}
	}
	if fc.Properties == nil {
		fc.Properties = map[string]string{}
	}
	return &fc, nil
}
