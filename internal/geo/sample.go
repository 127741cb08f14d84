package geo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSample is returned for fixes that cannot describe a real location.
var ErrInvalidSample = errors.New("invalid sample")

// Sample is a single GPS fix. It is immutable once captured.
type Sample struct {
	CapturedAt         time.Time `json:"time"`
	Latitude           float64   `json:"lat"`
	Longitude          float64   `json:"lon"`
	Altitude           float64   `json:"alt"`
	HorizontalAccuracy float64   `json:"hacc"` // meters
	VerticalAccuracy   float64   `json:"vacc"` // meters
}

// Position returns the sample coordinate in [Lon, Lat] order.
func (s Sample) Position() Position {
	return Position{s.Longitude, s.Latitude}
}

// Validate rejects negative horizontal accuracy and out of range coordinates.
func (s Sample) Validate() error {
	switch {
	case math.IsNaN(s.Latitude) || s.Latitude < -90 || s.Latitude > 90:
		return fmt.Errorf("%w: latitude %v", ErrInvalidSample, s.Latitude)
	case math.IsNaN(s.Longitude) || s.Longitude < -180 || s.Longitude > 180:
		return fmt.Errorf("%w: longitude %v", ErrInvalidSample, s.Longitude)
	case math.IsNaN(s.HorizontalAccuracy) || s.HorizontalAccuracy < 0:
		return fmt.Errorf("%w: horizontal accuracy %v", ErrInvalidSample, s.HorizontalAccuracy)
	}
	return nil
}
