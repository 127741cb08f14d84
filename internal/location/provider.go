// Package location provides GPS fixes to capture sessions.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/gpsmarker/internal/geo"
)

// ErrNoFix is returned when no usable fix is available.
var ErrNoFix = errors.New("no location fix")

// Provider returns the current fix.
type Provider interface {
	CurrentFix(ctx context.Context) (geo.Sample, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (geo.Sample, error)

// CurrentFix calls f.
func (f ProviderFunc) CurrentFix(ctx context.Context) (geo.Sample, error) {
	return f(ctx)
}

// FileProvider reads the latest fix from a JSON file kept up to date by a
// GPS daemon or a phone bridge.
type FileProvider struct {
	now    func() time.Time
	Path   string
	MaxAge time.Duration // 0 disables the staleness check
}

// NewFileProvider returns a provider reading fixes from path.
func NewFileProvider(path string, maxAge time.Duration) *FileProvider {
	return &FileProvider{Path: path, MaxAge: maxAge, now: time.Now}
}

// CurrentFix reads and validates the fix file. A missing, unparsable or
// stale file yields ErrNoFix.
func (p *FileProvider) CurrentFix(ctx context.Context) (geo.Sample, error) {
	if err := ctx.Err(); err != nil {
		return geo.Sample{}, err
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return geo.Sample{}, fmt.Errorf("%w: %v", ErrNoFix, err)
	}

	var s geo.Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return geo.Sample{}, fmt.Errorf("%w: decode %s: %v", ErrNoFix, p.Path, err)
	}
	if err := s.Validate(); err != nil {
		return geo.Sample{}, fmt.Errorf("%w: %v", ErrNoFix, err)
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}
	if s.CapturedAt.IsZero() {
		s.CapturedAt = now()
	} else if p.MaxAge > 0 && now().Sub(s.CapturedAt) > p.MaxAge {
		return geo.Sample{}, fmt.Errorf("%w: fix is %s old", ErrNoFix, now().Sub(s.CapturedAt).Round(time.Second))
	}

	return s, nil
}
