package location

import (
	"context"
	"time"

	"github.com/woozymasta/gpsmarker/internal/geo"
)

// Monitor polls the provider immediately and then every interval until ctx
// is done, reporting each result to fn. It never touches stored collections.
func Monitor(ctx context.Context, p Provider, interval time.Duration, fn func(geo.Sample, error)) {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	poll := func() {
		s, err := p.CurrentFix(ctx)
		if ctx.Err() != nil {
			return
		}
		fn(s, err)
	}

	poll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
