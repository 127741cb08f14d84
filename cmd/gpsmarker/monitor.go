package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/woozymasta/gpsmarker/internal/geo"
	"github.com/woozymasta/gpsmarker/internal/location"
)

type MonitorCommand struct {
	Interval time.Duration `short:"i" long:"interval" env:"MONITOR_INTERVAL" description:"Refresh interval, configured value when omitted"`
	Count    int           `short:"n" long:"count" description:"Stop after this many readings, run until interrupted when 0"`

	out io.Writer
}

// Execute prints the current fix until interrupted.
func (c *MonitorCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interval := c.Interval
	if interval <= 0 {
		interval = cfg.Location.RefreshInterval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	provider := location.NewFileProvider(cfg.FixPath(), cfg.Location.MaxAge)
	c.run(ctx, provider, interval)
	return nil
}

func (c *MonitorCommand) run(ctx context.Context, p location.Provider, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := writerOr(c.out)
	seen := 0
	location.Monitor(ctx, p, interval, func(s geo.Sample, err error) {
		if err != nil {
			_, _ = fmt.Fprintf(out, "Unable to get location information: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(out, "Long: %v degree\nLat: %v degree\nAlt: %v meters\nHorizontal: %v meters\nVertical: %v meters\n\n",
				s.Longitude, s.Latitude, s.Altitude, s.HorizontalAccuracy, s.VerticalAccuracy)
		}

		seen++
		if c.Count > 0 && seen >= c.Count {
			cancel()
		}
	})
}
