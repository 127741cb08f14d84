package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/woozymasta/gpsmarker/internal/store"
)

type StatusCommand struct {
	out io.Writer
}

// Execute prints per category counts, line length and extent.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := dataDir(cfg)
	tw := tabwriter.NewWriter(writerOr(c.out), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CATEGORY\tTYPE\tFEATURES\tLENGTH (m)\tBOUNDS")

	total := 0
	for _, cat := range cfg.Categories {
		st := store.Load(dir.Path(cat.Name))
		sum := st.Collection().Summarize()
		total += sum.Features()

		bounds := "-"
		if sum.Features() > 0 {
			bounds = fmt.Sprintf("%.6f,%.6f %.6f,%.6f", sum.Bound.Min.Lon(), sum.Bound.Min.Lat(), sum.Bound.Max.Lon(), sum.Bound.Max.Lat())
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%s\n", cat.Name, cat.Label, sum.Features(), sum.LengthMeters, bounds)
	}
	_, _ = fmt.Fprintf(tw, "total\t\t%d\t\t\n", total)

	return tw.Flush()
}
