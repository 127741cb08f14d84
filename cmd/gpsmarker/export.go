package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/gpsmarker/internal/store"

	"gopkg.in/yaml.v3"
)

type ExportCommand struct {
	Category string `short:"c" long:"category" env:"CATEGORY" description:"Category to export" required:"true"`
	Format   string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Output   string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`

	out io.Writer
}

// Execute writes a stored collection in the requested format.
func (c *ExportCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := cfg.Category(c.Category)
	if err != nil {
		return err
	}

	fc := store.Load(dataDir(cfg).Path(cat.Name)).Collection()

	var data []byte
	if c.Format == "yaml" {
		data, err = yaml.Marshal(fc)
	} else {
		data, err = json.MarshalIndent(fc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal %s: %w", cat.Name, err)
	}

	if c.Output != "" {
		if err := os.WriteFile(c.Output, data, 0644); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stderr, "Exported %d %s feature(s) to %s (format: %s)\n", len(fc.Features), cat.Name, c.Output, c.Format)
		return nil
	}

	_, _ = fmt.Fprintln(writerOr(c.out), string(data))
	return nil
}
