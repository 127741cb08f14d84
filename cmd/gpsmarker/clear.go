package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/woozymasta/gpsmarker/internal/store"
)

type ClearCommand struct {
	Categories []string `short:"c" long:"category" env:"CATEGORIES" env-delim:"," description:"Limit clearing to these categories, all when omitted"`
	Yes        bool     `short:"y" long:"yes" description:"Do not ask for confirmation"`

	in  io.Reader
	out io.Writer
}

// Execute deletes the selected collection files.
func (c *ClearCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cats, err := cfg.Select(c.Categories)
	if err != nil {
		return err
	}

	dir := dataDir(cfg)
	names := make([]string, 0, len(cats))
	for _, cat := range cats {
		if dir.Exists(cat.Name) {
			names = append(names, cat.Name)
		}
	}

	out := writerOr(c.out)
	if len(names) == 0 {
		_, _ = fmt.Fprintln(out, "Nothing to clear.")
		return nil
	}

	if !c.Yes {
		in := c.in
		if in == nil {
			in = os.Stdin
		}
		_, _ = fmt.Fprintf(out, "Delete stored %s? [y/N] ", strings.Join(names, ", "))
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			_, _ = fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	failed := 0
	for _, res := range dir.Clear(store.CategorySet(names...)) {
		switch {
		case res.Err != nil:
			failed++
			_, _ = fmt.Fprintf(out, "%-10s %v\n", res.Category, res.Err)
		case res.Removed:
			_, _ = fmt.Fprintf(out, "%-10s cleared\n", res.Category)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d collection(s) could not be cleared", failed)
	}
	return nil
}
