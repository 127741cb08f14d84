package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/woozymasta/gpsmarker/internal/credential"
	"github.com/woozymasta/gpsmarker/internal/upload"
)

type UploadCommand struct {
	Categories []string `short:"c" long:"category" env:"CATEGORIES" env-delim:"," description:"Limit upload to these categories, all when omitted"`
	Endpoint   string   `short:"e" long:"endpoint" env:"UPLOAD_ENDPOINT" description:"Override the upload endpoint"`

	out io.Writer
}

// Execute uploads the stored collections and prints a per file report.
func (c *UploadCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cats, err := cfg.Select(c.Categories)
	if err != nil {
		return err
	}

	endpoint := cfg.Upload.Endpoint
	if c.Endpoint != "" {
		endpoint = c.Endpoint
	}
	if endpoint == "" {
		return errors.New("no upload endpoint configured")
	}

	dir := dataDir(cfg)
	targets := make([]upload.Target, 0, len(cats))
	for _, cat := range cats {
		targets = append(targets, upload.Target{Category: cat.Name, Path: dir.Path(cat.Name)})
	}

	coord := upload.New(upload.Options{
		Client:         &http.Client{Timeout: cfg.Upload.Timeout},
		Endpoint:       endpoint,
		CredentialPath: cfg.CredentialPath(),
		Concurrency:    cfg.Upload.Concurrency,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := writerOr(c.out)
	report, err := coord.Upload(ctx, targets)
	if errors.Is(err, credential.ErrMissing) {
		_, _ = fmt.Fprintln(out, "No credential found, run login first to set your user ID.")
		return err
	}
	if err != nil {
		return err
	}

	for _, res := range report.Results {
		switch res.Status {
		case upload.StatusUploaded:
			_, _ = fmt.Fprintf(out, "%-10s uploaded %d feature(s)\n", res.Category, res.Features)
			if res.ClearErr != nil {
				_, _ = fmt.Fprintf(out, "%-10s local copy kept: %v\n", res.Category, res.ClearErr)
			}
		case upload.StatusFailed:
			_, _ = fmt.Fprintf(out, "%-10s failed: %v\n", res.Category, res.Err)
		case upload.StatusSkipped:
			_, _ = fmt.Fprintf(out, "%-10s nothing stored\n", res.Category)
		}
	}

	if failed := report.Count(upload.StatusFailed); failed > 0 {
		return fmt.Errorf("%d of %d collection(s) failed to upload", failed, len(report.Results)-report.Count(upload.StatusSkipped))
	}
	return nil
}
