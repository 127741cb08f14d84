// Package upload submits locally stored collections to the remote endpoint.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/gpsmarker/internal/credential"
	"github.com/woozymasta/gpsmarker/internal/geo"
	"github.com/woozymasta/gpsmarker/internal/metrics"
	"github.com/woozymasta/gpsmarker/internal/store"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ContentType of the upload request body.
const ContentType = "application/geo+json"

// Property keys added to uploaded collections.
const (
	UserInfoKey = "UserInfo"
	PlatformKey = "Platform"
	Platform    = "go"
)

var (
	// ErrUploadFailed is wrapped by every per-file upload failure.
	ErrUploadFailed = errors.New("upload failed")
	// ErrChangedDuringUpload is set as ClearErr when the file was rewritten
	// after it was read for upload. The file is kept.
	ErrChangedDuringUpload = errors.New("collection changed during upload")
)

// Status of one file in a report.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Target is a category collection file to upload.
type Target struct {
	Category string
	Path     string
}

// Result describes what happened to one target.
type Result struct {
	Err        error // upload failure
	ClearErr   error // local removal failure after a successful upload
	Category   string
	Path       string
	Status     Status
	Features   int
	StatusCode int

	sent []byte // file content as read for upload
}

// Report aggregates per-file results in target order.
type Report struct {
	Results []Result
}

// Count returns the number of results with the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// OK reports whether no file failed.
func (r Report) OK() bool {
	return r.Count(StatusFailed) == 0
}

// Options configure a Coordinator.
type Options struct {
	Client         *http.Client
	Endpoint       string
	CredentialPath string
	Concurrency    int
}

// Coordinator uploads collection files and removes the ones accepted by the endpoint.
type Coordinator struct {
	client         *http.Client
	endpoint       string
	credentialPath string
	concurrency    int
}

// New returns a Coordinator. A nil client gets a 15 second timeout.
func New(opts Options) *Coordinator {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Coordinator{
		client:         client,
		endpoint:       opts.Endpoint,
		credentialPath: opts.CredentialPath,
		concurrency:    concurrency,
	}
}

// document is the request body: the collection with the uploader identity
// merged into its properties.
type document struct {
	Type       string                 `json:"type"`
	Features   []geo.Feature          `json:"features"`
	Properties map[string]interface{} `json:"properties"`
}

// Upload submits every existing target file. Targets without a file are
// skipped. A missing credential aborts before any request and returns
// credential.ErrMissing. Files are uploaded concurrently and independently;
// each accepted file is removed locally, failed files are left untouched.
func (c *Coordinator) Upload(ctx context.Context, targets []Target) (Report, error) {
	report := Report{Results: make([]Result, len(targets))}

	pending := make([]int, 0, len(targets))
	for i, t := range targets {
		report.Results[i] = Result{Category: t.Category, Path: t.Path, Status: StatusSkipped}
		if info, err := os.Stat(t.Path); err == nil && !info.IsDir() {
			pending = append(pending, i)
		} else {
			metrics.UploadsTotal.WithLabelValues(t.Category, metrics.OutcomeSkipped).Inc()
		}
	}

	if len(pending) == 0 {
		log.Info().Msg("Nothing to upload")
		return report, nil
	}

	cred, err := credential.Load(c.credentialPath)
	if err != nil {
		return report, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, i := range pending {
		res := &report.Results[i]
		g.Go(func() error {
			c.uploadFile(gctx, res, cred)
			return nil
		})
	}
	_ = g.Wait()

	for _, i := range pending {
		res := &report.Results[i]
		if res.Status != StatusUploaded {
			continue
		}
		if err := removeIfUnchanged(res.Path, res.sent); err != nil {
			res.ClearErr = err
			log.Error().Err(err).Str("category", res.Category).Str("path", res.Path).Msg("Uploaded collection could not be removed")
		}
	}

	log.Info().
		Int("uploaded", report.Count(StatusUploaded)).
		Int("failed", report.Count(StatusFailed)).
		Int("skipped", report.Count(StatusSkipped)).
		Msg("Upload finished")

	return report, nil
}

// uploadFile fills res with the outcome of one file upload.
func (c *Coordinator) uploadFile(ctx context.Context, res *Result, cred credential.Credential) {
	start := time.Now()
	err := c.send(ctx, res, cred)
	metrics.UploadDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("%w: %s: %v", ErrUploadFailed, res.Category, err)
		metrics.UploadsTotal.WithLabelValues(res.Category, metrics.OutcomeFailure).Inc()
		log.Error().Err(err).Str("category", res.Category).Str("path", res.Path).Msg("Upload failed")
		return
	}

	res.Status = StatusUploaded
	metrics.UploadsTotal.WithLabelValues(res.Category, metrics.OutcomeSuccess).Inc()
	log.Info().
		Str("category", res.Category).
		Int("features", res.Features).
		Int("status", res.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Collection uploaded")
}

func (c *Coordinator) send(ctx context.Context, res *Result, cred credential.Credential) error {
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return err
	}
	res.sent = data

	fc, err := geo.ParseFeatureCollection(data)
	if err != nil {
		return err
	}
	res.Features = len(fc.Features)

	body, err := json.Marshal(buildDocument(fc, cred))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ContentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	res.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	return nil
}

func buildDocument(fc *geo.FeatureCollection, cred credential.Credential) document {
	props := make(map[string]interface{}, len(fc.Properties)+2)
	for k, v := range fc.Properties {
		props[k] = v
	}
	props[UserInfoKey] = cred
	props[PlatformKey] = Platform

	return document{
		Type:       geo.CollectionType,
		Features:   fc.Features,
		Properties: props,
	}
}

// removeIfUnchanged deletes the uploaded file only while it still holds the
// content that was sent, so features appended in the meantime survive.
func removeIfUnchanged(path string, sent []byte) error {
	current, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !bytes.Equal(current, sent) {
		return ErrChangedDuringUpload
	}

	_, err = store.Remove(path)
	return err
}
