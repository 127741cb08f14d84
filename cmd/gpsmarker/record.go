package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/woozymasta/gpsmarker/internal/config"
	"github.com/woozymasta/gpsmarker/internal/geo"
	"github.com/woozymasta/gpsmarker/internal/location"
	"github.com/woozymasta/gpsmarker/internal/picker"
	"github.com/woozymasta/gpsmarker/internal/session"

	"github.com/rs/zerolog/log"
)

type RecordCommand struct {
	Category string `short:"c" long:"category" env:"CATEGORY" description:"Category to record" required:"true"`
}

// Execute runs the interactive capture loop on stdin.
func (c *RecordCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := cfg.Category(c.Category)
	if err != nil {
		return fmt.Errorf("%w, configured: %s", err, strings.Join(cfg.CategoryNames(), ", "))
	}

	provider := location.NewFileProvider(cfg.FixPath(), cfg.Location.MaxAge)
	r, err := newRecorder(cfg, cat, provider, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return r.run(ctx)
}

// recorder is the line driven front end of a capture session.
type recorder struct {
	in       io.Reader
	out      io.Writer
	session  *session.Session
	picker   *picker.Picker
	category config.Category
}

func newRecorder(cfg *config.Config, cat config.Category, provider location.Provider, in io.Reader, out io.Writer) (*recorder, error) {
	catalog, err := picker.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("load property options: %w", err)
	}

	st := dataDir(cfg).Open(cat.Name, cat.Label)
	sess, err := session.New(session.Options{
		Provider:  provider,
		Store:     st,
		Surface:   session.LogSurface{Category: cat.Name},
		Category:  cat.Name,
		Title:     cat.Title,
		Geometry:  cat.GeometryType(),
		Threshold: cfg.AccuracyThreshold,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("category", cat.Name).
		Str("geometry", cat.Geometry).
		Str("path", st.Path()).
		Int("stored", st.Len()).
		Msg("Recording session ready")

	return &recorder{
		in:       in,
		out:      out,
		session:  sess,
		picker:   picker.New(catalog),
		category: cat,
	}, nil
}

func (r *recorder) run(ctx context.Context) error {
	r.help()

	sc := bufio.NewScanner(r.in)
	r.prompt()
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line != "" && r.exec(ctx, line) {
			return nil
		}
		r.prompt()
	}
	return sc.Err()
}

// exec runs one command line and reports whether the loop should stop.
func (r *recorder) exec(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "start":
		r.captured(r.session.CaptureStart(ctx))
	case "end":
		r.captured(r.session.CaptureEnd(ctx))
	case "point":
		r.captured(r.session.CapturePoint(ctx))
	case "proceed":
		r.captured(r.session.Proceed())
	case "retry":
		if err := r.session.Retry(); err != nil {
			r.printf("%v\n", err)
			break
		}
		r.printf("Fix discarded, capture again when ready.\n")
	case "cancel":
		if err := r.session.Cancel(); err != nil {
			r.printf("%v\n", err)
			break
		}
		r.printf("Capture cancelled.\n")
	case "options":
		r.options(rest)
	case "set":
		r.set(rest)
	case "props":
		r.props()
	case "save":
		r.save()
	case "status":
		r.status()
	case "help", "?":
		r.help()
	case "quit", "exit":
		if r.session.State() != session.Idle {
			r.printf("Discarding the unsaved %s.\n", r.category.Title)
		}
		return true
	default:
		r.printf("Unknown command %q, type help.\n", cmd)
	}
	return false
}

// captured reports the outcome of a capture or proceed call.
func (r *recorder) captured(err error) {
	var low *session.LowAccuracyError
	switch {
	case err == nil:
		samples := r.session.Samples()
		if len(samples) == 0 {
			return
		}
		last := samples[len(samples)-1]
		r.printf("%s captured at %.6f, %.6f (horizontal %.1f meters).\n",
			r.stateLabel(), last.Longitude, last.Latitude, last.HorizontalAccuracy)
		if r.session.State() == session.Completed {
			r.printf("Set properties and type save to store the %s.\n", r.category.Title)
		}
	case errors.As(err, &low):
		r.printf("Warning: Current horizontal accuracy is %.1f meters, which is not accurate enough, do you want to try again?\n",
			low.Sample.HorizontalAccuracy)
		r.printf("Type retry to try again or proceed to go on.\n")
	case errors.Is(err, session.ErrLocationUnavailable):
		r.printf("Unable to get location information: %v\n", err)
	default:
		r.printf("%v\n", err)
	}
}

func (r *recorder) stateLabel() string {
	switch r.session.State() {
	case session.StartCaptured:
		return "Start"
	case session.Completed:
		if r.session.Geometry() == geo.LineString {
			return "End"
		}
		return r.category.Title
	}
	return "Fix"
}

func (r *recorder) property(name string) (string, bool) {
	for _, p := range r.category.Properties {
		if strings.EqualFold(p, name) {
			return p, true
		}
	}
	return "", false
}

func (r *recorder) options(name string) {
	if name == "" {
		r.printf("Properties: %s\n", strings.Join(r.category.Properties, ", "))
		return
	}
	prop, ok := r.property(name)
	if !ok {
		r.printf("Property %q is not recorded for %s.\n", name, r.category.Title)
		return
	}
	opts, err := r.picker.Options(prop)
	if err != nil {
		r.printf("%v\n", err)
		return
	}
	for i, o := range opts {
		r.printf("  %d. %s\n", i+1, o.Label)
	}
}

// set handles "set <property> = <label>".
func (r *recorder) set(arg string) {
	name, label, ok := strings.Cut(arg, "=")
	name, label = strings.TrimSpace(name), strings.TrimSpace(label)
	if !ok || name == "" || label == "" {
		r.printf("Usage: set <property> = <label>\n")
		return
	}
	prop, found := r.property(name)
	if !found {
		r.printf("Property %q is not recorded for %s.\n", name, r.category.Title)
		return
	}
	opt, err := r.picker.Select(prop, label)
	if err != nil {
		r.printf("%v\n", err)
		return
	}
	if opt.Key == "" {
		r.printf("%s cleared.\n", prop)
		return
	}
	r.printf("%s = %s\n", prop, opt.Label)
}

func (r *recorder) props() {
	props := r.picker.Properties()
	if len(props) == 0 {
		r.printf("No properties set.\n")
		return
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.printf("  %s: %s\n", k, props[k])
	}
}

func (r *recorder) save() {
	if r.session.State() != session.Completed {
		r.printf("Nothing to save, capture the %s first.\n", r.category.Title)
		return
	}

	_, err := r.session.Commit(r.picker.Properties())
	r.picker.Reset()
	if err != nil {
		r.printf("Fail: Recording Failed to Save (%v)\n", err)
		return
	}
	r.printf("Success: Recording Saved\n")
}

func (r *recorder) status() {
	r.printf("%s (%s): %s\n", r.category.Title, r.category.Geometry, r.session.State())
	if d, ok := r.session.Decision(); ok {
		r.printf("Waiting for retry or proceed, horizontal accuracy %.1f meters.\n", d.Sample.HorizontalAccuracy)
	}
}

func (r *recorder) help() {
	capture := "point                 capture the location"
	if r.session.Geometry() == geo.LineString {
		capture = "start, end            capture the line start and end"
	}
	r.printf("Recording %s. Commands:\n", r.category.Title)
	r.printf("  %s\n", capture)
	r.printf("  proceed, retry        answer a low accuracy warning\n")
	r.printf("  cancel                discard the capture in progress\n")
	r.printf("  options [property]    list properties or the options of one\n")
	r.printf("  set <property> = <label>\n")
	r.printf("  props                 show selected properties\n")
	r.printf("  save                  store the captured %s\n", r.category.Title)
	r.printf("  status, help, quit\n")
}

func (r *recorder) prompt() {
	r.printf("%s> ", r.category.Name)
}

func (r *recorder) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}
