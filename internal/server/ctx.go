package server

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"html/template"
	"os"

	"github.com/woozymasta/gpsmarker/assets"
	"github.com/woozymasta/gpsmarker/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
)

// DefaultMaxBody limits accepted collection uploads.
const DefaultMaxBody = 8 << 20

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	StorageDir string
	IndexHTML  []byte
	IndexETag  string
	MaxBody    int64
}

type pageData struct {
	Title      string
	StorageDir string
	CSS        template.CSS
	Categories []config.Category
}

// NewServerContext prepares the storage directory and renders the index page.
func NewServerContext(cfg *config.Config, storageDir string) (*ServerContext, error) {
	log.Info().
		Str("storage", storageDir).
		Int("categories", len(cfg.Categories)).
		Msg("Initializing server context")

	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	index, err := renderIndex(pageData{
		Title:      "gpsmarker receiver",
		StorageDir: storageDir,
		Categories: cfg.Categories,
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Int("index_bytes", len(index)).Msg("Index page rendered")

	return &ServerContext{
		StorageDir: storageDir,
		IndexHTML:  index,
		IndexETag:  fmt.Sprintf(`"%08x"`, crc32.ChecksumIEEE(index)),
		MaxBody:    DefaultMaxBody,
	}, nil
}

// renderIndex executes the embedded template and minifies the result.
func renderIndex(data pageData) ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)

	cssMin, err := m.String("text/css", assets.Style)
	if err != nil {
		return nil, fmt.Errorf("minify css: %w", err)
	}
	data.CSS = template.CSS(cssMin)

	tmpl, err := template.New("index").Parse(assets.IndexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render index template: %w", err)
	}

	out, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify html: %w", err)
	}

	return out, nil
}
