// Package config handles configuration loading and the capture category definitions.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/woozymasta/gpsmarker/assets"
	"github.com/woozymasta/gpsmarker/internal/geo"

	"gopkg.in/yaml.v3"
)

// DefaultAccuracyThreshold is the horizontal accuracy, in meters, above which
// a fix needs an explicit decision before it is accepted.
const DefaultAccuracyThreshold = 11.0

// ErrUnknownCategory is returned for category names missing from the configuration.
var ErrUnknownCategory = errors.New("unknown category")

// Config represents the root configuration file structure.
type Config struct {
	DataDir           string     `yaml:"data_dir"`
	CredentialFile    string     `yaml:"credential_file"`
	Categories        []Category `yaml:"categories"`
	Location          Location   `yaml:"location"`
	Upload            Upload     `yaml:"upload"`
	AccuracyThreshold float64    `yaml:"accuracy_threshold"`
}

// Category describes one kind of captured feature.
type Category struct {
	Name       string   `yaml:"name"` // file name prefix, lowercase
	Title      string   `yaml:"title"`
	Geometry   string   `yaml:"geometry"` // Point or LineString
	Label      string   `yaml:"label"`    // collection "Type" property
	Properties []string `yaml:"properties,omitempty"`
}

// Location configures the fix source.
type Location struct {
	FixFile         string        `yaml:"fix_file"`
	MaxAge          time.Duration `yaml:"max_age"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// Upload configures the remote collection endpoint.
type Upload struct {
	Endpoint    string        `yaml:"endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// GeometryType returns the parsed geometry of the category.
func (c Category) GeometryType() geo.GeometryType {
	return geo.GeometryType(c.Geometry)
}

// Load reads and parses the YAML configuration file from the specified path.
// An empty path returns the embedded default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Default returns the embedded configuration.
func Default() (*Config, error) {
	return Parse(assets.DefaultConfig)
}

// Parse decodes a YAML configuration, fills defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.CredentialFile == "" {
		c.CredentialFile = "user-credential.json"
	}
	if c.AccuracyThreshold <= 0 {
		c.AccuracyThreshold = DefaultAccuracyThreshold
	}
	if c.Location.FixFile == "" {
		c.Location.FixFile = "fix.json"
	}
	if c.Location.RefreshInterval <= 0 {
		c.Location.RefreshInterval = 2 * time.Second
	}
	if c.Upload.Timeout <= 0 {
		c.Upload.Timeout = 15 * time.Second
	}
	if c.Upload.Concurrency <= 0 {
		c.Upload.Concurrency = 4
	}

	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Name = strings.ToLower(strings.TrimSpace(cat.Name))
		if cat.Title == "" {
			cat.Title = cat.Name
		}
	}
}

// Validate checks category names and geometries.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return errors.New("no categories configured")
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return errors.New("category without name")
		}
		if strings.ContainsAny(cat.Name, `/\`) {
			return fmt.Errorf("category %q: name must not contain path separators", cat.Name)
		}
		if seen[cat.Name] {
			return fmt.Errorf("category %q defined twice", cat.Name)
		}
		seen[cat.Name] = true

		if _, err := geo.ParseGeometryType(cat.Geometry); err != nil {
			return fmt.Errorf("category %q: %w", cat.Name, err)
		}
	}

	return nil
}

// Category returns the category with the given name.
func (c *Config) Category(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// CategoryNames returns configured category names in configuration order.
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// Select resolves a list of requested category names, dropping duplicates.
// An empty request selects every configured category.
func (c *Config) Select(requested []string) ([]Category, error) {
	if len(requested) == 0 {
		return append([]Category(nil), c.Categories...), nil
	}

	selected := make([]Category, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		cat, err := c.Category(name)
		if err != nil {
			return nil, err
		}
		if seen[cat.Name] {
			continue
		}
		seen[cat.Name] = true
		selected = append(selected, cat)
	}

	return selected, nil
}

// CredentialPath returns the credential file location. Relative paths are
// resolved inside the data directory.
func (c *Config) CredentialPath() string {
	if filepath.IsAbs(c.CredentialFile) {
		return c.CredentialFile
	}
	return filepath.Join(c.DataDir, c.CredentialFile)
}

// FixPath returns the location fix file. Relative paths are resolved inside
// the data directory.
func (c *Config) FixPath() string {
	if filepath.IsAbs(c.Location.FixFile) {
		return c.Location.FixFile
	}
	return filepath.Join(c.DataDir, c.Location.FixFile)
}
