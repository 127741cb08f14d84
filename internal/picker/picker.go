// Package picker collects descriptive properties for a feature before it is saved.
package picker

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/woozymasta/gpsmarker/assets"

	"gopkg.in/yaml.v3"
)

// UnknownLabel is the synthetic option that removes a property.
const UnknownLabel = "Unknown"

var (
	// ErrUnknownCategory is returned when the lookup has no options for a category.
	ErrUnknownCategory = errors.New("unknown property category")
	// ErrUnknownOption is returned when a label is not offered for a category.
	ErrUnknownOption = errors.New("unknown option")
)

// Option is a selectable (display label, data key) pair.
type Option struct {
	Label string `yaml:"label"`
	Key   string `yaml:"key"`
}

// Lookup provides the options of a property category.
type Lookup interface {
	OptionsFor(category string) []Option
}

// Catalog is a static Lookup keyed by property category name.
type Catalog map[string][]Option

// OptionsFor returns the options of a category, matched case-insensitively.
func (c Catalog) OptionsFor(category string) []Option {
	if opts, ok := c[category]; ok {
		return opts
	}
	for name, opts := range c {
		if strings.EqualFold(name, category) {
			return opts
		}
	}
	return nil
}

// Categories returns the catalog category names, sorted.
func (c Catalog) Categories() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseCatalog decodes a YAML option catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultCatalog returns the embedded option catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(assets.Options)
}

// Picker accumulates property selections for one pending feature.
type Picker struct {
	lookup     Lookup
	selections map[string]string
}

// New returns a Picker backed by the given lookup.
func New(lookup Lookup) *Picker {
	return &Picker{
		lookup:     lookup,
		selections: make(map[string]string),
	}
}

// Options lists the options of a category followed by the Unknown entry.
func (p *Picker) Options(category string) ([]Option, error) {
	opts := p.lookup.OptionsFor(category)
	if len(opts) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	out := make([]Option, 0, len(opts)+1)
	out = append(out, opts...)
	out = append(out, Option{Label: UnknownLabel})
	return out, nil
}

// Select sets the property of a category to the key of the chosen label.
// Choosing Unknown removes the property. Labels match case-insensitively.
func (p *Picker) Select(category, label string) (Option, error) {
	opts, err := p.Options(category)
	if err != nil {
		return Option{}, err
	}

	key := PropertyKey(category)
	for _, opt := range opts {
		if !strings.EqualFold(opt.Label, label) {
			continue
		}
		if opt.Label == UnknownLabel && opt.Key == "" {
			delete(p.selections, key)
		} else {
			p.selections[key] = opt.Key
		}
		return opt, nil
	}

	return Option{}, fmt.Errorf("%w: %q for %q", ErrUnknownOption, label, category)
}

// Properties returns a copy of the accumulated selections.
func (p *Picker) Properties() map[string]string {
	out := make(map[string]string, len(p.selections))
	for k, v := range p.selections {
		out[k] = v
	}
	return out
}

// Reset drops every selection.
func (p *Picker) Reset() {
	p.selections = make(map[string]string)
}

// PropertyKey returns the feature property key of a category.
func PropertyKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
