// Package assets embeds the default configuration, the property option lookup
// and the receiver index page sources.
package assets

import _ "embed"

// DefaultConfig is used when no configuration file is given.
//
//go:embed config.yaml
var DefaultConfig []byte

// Options maps each property category to its selectable (label, key) pairs.
//
//go:embed options.yaml
var Options []byte

// IndexTemplate is the receiver index page, rendered with html/template.
//
//go:embed index.html.tpl
var IndexTemplate string

// Style is inlined into the index page.
//
//go:embed style.css
var Style string
