// Package render writes pipeline results for humans and other programs.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/decorate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format is an output format.
type Format string

const (
	// Text is a human readable layout.
	Text Format = "text"
	// JSON is the result as JSON.
	JSON Format = "json"
	// YAML is the result as YAML.
	YAML Format = "yaml"
	// TOML is the result as TOML.
	TOML Format = "toml"
)

// ErrUnknownFormat is returned when a format is not supported.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{Text, JSON, YAML, TOML}
}

// ParseFormat returns the format named s, ignoring case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

type options struct {
	color    *bool
	lang     language.Tag
	maxWidth int
}

// Options are the variadic options available to Write.
type Options func(*options)

// WithColor forces colour on or off. By default, colour depends on w (see ColorEnabled).
func WithColor(enabled bool) Options {
	return func(o *options) {
		o.color = &enabled
	}
}

// WithLanguage sets the language used to format numbers in text output.
func WithLanguage(tag language.Tag) Options {
	return func(o *options) {
		o.lang = tag
	}
}

// WithSparklineWidth sets the maximum width of the text sparklines.
func WithSparklineWidth(width int) Options {
	return func(o *options) {
		o.maxWidth = width
	}
}

// Write writes results to w in format f.
//
// JSON writes a single object for one result and an array otherwise.
// YAML writes one document per result. TOML writes one table, or a results array of tables.
func Write(w io.Writer, f Format, results []pipeline.Result, args ...Options) (err error) {
	defer decorate.OnError(&err, "could not render %s output", f)

	opts := options{
		lang:     language.English,
		maxWidth: 40,
	}
	for _, opt := range args {
		opt(&opts)
	}

	switch f {
	case Text:
		color := ColorEnabled(w)
		if opts.color != nil {
			color = *opts.color
		}
		t := textWriter{p: message.NewPrinter(opts.lang), width: opts.maxWidth}
		var b strings.Builder
		for i, r := range results {
			if i > 0 {
				b.WriteString("\n")
			}
			t.result(&b, r)
		}
		out := b.String()
		if !color {
			out = stripansi.Strip(out)
		}
		_, err = io.WriteString(w, out)
		return err
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		if results == nil {
			results = []pipeline.Result{}
		}
		return enc.Encode(results)
	case YAML:
		return writeYAML(w, results)
	case TOML:
		return writeTOML(w, results)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}
