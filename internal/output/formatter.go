// Package output renders analysis results as text, markdown, JSON or TOON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	toon "github.com/toon-format/toon-go"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTOON, FormatMarkdown:
		return f
	case "md":
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Renderable is implemented by values with human-readable renderings.
// Machine formats serialize RenderData.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	RenderData() any
}

// Formatter writes values in one format to stdout, a file or a writer.
type Formatter struct {
	format  Format
	w       io.Writer
	file    *os.File
	colored bool
}

// NewFormatter writes to path, or stdout when path is empty. Files are
// never colored.
func NewFormatter(format Format, path string, colored bool) (*Formatter, error) {
	if path == "" {
		return &Formatter{format: format, w: os.Stdout, colored: colored}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Formatter{format: format, w: f, file: f}, nil
}

// NewWriterFormatter creates a formatter that writes to w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, w: w, colored: colored}
}

// Close closes the output file, if any.
func (f *Formatter) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}

// Format returns the configured format.
func (f *Formatter) Format() Format {
	return f.format
}

// Output writes v. A value that is not Renderable is serialized as JSON in
// text mode and fenced JSON in markdown mode.
func (f *Formatter) Output(v any) error {
	r, renderable := v.(Renderable)
	if renderable {
		switch f.format {
		case FormatText:
			return r.RenderText(f.w, f.colored)
		case FormatMarkdown:
			return r.RenderMarkdown(f.w)
		}
		v = r.RenderData()
	}

	switch f.format {
	case FormatTOON:
		return f.writeTOON(v)
	case FormatMarkdown:
		fmt.Fprintln(f.w, "```json")
		if err := f.writeJSON(v); err != nil {
			return err
		}
		_, err := fmt.Fprintln(f.w, "```")
		return err
	default:
		return f.writeJSON(v)
	}
}

func (f *Formatter) writeJSON(v any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *Formatter) writeTOON(v any) error {
	out, err := toon.Marshal(v, toon.WithIndent(2))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.w, string(out))
	return err
}
