package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// heading writes title underlined with rule. Markdown callers use
// mdHeading instead.
func heading(w io.Writer, title string, rule byte, colored bool, attrs ...color.Attribute) {
	if colored {
		color.New(append([]color.Attribute{color.Bold}, attrs...)...).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintln(w, strings.Repeat(string(rule), len(title)))
}

func mdHeading(w io.Writer, level int, title string) {
	fmt.Fprintf(w, "%s %s\n\n", strings.Repeat("#", level), title)
}

// Table is a titled grid. Data, when set, replaces the rows in machine
// formats.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Data    any
}

// NewTable creates a table.
func NewTable(title string, headers []string, rows [][]string, data any) *Table {
	return &Table{Title: title, Headers: headers, Rows: rows, Data: data}
}

// RenderData returns Data, or the rows keyed by header.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]string, len(row))
		for i := 0; i < len(row) && i < len(t.Headers); i++ {
			m[t.Headers[i]] = row[i]
		}
		out = append(out, m)
	}
	return out
}

func (t *Table) RenderText(w io.Writer, colored bool) error {
	if t.Title != "" {
		heading(w, t.Title, '=', colored)
		fmt.Fprintln(w)
	}

	left := tw.CellAlignment{Global: tw.AlignLeft}
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{Alignment: left, Formatting: tw.CellFormatting{AutoFormat: tw.On}},
			Row:    tw.CellConfig{Alignment: left},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{Separators: tw.Separators{BetweenColumns: tw.Off}},
		}),
	)
	table.Header(t.Headers)
	for _, row := range t.Rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		mdHeading(w, 2, t.Title)
	}
	row := func(cells []string) {
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	row(t.Headers)
	seps := make([]string, len(t.Headers))
	for i := range seps {
		seps[i] = "---"
	}
	row(seps)
	for _, r := range t.Rows {
		row(r)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// Section is a block of text with optional nested sections.
type Section struct {
	Title    string    `json:"title,omitempty"`
	Content  string    `json:"content,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

func (s *Section) RenderData() any {
	return s
}

func (s *Section) RenderText(w io.Writer, colored bool) error {
	s.text(w, colored, '=')
	return nil
}

func (s *Section) text(w io.Writer, colored bool, rule byte) {
	if s.Title != "" {
		heading(w, s.Title, rule, colored)
	}
	if s.Content != "" {
		fmt.Fprintln(w, s.Content)
	}
	for i := range s.Sections {
		fmt.Fprintln(w)
		s.Sections[i].text(w, colored, '-')
	}
}

func (s *Section) RenderMarkdown(w io.Writer) error {
	s.markdown(w, 2)
	return nil
}

func (s *Section) markdown(w io.Writer, level int) {
	if s.Title != "" {
		mdHeading(w, level, s.Title)
	}
	if s.Content != "" {
		fmt.Fprintf(w, "%s\n\n", s.Content)
	}
	for i := range s.Sections {
		s.Sections[i].markdown(w, level+1)
	}
}

// Report is a titled sequence of blocks.
type Report struct {
	Title  string
	Blocks []Renderable
	Data   any
}

// RenderData returns Data, or the title and the data of every block.
func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	blocks := make([]any, len(r.Blocks))
	for i, b := range r.Blocks {
		blocks[i] = b.RenderData()
	}
	return map[string]any{"title": r.Title, "sections": blocks}
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	if r.Title != "" {
		heading(w, r.Title, '=', colored, color.FgCyan)
		fmt.Fprintln(w)
	}
	for i, b := range r.Blocks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := b.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	if r.Title != "" {
		mdHeading(w, 1, r.Title)
	}
	for _, b := range r.Blocks {
		if err := b.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}
