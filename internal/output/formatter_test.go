package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"TOON", FormatTOON},
		{"", FormatText},
		{"invalid", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "output.txt")

	f, err := NewFormatter(FormatJSON, outputPath, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.file == nil {
		t.Error("file should not be nil for file output")
	}
	if f.colored {
		t.Error("colored should be false when writing to file")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Error("output file should exist")
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	_, err := NewFormatter(FormatText, "/nonexistent/directory/file.txt", false)
	if err == nil {
		t.Error("NewFormatter() should error for invalid path")
	}
}

func TestNewWriterFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatMarkdown, &buf, true)

	if f.Format() != FormatMarkdown {
		t.Errorf("Format() = %q, want markdown", f.Format())
	}
	if !f.colored {
		t.Error("colored should be kept for writers")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() without a file should not error: %v", err)
	}
}

func TestTableRenderText(t *testing.T) {
	table := NewTable("src/a.ts", []string{"Line", "Name"}, [][]string{{"3", "helper"}, {"9", "unused"}}, nil)

	var buf bytes.Buffer
	if err := table.RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"src/a.ts", "========", "helper", "unused"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Files", []string{"Path", "Dead"}, [][]string{{"a.ts", "2"}, {"b.ts", "0"}}, nil)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	want := "## Files\n\n| Path | Dead |\n| --- | --- |\n| a.ts | 2 |\n| b.ts | 0 |\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() = %q, want %q", buf.String(), want)
	}
}

func TestTableRenderData(t *testing.T) {
	t.Run("rows as maps", func(t *testing.T) {
		table := NewTable("", []string{"A", "B"}, [][]string{{"1", "2"}, {"3"}}, nil)
		rows, ok := table.RenderData().([]map[string]string)
		if !ok {
			t.Fatalf("RenderData() type = %T", table.RenderData())
		}
		if rows[0]["B"] != "2" || rows[1]["A"] != "3" {
			t.Errorf("unexpected rows %v", rows)
		}
		if _, ok := rows[1]["B"]; ok {
			t.Error("short rows should not fill missing columns")
		}
	})

	t.Run("raw data wins", func(t *testing.T) {
		raw := map[string]int{"dead": 1}
		table := NewTable("", []string{"A"}, nil, raw)
		if got, ok := table.RenderData().(map[string]int); !ok || got["dead"] != 1 {
			t.Errorf("RenderData() = %v, want raw data", table.RenderData())
		}
	})
}

func TestSectionRender(t *testing.T) {
	s := &Section{
		Title:   "Summary",
		Content: "Dead: 3",
		Sections: []Section{
			{Title: "Cycles", Content: "a -> b"},
		},
	}

	var text bytes.Buffer
	if err := s.RenderText(&text, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	for _, want := range []string{"Summary\n=======", "Dead: 3", "Cycles\n------", "a -> b"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, text.String())
		}
	}

	var md bytes.Buffer
	if err := s.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.Contains(md.String(), "## Summary") || !strings.Contains(md.String(), "### Cycles") {
		t.Errorf("markdown output missing headings:\n%s", md.String())
	}
}

func TestReportRender(t *testing.T) {
	r := &Report{
		Title: "Dead Code Analysis",
		Blocks: []Renderable{
			&Section{Title: "Summary", Content: "ok"},
			NewTable("a.ts", []string{"Name"}, [][]string{{"x"}}, nil),
		},
	}

	var md bytes.Buffer
	if err := r.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.HasPrefix(md.String(), "# Dead Code Analysis\n\n## Summary") {
		t.Errorf("unexpected markdown:\n%s", md.String())
	}

	data, ok := r.RenderData().(map[string]any)
	if !ok {
		t.Fatalf("RenderData() type = %T", r.RenderData())
	}
	if parts := data["sections"].([]any); len(parts) != 2 {
		t.Errorf("sections = %d, want 2", len(parts))
	}
}

func TestFormatterOutput(t *testing.T) {
	table := NewTable("Test", []string{"A"}, [][]string{{"1"}}, nil)

	tests := []struct {
		name   string
		format Format
		data   any
		want   string
	}{
		{"text renderable", FormatText, table, "Test"},
		{"json renderable", FormatJSON, table, `"A": "1"`},
		{"markdown renderable", FormatMarkdown, table, "| A |"},
		{"toon renderable", FormatTOON, table, "A"},
		{"json raw", FormatJSON, map[string]int{"dead": 2}, `"dead": 2`},
		{"markdown raw", FormatMarkdown, map[string]int{"dead": 2}, "```json"},
		{"text raw falls back to json", FormatText, map[string]int{"dead": 2}, `"dead": 2`},
		{"toon raw", FormatTOON, map[string]int{"dead": 2}, "dead: 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := NewWriterFormatter(tt.format, &buf, false)
			if err := f.Output(tt.data); err != nil {
				t.Fatalf("Output() error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFormatterOutputJSONIsValid(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatJSON, &buf, false)
	if err := f.Output(&Section{Title: "T", Content: "C"}); err != nil {
		t.Fatalf("Output() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded["title"] != "T" {
		t.Errorf("title = %v, want T", decoded["title"])
	}
}

func TestConfidenceColor(t *testing.T) {
	for _, c := range []int{0, 49, 50, 79, 80, 100} {
		if got := ConfidenceColor(c, "85"); !strings.Contains(got, "85") {
			t.Errorf("ConfidenceColor(%d) = %q, lost its text", c, got)
		}
	}
}
