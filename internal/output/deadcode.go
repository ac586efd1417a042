package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
	"github.com/panbanda/deadwood/pkg/extract"
	"github.com/panbanda/deadwood/pkg/models"
)

// DeadCodeView renders a dead code analysis. JSON and TOON output carry the
// bare report; text and markdown add diagnostics and dead cycles.
type DeadCodeView struct {
	Analysis *deadcode.Analysis
	// Verbose includes info diagnostics, not just warnings.
	Verbose bool
}

// NewDeadCodeView wraps an analysis for output.
func NewDeadCodeView(a *deadcode.Analysis, verbose bool) *DeadCodeView {
	return &DeadCodeView{Analysis: a, Verbose: verbose}
}

func (v *DeadCodeView) result() *models.DeadCodeResult {
	if v.Analysis == nil || v.Analysis.Result == nil {
		return models.NewDeadCodeResult()
	}
	return v.Analysis.Result
}

func (v *DeadCodeView) RenderData() any {
	return v.result()
}

func (v *DeadCodeView) RenderText(w io.Writer, colored bool) error {
	return v.report(colored).RenderText(w, colored)
}

func (v *DeadCodeView) RenderMarkdown(w io.Writer) error {
	return v.report(false).RenderMarkdown(w)
}

func (v *DeadCodeView) report(colored bool) *Report {
	res := v.result()
	r := &Report{Title: "Dead Code Analysis", Data: res}

	r.Blocks = append(r.Blocks, &Section{Title: "Summary", Content: v.summary()})

	if len(res.Files) == 0 {
		r.Blocks = append(r.Blocks, &Section{Content: "No dead code found."})
	}
	for _, f := range res.Files {
		rows := make([][]string, 0, len(f.DeadSymbols))
		for _, s := range f.DeadSymbols {
			conf := strconv.Itoa(s.Confidence)
			if colored {
				conf = ConfidenceColor(s.Confidence, conf)
			}
			rows = append(rows, []string{
				strconv.FormatUint(uint64(s.Line), 10),
				s.Name,
				s.Kind,
				conf,
				strings.Join(s.Reasons, ", "),
			})
		}
		r.Blocks = append(r.Blocks, NewTable(f.Path,
			[]string{"Line", "Name", "Kind", "Confidence", "Reasons"}, rows, nil))
	}

	if v.Analysis != nil && len(v.Analysis.DeadCycles) > 0 {
		lines := make([]string, len(v.Analysis.DeadCycles))
		for i, c := range v.Analysis.DeadCycles {
			lines[i] = strings.Join(c, " -> ")
		}
		r.Blocks = append(r.Blocks, &Section{Title: "Dead Cycles", Content: strings.Join(lines, "\n")})
	}

	if diags := v.diagnostics(); len(diags) > 0 {
		rows := make([][]string, len(diags))
		for i, d := range diags {
			line := ""
			if d.Line > 0 {
				line = strconv.FormatUint(uint64(d.Line), 10)
			}
			rows[i] = []string{string(d.Severity), d.Path, line, d.Message}
		}
		r.Blocks = append(r.Blocks, NewTable("Diagnostics",
			[]string{"Severity", "Path", "Line", "Message"}, rows, nil))
	}
	return r
}

// Confidence bands used for coloring.
const (
	HighConfidence   = 80
	MediumConfidence = 50
)

// ConfidenceColor colors text by how safe a deletion is: red for likely
// dead, yellow for probable, plain for the rest.
func ConfidenceColor(confidence int, text string) string {
	switch {
	case confidence >= HighConfidence:
		return color.RedString(text)
	case confidence >= MediumConfidence:
		return color.YellowString(text)
	default:
		return text
	}
}

func (v *DeadCodeView) summary() string {
	s := v.result().Summary
	text := fmt.Sprintf("Symbols: %d  Dead: %d  Ratio: %.1f%%", s.TotalSymbols, s.DeadSymbols, s.DeadCodeRatio*100)
	if v.Analysis == nil {
		return text
	}
	st := v.Analysis.Stats
	return text + fmt.Sprintf("\nFiles: %d  Cache: %d hits, %d misses  Parse failures: %d  Time: %s",
		st.Files, st.CacheHits, st.CacheMisses, st.ParseFailures, st.Duration.Round(time.Millisecond))
}

func (v *DeadCodeView) diagnostics() []extract.Diagnostic {
	if v.Analysis == nil {
		return nil
	}
	if v.Verbose {
		return v.Analysis.Diagnostics
	}
	var out []extract.Diagnostic
	for _, d := range v.Analysis.Diagnostics {
		if d.Severity == extract.SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
