package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewDeadCodeResult(t *testing.T) {
	r := NewDeadCodeResult()

	if r.Files == nil {
		t.Error("Files should be initialized")
	}
	if r.Summary.TotalSymbols != 0 {
		t.Error("TotalSymbols should be 0")
	}
}

func TestDeadCodeResult_Add(t *testing.T) {
	tests := []struct {
		name          string
		paths         []string
		expectedFiles int
	}{
		{"single symbol", []string{"a.ts"}, 1},
		{"same file", []string{"a.ts", "a.ts"}, 1},
		{"different files", []string{"a.ts", "b.ts", "a.ts"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewDeadCodeResult()
			for i, p := range tt.paths {
				r.Add(p, DeadSymbol{Name: string(rune('a' + i)), Line: uint32(i + 1)})
			}
			if len(r.Files) != tt.expectedFiles {
				t.Errorf("Files = %d, want %d", len(r.Files), tt.expectedFiles)
			}
		})
	}
}

func TestDeadCodeResult_AddNormalizesReasons(t *testing.T) {
	r := NewDeadCodeResult()
	r.Add("a.ts", DeadSymbol{Name: "x"})

	if r.Files[0].DeadSymbols[0].Reasons == nil {
		t.Error("Reasons should serialize as an empty list, not null")
	}
}

func TestDeadCodeResult_Finalize(t *testing.T) {
	r := NewDeadCodeResult()
	r.Add("src/z.ts", DeadSymbol{Name: "late", Line: 9})
	r.Add("src/a.ts", DeadSymbol{Name: "beta", Line: 4})
	r.Add("src/a.ts", DeadSymbol{Name: "alpha", Line: 4})
	r.Add("src/a.ts", DeadSymbol{Name: "first", Line: 1})

	r.Finalize(8)

	if r.Files[0].Path != "src/a.ts" || r.Files[1].Path != "src/z.ts" {
		t.Errorf("files not sorted by path: %s, %s", r.Files[0].Path, r.Files[1].Path)
	}
	var names []string
	for _, s := range r.Files[0].DeadSymbols {
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "first,alpha,beta" {
		t.Errorf("symbols order = %v, want first,alpha,beta", names)
	}
	if r.Summary.TotalSymbols != 8 || r.Summary.DeadSymbols != 4 {
		t.Errorf("Summary = %+v", r.Summary)
	}
	if r.Summary.DeadCodeRatio != 0.5 {
		t.Errorf("DeadCodeRatio = %f, want 0.5", r.Summary.DeadCodeRatio)
	}
}

func TestDeadCodeResult_FinalizeEmpty(t *testing.T) {
	r := NewDeadCodeResult()
	r.Finalize(0)

	if r.Summary.DeadCodeRatio != 0 {
		t.Errorf("DeadCodeRatio = %f, want 0 for an empty project", r.Summary.DeadCodeRatio)
	}
}

func TestDeadCodeResult_JSONShape(t *testing.T) {
	r := NewDeadCodeResult()
	r.Add("dead.ts", DeadSymbol{Name: "exportedFn", Kind: "function", Line: 1, Confidence: 70, Reasons: []string{ReasonExported}})
	r.Finalize(2)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}

	want := `{"summary":{"totalSymbols":2,"deadSymbols":1,"deadCodeRatio":0.5},` +
		`"files":[{"path":"dead.ts","deadSymbols":[{"name":"exportedFn","kind":"function","line":1,"confidence":70,"reasons":["exported"]}]}]}`
	if string(data) != want {
		t.Errorf("JSON = %s\nwant  %s", data, want)
	}
}

func TestDeadCodeResult_Symbol(t *testing.T) {
	r := NewDeadCodeResult()
	r.Add("a.ts", DeadSymbol{Name: "x", Confidence: 100})

	if s, ok := r.Symbol("a.ts", "x"); !ok || s.Confidence != 100 {
		t.Errorf("Symbol(a.ts, x) = %+v, %v", s, ok)
	}
	if _, ok := r.Symbol("b.ts", "x"); ok {
		t.Error("Symbol(b.ts, x) should not be found")
	}
}
