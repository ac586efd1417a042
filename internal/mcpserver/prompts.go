package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

var frontmatterFence = []byte("---\n")

// promptArg is a placeholder a client may fill in. Its {{name}} occurrences
// in the body are replaced by the argument or Default.
type promptArg struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default"`
}

type promptMeta struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Arguments   []promptArg `yaml:"arguments"`
}

type promptTemplate struct {
	name string
	meta promptMeta
	body string
}

// loadPrompts reads every embedded prompt, named after its file.
func loadPrompts() ([]promptTemplate, error) {
	names, err := fs.Glob(promptFiles, "prompts/*.md")
	if err != nil {
		return nil, err
	}
	out := make([]promptTemplate, 0, len(names))
	for _, name := range names {
		raw, err := promptFiles.ReadFile(name)
		if err != nil {
			return nil, err
		}
		meta, body := parseFrontmatter(raw)
		out = append(out, promptTemplate{
			name: strings.TrimSuffix(path.Base(name), ".md"),
			meta: meta,
			body: body,
		})
	}
	return out, nil
}

// parseFrontmatter splits a YAML header delimited by --- lines from the
// body. Without a well-formed header the whole file is the body.
func parseFrontmatter(raw []byte) (promptMeta, string) {
	var meta promptMeta
	rest, ok := bytes.CutPrefix(raw, frontmatterFence)
	if !ok {
		return meta, string(raw)
	}
	header, body, ok := bytes.Cut(rest, append([]byte("\n"), frontmatterFence...))
	if !ok || yaml.Unmarshal(header, &meta) != nil {
		return promptMeta{}, string(raw)
	}
	return meta, string(bytes.TrimPrefix(body, []byte("\n")))
}

func (p promptTemplate) prompt() *mcp.Prompt {
	args := make([]*mcp.PromptArgument, 0, len(p.meta.Arguments))
	for _, a := range p.meta.Arguments {
		args = append(args, &mcp.PromptArgument{Name: a.Name, Description: a.Description})
	}
	return &mcp.Prompt{
		Name:        p.name,
		Title:       p.meta.Title,
		Description: p.meta.Description,
		Arguments:   args,
	}
}

// render substitutes arguments into the body.
func (p promptTemplate) render(given map[string]string) string {
	pairs := make([]string, 0, 2*len(p.meta.Arguments))
	for _, a := range p.meta.Arguments {
		v := given[a.Name]
		if v == "" {
			v = a.Default
		}
		pairs = append(pairs, fmt.Sprintf("{{%s}}", a.Name), v)
	}
	return strings.NewReplacer(pairs...).Replace(p.body)
}

func (s *Server) registerPrompts() error {
	templates, err := loadPrompts()
	if err != nil {
		return err
	}
	for _, p := range templates {
		s.server.AddPrompt(p.prompt(), func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			var given map[string]string
			if req != nil && req.Params != nil {
				given = req.Params.Arguments
			}
			return &mcp.GetPromptResult{
				Description: p.meta.Description,
				Messages: []*mcp.PromptMessage{{
					Role:    "user",
					Content: &mcp.TextContent{Text: p.render(given)},
				}},
			}, nil
		})
	}
	return nil
}
