package builtins

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var markdownPromptManagerActions = []string{"list", "export_markdown", "import_markdown"}

// markdownFrontmatter is the YAML header markdown_prompt_manager reads/writes
// around a prompt's body, the same shape Claude Code / Promptliano slash
// command files use on disk.
type markdownFrontmatter struct {
	Name      string `yaml:"name"`
	ProjectID *int64 `yaml:"projectId,omitempty"`
}

// NewMarkdownPromptManager builds the markdown_prompt_manager tool: round
// trips prompts to/from "---\nyaml frontmatter\n---\nbody" markdown documents,
// the on-disk format prompt_manager's entries are authored in.
func NewMarkdownPromptManager(store domain.Store) *tools.Tool {
	h := &markdownPromptManagerHandler{store: store}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "markdown_prompt_manager",
			Description: "Import and export prompt templates as markdown files with YAML frontmatter.",
			InputSchema: objectSchema(map[string]any{
				"action":    enumProp("the operation to perform", markdownPromptManagerActions...),
				"projectId": numberProp("optional project scope for list"),
				"data":      objectProp("promptId for export, or markdown for import"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type markdownPromptManagerHandler struct {
	store domain.Store
}

func (h *markdownPromptManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("markdown_prompt_manager", markdownPromptManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "list":
		var projectID *int64
		if id, ok := a.OptionalInt64("projectId"); ok {
			projectID = &id
		}
		prompts, listErr := h.store.ListPrompts(ctx, projectID)
		if listErr != nil {
			err = listErr
			break
		}
		names := make([]string, len(prompts))
		for i, p := range prompts {
			names[i] = p.Name
		}
		result, err = tools.JSONResult(names)
	case "export_markdown":
		id, idErr := a.RequireDataInt64("promptId", "9001")
		if idErr != nil {
			err = idErr
			break
		}
		p, getErr := h.store.GetPrompt(ctx, id)
		if getErr != nil {
			err = mcperr.NotFound("prompt", id)
			break
		}
		md, renderErr := renderMarkdownPrompt(p)
		if renderErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "failed to render markdown", renderErr)
			break
		}
		result = tools.TextResult(md)
	case "import_markdown":
		md, mdErr := a.RequireDataString("markdown", "---\nname: code-review\n---\nReview this diff...")
		if mdErr != nil {
			err = mdErr
			break
		}
		front, body, parseErr := parseMarkdownPrompt(md)
		if parseErr != nil {
			err = mcperr.New(mcperr.CodeValidation, fmt.Sprintf("invalid markdown prompt: %v", parseErr)).
				WithSuggestion("start the document with \"---\", then valid YAML frontmatter, then \"---\"")
			break
		}
		p, createErr := h.store.CreatePrompt(ctx, &domain.Prompt{Name: front.Name, Content: body, ProjectID: front.ProjectID})
		if createErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "failed to create prompt", createErr)
			break
		}
		result, err = tools.JSONResult(p)
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}

func renderMarkdownPrompt(p *domain.Prompt) (string, error) {
	front := markdownFrontmatter{Name: p.Name, ProjectID: p.ProjectID}
	header, err := yaml.Marshal(front)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n")
	b.WriteString(p.Content)
	return b.String(), nil
}

func parseMarkdownPrompt(md string) (markdownFrontmatter, string, error) {
	var front markdownFrontmatter
	const delim = "---"
	if !strings.HasPrefix(md, delim) {
		return front, "", fmt.Errorf("document must start with %q", delim)
	}
	rest := strings.TrimPrefix(md, delim)
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return front, "", fmt.Errorf("missing closing %q", delim)
	}
	yamlBlock := rest[:end]
	body := strings.TrimPrefix(rest[end+len("\n"+delim):], "\n")
	if err := yaml.Unmarshal([]byte(yamlBlock), &front); err != nil {
		return front, "", err
	}
	if front.Name == "" {
		return front, "", fmt.Errorf("frontmatter must set \"name\"")
	}
	return front, body, nil
}
