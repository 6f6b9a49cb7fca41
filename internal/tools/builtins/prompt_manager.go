package builtins

import (
	"context"
	"fmt"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var promptManagerActions = []string{"list", "get", "create", "update", "delete"}

// NewPromptManager builds the prompt_manager tool: CRUD over reusable prompt
// templates, optionally scoped to a project.
func NewPromptManager(store domain.Store) *tools.Tool {
	h := &promptManagerHandler{store: store}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "prompt_manager",
			Description: "Create, browse, and edit reusable prompt templates.",
			InputSchema: objectSchema(map[string]any{
				"action":    enumProp("the operation to perform", promptManagerActions...),
				"projectId": numberProp("optional project scope for list/create"),
				"data":      objectProp("promptId/name/content payload"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type promptManagerHandler struct {
	store domain.Store
}

func (h *promptManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("prompt_manager", promptManagerActions...); err != nil {
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
		result, err = tools.JSONResult(prompts)
	case "get":
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
		result, err = tools.JSONResult(p)
	case "create":
		name, nameErr := a.RequireDataString("name", "code-review")
		if nameErr != nil {
			err = nameErr
			break
		}
		content, contentErr := a.RequireDataString("content", "Review this diff for...")
		if contentErr != nil {
			err = contentErr
			break
		}
		var projectID *int64
		if id, ok := a.OptionalDataInt64("projectId"); ok {
			projectID = &id
		}
		p, createErr := h.store.CreatePrompt(ctx, &domain.Prompt{Name: name, Content: content, ProjectID: projectID})
		if createErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "failed to create prompt", createErr)
			break
		}
		result, err = tools.JSONResult(p)
	case "update":
		id, idErr := a.RequireDataInt64("promptId", "9001")
		if idErr != nil {
			err = idErr
			break
		}
		p, updateErr := h.store.UpdatePrompt(ctx, id, func(p *domain.Prompt) {
			if name, ok := a.OptionalDataString("name"); ok {
				p.Name = name
			}
			if content, ok := a.OptionalDataString("content"); ok {
				p.Content = content
			}
		})
		if updateErr != nil {
			err = mcperr.NotFound("prompt", id)
			break
		}
		result, err = tools.JSONResult(p)
	case "delete":
		id, idErr := a.RequireDataInt64("promptId", "9001")
		if idErr != nil {
			err = idErr
			break
		}
		if delErr := h.store.DeletePrompt(ctx, id); delErr != nil {
			err = mcperr.NotFound("prompt", id)
			break
		}
		result = tools.TextResult(fmt.Sprintf("prompt %d deleted", id))
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
