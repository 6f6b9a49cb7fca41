package builtins

import (
	"context"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var aiAssistantActions = []string{
	"optimize_prompt", "suggest_files", "suggest_tasks",
	"auto_generate_tasks", "compact_summary",
}

// NewAIAssistant builds the ai_assistant tool: the single LLM-bound entry
// point, dispatched to the injected domain.LLMClient (anthropic-sdk-go in
// production, a deterministic mock in tests — spec §6).
func NewAIAssistant(llm domain.LLMClient) *tools.Tool {
	h := &aiAssistantHandler{llm: llm}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "ai_assistant",
			Description: "LLM-backed assistance: prompt optimization, file/task suggestion, task generation, and summarization.",
			InputSchema: objectSchema(map[string]any{
				"action":    enumProp("the operation to perform", aiAssistantActions...),
				"projectId": numberProp("project scope, required by optimize_prompt/suggest_files/compact_summary"),
				"data":      objectProp("prompt/ticketId/extraContext/options payload"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type aiAssistantHandler struct {
	llm domain.LLMClient
}

func (h *aiAssistantHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("ai_assistant", aiAssistantActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if h.llm == nil {
		return tools.FormatError(mcperr.New(mcperr.CodeUnsupported, "no LLM provider configured").
			WithSuggestion("set llm.provider in config to \"anthropic\" or \"mock\"")), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "optimize_prompt":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		prompt, promptErr := a.RequireDataString("prompt", "add auth to the api")
		if promptErr != nil {
			err = promptErr
			break
		}
		optimized, optErr := h.llm.OptimizeUserInput(ctx, projectID, prompt)
		if optErr != nil {
			err = mcperr.Wrap(mcperr.CodeUpstream, "prompt optimization failed", optErr)
			break
		}
		result = tools.TextResult(optimized)
	case "suggest_files":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		prompt, promptErr := a.RequireDataString("prompt", "where is auth handled?")
		if promptErr != nil {
			err = promptErr
			break
		}
		limit, ok := a.OptionalDataInt64("limit")
		if !ok {
			limit = 10
		}
		ids, suggestErr := h.llm.SuggestFiles(ctx, projectID, prompt, int(limit))
		if suggestErr != nil {
			err = mcperr.Wrap(mcperr.CodeUpstream, "file suggestion failed", suggestErr)
			break
		}
		result, err = tools.JSONResult(ids)
	case "suggest_tasks":
		ticketID, tErr := a.RequireDataInt64("ticketId", "701")
		if tErr != nil {
			err = tErr
			break
		}
		extraContext, _ := a.OptionalDataString("extraContext")
		suggestions, suggestErr := h.llm.SuggestTasks(ctx, ticketID, extraContext)
		if suggestErr != nil {
			err = mcperr.Wrap(mcperr.CodeUpstream, "task suggestion failed", suggestErr)
			break
		}
		result, err = tools.JSONResult(suggestions)
	case "auto_generate_tasks":
		ticketID, tErr := a.RequireDataInt64("ticketId", "701")
		if tErr != nil {
			err = tErr
			break
		}
		tasks, genErr := h.llm.AutoGenerateTasks(ctx, ticketID)
		if genErr != nil {
			err = mcperr.Wrap(mcperr.CodeUpstream, "task generation failed", genErr)
			break
		}
		result, err = tools.JSONResult(tasks)
	case "compact_summary":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		summary, sumErr := h.llm.CompactSummary(ctx, projectID, a.DataObject())
		if sumErr != nil {
			err = mcperr.Wrap(mcperr.CodeUpstream, "summary compaction failed", sumErr)
			break
		}
		result = tools.TextResult(summary)
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
