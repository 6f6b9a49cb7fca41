package builtins

import (
	"context"

	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/queue"
	"github.com/promptliano/mcpd/internal/tools"
)

var queueProcessorActions = []string{"get_next_task", "complete_task", "fail_task"}

// NewQueueProcessor builds the queue_processor tool: the agent-facing claim
// loop over a queue (spec §4.6's "GetNextTaskFromQueue" family).
func NewQueueProcessor(engine *queue.Engine) *tools.Tool {
	h := &queueProcessorHandler{engine: engine}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "queue_processor",
			Description: "Claim the next available queue item and report completion or failure.",
			InputSchema: objectSchema(map[string]any{
				"action":  enumProp("the operation to perform", queueProcessorActions...),
				"queueId": numberProp("target queue id"),
				"data":    objectProp("agentId for get_next_task, or itemType/itemId/errorMessage for complete_task/fail_task"),
			}, "action", "queueId"),
		},
		Handle: h.Handle,
	}
}

type queueProcessorHandler struct {
	engine *queue.Engine
}

func (h *queueProcessorHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("queue_processor", queueProcessorActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	queueID, err := a.RequireQueueID()
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "get_next_task":
		agentID, agentErr := a.RequireDataString("agentId", "agent-1")
		if agentErr != nil {
			err = agentErr
			break
		}
		next, nextErr := h.engine.GetNextTaskFromQueue(ctx, queueID, agentID)
		if nextErr != nil {
			err = nextErr
			break
		}
		result, err = tools.JSONResult(next)
	case "complete_task":
		itemType, typeErr := a.RequireDataString("itemType", "task")
		if typeErr != nil {
			err = typeErr
			break
		}
		itemID, idErr := a.RequireDataInt64("itemId", "801")
		if idErr != nil {
			err = idErr
			break
		}
		if completeErr := h.engine.CompleteQueueItem(ctx, queueID, itemType, itemID); completeErr != nil {
			err = completeErr
			break
		}
		result = tools.TextResult("item marked completed")
	case "fail_task":
		itemType, typeErr := a.RequireDataString("itemType", "task")
		if typeErr != nil {
			err = typeErr
			break
		}
		itemID, idErr := a.RequireDataInt64("itemId", "801")
		if idErr != nil {
			err = idErr
			break
		}
		errorMessage, _ := a.OptionalDataString("errorMessage")
		if failErr := h.engine.FailQueueItem(ctx, queueID, itemType, itemID, errorMessage); failErr != nil {
			err = failErr
			break
		}
		result = tools.TextResult("item marked failed")
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
