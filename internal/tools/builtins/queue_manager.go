package builtins

import (
	"context"
	"fmt"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/queue"
	"github.com/promptliano/mcpd/internal/tools"
)

var queueManagerActions = []string{
	"create", "get", "list", "update", "delete",
	"enqueue_ticket", "enqueue_task", "enqueue_ticket_with_all_tasks",
	"dequeue_ticket", "dequeue_task", "reorder",
	"get_stats", "get_all_stats",
}

// NewQueueManager builds the queue_manager tool: lifecycle and membership
// operations over the Queue Engine (spec §4.6).
func NewQueueManager(engine *queue.Engine) *tools.Tool {
	h := &queueManagerHandler{engine: engine}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "queue_manager",
			Description: "Create queues and attach or detach tickets/tasks to them.",
			InputSchema: objectSchema(map[string]any{
				"action":    enumProp("the operation to perform", queueManagerActions...),
				"projectId": numberProp("project scope for create/list/get_all_stats"),
				"queueId":   numberProp("target queue id"),
				"data":      objectProp("name/description/maxParallelItems/ticketId/taskId/priority payload"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type queueManagerHandler struct {
	engine *queue.Engine
}

func (h *queueManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("queue_manager", queueManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "create":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		name, nameErr := a.RequireDataString("name", "default")
		if nameErr != nil {
			err = nameErr
			break
		}
		desc, _ := a.OptionalDataString("description")
		maxParallel, ok := a.OptionalDataInt64("maxParallelItems")
		if !ok {
			maxParallel = 1
		}
		q, createErr := h.engine.CreateQueue(ctx, projectID, name, desc, int(maxParallel))
		if createErr != nil {
			err = createErr
			break
		}
		result, err = tools.JSONResult(q)
	case "get":
		id, idErr := a.RequireQueueID()
		if idErr != nil {
			err = idErr
			break
		}
		q, getErr := h.engine.GetQueueByID(ctx, id)
		if getErr != nil {
			err = getErr
			break
		}
		result, err = tools.JSONResult(q)
	case "list":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		qs, listErr := h.engine.ListQueuesByProject(ctx, projectID)
		if listErr != nil {
			err = listErr
			break
		}
		result, err = tools.JSONResult(qs)
	case "update":
		id, idErr := a.RequireQueueID()
		if idErr != nil {
			err = idErr
			break
		}
		data := a.DataObject()
		var name, desc *string
		var status *domain.QueueStatus
		var maxParallel *int
		if v, ok := data["name"].(string); ok {
			name = &v
		}
		if v, ok := data["description"].(string); ok {
			desc = &v
		}
		if v, ok := data["status"].(string); ok {
			s := domain.QueueStatus(v)
			status = &s
		}
		if v, ok := data["maxParallelItems"].(float64); ok {
			n := int(v)
			maxParallel = &n
		}
		q, updateErr := h.engine.UpdateQueue(ctx, id, name, desc, status, maxParallel)
		if updateErr != nil {
			err = updateErr
			break
		}
		result, err = tools.JSONResult(q)
	case "delete":
		id, idErr := a.RequireQueueID()
		if idErr != nil {
			err = idErr
			break
		}
		if delErr := h.engine.DeleteQueue(ctx, id); delErr != nil {
			err = delErr
			break
		}
		result = tools.TextResult(fmt.Sprintf("queue %d deleted", id))
	case "enqueue_ticket":
		queueID, qErr := a.RequireQueueID()
		if qErr != nil {
			err = qErr
			break
		}
		ticketID, tErr := a.RequireDataInt64("ticketId", "701")
		if tErr != nil {
			err = tErr
			break
		}
		priority, _ := a.OptionalDataInt64("priority")
		t, enqueueErr := h.engine.EnqueueTicket(ctx, ticketID, queueID, int(priority))
		if enqueueErr != nil {
			err = enqueueErr
			break
		}
		result, err = tools.JSONResult(t)
	case "enqueue_task":
		queueID, qErr := a.RequireQueueID()
		if qErr != nil {
			err = qErr
			break
		}
		ticketID, tErr := a.RequireDataInt64("ticketId", "701")
		if tErr != nil {
			err = tErr
			break
		}
		taskID, taskErr := a.RequireDataInt64("taskId", "801")
		if taskErr != nil {
			err = taskErr
			break
		}
		priority, _ := a.OptionalDataInt64("priority")
		t, enqueueErr := h.engine.EnqueueTask(ctx, ticketID, taskID, queueID, int(priority))
		if enqueueErr != nil {
			err = enqueueErr
			break
		}
		result, err = tools.JSONResult(t)
	case "enqueue_ticket_with_all_tasks":
		queueID, qErr := a.RequireQueueID()
		if qErr != nil {
			err = qErr
			break
		}
		ticketID, tErr := a.RequireDataInt64("ticketId", "701")
		if tErr != nil {
			err = tErr
			break
		}
		priority, _ := a.OptionalDataInt64("priority")
		ticket, tasks, enqueueErr := h.engine.EnqueueTicketWithAllTasks(ctx, queueID, ticketID, int(priority))
		if enqueueErr != nil {
			err = enqueueErr
			break
		}
		result, err = tools.JSONResult(map[string]any{"ticket": ticket, "tasks": tasks})
	case "dequeue_ticket":
		ticketID, tErr := a.RequireDataInt64("ticketId", "701")
		if tErr != nil {
			err = tErr
			break
		}
		if dequeueErr := h.engine.DequeueTicket(ctx, ticketID); dequeueErr != nil {
			err = dequeueErr
			break
		}
		result = tools.TextResult(fmt.Sprintf("ticket %d dequeued", ticketID))
	case "dequeue_task":
		ticketID, tErr := a.RequireDataInt64("ticketId", "701")
		if tErr != nil {
			err = tErr
			break
		}
		taskID, taskErr := a.RequireDataInt64("taskId", "801")
		if taskErr != nil {
			err = taskErr
			break
		}
		if dequeueErr := h.engine.DequeueTask(ctx, ticketID, taskID); dequeueErr != nil {
			err = dequeueErr
			break
		}
		result = tools.TextResult(fmt.Sprintf("task %d dequeued", taskID))
	case "reorder":
		queueID, qErr := a.RequireQueueID()
		if qErr != nil {
			err = qErr
			break
		}
		prioritiesRaw, ok := a.DataObject()["priorities"].(map[string]any)
		if !ok {
			err = mcperr.Validation("reorder", "priorities")
			break
		}
		priorities := make(map[string]int, len(prioritiesRaw))
		for k, v := range prioritiesRaw {
			if f, ok := v.(float64); ok {
				priorities[k] = int(f)
			}
		}
		applied, skipped, reorderErr := h.engine.ReorderQueueItems(ctx, queueID, priorities)
		if reorderErr != nil {
			err = reorderErr
			break
		}
		result, err = tools.JSONResult(map[string]any{"applied": applied, "skipped": skipped})
	case "get_stats":
		queueID, qErr := a.RequireQueueID()
		if qErr != nil {
			err = qErr
			break
		}
		stats, statsErr := h.engine.GetQueueStats(ctx, queueID)
		if statsErr != nil {
			err = statsErr
			break
		}
		result, err = tools.JSONResult(stats)
	case "get_all_stats":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		withStats, statsErr := h.engine.GetQueuesWithStats(ctx, projectID)
		if statsErr != nil {
			err = statsErr
			break
		}
		result, err = tools.JSONResult(withStats)
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
