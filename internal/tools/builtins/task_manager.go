package builtins

import (
	"context"
	"fmt"
	"sort"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var taskManagerActions = []string{
	"list", "get", "create", "update", "delete", "reorder",
	"batch_create", "batch_update", "batch_delete", "batch_move",
}

// NewTaskManager builds the task_manager tool: CRUD plus ordering and bounded
// batch operations over a ticket's tasks.
func NewTaskManager(store domain.Store, clock domain.Clock) *tools.Tool {
	h := &taskManagerHandler{store: store, clock: clock}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "task_manager",
			Description: "Create and manage the fine-grained tasks that belong to a ticket.",
			InputSchema: objectSchema(map[string]any{
				"action":   enumProp("the operation to perform", taskManagerActions...),
				"ticketId": numberProp("owning ticket id, required by list/create/batch_move"),
				"taskId":   numberProp("target task id, required by get/update/delete"),
				"data":     objectProp("content/description/orderIndex payload, or items[] for batch_*"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type taskManagerHandler struct {
	store domain.Store
	clock domain.Clock
}

func (h *taskManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("task_manager", taskManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "list":
		ticketID, tErr := a.RequireTicketID()
		if tErr != nil {
			err = tErr
			break
		}
		tasks, listErr := h.store.ListTasks(ctx, ticketID)
		if listErr != nil {
			err = listErr
			break
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].OrderIndex < tasks[j].OrderIndex })
		result, err = tools.JSONResult(tasks)
	case "get":
		id, idErr := a.RequireTaskID()
		if idErr != nil {
			err = idErr
			break
		}
		t, getErr := h.store.GetTask(ctx, id)
		if getErr != nil {
			err = mcperr.NotFound("task", id)
			break
		}
		result, err = tools.JSONResult(t)
	case "create":
		ticketID, tErr := a.RequireTicketID()
		if tErr != nil {
			err = tErr
			break
		}
		t, createErr := h.createOne(ctx, ticketID, a.DataObject())
		if createErr != nil {
			err = createErr
			break
		}
		result, err = tools.JSONResult(t)
	case "update":
		id, idErr := a.RequireTaskID()
		if idErr != nil {
			err = idErr
			break
		}
		t, updateErr := h.updateOne(ctx, id, a.DataObject())
		if updateErr != nil {
			err = updateErr
			break
		}
		result, err = tools.JSONResult(t)
	case "delete":
		id, idErr := a.RequireTaskID()
		if idErr != nil {
			err = idErr
			break
		}
		if delErr := h.store.DeleteTask(ctx, id); delErr != nil {
			err = mcperr.NotFound("task", id)
			break
		}
		result = tools.TextResult(fmt.Sprintf("task %d deleted", id))
	case "reorder":
		ticketID, tErr := a.RequireTicketID()
		if tErr != nil {
			err = tErr
			break
		}
		order, orderErr := a.RequireDataArray("taskIds")
		if orderErr != nil {
			err = orderErr
			break
		}
		result, err = h.reorder(ctx, ticketID, order)
	case "batch_create":
		ticketID, tErr := a.RequireTicketID()
		if tErr != nil {
			err = tErr
			break
		}
		items, itemsErr := a.RequireDataArray("items")
		if itemsErr != nil {
			err = itemsErr
			break
		}
		result, err = h.batchCreate(ctx, ticketID, items)
	case "batch_update":
		items, itemsErr := a.RequireDataArray("items")
		if itemsErr != nil {
			err = itemsErr
			break
		}
		result, err = h.batchUpdate(ctx, items)
	case "batch_delete":
		items, itemsErr := a.RequireDataArray("items")
		if itemsErr != nil {
			err = itemsErr
			break
		}
		result, err = h.batchDelete(ctx, items)
	case "batch_move":
		ticketID, tErr := a.RequireTicketID()
		if tErr != nil {
			err = tErr
			break
		}
		items, itemsErr := a.RequireDataArray("items")
		if itemsErr != nil {
			err = itemsErr
			break
		}
		result, err = h.batchMove(ctx, ticketID, items)
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}

func (h *taskManagerHandler) createOne(ctx context.Context, ticketID int64, data map[string]any) (*domain.Task, error) {
	content, _ := data["content"].(string)
	if content == "" {
		return nil, mcperr.Validation("create", "content")
	}
	description, _ := data["description"].(string)
	return h.store.CreateTask(ctx, &domain.Task{TicketID: ticketID, Content: content, Description: description})
}

func (h *taskManagerHandler) updateOne(ctx context.Context, id int64, data map[string]any) (*domain.Task, error) {
	t, err := h.store.UpdateTask(ctx, id, func(t *domain.Task) {
		if content, ok := data["content"].(string); ok {
			t.Content = content
		}
		if description, ok := data["description"].(string); ok {
			t.Description = description
		}
		if done, ok := data["done"].(bool); ok {
			t.Done = done
		}
		if orderIndex, ok := data["orderIndex"].(float64); ok {
			t.OrderIndex = int(orderIndex)
		}
		if agentID, ok := data["agentId"].(string); ok {
			t.AgentID = agentID
		}
	})
	if err != nil {
		return nil, mcperr.NotFound("task", id)
	}
	return t, nil
}

func (h *taskManagerHandler) reorder(ctx context.Context, ticketID int64, taskIDs []any) (*tools.CallResult, error) {
	for i, v := range taskIDs {
		idFloat, ok := v.(float64)
		if !ok {
			continue
		}
		if _, err := h.store.UpdateTask(ctx, int64(idFloat), func(t *domain.Task) {
			t.OrderIndex = i
		}); err != nil {
			return nil, mcperr.NotFound("task", int64(idFloat))
		}
	}
	tasks, err := h.store.ListTasks(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].OrderIndex < tasks[j].OrderIndex })
	return tools.JSONResult(tasks)
}

func (h *taskManagerHandler) batchCreate(ctx context.Context, ticketID int64, items []any) (*tools.CallResult, error) {
	if len(items) > maxBatchSize {
		return nil, mcperr.New(mcperr.CodeValidation, fmt.Sprintf("batch_create accepts at most %d items", maxBatchSize))
	}
	res := batchResult{}
	created := make([]*domain.Task, 0, len(items))
	for i, raw := range items {
		data, ok := raw.(map[string]any)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "item must be an object"})
			continue
		}
		t, err := h.createOne(ctx, ticketID, data)
		if err != nil {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: err.Error()})
			continue
		}
		res.SuccessCount++
		created = append(created, t)
	}
	return tools.JSONResult(map[string]any{"result": res, "created": created})
}

func (h *taskManagerHandler) batchUpdate(ctx context.Context, items []any) (*tools.CallResult, error) {
	if len(items) > maxBatchSize {
		return nil, mcperr.New(mcperr.CodeValidation, fmt.Sprintf("batch_update accepts at most %d items", maxBatchSize))
	}
	res := batchResult{}
	updated := make([]*domain.Task, 0, len(items))
	for i, raw := range items {
		data, ok := raw.(map[string]any)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "item must be an object"})
			continue
		}
		idFloat, ok := data["taskId"].(float64)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "missing taskId"})
			continue
		}
		t, err := h.updateOne(ctx, int64(idFloat), data)
		if err != nil {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: err.Error()})
			continue
		}
		res.SuccessCount++
		updated = append(updated, t)
	}
	return tools.JSONResult(map[string]any{"result": res, "updated": updated})
}

func (h *taskManagerHandler) batchDelete(ctx context.Context, items []any) (*tools.CallResult, error) {
	if len(items) > maxBatchSize {
		return nil, mcperr.New(mcperr.CodeValidation, fmt.Sprintf("batch_delete accepts at most %d items", maxBatchSize))
	}
	res := batchResult{}
	for i, raw := range items {
		idFloat, ok := raw.(float64)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "item must be a taskId number"})
			continue
		}
		if err := h.store.DeleteTask(ctx, int64(idFloat)); err != nil {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "not found"})
			continue
		}
		res.SuccessCount++
	}
	return tools.JSONResult(res)
}

// batchMove reassigns a set of tasks to ticketID, used to move tasks between tickets.
func (h *taskManagerHandler) batchMove(ctx context.Context, ticketID int64, items []any) (*tools.CallResult, error) {
	if len(items) > maxBatchSize {
		return nil, mcperr.New(mcperr.CodeValidation, fmt.Sprintf("batch_move accepts at most %d items", maxBatchSize))
	}
	res := batchResult{}
	for i, raw := range items {
		idFloat, ok := raw.(float64)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "item must be a taskId number"})
			continue
		}
		if _, err := h.store.UpdateTask(ctx, int64(idFloat), func(t *domain.Task) {
			t.TicketID = ticketID
		}); err != nil {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "not found"})
			continue
		}
		res.SuccessCount++
	}
	return tools.JSONResult(res)
}
