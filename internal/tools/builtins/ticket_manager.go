package builtins

import (
	"context"
	"fmt"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var ticketManagerActions = []string{
	"list", "get", "create", "update", "delete",
	"batch_create", "batch_update", "batch_delete",
}

const maxBatchSize = 100

// NewTicketManager builds the ticket_manager tool: CRUD plus bounded batch
// operations over a project's tickets (spec §4.2 batch contract).
func NewTicketManager(store domain.Store, clock domain.Clock) *tools.Tool {
	h := &ticketManagerHandler{store: store, clock: clock}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "ticket_manager",
			Description: "Create and manage tickets: units of planned work that can carry tasks and be enqueued.",
			InputSchema: objectSchema(map[string]any{
				"action":    enumProp("the operation to perform", ticketManagerActions...),
				"projectId": numberProp("target project id"),
				"ticketId":  numberProp("target ticket id, required by get/update/delete"),
				"data":      objectProp("title/overview/priority payload, or items[] for batch_*"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type ticketManagerHandler struct {
	store domain.Store
	clock domain.Clock
}

type batchResult struct {
	SuccessCount int              `json:"successCount"`
	FailureCount int              `json:"failureCount"`
	Failed       []batchItemError `json:"failed,omitempty"`
}

type batchItemError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

func (h *ticketManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("ticket_manager", ticketManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "list":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		tickets, listErr := h.store.ListTickets(ctx, projectID)
		if listErr != nil {
			err = listErr
			break
		}
		result, err = tools.JSONResult(tickets)
	case "get":
		id, idErr := a.RequireTicketID()
		if idErr != nil {
			err = idErr
			break
		}
		t, getErr := h.store.GetTicket(ctx, id)
		if getErr != nil {
			err = mcperr.NotFound("ticket", id)
			break
		}
		result, err = tools.JSONResult(t)
	case "create":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		t, createErr := h.createOne(ctx, projectID, a.DataObject())
		if createErr != nil {
			err = createErr
			break
		}
		result, err = tools.JSONResult(t)
	case "update":
		id, idErr := a.RequireTicketID()
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
		id, idErr := a.RequireTicketID()
		if idErr != nil {
			err = idErr
			break
		}
		if delErr := h.store.DeleteTicket(ctx, id); delErr != nil {
			err = mcperr.NotFound("ticket", id)
			break
		}
		result = tools.TextResult(fmt.Sprintf("ticket %d deleted", id))
	case "batch_create":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		items, itemsErr := a.RequireDataArray("items")
		if itemsErr != nil {
			err = itemsErr
			break
		}
		result, err = h.batchCreate(ctx, projectID, items)
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
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}

func (h *ticketManagerHandler) createOne(ctx context.Context, projectID int64, data map[string]any) (*domain.Ticket, error) {
	title, _ := data["title"].(string)
	if title == "" {
		return nil, mcperr.Validation("create", "title")
	}
	overview, _ := data["overview"].(string)
	priority := domain.PriorityNormal
	if p, ok := data["priority"].(string); ok && p != "" {
		priority = domain.Priority(p)
	}
	now := h.clock.Now()
	return h.store.CreateTicket(ctx, &domain.Ticket{
		ProjectID: projectID, Title: title, Overview: overview,
		Status: domain.TicketOpen, Priority: priority, Created: now, Updated: now,
	})
}

func (h *ticketManagerHandler) updateOne(ctx context.Context, id int64, data map[string]any) (*domain.Ticket, error) {
	t, err := h.store.UpdateTicket(ctx, id, func(t *domain.Ticket) {
		if title, ok := data["title"].(string); ok {
			t.Title = title
		}
		if overview, ok := data["overview"].(string); ok {
			t.Overview = overview
		}
		if status, ok := data["status"].(string); ok {
			t.Status = domain.TicketStatus(status)
		}
		if priority, ok := data["priority"].(string); ok {
			t.Priority = domain.Priority(priority)
		}
		t.Updated = h.clock.Now()
	})
	if err != nil {
		return nil, mcperr.NotFound("ticket", id)
	}
	return t, nil
}

func (h *ticketManagerHandler) batchCreate(ctx context.Context, projectID int64, items []any) (*tools.CallResult, error) {
	if len(items) > maxBatchSize {
		return nil, mcperr.New(mcperr.CodeValidation, fmt.Sprintf("batch_create accepts at most %d items", maxBatchSize))
	}
	res := batchResult{}
	created := make([]*domain.Ticket, 0, len(items))
	for i, raw := range items {
		data, ok := raw.(map[string]any)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "item must be an object"})
			continue
		}
		t, err := h.createOne(ctx, projectID, data)
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

func (h *ticketManagerHandler) batchUpdate(ctx context.Context, items []any) (*tools.CallResult, error) {
	if len(items) > maxBatchSize {
		return nil, mcperr.New(mcperr.CodeValidation, fmt.Sprintf("batch_update accepts at most %d items", maxBatchSize))
	}
	res := batchResult{}
	updated := make([]*domain.Ticket, 0, len(items))
	for i, raw := range items {
		data, ok := raw.(map[string]any)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "item must be an object"})
			continue
		}
		idFloat, ok := data["ticketId"].(float64)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "missing ticketId"})
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

func (h *ticketManagerHandler) batchDelete(ctx context.Context, items []any) (*tools.CallResult, error) {
	if len(items) > maxBatchSize {
		return nil, mcperr.New(mcperr.CodeValidation, fmt.Sprintf("batch_delete accepts at most %d items", maxBatchSize))
	}
	res := batchResult{}
	for i, raw := range items {
		idFloat, ok := raw.(float64)
		if !ok {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "item must be a ticketId number"})
			continue
		}
		if err := h.store.DeleteTicket(ctx, int64(idFloat)); err != nil {
			res.FailureCount++
			res.Failed = append(res.Failed, batchItemError{Index: i, Message: "not found"})
			continue
		}
		res.SuccessCount++
	}
	return tools.JSONResult(res)
}
