package builtins

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var tabManagerActions = []string{"list", "open", "close", "set_active", "get_active"}

// Tab is an open editor-style view onto a resource (a file or a ticket)
// within one project, letting a client track what it currently has open.
type Tab struct {
	ID           string `json:"id"`
	ResourceType string `json:"resourceType"` // "file" | "ticket"
	ResourceID   int64  `json:"resourceId"`
	Active       bool   `json:"active"`
}

type tabState struct {
	mu         sync.Mutex
	tabs       map[string]*Tab
	activeID   string
}

// NewTabManager builds the tab_manager tool: per-project open-resource
// tracking for a client UI.
func NewTabManager() *tools.Tool {
	h := &tabManagerHandler{byProject: make(map[int64]*tabState)}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "tab_manager",
			Description: "Track which files or tickets a client currently has open for a project.",
			InputSchema: objectSchema(map[string]any{
				"action":    enumProp("the operation to perform", tabManagerActions...),
				"projectId": numberProp("project scope for every action"),
				"data":      objectProp("tabId/resourceType/resourceId payload"),
			}, "action", "projectId"),
		},
		Handle: h.Handle,
	}
}

type tabManagerHandler struct {
	mu        sync.Mutex
	byProject map[int64]*tabState
}

func (h *tabManagerHandler) stateFor(projectID int64) *tabState {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.byProject[projectID]
	if !ok {
		st = &tabState{tabs: make(map[string]*Tab)}
		h.byProject[projectID] = st
	}
	return st
}

func (h *tabManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("tab_manager", tabManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	projectID, err := a.RequireProjectID()
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	st := h.stateFor(projectID)

	var result *tools.CallResult
	switch a.Action() {
	case "list":
		st.mu.Lock()
		out := make([]*Tab, 0, len(st.tabs))
		for _, t := range st.tabs {
			out = append(out, t)
		}
		st.mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		result, err = tools.JSONResult(out)
	case "open":
		resourceType, typeErr := a.RequireDataString("resourceType", "file")
		if typeErr != nil {
			err = typeErr
			break
		}
		resourceID, idErr := a.RequireDataInt64("resourceId", "501")
		if idErr != nil {
			err = idErr
			break
		}
		tabID := fmt.Sprintf("%s:%d", resourceType, resourceID)
		st.mu.Lock()
		t := &Tab{ID: tabID, ResourceType: resourceType, ResourceID: resourceID}
		st.tabs[tabID] = t
		st.mu.Unlock()
		result, err = tools.JSONResult(t)
	case "close":
		tabID, idErr := a.RequireDataString("tabId", "file:501")
		if idErr != nil {
			err = idErr
			break
		}
		st.mu.Lock()
		_, ok := st.tabs[tabID]
		delete(st.tabs, tabID)
		if st.activeID == tabID {
			st.activeID = ""
		}
		st.mu.Unlock()
		if !ok {
			err = mcperr.NotFound("tab", tabID)
			break
		}
		result = tools.TextResult(fmt.Sprintf("tab %q closed", tabID))
	case "set_active":
		tabID, idErr := a.RequireDataString("tabId", "file:501")
		if idErr != nil {
			err = idErr
			break
		}
		st.mu.Lock()
		_, ok := st.tabs[tabID]
		if ok {
			for _, t := range st.tabs {
				t.Active = t.ID == tabID
			}
			st.activeID = tabID
		}
		st.mu.Unlock()
		if !ok {
			err = mcperr.NotFound("tab", tabID)
			break
		}
		result = tools.TextResult(fmt.Sprintf("tab %q is now active", tabID))
	case "get_active":
		st.mu.Lock()
		t, ok := st.tabs[st.activeID]
		st.mu.Unlock()
		if !ok {
			result = tools.TextResult("no active tab")
			break
		}
		result, err = tools.JSONResult(t)
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
