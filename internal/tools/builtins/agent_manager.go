package builtins

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var agentManagerActions = []string{"list", "get", "register", "update", "unregister"}

// AgentProfile describes a named worker agent capable of claiming queue
// items, distinct from domain.Task.AgentID which is just the claim marker.
type AgentProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	QueueID     *int64 `json:"queueId,omitempty"`
	Active      bool   `json:"active"`
}

// agentRegistry is an in-memory catalog of known agents. Agent identity is
// operational metadata, not a durable domain entity the spec's data model
// names, so it lives beside the tool rather than behind domain.Store.
type agentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*AgentProfile
}

func newAgentRegistry() *agentRegistry {
	return &agentRegistry{agents: make(map[string]*AgentProfile)}
}

// NewAgentManager builds the agent_manager tool: register/inspect the
// named agents that queue_processor's get_next_task claims are attributed to.
func NewAgentManager() *tools.Tool {
	h := &agentManagerHandler{reg: newAgentRegistry()}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "agent_manager",
			Description: "Register and inspect the named agents that claim queue work.",
			InputSchema: objectSchema(map[string]any{
				"action": enumProp("the operation to perform", agentManagerActions...),
				"data":   objectProp("agentId/name/description/queueId/active payload"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type agentManagerHandler struct {
	reg *agentRegistry
}

func (h *agentManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("agent_manager", agentManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "list":
		h.reg.mu.RLock()
		out := make([]*AgentProfile, 0, len(h.reg.agents))
		for _, ag := range h.reg.agents {
			out = append(out, ag)
		}
		h.reg.mu.RUnlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		result, err = tools.JSONResult(out)
	case "get":
		id, idErr := a.RequireDataString("agentId", "agent-1")
		if idErr != nil {
			err = idErr
			break
		}
		h.reg.mu.RLock()
		ag, ok := h.reg.agents[id]
		h.reg.mu.RUnlock()
		if !ok {
			err = mcperr.NotFound("agent", id)
			break
		}
		result, err = tools.JSONResult(ag)
	case "register":
		id, idErr := a.RequireDataString("agentId", "agent-1")
		if idErr != nil {
			err = idErr
			break
		}
		name, nameErr := a.RequireDataString("name", "Build Agent")
		if nameErr != nil {
			err = nameErr
			break
		}
		desc, _ := a.OptionalDataString("description")
		var queueID *int64
		if qid, ok := a.OptionalDataInt64("queueId"); ok {
			queueID = &qid
		}
		ag := &AgentProfile{ID: id, Name: name, Description: desc, QueueID: queueID, Active: true}
		h.reg.mu.Lock()
		if _, exists := h.reg.agents[id]; exists {
			h.reg.mu.Unlock()
			err = mcperr.New(mcperr.CodeAlreadyExists, fmt.Sprintf("agent %q already registered", id))
			break
		}
		h.reg.agents[id] = ag
		h.reg.mu.Unlock()
		result, err = tools.JSONResult(ag)
	case "update":
		id, idErr := a.RequireDataString("agentId", "agent-1")
		if idErr != nil {
			err = idErr
			break
		}
		data := a.DataObject()
		h.reg.mu.Lock()
		ag, ok := h.reg.agents[id]
		if !ok {
			h.reg.mu.Unlock()
			err = mcperr.NotFound("agent", id)
			break
		}
		if name, ok := data["name"].(string); ok {
			ag.Name = name
		}
		if desc, ok := data["description"].(string); ok {
			ag.Description = desc
		}
		if active, ok := data["active"].(bool); ok {
			ag.Active = active
		}
		if qid, ok := data["queueId"].(float64); ok {
			v := int64(qid)
			ag.QueueID = &v
		}
		h.reg.mu.Unlock()
		result, err = tools.JSONResult(ag)
	case "unregister":
		id, idErr := a.RequireDataString("agentId", "agent-1")
		if idErr != nil {
			err = idErr
			break
		}
		h.reg.mu.Lock()
		_, ok := h.reg.agents[id]
		delete(h.reg.agents, id)
		h.reg.mu.Unlock()
		if !ok {
			err = mcperr.NotFound("agent", id)
			break
		}
		result = tools.TextResult(fmt.Sprintf("agent %q unregistered", id))
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
