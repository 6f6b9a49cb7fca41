package builtins

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var commandManagerActions = []string{"list", "get", "create", "update", "delete", "execute"}

// Command is a named, parameterized text template (a custom slash command),
// rendered by substituting "{{arg}}" placeholders — it never shells out, so
// execute is side-effect free from the host's perspective.
type Command struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Template string   `json:"template"`
	ArgNames []string `json:"argNames,omitempty"`
}

type commandRegistry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewCommandManager builds the command_manager tool: CRUD plus template
// rendering for custom slash commands.
func NewCommandManager() *tools.Tool {
	h := &commandManagerHandler{reg: &commandRegistry{commands: make(map[string]*Command)}}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "command_manager",
			Description: "Create and run named, parameterized text command templates.",
			InputSchema: objectSchema(map[string]any{
				"action": enumProp("the operation to perform", commandManagerActions...),
				"data":   objectProp("commandId/name/template/argNames payload, or args for execute"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type commandManagerHandler struct {
	reg *commandRegistry
}

func (h *commandManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("command_manager", commandManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "list":
		h.reg.mu.RLock()
		out := make([]*Command, 0, len(h.reg.commands))
		for _, c := range h.reg.commands {
			out = append(out, c)
		}
		h.reg.mu.RUnlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		result, err = tools.JSONResult(out)
	case "get":
		id, idErr := a.RequireDataString("commandId", "deploy")
		if idErr != nil {
			err = idErr
			break
		}
		h.reg.mu.RLock()
		c, ok := h.reg.commands[id]
		h.reg.mu.RUnlock()
		if !ok {
			err = mcperr.NotFound("command", id)
			break
		}
		result, err = tools.JSONResult(c)
	case "create":
		id, idErr := a.RequireDataString("commandId", "deploy")
		if idErr != nil {
			err = idErr
			break
		}
		name, nameErr := a.RequireDataString("name", "Deploy")
		if nameErr != nil {
			err = nameErr
			break
		}
		template, tmplErr := a.RequireDataString("template", "deploy {{env}} from {{branch}}")
		if tmplErr != nil {
			err = tmplErr
			break
		}
		argNames := stringSliceFromAny(a.DataObject()["argNames"])
		c := &Command{ID: id, Name: name, Template: template, ArgNames: argNames}
		h.reg.mu.Lock()
		if _, exists := h.reg.commands[id]; exists {
			h.reg.mu.Unlock()
			err = mcperr.New(mcperr.CodeAlreadyExists, fmt.Sprintf("command %q already exists", id))
			break
		}
		h.reg.commands[id] = c
		h.reg.mu.Unlock()
		result, err = tools.JSONResult(c)
	case "update":
		id, idErr := a.RequireDataString("commandId", "deploy")
		if idErr != nil {
			err = idErr
			break
		}
		data := a.DataObject()
		h.reg.mu.Lock()
		c, ok := h.reg.commands[id]
		if !ok {
			h.reg.mu.Unlock()
			err = mcperr.NotFound("command", id)
			break
		}
		if name, ok := data["name"].(string); ok {
			c.Name = name
		}
		if template, ok := data["template"].(string); ok {
			c.Template = template
		}
		if argNames := stringSliceFromAny(data["argNames"]); argNames != nil {
			c.ArgNames = argNames
		}
		h.reg.mu.Unlock()
		result, err = tools.JSONResult(c)
	case "delete":
		id, idErr := a.RequireDataString("commandId", "deploy")
		if idErr != nil {
			err = idErr
			break
		}
		h.reg.mu.Lock()
		_, ok := h.reg.commands[id]
		delete(h.reg.commands, id)
		h.reg.mu.Unlock()
		if !ok {
			err = mcperr.NotFound("command", id)
			break
		}
		result = tools.TextResult(fmt.Sprintf("command %q deleted", id))
	case "execute":
		id, idErr := a.RequireDataString("commandId", "deploy")
		if idErr != nil {
			err = idErr
			break
		}
		h.reg.mu.RLock()
		c, ok := h.reg.commands[id]
		h.reg.mu.RUnlock()
		if !ok {
			err = mcperr.NotFound("command", id)
			break
		}
		args, _ := a.DataObject()["args"].(map[string]any)
		rendered := c.Template
		for k, v := range args {
			s, ok := v.(string)
			if !ok {
				continue
			}
			rendered = strings.ReplaceAll(rendered, "{{"+k+"}}", s)
		}
		result = tools.TextResult(rendered)
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}

func stringSliceFromAny(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
