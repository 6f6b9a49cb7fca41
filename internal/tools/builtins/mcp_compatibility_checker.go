package builtins

import (
	"context"
	"sort"

	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var mcpCompatibilityCheckerActions = []string{"list_clients", "check"}

// compatibilityMatrix records, per known client, which MCP surfaces it is
// known to support. This mirrors what each client's own documentation
// states; it is not discovered at runtime.
var compatibilityMatrix = map[string]struct {
	Transports []string
	Resources  bool
	Prompts    bool
	Sampling   bool
}{
	"claude-desktop": {Transports: []string{"stdio"}, Resources: true, Prompts: true, Sampling: false},
	"claude-code":    {Transports: []string{"stdio", "http"}, Resources: true, Prompts: true, Sampling: true},
	"cursor":         {Transports: []string{"stdio", "http"}, Resources: true, Prompts: false, Sampling: false},
	"vscode":         {Transports: []string{"stdio", "http"}, Resources: true, Prompts: true, Sampling: false},
	"windsurf":       {Transports: []string{"stdio"}, Resources: false, Prompts: false, Sampling: false},
}

// NewMCPCompatibilityChecker builds the mcp_compatibility_checker tool:
// reports which MCP surfaces a named client is known to support.
func NewMCPCompatibilityChecker() *tools.Tool {
	h := &mcpCompatibilityCheckerHandler{}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "mcp_compatibility_checker",
			Description: "Check which MCP surfaces (transports, resources, prompts, sampling) a client is known to support.",
			InputSchema: objectSchema(map[string]any{
				"action": enumProp("the operation to perform", mcpCompatibilityCheckerActions...),
				"data":   objectProp("client name for check"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type mcpCompatibilityCheckerHandler struct{}

func (h *mcpCompatibilityCheckerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("mcp_compatibility_checker", mcpCompatibilityCheckerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "list_clients":
		names := make([]string, 0, len(compatibilityMatrix))
		for name := range compatibilityMatrix {
			names = append(names, name)
		}
		sort.Strings(names)
		result, err = tools.JSONResult(names)
	case "check":
		client, clientErr := a.RequireDataString("client", "claude-desktop")
		if clientErr != nil {
			err = clientErr
			break
		}
		entry, known := compatibilityMatrix[client]
		if !known {
			err = mcperr.NotFound("mcp client", client)
			break
		}
		result, err = tools.JSONResult(map[string]any{
			"client":     client,
			"transports": entry.Transports,
			"resources":  entry.Resources,
			"prompts":    entry.Prompts,
			"sampling":   entry.Sampling,
		})
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
