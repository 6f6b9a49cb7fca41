package builtins

import (
	"context"

	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var mcpSetupValidatorActions = []string{"validate"}

// NewMCPSetupValidator builds the mcp_setup_validator tool: sanity-checks a
// proposed external MCP server entry before it is added to config.
func NewMCPSetupValidator() *tools.Tool {
	h := &mcpSetupValidatorHandler{}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "mcp_setup_validator",
			Description: "Validate a proposed external MCP server configuration before it is wired in.",
			InputSchema: objectSchema(map[string]any{
				"action": enumProp("the operation to perform", mcpSetupValidatorActions...),
				"data":   objectProp("id/command/args/url to validate"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type mcpSetupValidatorHandler struct{}

func (h *mcpSetupValidatorHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("mcp_setup_validator", mcpSetupValidatorActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "validate":
		id, idErr := a.RequireDataString("id", "github")
		if idErr != nil {
			err = idErr
			break
		}
		command, _ := a.OptionalDataString("command")
		url, _ := a.OptionalDataString("url")

		var problems []string
		if command == "" && url == "" {
			problems = append(problems, "either command or url must be set")
		}
		if command != "" && url != "" {
			problems = append(problems, "command and url are mutually exclusive; pick one transport")
		}
		if len(problems) == 0 {
			result = tools.TextResult("server " + id + " is valid")
			break
		}
		result, err = tools.JSONResult(map[string]any{
			"valid":    false,
			"id":       id,
			"problems": problems,
		})
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
