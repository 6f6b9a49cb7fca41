package builtins

import (
	"encoding/json"

	"github.com/promptliano/mcpd/internal/config"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"

	"context"
)

var mcpConfigGeneratorActions = []string{"list_servers", "generate_client_config"}

// clientConfigTemplates maps a known MCP client to the JSON shape it expects
// an external-server entry to take, keyed the way each client's own config
// file documents it.
var clientConfigTemplates = map[string]string{
	"claude-desktop": "mcpServers",
	"claude-code":    "mcpServers",
	"cursor":         "mcpServers",
	"vscode":         "servers",
	"windsurf":       "mcpServers",
}

// NewMCPConfigGenerator builds the mcp_config_generator tool: it renders the
// configured external MCP servers (config.ExternalConfig) into the snippet
// shape a given client expects in its own config file.
func NewMCPConfigGenerator(external config.ExternalConfig) *tools.Tool {
	h := &mcpConfigGeneratorHandler{external: external}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "mcp_config_generator",
			Description: "List configured external MCP servers and generate client-specific config snippets for them.",
			InputSchema: objectSchema(map[string]any{
				"action": enumProp("the operation to perform", mcpConfigGeneratorActions...),
				"data":   objectProp("client name for generate_client_config"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type mcpConfigGeneratorHandler struct {
	external config.ExternalConfig
}

func (h *mcpConfigGeneratorHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("mcp_config_generator", mcpConfigGeneratorActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "list_servers":
		result, err = tools.JSONResult(h.external.Servers)
	case "generate_client_config":
		client, clientErr := a.RequireDataString("client", "claude-desktop")
		if clientErr != nil {
			err = clientErr
			break
		}
		key, known := clientConfigTemplates[client]
		if !known {
			err = mcperr.New(mcperr.CodeValidation, "unknown MCP client").
				WithSuggestion("use mcp_compatibility_checker to list supported clients")
			break
		}
		servers := make(map[string]any, len(h.external.Servers))
		for _, s := range h.external.Servers {
			entry := map[string]any{}
			if s.Command != "" {
				entry["command"] = s.Command
				entry["args"] = s.Args
			}
			if s.URL != "" {
				entry["url"] = s.URL
			}
			servers[s.ID] = entry
		}
		snippet, marshalErr := json.MarshalIndent(map[string]any{key: servers}, "", "  ")
		if marshalErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "rendering config snippet failed", marshalErr)
			break
		}
		result = tools.TextResult(string(snippet))
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
