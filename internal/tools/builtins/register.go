// Package builtins implements mcpd's seventeen canonical built-in tools and
// assembles them into a tools.Registry.
package builtins

import (
	"github.com/promptliano/mcpd/internal/config"
	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/queue"
	"github.com/promptliano/mcpd/internal/search"
	"github.com/promptliano/mcpd/internal/tools"
)

// Dependencies collects everything the built-in tool constructors need.
// External is left to the caller (cmd/mcpd) to wire once the External MCP
// Client Manager exists.
type Dependencies struct {
	Store    domain.Store
	Clock    domain.Clock
	Queue    *queue.Engine
	LLM      domain.LLMClient
	Index    search.Index
	External config.ExternalConfig
	GitHub   config.Secret
}

// NewRegistry builds the tools.Registry containing every built-in tool, in
// the catalog order clients see from tools/list.
func NewRegistry(deps Dependencies) *tools.Registry {
	return tools.NewRegistry(
		NewProjectManager(deps.Store, deps.Clock, deps.Index),
		NewPromptManager(deps.Store),
		NewMarkdownPromptManager(deps.Store),
		NewTicketManager(deps.Store, deps.Clock),
		NewTaskManager(deps.Store, deps.Clock),
		NewQueueManager(deps.Queue),
		NewQueueProcessor(deps.Queue),
		NewAgentManager(),
		NewCommandManager(),
		NewAIAssistant(deps.LLM),
		NewGitManager(deps.Store),
		NewDocumentationSearch(deps.GitHub),
		NewWebsiteDemoRunner(),
		NewMCPConfigGenerator(deps.External),
		NewMCPCompatibilityChecker(),
		NewMCPSetupValidator(),
		NewTabManager(),
	)
}
