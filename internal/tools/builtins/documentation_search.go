package builtins

import (
	"context"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/promptliano/mcpd/internal/config"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var documentationSearchActions = []string{"search_code", "search_repositories", "get_readme"}

// NewDocumentationSearch builds the documentation_search tool: read-only
// GitHub code/repository search for pulling in reference documentation.
// Without a token the client runs unauthenticated, subject to GitHub's
// stricter anonymous rate limits.
func NewDocumentationSearch(token config.Secret) *tools.Tool {
	h := &documentationSearchHandler{token: token}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "documentation_search",
			Description: "Search GitHub code and repositories, or fetch a repository README, for reference documentation.",
			InputSchema: objectSchema(map[string]any{
				"action": enumProp("the operation to perform", documentationSearchActions...),
				"data":   objectProp("query (for search_code/search_repositories) or owner/repo (for get_readme)"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type documentationSearchHandler struct {
	token config.Secret
}

func (h *documentationSearchHandler) client(ctx context.Context) *github.Client {
	if !h.token.IsSet() {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: h.token.Value()})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

func (h *documentationSearchHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("documentation_search", documentationSearchActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	gh := h.client(ctx)

	var result *tools.CallResult
	switch a.Action() {
	case "search_code":
		query, qErr := a.RequireDataString("query", "language:go context.Context")
		if qErr != nil {
			err = qErr
			break
		}
		res, _, searchErr := gh.Search.Code(ctx, query, nil)
		if searchErr != nil {
			err = mcperr.Wrap(mcperr.CodeUpstream, "github code search failed", searchErr)
			break
		}
		result, err = tools.JSONResult(res)
	case "search_repositories":
		query, qErr := a.RequireDataString("query", "mcp server language:go")
		if qErr != nil {
			err = qErr
			break
		}
		res, _, searchErr := gh.Search.Repositories(ctx, query, nil)
		if searchErr != nil {
			err = mcperr.Wrap(mcperr.CodeUpstream, "github repository search failed", searchErr)
			break
		}
		result, err = tools.JSONResult(res)
	case "get_readme":
		owner, ownerErr := a.RequireDataString("owner", "promptliano")
		if ownerErr != nil {
			err = ownerErr
			break
		}
		repoName, repoErr := a.RequireDataString("repo", "mcpd")
		if repoErr != nil {
			err = repoErr
			break
		}
		readme, _, readmeErr := gh.Repositories.GetReadme(ctx, owner, repoName, nil)
		if readmeErr != nil {
			err = mcperr.Wrap(mcperr.CodeUpstream, "fetching readme failed", readmeErr)
			break
		}
		content, decodeErr := readme.GetContent()
		if decodeErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "decoding readme failed", decodeErr)
			break
		}
		result = tools.TextResult(content)
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
