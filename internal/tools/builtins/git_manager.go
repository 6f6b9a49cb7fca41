package builtins

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var gitManagerActions = []string{"status", "log", "current_branch", "branches", "diff"}

// NewGitManager builds the git_manager tool: read-only inspection of a
// project's working tree via go-git, opened against domain.Project.Path.
func NewGitManager(store domain.Store) *tools.Tool {
	h := &gitManagerHandler{store: store}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "git_manager",
			Description: "Inspect a project's git working tree: status, log, branches, and diffs.",
			InputSchema: objectSchema(map[string]any{
				"action":    enumProp("the operation to perform", gitManagerActions...),
				"projectId": numberProp("project whose repository path is inspected"),
				"data":      objectProp("limit (for log) or filePath (for diff)"),
			}, "action", "projectId"),
		},
		Handle: h.Handle,
	}
}

type gitManagerHandler struct {
	store domain.Store
}

func (h *gitManagerHandler) openRepo(ctx context.Context, projectID int64) (*git.Repository, error) {
	p, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpen(p.Path)
	if err != nil {
		return nil, mcperr.New(mcperr.CodeInvalidState, fmt.Sprintf("project %d is not a git repository: %v", projectID, err)).
			WithSuggestion("run `git init` in the project path, or point the project at a repository root")
	}
	return repo, nil
}

func (h *gitManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("git_manager", gitManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	projectID, err := a.RequireProjectID()
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	repo, err := h.openRepo(ctx, projectID)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "status":
		wt, wtErr := repo.Worktree()
		if wtErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "reading worktree failed", wtErr)
			break
		}
		st, statusErr := wt.Status()
		if statusErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "git status failed", statusErr)
			break
		}
		entries := make(map[string]string, len(st))
		for path, s := range st {
			entries[path] = fmt.Sprintf("staging=%c worktree=%c", s.Staging, s.Worktree)
		}
		result, err = tools.JSONResult(entries)
	case "current_branch":
		head, headErr := repo.Head()
		if headErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "reading HEAD failed", headErr)
			break
		}
		name := head.Hash().String()[:8]
		if head.Name().IsBranch() {
			name = head.Name().Short()
		}
		result = tools.TextResult(name)
	case "branches":
		refs, refsErr := repo.Branches()
		if refsErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "listing branches failed", refsErr)
			break
		}
		var names []string
		walkErr := refs.ForEach(func(ref *plumbing.Reference) error {
			names = append(names, ref.Name().Short())
			return nil
		})
		if walkErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "listing branches failed", walkErr)
			break
		}
		result, err = tools.JSONResult(names)
	case "log":
		limit, ok := a.OptionalDataInt64("limit")
		if !ok || limit <= 0 {
			limit = 20
		}
		head, headErr := repo.Head()
		if headErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "reading HEAD failed", headErr)
			break
		}
		iter, logErr := repo.Log(&git.LogOptions{From: head.Hash()})
		if logErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "git log failed", logErr)
			break
		}
		type commit struct {
			Hash    string `json:"hash"`
			Author  string `json:"author"`
			Message string `json:"message"`
			When    string `json:"when"`
		}
		var commits []commit
		walkErr := iter.ForEach(func(c *object.Commit) error {
			if int64(len(commits)) >= limit {
				return fmt.Errorf("stop")
			}
			commits = append(commits, commit{
				Hash:    c.Hash.String(),
				Author:  c.Author.Name,
				Message: c.Message,
				When:    c.Author.When.UTC().Format("2006-01-02T15:04:05Z"),
			})
			return nil
		})
		if walkErr != nil && walkErr.Error() != "stop" {
			err = mcperr.Wrap(mcperr.CodeInternal, "git log failed", walkErr)
			break
		}
		result, err = tools.JSONResult(commits)
	case "diff":
		filePath, pathErr := a.RequireDataString("filePath", "main.go")
		if pathErr != nil {
			err = pathErr
			break
		}
		wt, wtErr := repo.Worktree()
		if wtErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "reading worktree failed", wtErr)
			break
		}
		st, statusErr := wt.Status()
		if statusErr != nil {
			err = mcperr.Wrap(mcperr.CodeInternal, "git status failed", statusErr)
			break
		}
		s, tracked := st[filePath]
		if !tracked {
			result = tools.TextResult(fmt.Sprintf("%q has no pending changes", filePath))
			break
		}
		result = tools.TextResult(fmt.Sprintf("%q: staging=%c worktree=%c", filePath, s.Staging, s.Worktree))
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
