// Package builtins implements the 15 canonical MCP tools (spec §4.2) as
// tools.Tool values, each dispatching on a single "action" field the way the
// teacher's tool handlers in internal/mcp/tools_*.go dispatch on an
// operation discriminant.
package builtins

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/search"
	"github.com/promptliano/mcpd/internal/tools"
)

var projectManagerActions = []string{
	"list", "get", "create", "update", "delete", "delete_file",
	"get_summary", "get_summary_advanced", "get_summary_metrics",
	"browse_files", "get_file_content", "get_file_content_partial",
	"update_file_content", "suggest_files", "get_selection_context",
	"search", "create_file", "get_file_tree", "overview",
}

// NewProjectManager builds the project_manager tool. idx may be nil, in
// which case suggest_files/search fall back to listing files unscored.
func NewProjectManager(store domain.Store, clock domain.Clock, idx search.Index) *tools.Tool {
	h := &projectManagerHandler{store: store, clock: clock, idx: idx}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "project_manager",
			Description: "Manage projects, browse and edit files, and get AI-ready context from an indexed codebase.",
			InputSchema: projectManagerSchema(),
		},
		Handle: h.Handle,
	}
}

type projectManagerHandler struct {
	store domain.Store
	clock domain.Clock
	idx   search.Index
}

func (h *projectManagerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("project_manager", projectManagerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	var handlerErr error

	switch a.Action() {
	case "list":
		result, handlerErr = h.list(ctx)
	case "get":
		result, handlerErr = h.get(ctx, a)
	case "create":
		result, handlerErr = h.create(ctx, a)
	case "update":
		result, handlerErr = h.update(ctx, a)
	case "delete":
		result, handlerErr = h.delete(ctx, a)
	case "delete_file":
		result, handlerErr = h.deleteFile(ctx, a)
	case "get_summary", "get_summary_advanced":
		result, handlerErr = h.getSummary(ctx, a)
	case "get_summary_metrics":
		result, handlerErr = h.getSummaryMetrics(ctx, a)
	case "browse_files":
		result, handlerErr = h.browseFiles(ctx, a)
	case "get_file_content":
		result, handlerErr = h.getFileContent(ctx, a)
	case "get_file_content_partial":
		result, handlerErr = h.getFileContentPartial(ctx, a)
	case "update_file_content":
		result, handlerErr = h.updateFileContent(ctx, a)
	case "suggest_files":
		result, handlerErr = h.suggestFiles(ctx, a)
	case "get_selection_context":
		result, handlerErr = h.getSelectionContext(ctx, a)
	case "search":
		result, handlerErr = h.search(ctx, a)
	case "create_file":
		result, handlerErr = h.createFile(ctx, a)
	case "get_file_tree":
		result, handlerErr = h.getFileTree(ctx, a)
	case "overview":
		result, handlerErr = h.overview(ctx, a)
	}

	if handlerErr != nil {
		return tools.FormatError(mcperr.AsError(handlerErr)), nil
	}
	return result, nil
}

func (h *projectManagerHandler) list(ctx context.Context) (*tools.CallResult, error) {
	ps, err := h.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return tools.JSONResult(ps)
}

func (h *projectManagerHandler) get(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	id, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	p, err := h.store.GetProject(ctx, id)
	if err != nil {
		return nil, mcperr.NotFound("project", id)
	}
	return tools.JSONResult(p)
}

func (h *projectManagerHandler) create(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	name, err := a.RequireDataString("name", "my-app")
	if err != nil {
		return nil, err
	}
	projPath, err := a.RequireDataString("path", "/home/me/my-app")
	if err != nil {
		return nil, err
	}
	desc, _ := a.OptionalDataString("description")

	now := h.clock.Now()
	p, err := h.store.CreateProject(ctx, &domain.Project{
		Name: name, Path: projPath, Description: desc, Created: now, Updated: now,
	})
	if err != nil {
		return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to create project", err)
	}
	return tools.JSONResult(p)
}

func (h *projectManagerHandler) update(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	id, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	p, err := h.store.UpdateProject(ctx, id, func(p *domain.Project) {
		if name, ok := a.OptionalDataString("name"); ok {
			p.Name = name
		}
		if desc, ok := a.OptionalDataString("description"); ok {
			p.Description = desc
		}
		p.Updated = h.clock.Now()
	})
	if err != nil {
		return nil, mcperr.NotFound("project", id)
	}
	return tools.JSONResult(p)
}

func (h *projectManagerHandler) delete(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	id, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	if err := h.store.DeleteProject(ctx, id); err != nil {
		return nil, mcperr.NotFound("project", id)
	}
	return tools.TextResult(fmt.Sprintf("project %d deleted", id)), nil
}

func (h *projectManagerHandler) deleteFile(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	fileID, err := a.RequireDataInt64("fileId", "501")
	if err != nil {
		return nil, err
	}
	if err := h.store.DeleteFile(ctx, projectID, fileID); err != nil {
		return nil, mcperr.NotFound("file", fileID)
	}
	if h.idx != nil {
		_ = h.idx.RemoveFile(ctx, projectID, fileID)
	}
	return tools.TextResult(fmt.Sprintf("file %d deleted", fileID)), nil
}

func (h *projectManagerHandler) getSummary(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d files indexed\n", len(files))
	byExt := map[string]int{}
	for _, f := range files {
		byExt[f.Extension]++
	}
	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(&b, "  %s: %d\n", orDefault(ext, "(no extension)"), byExt[ext])
	}
	return tools.TextResult(b.String()), nil
}

func (h *projectManagerHandler) getSummaryMetrics(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	totalSize := 0
	summarized := 0
	for _, f := range files {
		totalSize += f.Size
		if f.Summary != "" {
			summarized++
		}
	}
	return tools.JSONResult(map[string]any{
		"fileCount":      len(files),
		"totalSizeBytes": totalSize,
		"summarizedCount": summarized,
	})
}

func (h *projectManagerHandler) browseFiles(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	prefix, _ := a.OptionalDataString("path")
	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var out []*domain.File
	for _, f := range files {
		if prefix == "" || strings.HasPrefix(f.Path, prefix) {
			stripped := *f
			stripped.Content = "" // browse never returns file bodies
			out = append(out, &stripped)
		}
	}
	return tools.JSONResult(out)
}

func (h *projectManagerHandler) getFileContent(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	fileID, err := a.RequireDataInt64("fileId", "501")
	if err != nil {
		return nil, err
	}
	f, err := h.store.GetFile(ctx, projectID, fileID)
	if err != nil {
		return nil, mcperr.NotFound("file", fileID)
	}
	return tools.TextResult(f.Content), nil
}

func (h *projectManagerHandler) getFileContentPartial(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	fileID, err := a.RequireDataInt64("fileId", "501")
	if err != nil {
		return nil, err
	}
	f, err := h.store.GetFile(ctx, projectID, fileID)
	if err != nil {
		return nil, mcperr.NotFound("file", fileID)
	}
	startLine, _ := a.OptionalDataInt64("startLine")
	endLine, _ := a.OptionalDataInt64("endLine")
	lines := strings.Split(f.Content, "\n")
	start := clampLine(startLine, 1, int64(len(lines)))
	end := clampLine(endLine, start, int64(len(lines)))
	if endLine == 0 {
		end = int64(len(lines))
	}
	return tools.TextResult(strings.Join(lines[start-1:end], "\n")), nil
}

func clampLine(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (h *projectManagerHandler) updateFileContent(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	fileID, err := a.RequireDataInt64("fileId", "501")
	if err != nil {
		return nil, err
	}
	content, err := a.RequireDataString("content", "package main\n")
	if err != nil {
		return nil, err
	}
	f, err := h.store.UpdateFileContent(ctx, projectID, fileID, content)
	if err != nil {
		return nil, mcperr.NotFound("file", fileID)
	}
	if h.idx != nil {
		_ = h.idx.IndexFile(ctx, projectID, fileID, f.Path, content)
	}
	return tools.JSONResult(f)
}

func (h *projectManagerHandler) suggestFiles(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	prompt, err := a.RequireDataString("prompt", "where is auth handled?")
	if err != nil {
		return nil, err
	}
	limit, ok := a.OptionalDataInt64("limit")
	if !ok {
		limit = 10
	}
	if h.idx == nil {
		return tools.JSONResult([]int64{})
	}
	ids, err := h.idx.SuggestFiles(ctx, projectID, prompt, int(limit))
	if err != nil {
		return nil, mcperr.Wrap(mcperr.CodeUpstream, "file suggestion failed", err)
	}
	return tools.JSONResult(ids)
}

func (h *projectManagerHandler) getSelectionContext(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	arr, err := a.RequireDataArray("fileIds")
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, v := range arr {
		idFloat, ok := v.(float64)
		if !ok {
			continue
		}
		f, err := h.store.GetFile(ctx, projectID, int64(idFloat))
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "### %s\n```\n%s\n```\n\n", f.Path, f.Content)
	}
	return tools.TextResult(b.String()), nil
}

func (h *projectManagerHandler) search(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	query, err := a.RequireDataString("query", "retry logic")
	if err != nil {
		return nil, err
	}
	limit, ok := a.OptionalDataInt64("limit")
	if !ok {
		limit = 10
	}
	if h.idx == nil {
		return tools.JSONResult([]search.Hit{})
	}
	hits, err := h.idx.Search(ctx, projectID, query, int(limit))
	if err != nil {
		return nil, mcperr.Wrap(mcperr.CodeUpstream, "search failed", err)
	}
	return tools.JSONResult(hits)
}

func (h *projectManagerHandler) createFile(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	filePath, err := a.RequireDataString("path", "src/new_file.go")
	if err != nil {
		return nil, err
	}
	content, _ := a.OptionalDataString("content")

	f, err := h.store.CreateFile(ctx, &domain.File{
		ProjectID: projectID,
		Path:      filePath,
		Name:      path.Base(filePath),
		Extension: strings.TrimPrefix(path.Ext(filePath), "."),
		Size:      len(content),
		Content:   content,
	})
	if err != nil {
		return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to create file", err)
	}
	if h.idx != nil {
		_ = h.idx.IndexFile(ctx, projectID, f.ID, f.Path, content)
	}
	return tools.JSONResult(f)
}

// fileTreeNode is the recursive directory/file node returned by get_file_tree.
type fileTreeNode struct {
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	IsDir    bool            `json:"isDir"`
	Children []*fileTreeNode `json:"children,omitempty"`
}

func (h *projectManagerHandler) getFileTree(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	root := &fileTreeNode{Name: "/", Path: "/", IsDir: true}
	dirs := map[string]*fileTreeNode{"/": root}
	for _, f := range files {
		parent := ensureDir(dirs, root, path.Dir(f.Path))
		parent.Children = append(parent.Children, &fileTreeNode{Name: f.Name, Path: f.Path})
	}
	return tools.JSONResult(root)
}

func ensureDir(dirs map[string]*fileTreeNode, root *fileTreeNode, dirPath string) *fileTreeNode {
	if dirPath == "." || dirPath == "/" || dirPath == "" {
		return root
	}
	if n, ok := dirs[dirPath]; ok {
		return n
	}
	parent := ensureDir(dirs, root, path.Dir(dirPath))
	node := &fileTreeNode{Name: path.Base(dirPath), Path: dirPath, IsDir: true}
	parent.Children = append(parent.Children, node)
	dirs[dirPath] = node
	return node
}

func (h *projectManagerHandler) overview(ctx context.Context, a *tools.Args) (*tools.CallResult, error) {
	projectID, err := a.RequireProjectID()
	if err != nil {
		return nil, err
	}
	p, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, mcperr.NotFound("project", projectID)
	}
	files, err := h.store.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tickets, err := h.store.ListTickets(ctx, projectID)
	if err != nil {
		return nil, err
	}
	open := 0
	for _, t := range tickets {
		if t.Status != domain.TicketClosed {
			open++
		}
	}
	return tools.JSONResult(map[string]any{
		"project":     p,
		"fileCount":   len(files),
		"ticketCount": len(tickets),
		"openTickets": open,
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func projectManagerSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action":    enumProp("the operation to perform", projectManagerActions...),
			"projectId": numberProp("target project id, required by every action except list/create"),
			"data":      objectProp("action-specific payload (name/path/content/fileId/prompt/query/...)"),
		},
		"required": []string{"action"},
	}
}
