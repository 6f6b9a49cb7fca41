package builtins

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/promptliano/mcpd/internal/mcperr"
	"github.com/promptliano/mcpd/internal/tools"
)

var websiteDemoRunnerActions = []string{"list", "register", "get_status", "stop"}

// DemoPreview is a record of a dev-server preview a client has started
// out-of-band and told mcpd about. This tool never launches a process
// itself: running an arbitrary dev-server command on the host from an
// MCP tool call is an unacceptable injection surface, so it only tracks
// metadata the client reports.
type DemoPreview struct {
	ID        string `json:"id"`
	ProjectID int64  `json:"projectId"`
	URL       string `json:"url"`
	Status    string `json:"status"` // "running" | "stopped"
}

type demoRegistry struct {
	mu       sync.RWMutex
	previews map[string]*DemoPreview
}

// NewWebsiteDemoRunner builds the website_demo_runner tool: tracks
// client-reported dev-server previews without ever spawning a process.
func NewWebsiteDemoRunner() *tools.Tool {
	h := &websiteDemoRunnerHandler{reg: &demoRegistry{previews: make(map[string]*DemoPreview)}}
	return &tools.Tool{
		Descriptor: tools.Descriptor{
			Name:        "website_demo_runner",
			Description: "Track dev-server preview URLs a client has started for a project.",
			InputSchema: objectSchema(map[string]any{
				"action":    enumProp("the operation to perform", websiteDemoRunnerActions...),
				"projectId": numberProp("project scope for list/register"),
				"data":      objectProp("previewId/url payload"),
			}, "action"),
		},
		Handle: h.Handle,
	}
}

type websiteDemoRunnerHandler struct {
	reg *demoRegistry
}

func (h *websiteDemoRunnerHandler) Handle(ctx context.Context, raw map[string]any, _ *int64) (*tools.CallResult, error) {
	a, err := tools.NewArgs(raw)
	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	if err := a.RequireAction("website_demo_runner", websiteDemoRunnerActions...); err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}

	var result *tools.CallResult
	switch a.Action() {
	case "list":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		h.reg.mu.RLock()
		var out []*DemoPreview
		for _, p := range h.reg.previews {
			if p.ProjectID == projectID {
				out = append(out, p)
			}
		}
		h.reg.mu.RUnlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		result, err = tools.JSONResult(out)
	case "register":
		projectID, pErr := a.RequireProjectID()
		if pErr != nil {
			err = pErr
			break
		}
		id, idErr := a.RequireDataString("previewId", "preview-1")
		if idErr != nil {
			err = idErr
			break
		}
		url, urlErr := a.RequireDataString("url", "http://localhost:3000")
		if urlErr != nil {
			err = urlErr
			break
		}
		p := &DemoPreview{ID: id, ProjectID: projectID, URL: url, Status: "running"}
		h.reg.mu.Lock()
		h.reg.previews[id] = p
		h.reg.mu.Unlock()
		result, err = tools.JSONResult(p)
	case "get_status":
		id, idErr := a.RequireDataString("previewId", "preview-1")
		if idErr != nil {
			err = idErr
			break
		}
		h.reg.mu.RLock()
		p, ok := h.reg.previews[id]
		h.reg.mu.RUnlock()
		if !ok {
			err = mcperr.NotFound("preview", id)
			break
		}
		result, err = tools.JSONResult(p)
	case "stop":
		id, idErr := a.RequireDataString("previewId", "preview-1")
		if idErr != nil {
			err = idErr
			break
		}
		h.reg.mu.Lock()
		p, ok := h.reg.previews[id]
		if ok {
			p.Status = "stopped"
		}
		h.reg.mu.Unlock()
		if !ok {
			err = mcperr.NotFound("preview", id)
			break
		}
		result = tools.TextResult(fmt.Sprintf("preview %q marked stopped", id))
	}

	if err != nil {
		return tools.FormatError(mcperr.AsError(err)), nil
	}
	return result, nil
}
