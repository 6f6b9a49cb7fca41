package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
)

// WireError is returned by Invoker.Call when the failure belongs at the
// JSON-RPC envelope level (unknown tool name) rather than inside a
// successful tool result (spec §4.3 step 1).
type WireError struct {
	Message string
}

func (e *WireError) Error() string { return e.Message }

// Deadlines configures per-tool execution timeouts (spec §5).
type Deadlines struct {
	Default   time.Duration
	LLM       time.Duration
	Overrides map[string]time.Duration
}

func (d Deadlines) For(toolName string, isLLMBound bool) time.Duration {
	if dl, ok := d.Overrides[toolName]; ok {
		return dl
	}
	if isLLMBound {
		return d.LLM
	}
	return d.Default
}

// llmBoundTools lists tools whose handlers call out to the injected
// LLMClient and therefore use the longer default deadline (spec §5).
var llmBoundTools = map[string]bool{
	"ai_assistant": true,
}

// External is the subset of the External MCP Client Manager (C5) the
// Invoker needs to delegate "external_"-prefixed tool calls (spec §4.3
// step 2).
type External interface {
	ExecuteTool(ctx context.Context, serverID, name string, args map[string]any) (*CallResult, error)
}

// Invoker is the Tool Invoker (C3): looks up tools, opens and closes
// ToolExecution records, runs handlers under a deadline, and normalizes
// every outcome through the Error Model.
type Invoker struct {
	registry  *Registry
	store     domain.Store
	clock     domain.Clock
	ids       domain.IDGenerator
	external  External
	deadlines Deadlines
	schemas   map[string]*jsonschema.Schema // compiled per-tool inputSchema, §D.9
	nc        *nats.Conn
}

// NewInvoker constructs an Invoker over registry and store, compiling each
// tool's advertised inputSchema up front so a malformed schema fails at
// startup rather than on the first call.
func NewInvoker(registry *Registry, store domain.Store, clock domain.Clock, ids domain.IDGenerator, external External, deadlines Deadlines, nc *nats.Conn) (*Invoker, error) {
	schemas := make(map[string]*jsonschema.Schema, registry.Len())
	for _, d := range registry.List() {
		raw, err := json.Marshal(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal inputSchema for %s: %w", d.Name, err)
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(d.Name+".json", mustUnmarshalAny(raw)); err != nil {
			return nil, fmt.Errorf("load inputSchema for %s: %w", d.Name, err)
		}
		schema, err := compiler.Compile(d.Name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile inputSchema for %s: %w", d.Name, err)
		}
		schemas[d.Name] = schema
	}
	return &Invoker{
		registry:  registry,
		store:     store,
		clock:     clock,
		ids:       ids,
		external:  external,
		deadlines: deadlines,
		schemas:   schemas,
		nc:        nc,
	}, nil
}

func mustUnmarshalAny(raw []byte) any {
	var v any
	_ = json.Unmarshal(raw, &v)
	return v
}

func (inv *Invoker) publish(sessionID, toolName, event string) {
	if inv.nc == nil {
		return
	}
	subject := fmt.Sprintf("tools.%s.%s.%s", sessionID, toolName, event)
	_ = inv.nc.Publish(subject, nil)
}

// Call executes one tools/call invocation (spec §4.3).
func (inv *Invoker) Call(ctx context.Context, sessionID, name string, args map[string]any, projectID *int64) (*CallResult, error) {
	const externalPrefix = "external_"
	if len(name) > len(externalPrefix) && name[:len(externalPrefix)] == externalPrefix {
		return inv.callExternal(ctx, sessionID, name[len(externalPrefix):], args, projectID)
	}

	tool, ok := inv.registry.Get(name)
	if !ok {
		return nil, &WireError{Message: fmt.Sprintf("unknown tool %q", name)}
	}

	inputSize := serializedLen(args)
	startedAt := inv.clock.Now()
	inv.publish(sessionID, name, "started")

	if schema, ok := inv.schemas[name]; ok {
		if err := schema.Validate(toGenericMap(args)); err != nil {
			de := mcperr.New(mcperr.CodeValidation, fmt.Sprintf("arguments failed schema validation: %v", err)).
				WithContext(name)
			endedAt := inv.clock.Now()
			inv.recordAndPublish(ctx, &domain.ToolExecution{
				ToolName: name, ProjectID: projectID, SessionID: sessionID,
				StartedAt: startedAt, EndedAt: endedAt, InputSize: inputSize,
				Status: "error", ErrorMessage: de.Error(),
			}, sessionID, name, "error")
			return FormatError(de), nil
		}
	}

	deadline := inv.deadlines.For(name, llmBoundTools[name])
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result, handlerErr := inv.runHandler(callCtx, tool, args, projectID)

	endedAt := inv.clock.Now()
	exec := &domain.ToolExecution{
		ToolName:  name,
		ProjectID: projectID,
		SessionID: sessionID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		InputSize: inputSize,
	}

	if handlerErr != nil {
		var wire *WireError
		if ok := asWireError(handlerErr, &wire); ok {
			exec.Status = "error"
			exec.ErrorMessage = wire.Message
			inv.recordAndPublish(ctx, exec, sessionID, name, "error")
			return nil, handlerErr
		}

		de := mcperr.AsError(handlerErr)
		if callCtx.Err() != nil {
			de = mcperr.New(mcperr.CodeTimeout, "deadline exceeded")
		}
		exec.Status = "error"
		exec.ErrorMessage = de.Error()
		inv.recordAndPublish(ctx, exec, sessionID, name, "error")
		return FormatError(de), nil
	}

	exec.Status = "success"
	exec.OutputSize = serializedLen(result)
	inv.recordAndPublish(ctx, exec, sessionID, name, "completed")
	return result, nil
}

func (inv *Invoker) recordAndPublish(ctx context.Context, exec *domain.ToolExecution, sessionID, name, event string) {
	_ = inv.store.RecordToolExecution(ctx, exec)
	inv.publish(sessionID, name, event)
}

// runHandler executes the tool's handler, converting a panic into a domain
// error so ToolExecution closing is guaranteed on every exit path (spec
// §4.3 step 5).
func (inv *Invoker) runHandler(ctx context.Context, tool *Tool, args map[string]any, projectID *int64) (result *CallResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = mcperr.New(mcperr.CodeInternal, fmt.Sprintf("handler panic: %v", r))
		}
	}()
	return tool.Handle(ctx, args, projectID)
}

func (inv *Invoker) callExternal(ctx context.Context, sessionID, name string, args map[string]any, projectID *int64) (*CallResult, error) {
	if inv.external == nil {
		return FormatError(mcperr.New(mcperr.CodeInternal, "no external MCP servers configured")), nil
	}
	serverID, _ := args["serverId"].(string)
	result, err := inv.external.ExecuteTool(ctx, serverID, name, args)
	if err != nil {
		return FormatError(mcperr.Wrap(mcperr.CodeUpstream, "external tool execution failed", err)), nil
	}
	return result, nil
}

func asWireError(err error, target **WireError) bool {
	if we, ok := err.(*WireError); ok {
		*target = we
		return true
	}
	return false
}

func serializedLen(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}

// toGenericMap round-trips args through JSON so jsonschema/v6 sees the same
// generic map[string]any{}/float64 shape it would see parsing raw JSON,
// regardless of how the caller built the map[string]any.
func toGenericMap(args map[string]any) any {
	b, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return args
	}
	return v
}
