// Package sweep provides the Temporal-backed scheduled maintenance jobs
// (SPEC_FULL.md §D.7): session idle eviction and queue statistics
// recomputation. When Temporal is not configured, Manager.Start and the
// Queue Engine's own on-demand stats computation serve as the in-process
// ticker fallback — this package is purely additive.
package sweep

import (
	"context"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/promptliano/mcpd/internal/logging"
	"github.com/promptliano/mcpd/internal/session"
)

// Activities bundles the side-effecting work a workflow delegates to, kept
// separate from the workflow function itself per Temporal's determinism
// requirements (workflows may not call out to I/O directly).
type Activities struct {
	Sessions *session.Manager
	Log      *logging.Logger
}

// SweepSessions is the activity invoked by SessionSweepWorkflow. It's a thin
// wrapper over Manager.Sweep so the workflow stays a pure scheduling shell.
func (a *Activities) SweepSessions(ctx context.Context) (int, error) {
	evicted := a.Sessions.Sweep()
	if a.Log != nil && len(evicted) > 0 {
		a.Log.Info(ctx, "session sweep evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted), nil
}

// SessionSweepWorkflow runs SweepSessions on a fixed interval for as long as
// the workflow is kept alive, using workflow.Sleep so Temporal owns the
// schedule instead of an in-process time.Ticker (§D.7).
func SessionSweepWorkflow(ctx workflow.Context, interval time.Duration) error {
	ao := workflow.ActivityOptions{StartToCloseTimeout: 30 * time.Second}
	ctx = workflow.WithActivityOptions(ctx, ao)

	for {
		var evicted int
		if err := workflow.ExecuteActivity(ctx, (*Activities).SweepSessions).Get(ctx, &evicted); err != nil {
			return err
		}
		if err := workflow.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// RegisterWorker registers the sweep workflow and its activities on w, using
// acts as the activity receiver. Call from cmd/mcpd when Temporal.Enabled.
func RegisterWorker(w worker.Worker, acts *Activities) {
	w.RegisterWorkflow(SessionSweepWorkflow)
	w.RegisterActivity(acts)
}

// StartSessionSweep kicks off a long-running SessionSweepWorkflow execution
// on taskQueue, idempotent via a fixed workflow id so re-deploys don't spawn
// duplicates.
func StartSessionSweep(ctx context.Context, c client.Client, taskQueue string, interval time.Duration) error {
	opts := client.StartWorkflowOptions{
		ID:                    "mcpd-session-sweep",
		TaskQueue:             taskQueue,
		WorkflowIDReusePolicy: 0,
	}
	_, err := c.ExecuteWorkflow(ctx, opts, SessionSweepWorkflow, interval)
	return err
}
