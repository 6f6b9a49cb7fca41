// Package queue implements the Queue Engine (spec component C6): a durable,
// priority-ordered work-item store binding tickets and tasks to queues, with
// per-queue mutual exclusion preserving the maxParallelItems invariant.
//
// Mirroring the teacher's event-sourcing style in pkg/mcp/operations.go,
// every state transition is both applied to an in-memory per-queue index
// (the source of truth for selection) and, when a NATS connection is
// configured, published to a JetStream-backed audit stream so external
// observers (the SSE transport, metrics) can follow queue activity without
// polling.
package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
)

// item is the Engine's internal record for one queue-attached ticket or task.
// Field names mirror domain.QueueItemRef plus the transition bookkeeping the
// selection policy and stats need.
type item struct {
	ref          domain.QueueItemRef
	status       domain.QueueItemStatus
	priority     int
	enqueuedAt   int64
	startedAt    int64
	endedAt      int64
	agentID      string
	errorMessage string
}

func itemKey(itemType string, itemID int64) string {
	return fmt.Sprintf("%s:%d", itemType, itemID)
}

type queueState struct {
	mu    sync.Mutex // per-queue: guards items and the queue's own fields
	queue *domain.Queue
	items map[string]*item
}

// Engine is the Queue Engine. It is safe for concurrent use; mutation of a
// given queue's items is serialized through that queue's own mutex, so
// contention across unrelated queues is independent (spec §5).
type Engine struct {
	store domain.Store
	clock domain.Clock

	nc         *nats.Conn
	streamName string

	mu     sync.RWMutex // guards the queues map itself (create/delete)
	queues map[int64]*queueState
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithNATS wires a NATS connection used to publish queue transition events
// to "{streamName}.{queueId}.{itemType}.{itemId}.{event}". Publishing is
// best-effort: a publish failure is logged by the caller via the returned
// error from PublishErr, never blocks a transition.
func WithNATS(nc *nats.Conn, streamName string) Option {
	return func(e *Engine) {
		e.nc = nc
		e.streamName = streamName
	}
}

// NewEngine constructs a Queue Engine over store, using clock for all
// timestamps so tests can control elapsed-time measurements.
func NewEngine(store domain.Store, clock domain.Clock, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		clock:      clock,
		streamName: "MCPD_QUEUES",
		queues:     make(map[int64]*queueState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) publish(queueID int64, itemType string, itemID int64, event string) {
	if e.nc == nil {
		return
	}
	subject := fmt.Sprintf("%s.%d.%s.%d.%s", e.streamName, queueID, itemType, itemID, event)
	_ = e.nc.Publish(subject, nil)
}

// CreateQueue creates a new queue. maxParallelItems must be >= 1.
func (e *Engine) CreateQueue(ctx context.Context, projectID int64, name, description string, maxParallelItems int) (*domain.Queue, error) {
	if maxParallelItems < 1 {
		return nil, mcperr.New(mcperr.CodeValidation, "maxParallelItems must be >= 1").
			WithContext("queue_manager.create")
	}
	q := &domain.Queue{
		ProjectID:        projectID,
		Name:             name,
		Description:      description,
		Status:           domain.QueueActive,
		MaxParallelItems: maxParallelItems,
	}
	created, err := e.store.CreateQueue(ctx, q)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to persist queue", err)
	}

	e.mu.Lock()
	e.queues[created.ID] = &queueState{queue: created, items: make(map[string]*item)}
	e.mu.Unlock()

	return created, nil
}

// ListQueuesByProject returns every queue owned by projectID.
func (e *Engine) ListQueuesByProject(ctx context.Context, projectID int64) ([]*domain.Queue, error) {
	qs, err := e.store.ListQueuesByProject(ctx, projectID)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to list queues", err)
	}
	return qs, nil
}

// GetQueueByID returns the queue, or a CodeNotFound domain error.
func (e *Engine) GetQueueByID(ctx context.Context, id int64) (*domain.Queue, error) {
	st := e.stateFor(id)
	if st == nil {
		q, err := e.store.GetQueue(ctx, id)
		if err != nil {
			return nil, mcperr.NotFound("queue", id)
		}
		return q, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := *st.queue
	return &out, nil
}

func (e *Engine) stateFor(queueID int64) *queueState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queues[queueID]
}

func (e *Engine) requireState(ctx context.Context, queueID int64) (*queueState, error) {
	if st := e.stateFor(queueID); st != nil {
		return st, nil
	}
	// Lazily rehydrate from the store (covers process restart / pre-seeded queues).
	q, err := e.store.GetQueue(ctx, queueID)
	if err != nil {
		return nil, mcperr.NotFound("queue", queueID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.queues[queueID]; ok {
		return st, nil
	}
	st := &queueState{queue: q, items: make(map[string]*item)}
	e.queues[queueID] = st
	return st, nil
}

// UpdateQueue patches mutable queue fields. Pausing halts future dequeues
// but never touches items already in_progress.
func (e *Engine) UpdateQueue(ctx context.Context, id int64, name, description *string, status *domain.QueueStatus, maxParallelItems *int) (*domain.Queue, error) {
	st, err := e.requireState(ctx, id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if name != nil {
		st.queue.Name = *name
	}
	if description != nil {
		st.queue.Description = *description
	}
	if status != nil {
		st.queue.Status = *status
	}
	if maxParallelItems != nil {
		if *maxParallelItems < 1 {
			return nil, mcperr.New(mcperr.CodeValidation, "maxParallelItems must be >= 1")
		}
		st.queue.MaxParallelItems = *maxParallelItems
	}

	if _, err := e.store.UpdateQueue(ctx, id, func(q *domain.Queue) {
		*q = *st.queue
	}); err != nil {
		return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to persist queue update", err)
	}

	out := *st.queue
	return &out, nil
}

// DeleteQueue detaches every attached item (clearing their queue fields) and
// cancels any that were in_progress, then removes the queue itself.
func (e *Engine) DeleteQueue(ctx context.Context, id int64) error {
	st, err := e.requireState(ctx, id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	for _, it := range st.items {
		if it.status == domain.QueueItemInProgress || it.status == domain.QueueItemQueued {
			it.status = domain.QueueItemCancelled
			e.publish(id, it.ref.ItemType, it.ref.ItemID, "cancelled")
		}
	}
	st.mu.Unlock()

	if err := e.store.DeleteQueue(ctx, id); err != nil {
		return mcperr.Wrap(mcperr.CodeInternal, "failed to delete queue", err)
	}

	e.mu.Lock()
	delete(e.queues, id)
	e.mu.Unlock()
	return nil
}

// EnqueueTicket attaches ticket to queueID at priority. The ticket must not
// already be attached to a queue.
func (e *Engine) EnqueueTicket(ctx context.Context, ticketID, queueID int64, priority int) (*domain.Ticket, error) {
	st, err := e.requireState(ctx, queueID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	key := itemKey("ticket", ticketID)
	if existing, ok := st.items[key]; ok && existing.status != domain.QueueItemCancelled && existing.status != domain.QueueItemCompleted && existing.status != domain.QueueItemFailed {
		return nil, mcperr.New(mcperr.CodeConflict, "ticket is already enqueued").WithContext("queue_manager.enqueue_item")
	}

	now := e.clock.Now()
	st.items[key] = &item{
		ref:        domain.QueueItemRef{ItemType: "ticket", ItemID: ticketID},
		status:     domain.QueueItemQueued,
		priority:   priority,
		enqueuedAt: now,
	}

	status := domain.QueueItemQueued
	t, err := e.store.UpdateTicket(ctx, ticketID, func(t *domain.Ticket) {
		t.QueueID = &queueID
		t.QueueStatus = &status
		t.QueuePriority = priority
		t.EnqueuedAt = now
	})
	if err != nil {
		delete(st.items, key)
		return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to enqueue ticket", err)
	}
	e.publish(queueID, "ticket", ticketID, "enqueued")
	return t, nil
}

// EnqueueTask attaches task taskID (of ticketID) to queueID at priority.
func (e *Engine) EnqueueTask(ctx context.Context, ticketID, taskID, queueID int64, priority int) (*domain.Task, error) {
	st, err := e.requireState(ctx, queueID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	key := itemKey("task", taskID)
	if existing, ok := st.items[key]; ok && existing.status != domain.QueueItemCancelled && existing.status != domain.QueueItemCompleted && existing.status != domain.QueueItemFailed {
		return nil, mcperr.New(mcperr.CodeConflict, "task is already enqueued").WithContext("queue_manager.enqueue_item")
	}

	now := e.clock.Now()
	st.items[key] = &item{
		ref:        domain.QueueItemRef{ItemType: "task", ItemID: taskID, TicketID: ticketID},
		status:     domain.QueueItemQueued,
		priority:   priority,
		enqueuedAt: now,
	}

	status := domain.QueueItemQueued
	t, err := e.store.UpdateTask(ctx, taskID, func(t *domain.Task) {
		t.QueueID = &queueID
		t.QueueStatus = &status
		t.QueuePriority = priority
		t.EnqueuedAt = now
	})
	if err != nil {
		delete(st.items, key)
		return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to enqueue task", err)
	}
	e.publish(queueID, "task", taskID, "enqueued")
	return t, nil
}

// EnqueueTicketWithAllTasks enqueues ticketID and every task belonging to it
// atomically (from the caller's perspective) at the same priority.
func (e *Engine) EnqueueTicketWithAllTasks(ctx context.Context, queueID, ticketID int64, priority int) (*domain.Ticket, []*domain.Task, error) {
	t, err := e.EnqueueTicket(ctx, ticketID, queueID, priority)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := e.store.ListTasks(ctx, ticketID)
	if err != nil {
		return t, nil, mcperr.Wrap(mcperr.CodeInternal, "failed to list tasks", err)
	}
	enqueued := make([]*domain.Task, 0, len(tasks))
	for _, task := range tasks {
		et, err := e.EnqueueTask(ctx, ticketID, task.ID, queueID, priority)
		if err != nil {
			continue // individual failures don't abort the batch (§4.6 failure semantics)
		}
		enqueued = append(enqueued, et)
	}
	return t, enqueued, nil
}

// DequeueTicket clears ticketID's queue fields. Rejected if in_progress.
func (e *Engine) DequeueTicket(ctx context.Context, ticketID int64) error {
	t, err := e.store.GetTicket(ctx, ticketID)
	if err != nil {
		return mcperr.NotFound("ticket", ticketID)
	}
	if t.QueueID == nil {
		return mcperr.New(mcperr.CodeInvalidState, "ticket is not enqueued")
	}
	st, err := e.requireState(ctx, *t.QueueID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	key := itemKey("ticket", ticketID)
	it, ok := st.items[key]
	if ok && it.status == domain.QueueItemInProgress {
		return mcperr.New(mcperr.CodeInvalidState, "cannot dequeue an in-progress ticket")
	}
	if ok {
		it.status = domain.QueueItemCancelled
	}

	_, err = e.store.UpdateTicket(ctx, ticketID, func(t *domain.Ticket) {
		t.QueueID = nil
		t.QueueStatus = nil
		t.QueuePriority = 0
	})
	if err != nil {
		return mcperr.Wrap(mcperr.CodeInternal, "failed to dequeue ticket", err)
	}
	e.publish(*t.QueueID, "ticket", ticketID, "dequeued")
	return nil
}

// DequeueTask clears taskID's queue fields. Rejected if in_progress.
func (e *Engine) DequeueTask(ctx context.Context, ticketID, taskID int64) error {
	t, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return mcperr.NotFound("task", taskID)
	}
	if t.QueueID == nil {
		return mcperr.New(mcperr.CodeInvalidState, "task is not enqueued")
	}
	st, err := e.requireState(ctx, *t.QueueID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	key := itemKey("task", taskID)
	it, ok := st.items[key]
	if ok && it.status == domain.QueueItemInProgress {
		return mcperr.New(mcperr.CodeInvalidState, "cannot dequeue an in-progress task")
	}
	if ok {
		it.status = domain.QueueItemCancelled
	}

	queueID := *t.QueueID
	_, err = e.store.UpdateTask(ctx, taskID, func(t *domain.Task) {
		t.QueueID = nil
		t.QueueStatus = nil
		t.QueuePriority = 0
	})
	if err != nil {
		return mcperr.Wrap(mcperr.CodeInternal, "failed to dequeue task", err)
	}
	e.publish(queueID, "task", taskID, "dequeued")
	return nil
}

// NextTaskResult is the selection outcome, matching the spec's {type, item}
// shape (Open Question OQ resolved in favor of the newer shape; see DESIGN.md).
type NextTaskResult struct {
	Type   string // "task" | "ticket" | "none"
	Item   *domain.QueueItemRef
	Reason string // populated when Type == "none"
}

// GetNextTaskFromQueue implements the priority/FIFO/task-preferred selection
// policy (spec §4.6) and atomically claims the chosen item.
func (e *Engine) GetNextTaskFromQueue(ctx context.Context, queueID int64, agentID string) (*NextTaskResult, error) {
	st, err := e.requireState(ctx, queueID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.queue.Status == domain.QueuePaused {
		return &NextTaskResult{Type: "none", Reason: "queue is paused"}, nil
	}

	inProgress := 0
	for _, it := range st.items {
		if it.status == domain.QueueItemInProgress {
			inProgress++
		}
	}
	if inProgress >= st.queue.MaxParallelItems {
		return &NextTaskResult{Type: "none", Reason: fmt.Sprintf("queue at parallel limit (%d/%d in progress)", inProgress, st.queue.MaxParallelItems)}, nil
	}

	candidates := make([]*item, 0)
	for _, it := range st.items {
		if it.status == domain.QueueItemQueued {
			candidates = append(candidates, it)
		}
	}
	if len(candidates) == 0 {
		return &NextTaskResult{Type: "none", Reason: "no queued items"}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.enqueuedAt != b.enqueuedAt {
			return a.enqueuedAt < b.enqueuedAt
		}
		if a.ref.ItemType != b.ref.ItemType {
			return a.ref.ItemType == "task" // tasks preferred over tickets at equal priority/time
		}
		return a.ref.ItemID < b.ref.ItemID
	})

	chosen := candidates[0]
	chosen.status = domain.QueueItemInProgress
	chosen.agentID = agentID
	chosen.startedAt = e.clock.Now()

	status := domain.QueueItemInProgress
	if chosen.ref.ItemType == "ticket" {
		if _, err := e.store.UpdateTicket(ctx, chosen.ref.ItemID, func(t *domain.Ticket) {
			t.QueueStatus = &status
		}); err != nil {
			chosen.status = domain.QueueItemQueued
			return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to claim ticket", err)
		}
	} else {
		if _, err := e.store.UpdateTask(ctx, chosen.ref.ItemID, func(t *domain.Task) {
			t.QueueStatus = &status
			t.AgentID = agentID
		}); err != nil {
			chosen.status = domain.QueueItemQueued
			return nil, mcperr.Wrap(mcperr.CodeInternal, "failed to claim task", err)
		}
	}

	e.publish(queueID, chosen.ref.ItemType, chosen.ref.ItemID, "claimed")
	ref := chosen.ref
	return &NextTaskResult{Type: chosen.ref.ItemType, Item: &ref}, nil
}

// CompleteQueueItem transitions an in_progress item to completed.
func (e *Engine) CompleteQueueItem(ctx context.Context, queueID int64, itemType string, itemID int64) error {
	return e.terminate(ctx, queueID, itemType, itemID, domain.QueueItemCompleted, "")
}

// FailQueueItem transitions an in_progress item to failed, recording errorMessage.
func (e *Engine) FailQueueItem(ctx context.Context, queueID int64, itemType string, itemID int64, errorMessage string) error {
	return e.terminate(ctx, queueID, itemType, itemID, domain.QueueItemFailed, errorMessage)
}

func (e *Engine) terminate(ctx context.Context, queueID int64, itemType string, itemID int64, target domain.QueueItemStatus, errMsg string) error {
	st, err := e.requireState(ctx, queueID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	key := itemKey(itemType, itemID)
	it, ok := st.items[key]
	if !ok || it.status != domain.QueueItemInProgress {
		return mcperr.New(mcperr.CodeInvalidState, fmt.Sprintf("%s %d is not in_progress", itemType, itemID))
	}

	it.status = target
	it.endedAt = e.clock.Now()
	it.errorMessage = errMsg

	if itemType == "ticket" {
		if _, err := e.store.UpdateTicket(ctx, itemID, func(t *domain.Ticket) {
			t.QueueStatus = &target
		}); err != nil {
			return mcperr.Wrap(mcperr.CodeInternal, "failed to persist ticket transition", err)
		}
	} else {
		if _, err := e.store.UpdateTask(ctx, itemID, func(t *domain.Task) {
			t.QueueStatus = &target
			if target == domain.QueueItemCompleted {
				t.Done = true
			}
		}); err != nil {
			return mcperr.Wrap(mcperr.CodeInternal, "failed to persist task transition", err)
		}
	}

	e.publish(queueID, itemType, itemID, string(target))
	return nil
}

// ReorderQueueItems bulk re-prioritizes queued items in one call (§D.11
// supplemented feature). Only items currently queued are affected; claimed
// or terminal items are left untouched and reported as skipped.
func (e *Engine) ReorderQueueItems(ctx context.Context, queueID int64, priorities map[string]int) (applied, skipped []string, err error) {
	st, err := e.requireState(ctx, queueID)
	if err != nil {
		return nil, nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	for key, priority := range priorities {
		it, ok := st.items[key]
		if !ok || it.status != domain.QueueItemQueued {
			skipped = append(skipped, key)
			continue
		}
		it.priority = priority
		applied = append(applied, key)
	}
	return applied, skipped, nil
}

// GetQueueStats computes the summary in spec §4.6.
func (e *Engine) GetQueueStats(ctx context.Context, queueID int64) (*domain.QueueStats, error) {
	st, err := e.requireState(ctx, queueID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	stats := &domain.QueueStats{QueueName: st.queue.Name, CurrentAgents: []string{}}
	agents := make(map[string]struct{})
	var totalDuration, completedCount int64

	for _, it := range st.items {
		stats.TotalItems++
		switch it.status {
		case domain.QueueItemQueued:
			stats.QueuedItems++
		case domain.QueueItemInProgress:
			stats.InProgressItems++
			if it.agentID != "" {
				agents[it.agentID] = struct{}{}
			}
		case domain.QueueItemCompleted:
			stats.CompletedItems++
			totalDuration += it.endedAt - it.startedAt
			completedCount++
		case domain.QueueItemFailed:
			stats.FailedItems++
		case domain.QueueItemCancelled:
			stats.CancelledItems++
		}
	}
	for a := range agents {
		stats.CurrentAgents = append(stats.CurrentAgents, a)
	}
	sort.Strings(stats.CurrentAgents)
	if completedCount > 0 {
		avg := float64(totalDuration) / float64(completedCount)
		stats.AverageProcessingTime = &avg
	}
	return stats, nil
}

// GetQueuesWithStats returns every queue of projectID paired with its stats.
func (e *Engine) GetQueuesWithStats(ctx context.Context, projectID int64) ([]struct {
	Queue *domain.Queue
	Stats *domain.QueueStats
}, error) {
	qs, err := e.ListQueuesByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]struct {
		Queue *domain.Queue
		Stats *domain.QueueStats
	}, 0, len(qs))
	for _, q := range qs {
		stats, err := e.GetQueueStats(ctx, q.ID)
		if err != nil {
			continue
		}
		out = append(out, struct {
			Queue *domain.Queue
			Stats *domain.QueueStats
		}{Queue: q, Stats: stats})
	}
	return out, nil
}
