// Package domain holds the wire- and storage-level entities shared by the
// Queue Engine, Tool Registry, Resource Provider, and the injected Store.
package domain

// TicketStatus enumerates ticket lifecycle states (independent of queue status).
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// Priority is a ticket/task priority band, distinct from a queue's numeric
// queuePriority (lower number = higher priority in the queue).
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// QueueItemStatus enumerates the Queue Engine's work-item state machine.
type QueueItemStatus string

const (
	QueueItemQueued     QueueItemStatus = "queued"
	QueueItemInProgress QueueItemStatus = "in_progress"
	QueueItemCompleted  QueueItemStatus = "completed"
	QueueItemFailed     QueueItemStatus = "failed"
	QueueItemCancelled  QueueItemStatus = "cancelled"
)

// QueueStatus enumerates a Queue's own active/paused state.
type QueueStatus string

const (
	QueueActive QueueStatus = "active"
	QueuePaused QueueStatus = "paused"
)

// Project is an indexed codebase root.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Created     int64  `json:"created"`
	Updated     int64  `json:"updated"`
}

// File is a single indexed file within a project.
type File struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"projectId"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Size      int    `json:"size"`
	Content   string `json:"content,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// Ticket is a unit of planned work that may carry tasks and be enqueued.
type Ticket struct {
	ID                 int64        `json:"id"`
	ProjectID          int64        `json:"projectId"`
	Title              string       `json:"title"`
	Overview           string       `json:"overview"`
	Status             TicketStatus `json:"status"`
	Priority           Priority     `json:"priority"`
	SuggestedFileIDs   []int64      `json:"suggestedFileIds,omitempty"`
	SuggestedAgentIDs  []string     `json:"suggestedAgentIds,omitempty"`
	SuggestedPromptIDs []int64      `json:"suggestedPromptIds,omitempty"`
	QueueID            *int64       `json:"queueId,omitempty"`
	QueueStatus        *QueueItemStatus `json:"queueStatus,omitempty"`
	QueuePriority      int          `json:"queuePriority,omitempty"`
	EnqueuedAt         int64        `json:"enqueuedAt,omitempty"`
	Created            int64        `json:"created"`
	Updated            int64        `json:"updated"`
}

// Task is a fine-grained unit of work belonging to a ticket.
type Task struct {
	ID               int64            `json:"id"`
	TicketID         int64            `json:"ticketId"`
	Content          string           `json:"content"`
	Description      string           `json:"description,omitempty"`
	Done             bool             `json:"done"`
	OrderIndex       int              `json:"orderIndex"`
	SuggestedFileIDs []int64          `json:"suggestedFileIds,omitempty"`
	EstimatedHours   float64          `json:"estimatedHours,omitempty"`
	Dependencies     []int64          `json:"dependencies,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	AgentID          string           `json:"agentId,omitempty"`
	QueueID          *int64           `json:"queueId,omitempty"`
	QueueStatus      *QueueItemStatus `json:"queueStatus,omitempty"`
	QueuePriority    int              `json:"queuePriority,omitempty"`
	EnqueuedAt       int64            `json:"enqueuedAt,omitempty"`
}

// Queue is a named, priority-ordered work distribution channel scoped to a project.
type Queue struct {
	ID               int64       `json:"id"`
	ProjectID        int64       `json:"projectId"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Status           QueueStatus `json:"status"`
	MaxParallelItems int         `json:"maxParallelItems"`
}

// Prompt is a reusable prompt template, optionally scoped to a project.
type Prompt struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	ProjectID *int64 `json:"projectId,omitempty"`
}

// ToolExecution records one invocation of a tool handler, independent of
// whether it succeeded. It outlives the session that created it.
type ToolExecution struct {
	ID           int64  `json:"id"`
	ToolName     string `json:"toolName"`
	ProjectID    *int64 `json:"projectId,omitempty"`
	SessionID    string `json:"sessionId"`
	StartedAt    int64  `json:"startedAt"`
	EndedAt      int64  `json:"endedAt,omitempty"`
	Status       string `json:"status"` // "success" | "error"
	InputSize    int    `json:"inputSize"`
	OutputSize   int    `json:"outputSize,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ClientInfo identifies the connecting MCP client, reported at initialize.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Session is a per-connection state binding created by initialize.
type Session struct {
	ID           string                 `json:"id"`
	ProjectID    *int64                 `json:"projectId,omitempty"`
	CreatedAt    int64                  `json:"createdAt"`
	LastActivity int64                  `json:"lastActivity"`
	Capabilities map[string]any         `json:"capabilities,omitempty"`
	ClientInfo   ClientInfo             `json:"clientInfo"`
	Transport    string                 `json:"transport"` // "stdio" | "http"
}

// QueueItemRef identifies a work item attached to a queue by type and id.
type QueueItemRef struct {
	ItemType string `json:"itemType"` // "ticket" | "task"
	ItemID   int64  `json:"itemId"`
	TicketID int64  `json:"ticketId,omitempty"` // required when ItemType == "task"
}

// QueueStats summarizes one queue's current item distribution.
type QueueStats struct {
	QueueName             string   `json:"queueName"`
	TotalItems            int      `json:"totalItems"`
	QueuedItems           int      `json:"queuedItems"`
	InProgressItems       int      `json:"inProgressItems"`
	CompletedItems        int      `json:"completedItems"`
	FailedItems           int      `json:"failedItems"`
	CancelledItems        int      `json:"cancelledItems"`
	AverageProcessingTime *float64 `json:"averageProcessingTime,omitempty"`
	CurrentAgents         []string `json:"currentAgents"`
}
