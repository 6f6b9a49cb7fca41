package domain

import "context"

// Clock provides monotonic time, injected so tests can control session TTL
// sweeps and queue processing-time measurements deterministically.
type Clock interface {
	Now() int64 // milliseconds since epoch, matching the *_ms fields above
}

// IDGenerator hands out monotonic 64-bit identifiers for newly created rows.
type IDGenerator interface {
	NextID() int64
}

// Store is the durable persistence capability. The core never talks to a
// database directly; every CRUD path goes through this interface so the
// production implementation (backed by whatever the deployment chooses) and
// the in-memory test implementation are interchangeable.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *Project) (*Project, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProject(ctx context.Context, id int64, patch func(*Project)) (*Project, error)
	DeleteProject(ctx context.Context, id int64) error

	// Files
	CreateFile(ctx context.Context, f *File) (*File, error)
	GetFile(ctx context.Context, projectID, fileID int64) (*File, error)
	ListFiles(ctx context.Context, projectID int64) ([]*File, error)
	UpdateFileContent(ctx context.Context, projectID, fileID int64, content string) (*File, error)
	DeleteFile(ctx context.Context, projectID, fileID int64) error

	// Prompts
	CreatePrompt(ctx context.Context, p *Prompt) (*Prompt, error)
	GetPrompt(ctx context.Context, id int64) (*Prompt, error)
	ListPrompts(ctx context.Context, projectID *int64) ([]*Prompt, error)
	UpdatePrompt(ctx context.Context, id int64, patch func(*Prompt)) (*Prompt, error)
	DeletePrompt(ctx context.Context, id int64) error

	// Tickets
	CreateTicket(ctx context.Context, t *Ticket) (*Ticket, error)
	GetTicket(ctx context.Context, id int64) (*Ticket, error)
	ListTickets(ctx context.Context, projectID int64) ([]*Ticket, error)
	UpdateTicket(ctx context.Context, id int64, patch func(*Ticket)) (*Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error

	// Tasks
	CreateTask(ctx context.Context, t *Task) (*Task, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context, ticketID int64) ([]*Task, error)
	UpdateTask(ctx context.Context, id int64, patch func(*Task)) (*Task, error)
	DeleteTask(ctx context.Context, id int64) error

	// Queues
	CreateQueue(ctx context.Context, q *Queue) (*Queue, error)
	GetQueue(ctx context.Context, id int64) (*Queue, error)
	ListQueuesByProject(ctx context.Context, projectID int64) ([]*Queue, error)
	UpdateQueue(ctx context.Context, id int64, patch func(*Queue)) (*Queue, error)
	DeleteQueue(ctx context.Context, id int64) error

	// Tool executions
	RecordToolExecution(ctx context.Context, e *ToolExecution) error
}

// LLMClient is the narrow surface the tool handlers need from an upstream
// language model. Production traffic goes through the anthropic-sdk-go
// adapter; tests use a deterministic mock.
type LLMClient interface {
	SuggestFiles(ctx context.Context, projectID int64, prompt string, limit int) ([]int64, error)
	SuggestTasks(ctx context.Context, ticketID int64, extraContext string) ([]string, error)
	AutoGenerateTasks(ctx context.Context, ticketID int64) ([]*Task, error)
	OptimizeUserInput(ctx context.Context, projectID int64, prompt string) (string, error)
	CompactSummary(ctx context.Context, projectID int64, options map[string]any) (string, error)
}
