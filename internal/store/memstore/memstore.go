// Package memstore implements domain.Store entirely in memory. It backs the
// test suite and lets mcpd run standalone without an external database.
package memstore

import (
	"context"
	"sync"

	"github.com/promptliano/mcpd/internal/domain"
	"github.com/promptliano/mcpd/internal/mcperr"
)

// Store is a goroutine-safe, in-memory domain.Store.
type Store struct {
	mu sync.RWMutex

	projects map[int64]*domain.Project
	files    map[int64]map[int64]*domain.File // projectID -> fileID -> File
	prompts  map[int64]*domain.Prompt
	tickets  map[int64]*domain.Ticket
	tasks    map[int64]*domain.Task
	queues   map[int64]*domain.Queue

	executions []*domain.ToolExecution

	ids domain.IDGenerator
}

// New constructs an empty Store using ids for identifier assignment.
func New(ids domain.IDGenerator) *Store {
	return &Store{
		projects: make(map[int64]*domain.Project),
		files:    make(map[int64]map[int64]*domain.File),
		prompts:  make(map[int64]*domain.Prompt),
		tickets:  make(map[int64]*domain.Ticket),
		tasks:    make(map[int64]*domain.Task),
		queues:   make(map[int64]*domain.Queue),
		ids:      ids,
	}
}

// --- Projects ---

func (s *Store) CreateProject(_ context.Context, p *domain.Project) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.ids.NextID()
	cp := *p
	s.projects[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetProject(_ context.Context, id int64) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, mcperr.NotFound("project", id)
	}
	out := *p
	return &out, nil
}

func (s *Store) ListProjects(_ context.Context) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpdateProject(_ context.Context, id int64, patch func(*domain.Project)) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, mcperr.NotFound("project", id)
	}
	patch(p)
	out := *p
	return &out, nil
}

func (s *Store) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return mcperr.NotFound("project", id)
	}
	delete(s.projects, id)
	delete(s.files, id)
	return nil
}

// --- Files ---

func (s *Store) CreateFile(_ context.Context, f *domain.File) (*domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.ids.NextID()
	if s.files[f.ProjectID] == nil {
		s.files[f.ProjectID] = make(map[int64]*domain.File)
	}
	cp := *f
	s.files[f.ProjectID][cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetFile(_ context.Context, projectID, fileID int64) (*domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.files[projectID]
	if !ok {
		return nil, mcperr.NotFound("file", fileID)
	}
	f, ok := bucket[fileID]
	if !ok {
		return nil, mcperr.NotFound("file", fileID)
	}
	out := *f
	return &out, nil
}

func (s *Store) ListFiles(_ context.Context, projectID int64) ([]*domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.files[projectID]
	out := make([]*domain.File, 0, len(bucket))
	for _, f := range bucket {
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpdateFileContent(_ context.Context, projectID, fileID int64, content string) (*domain.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.files[projectID]
	if !ok {
		return nil, mcperr.NotFound("file", fileID)
	}
	f, ok := bucket[fileID]
	if !ok {
		return nil, mcperr.NotFound("file", fileID)
	}
	f.Content = content
	f.Size = len(content)
	out := *f
	return &out, nil
}

func (s *Store) DeleteFile(_ context.Context, projectID, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.files[projectID]
	if !ok {
		return mcperr.NotFound("file", fileID)
	}
	if _, ok := bucket[fileID]; !ok {
		return mcperr.NotFound("file", fileID)
	}
	delete(bucket, fileID)
	return nil
}

// --- Prompts ---

func (s *Store) CreatePrompt(_ context.Context, p *domain.Prompt) (*domain.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.ids.NextID()
	cp := *p
	s.prompts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetPrompt(_ context.Context, id int64) (*domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[id]
	if !ok {
		return nil, mcperr.NotFound("prompt", id)
	}
	out := *p
	return &out, nil
}

func (s *Store) ListPrompts(_ context.Context, projectID *int64) ([]*domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Prompt, 0)
	for _, p := range s.prompts {
		if projectID != nil {
			if p.ProjectID == nil || *p.ProjectID != *projectID {
				continue
			}
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpdatePrompt(_ context.Context, id int64, patch func(*domain.Prompt)) (*domain.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prompts[id]
	if !ok {
		return nil, mcperr.NotFound("prompt", id)
	}
	patch(p)
	out := *p
	return &out, nil
}

func (s *Store) DeletePrompt(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prompts[id]; !ok {
		return mcperr.NotFound("prompt", id)
	}
	delete(s.prompts, id)
	return nil
}

// --- Tickets ---

func (s *Store) CreateTicket(_ context.Context, t *domain.Ticket) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.ids.NextID()
	cp := *t
	s.tickets[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, mcperr.NotFound("ticket", id)
	}
	out := *t
	return &out, nil
}

func (s *Store) ListTickets(_ context.Context, projectID int64) ([]*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Ticket, 0)
	for _, t := range s.tickets {
		if t.ProjectID == projectID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateTicket(_ context.Context, id int64, patch func(*domain.Ticket)) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, mcperr.NotFound("ticket", id)
	}
	patch(t)
	out := *t
	return &out, nil
}

func (s *Store) DeleteTicket(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return mcperr.NotFound("ticket", id)
	}
	delete(s.tickets, id)
	for tid, task := range s.tasks {
		if task.TicketID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

// --- Tasks ---

func (s *Store) CreateTask(_ context.Context, t *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.ids.NextID()
	cp := *t
	s.tasks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetTask(_ context.Context, id int64) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, mcperr.NotFound("task", id)
	}
	out := *t
	return &out, nil
}

func (s *Store) ListTasks(_ context.Context, ticketID int64) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Task, 0)
	for _, t := range s.tasks {
		if t.TicketID == ticketID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateTask(_ context.Context, id int64, patch func(*domain.Task)) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, mcperr.NotFound("task", id)
	}
	patch(t)
	out := *t
	return &out, nil
}

func (s *Store) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return mcperr.NotFound("task", id)
	}
	delete(s.tasks, id)
	return nil
}

// --- Queues ---

func (s *Store) CreateQueue(_ context.Context, q *domain.Queue) (*domain.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.ids.NextID()
	cp := *q
	s.queues[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetQueue(_ context.Context, id int64) (*domain.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[id]
	if !ok {
		return nil, mcperr.NotFound("queue", id)
	}
	out := *q
	return &out, nil
}

func (s *Store) ListQueuesByProject(_ context.Context, projectID int64) ([]*domain.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Queue, 0)
	for _, q := range s.queues {
		if q.ProjectID == projectID {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateQueue(_ context.Context, id int64, patch func(*domain.Queue)) (*domain.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[id]
	if !ok {
		return nil, mcperr.NotFound("queue", id)
	}
	patch(q)
	out := *q
	return &out, nil
}

func (s *Store) DeleteQueue(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[id]; !ok {
		return mcperr.NotFound("queue", id)
	}
	delete(s.queues, id)
	return nil
}

// --- Tool executions ---

func (s *Store) RecordToolExecution(_ context.Context, e *domain.ToolExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.executions = append(s.executions, &cp)
	return nil
}

// Executions returns a snapshot of every recorded ToolExecution, newest last.
// Exposed for tests asserting on invocation tracking.
func (s *Store) Executions() []*domain.ToolExecution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ToolExecution, len(s.executions))
	copy(out, s.executions)
	return out
}

// TicketsSnapshot returns every ticket, for use by the Queue Engine when it
// needs to mutate queue fields directly via patch closures and by tests.
func (s *Store) TicketsSnapshot() map[int64]*domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]*domain.Ticket, len(s.tickets))
	for k, v := range s.tickets {
		cp := *v
		out[k] = &cp
	}
	return out
}

// TasksSnapshot returns every task.
func (s *Store) TasksSnapshot() map[int64]*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]*domain.Task, len(s.tasks))
	for k, v := range s.tasks {
		cp := *v
		out[k] = &cp
	}
	return out
}
