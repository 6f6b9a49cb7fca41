package autonomous

import (
	"context"
	"fmt"
	"time"
)

// ContextdMCPClient implements MCPClient interface for Contextd MCP server.
//
// This client wraps HTTP requests to the contextd MCP server and provides
// a clean interface for agent workflows to interact with:
// - ReasoningBank (memory search/record/outcome)
// - Short-lived collections (repository index/search/delete)
// - Checkpoints (save/resume for crash recovery)
//
// The client handles:
// - HTTP transport to MCP server
// - Request/response serialization
// - Error handling and retries
// - Tenant context injection
type ContextdMCPClient struct {
	// serverURL is the base URL of the contextd MCP server
	serverURL string

	// timeout for HTTP requests
	timeout time.Duration

	// TODO: Add actual HTTP client when implementing
	// httpClient *http.Client
}

// NewContextdMCPClient creates a new MCP client wrapper.
func NewContextdMCPClient(serverURL string, timeout time.Duration) *ContextdMCPClient {
	return &ContextdMCPClient{
		serverURL: serverURL,
		timeout:   timeout,
	}
}

// MemorySearch searches ReasoningBank for relevant memories.
func (c *ContextdMCPClient) MemorySearch(ctx context.Context, projectID, query string, limit int) ([]Memory, error) {
	// TODO: Implement HTTP request to contextd MCP server
	// Request: {
	//   "method": "mcp__contextd__memory_search",
	//   "params": {
	//     "project_id": projectID,
	//     "query": query,
	//     "limit": limit
	//   }
	// }

	return []Memory{}, fmt.Errorf("not implemented: memory_search")
}

// MemoryRecord records a new memory in ReasoningBank.
func (c *ContextdMCPClient) MemoryRecord(ctx context.Context, memory Memory) (string, error) {
	// TODO: Implement HTTP request to contextd MCP server
	// Request: {
	//   "method": "mcp__contextd__memory_record",
	//   "params": {
	//     "project_id": memory.ProjectID,
	//     "title": memory.Title,
	//     "content": memory.Content,
	//     "outcome": memory.Outcome,
	//     "tags": memory.Tags
	//   }
	// }

	return "", fmt.Errorf("not implemented: memory_record")
}

// MemoryOutcome reports whether a memory was helpful.
func (c *ContextdMCPClient) MemoryOutcome(ctx context.Context, memoryID string, succeeded bool) error {
	// TODO: Implement HTTP request to contextd MCP server
	// Request: {
	//   "method": "mcp__contextd__memory_outcome",
	//   "params": {
	//     "memory_id": memoryID,
	//     "succeeded": succeeded
	//   }
	// }

	return fmt.Errorf("not implemented: memory_outcome")
}

// RepositoryIndex indexes a repository for semantic search.
func (c *ContextdMCPClient) RepositoryIndex(ctx context.Context, path, tenantID string) (*IndexResult, error) {
	// TODO: Implement HTTP request to contextd MCP server
	// Request: {
	//   "method": "mcp__contextd__repository_index",
	//   "params": {
	//     "path": path,
	//     "tenant_id": tenantID
	//   }
	// }

	return &IndexResult{
		CollectionName: fmt.Sprintf("%s_%s_codebase", tenantID, "project"),
		FilesIndexed:   0,
		Timestamp:      time.Now(),
	}, fmt.Errorf("not implemented: repository_index")
}

// RepositorySearch performs semantic search over indexed code.
func (c *ContextdMCPClient) RepositorySearch(ctx context.Context, query, collectionName string, limit int) ([]SearchResult, error) {
	// TODO: Implement HTTP request to contextd MCP server
	// Request: {
	//   "method": "mcp__contextd__repository_search",
	//   "params": {
	//     "query": query,
	//     "collection_name": collectionName,
	//     "limit": limit
	//   }
	// }

	return []SearchResult{}, fmt.Errorf("not implemented: repository_search")
}

// CollectionDelete deletes a short-lived collection.
func (c *ContextdMCPClient) CollectionDelete(ctx context.Context, collectionName string) error {
	// TODO: Implement HTTP request to contextd MCP server
	// Request: {
	//   "method": "mcp__contextd__collection_delete",
	//   "params": {
	//     "collection_name": collectionName
	//   }
	// }

	return fmt.Errorf("not implemented: collection_delete")
}

// CheckpointSave saves a workflow checkpoint for crash recovery.
func (c *ContextdMCPClient) CheckpointSave(ctx context.Context, checkpoint Checkpoint) (string, error) {
	// TODO: Implement HTTP request to contextd MCP server
	// Request: {
	//   "method": "mcp__contextd__checkpoint_save",
	//   "params": {
	//     "session_id": checkpoint.SessionID,
	//     "tenant_id": checkpoint.TenantID,
	//     "project_path": checkpoint.ProjectPath,
	//     "name": checkpoint.Name,
	//     "description": checkpoint.Description,
	//     "summary": checkpoint.Summary,
	//     "context": checkpoint.Context,
	//     "full_state": checkpoint.FullState,
	//     "token_count": checkpoint.TokenCount,
	//     "threshold": checkpoint.Threshold,
	//     "auto_created": checkpoint.AutoCreated
	//   }
	// }

	return "checkpoint-id-placeholder", fmt.Errorf("not implemented: checkpoint_save")
}

// CheckpointResume resumes from a saved checkpoint.
func (c *ContextdMCPClient) CheckpointResume(ctx context.Context, checkpointID, level string) (*CheckpointState, error) {
	// TODO: Implement HTTP request to contextd MCP server
	// Request: {
	//   "method": "mcp__contextd__checkpoint_resume",
	//   "params": {
	//     "checkpoint_id": checkpointID,
	//     "level": level
	//   }
	// }

	return &CheckpointState{
		Summary:   "",
		Context:   "",
		FullState: "",
	}, fmt.Errorf("not implemented: checkpoint_resume")
}

// MockMCPClient is a mock implementation for testing.
type MockMCPClient struct {
	Memories         []Memory
	SearchResults    []SearchResult
	RecordedMemories []Memory
	IndexedRepos     []string
	SavedCheckpoints []Checkpoint
}

// Ensure MockMCPClient implements MCPClient
var _ MCPClient = (*MockMCPClient)(nil)

func (m *MockMCPClient) MemorySearch(ctx context.Context, projectID, query string, limit int) ([]Memory, error) {
	return m.Memories, nil
}

func (m *MockMCPClient) MemoryRecord(ctx context.Context, memory Memory) (string, error) {
	m.RecordedMemories = append(m.RecordedMemories, memory)
	return fmt.Sprintf("memory-%d", len(m.RecordedMemories)), nil
}

func (m *MockMCPClient) MemoryOutcome(ctx context.Context, memoryID string, succeeded bool) error {
	return nil
}

func (m *MockMCPClient) RepositoryIndex(ctx context.Context, path, tenantID string) (*IndexResult, error) {
	m.IndexedRepos = append(m.IndexedRepos, path)
	return &IndexResult{
		CollectionName: fmt.Sprintf("%s_test_codebase", tenantID),
		FilesIndexed:   100,
		Timestamp:      time.Now(),
	}, nil
}

func (m *MockMCPClient) RepositorySearch(ctx context.Context, query, collectionName string, limit int) ([]SearchResult, error) {
	return m.SearchResults, nil
}

func (m *MockMCPClient) CollectionDelete(ctx context.Context, collectionName string) error {
	return nil
}

func (m *MockMCPClient) CheckpointSave(ctx context.Context, checkpoint Checkpoint) (string, error) {
	m.SavedCheckpoints = append(m.SavedCheckpoints, checkpoint)
	return fmt.Sprintf("checkpoint-%d", len(m.SavedCheckpoints)), nil
}

func (m *MockMCPClient) CheckpointResume(ctx context.Context, checkpointID, level string) (*CheckpointState, error) {
	return &CheckpointState{
		Summary:   "Resumed from checkpoint",
		Context:   "{}",
		FullState: "{}",
	}, nil
}
