// Package search adapts the teacher's vectorstore+embeddings stack
// (internal/vectorstore, internal/embeddings) into the narrow surface
// project_manager's suggest_files/search/get_selection_context actions need:
// index a file's content on write, and retrieve the most relevant files for
// a free-text prompt. One vectorstore collection per project keeps isolation
// simple without needing the vectorstore package's tenant-context machinery.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/promptliano/mcpd/internal/vectorstore"
)

// Index is the capability project_manager's handlers depend on.
type Index interface {
	IndexFile(ctx context.Context, projectID, fileID int64, path, content string) error
	RemoveFile(ctx context.Context, projectID, fileID int64) error
	SuggestFiles(ctx context.Context, projectID int64, prompt string, limit int) ([]int64, error)
	Search(ctx context.Context, projectID int64, query string, limit int) ([]Hit, error)
}

// Hit is one search/suggestion result.
type Hit struct {
	FileID int64
	Path   string
	Score  float32
}

// VectorIndex implements Index over a vectorstore.Store + Embedder, scoping
// every project to its own collection ("project_<id>_files").
type VectorIndex struct {
	store vectorstore.Store
}

// NewVectorIndex wraps an already-constructed vectorstore.Store (built via
// vectorstore.NewStore, typically chromem-backed per SPEC_FULL.md §D.3).
func NewVectorIndex(store vectorstore.Store) *VectorIndex {
	return &VectorIndex{store: store}
}

func collectionFor(projectID int64) string {
	return fmt.Sprintf("project_%d_files", projectID)
}

func docID(fileID int64) string {
	return strconv.FormatInt(fileID, 10)
}

func (vi *VectorIndex) ensureCollection(ctx context.Context, projectID int64) error {
	name := collectionFor(projectID)
	exists, err := vi.store.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return vi.store.CreateCollection(ctx, name, 0)
}

// IndexFile embeds and upserts one file's content into its project's collection.
func (vi *VectorIndex) IndexFile(ctx context.Context, projectID, fileID int64, path, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if err := vi.ensureCollection(ctx, projectID); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	_, err := vi.store.AddDocuments(ctx, []vectorstore.Document{{
		ID:         docID(fileID),
		Content:    content,
		Collection: collectionFor(projectID),
		Metadata:   map[string]interface{}{"path": path, "fileId": fileID},
	}})
	return err
}

// RemoveFile deletes a file's embedding from its project's collection.
func (vi *VectorIndex) RemoveFile(ctx context.Context, projectID, fileID int64) error {
	return vi.store.DeleteDocumentsFromCollection(ctx, collectionFor(projectID), []string{docID(fileID)})
}

// SuggestFiles returns up to limit file IDs most relevant to prompt.
func (vi *VectorIndex) SuggestFiles(ctx context.Context, projectID int64, prompt string, limit int) ([]int64, error) {
	hits, err := vi.Search(ctx, projectID, prompt, limit)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.FileID)
	}
	return out, nil
}

// Search runs similarity search against projectID's collection.
func (vi *VectorIndex) Search(ctx context.Context, projectID int64, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := vi.store.SearchInCollection(ctx, collectionFor(projectID), query, limit, nil)
	if err != nil {
		if err == vectorstore.ErrCollectionNotFound {
			return nil, nil
		}
		return nil, err
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		id, convErr := strconv.ParseInt(r.ID, 10, 64)
		if convErr != nil {
			continue
		}
		path, _ := r.Metadata["path"].(string)
		hits = append(hits, Hit{FileID: id, Path: path, Score: r.Score})
	}
	return hits, nil
}

// HeuristicIndex is a zero-dependency fallback Index used when no embedder
// is configured (e.g. fastembed model files unavailable), matching by
// substring over indexed (path, content) pairs rather than embeddings.
type HeuristicIndex struct {
	files map[int64]map[int64]heuristicDoc // projectID -> fileID -> doc
}

type heuristicDoc struct {
	path    string
	content string
}

// NewHeuristicIndex constructs an empty fallback index.
func NewHeuristicIndex() *HeuristicIndex {
	return &HeuristicIndex{files: make(map[int64]map[int64]heuristicDoc)}
}

func (h *HeuristicIndex) IndexFile(_ context.Context, projectID, fileID int64, path, content string) error {
	if h.files[projectID] == nil {
		h.files[projectID] = make(map[int64]heuristicDoc)
	}
	h.files[projectID][fileID] = heuristicDoc{path: path, content: content}
	return nil
}

func (h *HeuristicIndex) RemoveFile(_ context.Context, projectID, fileID int64) error {
	delete(h.files[projectID], fileID)
	return nil
}

func (h *HeuristicIndex) SuggestFiles(ctx context.Context, projectID int64, prompt string, limit int) ([]int64, error) {
	hits, err := h.Search(ctx, projectID, prompt, limit)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.FileID)
	}
	return out, nil
}

func (h *HeuristicIndex) Search(_ context.Context, projectID int64, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	terms := strings.Fields(strings.ToLower(query))
	var hits []Hit
	for fileID, doc := range h.files[projectID] {
		lower := strings.ToLower(doc.path + "\n" + doc.content)
		score := 0
		for _, term := range terms {
			score += strings.Count(lower, term)
		}
		if score > 0 {
			hits = append(hits, Hit{FileID: fileID, Path: doc.path, Score: float32(score)})
		}
	}
	// simple insertion sort by descending score; result sets are small (per-project file counts)
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
