package storage

import (
	"context"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"admem/internal/errors"
	"admem/internal/logging"
)

// VectorIndex is an in-memory similarity index over stored decision
// embeddings, backed by chromem-go. SQLite remains the source of truth: the
// index is rebuilt from the decisions table at open and written through on
// every save, so losing it only costs a rebuild.
type VectorIndex struct {
	db     *chromem.DB
	col    *chromem.Collection
	logger *logging.Logger
	mu     sync.RWMutex
}

// NewVectorIndex creates an empty index
func NewVectorIndex(logger *logging.Logger) (*VectorIndex, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("decisions", nil, nil)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "create vector collection", err)
	}
	return &VectorIndex{db: db, col: col, logger: logger}, nil
}

// Rebuild repopulates the index from every embedded decision in storage.
// Called once at startup; rows without embeddings are not indexed.
func (v *VectorIndex) Rebuild(ctx context.Context, store *DB) error {
	rows, err := store.Query(decisionColumns + ` WHERE d.vector_embedding IS NOT NULL`)
	if err != nil {
		return errors.NewStorageError("rebuild vector index", "SELECT FROM decisions", err)
	}
	defer rows.Close()

	decisions, err := scanDecisions(rows)
	if err != nil {
		return err
	}

	indexed := 0
	for _, d := range decisions {
		if err := v.Add(ctx, d); err != nil {
			v.logger.Warn("skipping decision during index rebuild", map[string]interface{}{
				"decision_id": d.ID,
				"error":       err.Error(),
			})
			continue
		}
		indexed++
	}
	v.logger.Info("vector index rebuilt", map[string]interface{}{"documents": indexed})
	return nil
}

// Add indexes one decision. Decisions without embeddings are ignored.
func (v *VectorIndex) Add(ctx context.Context, d *Decision) error {
	if d.Embedding == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	doc := chromem.Document{
		ID:        d.ID,
		Content:   d.Decision,
		Embedding: d.Embedding,
		Metadata: map[string]string{
			"project_id": d.ProjectID,
			"public":     strconv.FormatBool(d.Public),
		},
	}
	if err := v.col.AddDocument(ctx, doc); err != nil {
		return errors.Wrap(errors.InternalError, "index decision", err)
	}
	return nil
}

// Query returns the ids and similarities of the nearest indexed decisions
// within scope, best first. chromem rejects nResults above the collection
// size, so the limit is clamped to the document count.
func (v *VectorIndex) Query(ctx context.Context, embedding []float32, scope SearchScope) ([]IndexHit, error) {
	limit := scope.Limit
	if limit <= 0 {
		limit = 10
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	count := v.col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	where := map[string]string{}
	if scope.ProjectID != "" {
		where["project_id"] = scope.ProjectID
	}
	if scope.PublicOnly {
		where["public"] = "true"
	}

	results, err := v.col.QueryEmbedding(ctx, embedding, limit, where, nil)
	if err != nil {
		return nil, errors.Wrap(errors.QueryFailed, "vector index query", err)
	}

	hits := make([]IndexHit, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		if scope.MinScore > 0 && score < scope.MinScore {
			continue
		}
		hits = append(hits, IndexHit{ID: r.ID, Similarity: score})
	}
	return hits, nil
}

// Size returns the number of indexed documents
func (v *VectorIndex) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.col.Count()
}

// IndexHit is a raw index result before hydration from storage
type IndexHit struct {
	ID         string
	Similarity float64
}
