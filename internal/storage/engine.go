package storage

import (
	"context"

	"admem/internal/logging"
)

// Engine bundles durable storage with the in-memory vector index. All
// writes go to SQLite first; the index is write-through and rebuildable.
type Engine struct {
	*DB
	index  *VectorIndex
	logger *logging.Logger
}

// EngineOptions configures Open
type EngineOptions struct {
	Storage      Options
	IndexEnabled bool
}

// Open prepares the storage engine. The database connection itself stays
// lazy; the vector index, when enabled, is built eagerly so the first
// search does not pay the rebuild.
func Open(ctx context.Context, opts EngineOptions, logger *logging.Logger) (*Engine, error) {
	db := NewDB(opts.Storage, logger)
	engine := &Engine{DB: db, logger: logger}

	if opts.IndexEnabled {
		index, err := NewVectorIndex(logger)
		if err != nil {
			return nil, err
		}
		if err := index.Rebuild(ctx, db); err != nil {
			// the scan path still serves searches
			logger.Warn("vector index rebuild failed, searches will scan storage", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			engine.index = index
		}
	}
	return engine, nil
}

// SaveDecision persists the decision and write-throughs the index. Index
// failures are logged and swallowed: the row is durable and a rebuild
// recovers the index entry.
func (e *Engine) SaveDecision(ctx context.Context, d *Decision) error {
	if err := e.DB.SaveDecision(d); err != nil {
		return err
	}
	if e.index != nil {
		if err := e.index.Add(ctx, d); err != nil {
			e.logger.Warn("decision saved but not indexed", map[string]interface{}{
				"decision_id": d.ID,
				"error":       err.Error(),
			})
		}
	}
	return nil
}

// Search ranks stored decisions by similarity to the query embedding. The
// index answers when present; any index failure falls back to the storage
// scan so a degraded index never breaks retrieval.
func (e *Engine) Search(ctx context.Context, query []float32, scope SearchScope) ([]*DecisionMatch, error) {
	if e.index == nil {
		return e.ScanNearest(query, scope)
	}

	hits, err := e.index.Query(ctx, query, scope)
	if err != nil {
		e.logger.Warn("vector index query failed, falling back to scan", map[string]interface{}{
			"error": err.Error(),
		})
		return e.ScanNearest(query, scope)
	}

	matches := make([]*DecisionMatch, 0, len(hits))
	for _, hit := range hits {
		decision, derr := e.GetDecision(hit.ID)
		if derr != nil {
			e.logger.Warn("indexed decision missing from storage", map[string]interface{}{
				"decision_id": hit.ID,
			})
			continue
		}
		matches = append(matches, &DecisionMatch{Decision: decision, Similarity: hit.Similarity})
	}
	return matches, nil
}

// IndexSize reports how many decisions the vector index holds, 0 when the
// index is disabled
func (e *Engine) IndexSize() int {
	if e.index == nil {
		return 0
	}
	return e.index.Size()
}
