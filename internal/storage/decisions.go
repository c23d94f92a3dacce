package storage

import (
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"admem/internal/embedding"
	"admem/internal/errors"
)

// SaveDecision validates and persists a decision row. The row itself is
// written in a single statement; the per-session counter bump afterwards is
// best effort and never fails the save. Fills ID and CreatedAt when unset.
func (db *DB) SaveDecision(d *Decision) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.ProjectID == "" {
		return errors.NewValidationError("project_id", "must not be empty")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = db.now()
	}

	var sessionID, userID, vector interface{}
	if d.SessionID != "" {
		sessionID = d.SessionID
	}
	if d.UserID != "" {
		userID = d.UserID
	}
	if d.Embedding != nil {
		vector = marshalVector(d.Embedding)
	}

	_, err := db.Exec(`
		INSERT INTO decisions (
			id, project_id, session_id, user_id, decision, reasoning, type,
			alternatives_considered, files_affected, confidence, public,
			vector_embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, sessionID, userID, d.Decision, d.Reasoning, string(d.Type),
		marshalStrings(d.AlternativesConsidered), marshalStrings(d.FilesAffected),
		d.Confidence, boolToInt(d.Public), vector, formatTime(d.CreatedAt))
	if err != nil {
		return errors.NewStorageError("save decision", "INSERT INTO decisions", err)
	}

	if d.SessionID != "" {
		if cerr := db.incrementDecisionCount(d.SessionID); cerr != nil {
			db.logger.Warn("session counter update failed", map[string]interface{}{
				"session_id": d.SessionID,
				"error":      cerr.Error(),
			})
		}
	}
	return nil
}

// GetDecision returns one decision by id, or NotFound
func (db *DB) GetDecision(id string) (*Decision, error) {
	rows, err := db.Query(decisionColumns+` WHERE d.id = ?`, id)
	if err != nil {
		return nil, errors.NewStorageError("load decision", "SELECT FROM decisions", err)
	}
	defer rows.Close()
	decisions, err := scanDecisions(rows)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, errors.New(errors.NotFound, "decision not found")
	}
	return decisions[0], nil
}

// ListRecent returns the project's newest decisions, most recent first
func (db *DB) ListRecent(projectID string, limit int) ([]*Decision, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(decisionColumns+`
		WHERE d.project_id = ?
		ORDER BY d.created_at DESC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, errors.NewStorageError("list decisions", "SELECT FROM decisions", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// TimelineFilter narrows a chronological listing
type TimelineFilter struct {
	Since    *time.Time
	Category DecisionType // empty means all types
	Limit    int
}

// Timeline returns the project's decisions in chronological order, oldest
// first, optionally bounded by a start time and a single category.
func (db *DB) Timeline(projectID string, filter TimelineFilter) ([]*Decision, error) {
	query := decisionColumns + ` WHERE d.project_id = ?`
	args := []interface{}{projectID}
	if filter.Since != nil {
		query += ` AND d.created_at >= ?`
		args = append(args, formatTime(*filter.Since))
	}
	if filter.Category != "" {
		if !ValidDecisionType(string(filter.Category)) {
			return nil, errors.NewValidationError("category",
				"must be one of tech_stack, architecture, pattern, tool_choice")
		}
		query += ` AND d.type = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY d.created_at ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewStorageError("load timeline", "SELECT FROM decisions", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// SearchScope selects which rows a similarity search may see
type SearchScope struct {
	ProjectID  string // scoped search: decisions of one project
	PublicOnly bool   // global search: public decisions across all projects
	Limit      int
	MinScore   float64
}

// ScanNearest ranks stored decisions by cosine similarity to query with a
// full table scan. Rows with no stored embedding are skipped. This is the
// always-available search path; the in-memory index in front of it only
// narrows the candidate set faster.
func (db *DB) ScanNearest(query []float32, scope SearchScope) ([]*DecisionMatch, error) {
	if len(query) != embedding.Dimensions {
		return nil, errors.NewValidationError("query embedding",
			"length does not match stored embedding width")
	}
	limit := scope.Limit
	if limit <= 0 {
		limit = 10
	}

	sqlQuery := decisionColumns + ` WHERE d.vector_embedding IS NOT NULL`
	args := []interface{}{}
	if scope.ProjectID != "" {
		sqlQuery += ` AND d.project_id = ?`
		args = append(args, scope.ProjectID)
	}
	if scope.PublicOnly {
		sqlQuery += ` AND d.public = 1`
	}

	rows, err := db.Query(sqlQuery, args...)
	if err != nil {
		return nil, errors.NewStorageError("similarity scan", "SELECT FROM decisions", err)
	}
	defer rows.Close()

	decisions, err := scanDecisions(rows)
	if err != nil {
		return nil, err
	}

	matches := make([]*DecisionMatch, 0, len(decisions))
	for _, d := range decisions {
		if d.Embedding == nil {
			continue
		}
		score, serr := embedding.Similarity(query, d.Embedding)
		if serr != nil {
			continue
		}
		if scope.MinScore > 0 && score < scope.MinScore {
			continue
		}
		matches = append(matches, &DecisionMatch{Decision: d, Similarity: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CountDecisions returns the number of decisions stored for a project
func (db *DB) CountDecisions(projectID string) (int, error) {
	row := db.QueryRow(`SELECT COUNT(*) FROM decisions WHERE project_id = ?`, projectID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, errors.NewStorageError("count decisions", "SELECT COUNT FROM decisions", err)
	}
	return count, nil
}

const decisionColumns = `
	SELECT d.id, d.project_id, COALESCE(d.session_id, ''), COALESCE(d.user_id, ''),
	       d.decision, d.reasoning, d.type, d.alternatives_considered,
	       d.files_affected, d.confidence, d.public, d.vector_embedding, d.created_at
	FROM decisions d`

func scanDecisions(rows *sql.Rows) ([]*Decision, error) {
	var decisions []*Decision
	for rows.Next() {
		var d Decision
		var typ, alternatives, files, createdAt string
		var public int
		var vector *string
		err := rows.Scan(&d.ID, &d.ProjectID, &d.SessionID, &d.UserID,
			&d.Decision, &d.Reasoning, &typ, &alternatives,
			&files, &d.Confidence, &public, &vector, &createdAt)
		if err != nil {
			return nil, errors.NewStorageError("scan decision", "SELECT FROM decisions", err)
		}
		d.Type = DecisionType(typ)
		d.AlternativesConsidered = unmarshalStrings(alternatives)
		d.FilesAffected = unmarshalStrings(files)
		d.Public = public != 0
		if vector != nil {
			d.Embedding = unmarshalVector(*vector)
		}
		d.CreatedAt = parseTime(createdAt)
		decisions = append(decisions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterate decisions", "SELECT FROM decisions", err)
	}
	return decisions, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
