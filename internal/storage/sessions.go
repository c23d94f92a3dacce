package storage

import (
	"github.com/google/uuid"

	"admem/internal/errors"
)

// StartSession opens a working period against a project. userID may be
// empty when no caller identity is attached.
func (db *DB) StartSession(projectID, userID string) (*Session, error) {
	if projectID == "" {
		return nil, errors.NewValidationError("project_id", "must not be empty")
	}
	session := &Session{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    userID,
		StartedAt: db.now(),
	}
	var user interface{}
	if userID != "" {
		user = userID
	}
	_, err := db.Exec(`
		INSERT INTO sessions (id, project_id, user_id, started_at, decision_count)
		VALUES (?, ?, ?, ?, 0)`,
		session.ID, session.ProjectID, user, formatTime(session.StartedAt))
	if err != nil {
		return nil, errors.NewStorageError("start session", "INSERT INTO sessions", err)
	}
	return session, nil
}

// EndSession stamps the session closed. Ending an already-ended or unknown
// session is a no-op.
func (db *DB) EndSession(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	_, err := db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		formatTime(db.now()), sessionID)
	if err != nil {
		return errors.NewStorageError("end session", "UPDATE sessions", err)
	}
	return nil
}

// GetSession returns the session row by id, or NotFound
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, project_id, COALESCE(user_id, ''), started_at, ended_at, decision_count
		FROM sessions WHERE id = ?`, id)

	var s Session
	var startedAt string
	var endedAt *string
	err := row.Scan(&s.ID, &s.ProjectID, &s.UserID, &startedAt, &endedAt, &s.DecisionCount)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.New(errors.NotFound, "session not found")
		}
		return nil, errors.NewStorageError("load session", "SELECT FROM sessions", err)
	}
	s.StartedAt = parseTime(startedAt)
	if endedAt != nil {
		t := parseTime(*endedAt)
		s.EndedAt = &t
	}
	return &s, nil
}

// incrementDecisionCount bumps the per-session counter. Best effort: callers
// treat failure as non-fatal because the decision row is already durable.
func (db *DB) incrementDecisionCount(sessionID string) error {
	_, err := db.Exec(`UPDATE sessions SET decision_count = decision_count + 1 WHERE id = ?`, sessionID)
	if err != nil {
		return errors.NewStorageError("increment decision count", "UPDATE sessions", err)
	}
	return nil
}
