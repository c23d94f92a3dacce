package storage

import (
	"database/sql"

	"github.com/google/uuid"

	"admem/internal/errors"
)

// CreateAPIKey stores a credential record. Only the bcrypt hash and lookup
// prefix are persisted; the caller shows the token once and discards it.
func (db *DB) CreateAPIKey(userID, name, tokenPrefix, tokenHash string) (*APIKeyRecord, error) {
	if tokenHash == "" || tokenPrefix == "" {
		return nil, errors.NewValidationError("token", "hash and prefix are required")
	}
	record := &APIKeyRecord{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		TokenPrefix: tokenPrefix,
		TokenHash:   tokenHash,
		CreatedAt:   db.now(),
	}
	var user interface{}
	if userID != "" {
		user = userID
	}
	_, err := db.Exec(`
		INSERT INTO api_keys (id, user_id, name, token_prefix, token_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, user, record.Name, record.TokenPrefix, record.TokenHash,
		formatTime(record.CreatedAt))
	if err != nil {
		return nil, errors.NewStorageError("create api key", "INSERT INTO api_keys", err)
	}
	return record, nil
}

// APIKeysByPrefix returns the unrevoked candidate records sharing a token
// prefix. The caller narrows to the real match with a bcrypt compare.
func (db *DB) APIKeysByPrefix(prefix string) ([]*APIKeyRecord, error) {
	rows, err := db.Query(`
		SELECT id, COALESCE(user_id, ''), name, token_prefix, token_hash, created_at, last_used_at, revoked_at
		FROM api_keys WHERE token_prefix = ? AND revoked_at IS NULL`, prefix)
	if err != nil {
		return nil, errors.NewStorageError("lookup api key", "SELECT FROM api_keys", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

// ListAPIKeys returns every stored key record, newest first
func (db *DB) ListAPIKeys() ([]*APIKeyRecord, error) {
	rows, err := db.Query(`
		SELECT id, COALESCE(user_id, ''), name, token_prefix, token_hash, created_at, last_used_at, revoked_at
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.NewStorageError("list api keys", "SELECT FROM api_keys", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

// TouchAPIKey stamps last use. Best effort.
func (db *DB) TouchAPIKey(id string) error {
	_, err := db.Exec(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, formatTime(db.now()), id)
	if err != nil {
		return errors.NewStorageError("touch api key", "UPDATE api_keys", err)
	}
	return nil
}

// RevokeAPIKey marks a key unusable. Revoking twice is a no-op.
func (db *DB) RevokeAPIKey(id string) error {
	_, err := db.Exec(`UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		formatTime(db.now()), id)
	if err != nil {
		return errors.NewStorageError("revoke api key", "UPDATE api_keys", err)
	}
	return nil
}

func scanAPIKeys(rows *sql.Rows) ([]*APIKeyRecord, error) {
	var records []*APIKeyRecord
	for rows.Next() {
		var r APIKeyRecord
		var createdAt string
		var lastUsed, revoked *string
		err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.TokenPrefix, &r.TokenHash,
			&createdAt, &lastUsed, &revoked)
		if err != nil {
			return nil, errors.NewStorageError("scan api key", "SELECT FROM api_keys", err)
		}
		r.CreatedAt = parseTime(createdAt)
		if lastUsed != nil {
			t := parseTime(*lastUsed)
			r.LastUsedAt = &t
		}
		if revoked != nil {
			t := parseTime(*revoked)
			r.RevokedAt = &t
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("iterate api keys", "SELECT FROM api_keys", err)
	}
	return records, nil
}
