package storage

import (
	"time"

	"github.com/google/uuid"

	"admem/internal/errors"
)

// User is an optional attribution identity. Single-user installs never
// create one.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// EnsureUser returns the user with the given email, creating it on first
// sight. Email is the unique handle; name is refreshed opportunistically.
func (db *DB) EnsureUser(email, name string) (*User, error) {
	if email == "" {
		return nil, errors.NewValidationError("email", "must not be empty")
	}
	row := db.QueryRow(`SELECT id, email, name, created_at FROM users WHERE email = ?`, email)
	var u User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &createdAt)
	if err == nil {
		u.CreatedAt = parseTime(createdAt)
		if name != "" && name != u.Name {
			u.Name = name
			if _, uerr := db.Exec(`UPDATE users SET name = ? WHERE id = ?`, name, u.ID); uerr != nil {
				return nil, errors.NewStorageError("update user", "UPDATE users", uerr)
			}
		}
		return &u, nil
	}
	if !isNoRows(err) {
		return nil, errors.NewStorageError("load user", "SELECT FROM users", err)
	}

	u = User{ID: uuid.New().String(), Email: email, Name: name, CreatedAt: db.now()}
	_, err = db.Exec(`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, formatTime(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return db.EnsureUser(email, "")
		}
		return nil, errors.NewStorageError("create user", "INSERT INTO users", err)
	}
	return &u, nil
}
