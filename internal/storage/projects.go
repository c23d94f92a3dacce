package storage

import (
	"strings"

	"github.com/google/uuid"

	"admem/internal/errors"
	"admem/internal/identity"
)

// GetOrCreateProject resolves descriptor to a stored project row. Resolution
// order: repository_id when the descriptor carries a remote, then path_hash.
// On a unique-constraint race the existing row is re-read and returned, so
// concurrent callers converge on one project per codebase.
func (db *DB) GetOrCreateProject(desc *identity.Descriptor) (*Project, error) {
	if desc.PathHash == "" {
		return nil, errors.NewValidationError("path_hash", "must not be empty")
	}

	if desc.RepositoryID != "" {
		project, err := db.projectByRepositoryID(desc.RepositoryID)
		if err != nil {
			return nil, err
		}
		if project != nil {
			return db.refreshProjectMetadata(project, desc)
		}
	}

	project, err := db.projectByPathHash(desc.PathHash)
	if err != nil {
		return nil, err
	}
	if project != nil {
		return db.refreshProjectMetadata(project, desc)
	}

	project = &Project{
		ID:           uuid.New().String(),
		Name:         desc.Name,
		PathHash:     desc.PathHash,
		RepositoryID: desc.RepositoryID,
		GitRemoteURL: desc.RemoteURL,
		TechStack:    desc.TechStack,
		ProjectType:  desc.ProjectType,
		CreatedAt:    db.now(),
	}

	var repoID interface{}
	if project.RepositoryID != "" {
		repoID = project.RepositoryID
	}
	_, err = db.Exec(`
		INSERT INTO projects (id, name, path_hash, repository_id, git_remote_url, tech_stack, project_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.Name, project.PathHash, repoID, project.GitRemoteURL,
		marshalStrings(project.TechStack), project.ProjectType, formatTime(project.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			// another caller won the insert race
			if desc.RepositoryID != "" {
				if existing, rerr := db.projectByRepositoryID(desc.RepositoryID); rerr == nil && existing != nil {
					return existing, nil
				}
			}
			if existing, rerr := db.projectByPathHash(desc.PathHash); rerr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, errors.NewStorageError("insert project", "INSERT INTO projects", err)
	}
	return project, nil
}

// GetProject returns the project row by id, or NotFound
func (db *DB) GetProject(id string) (*Project, error) {
	project, err := db.projectWhere("id = ?", id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errors.New(errors.NotFound, "project not found")
	}
	return project, nil
}

func (db *DB) projectByRepositoryID(repoID string) (*Project, error) {
	return db.projectWhere("repository_id = ?", repoID)
}

func (db *DB) projectByPathHash(hash string) (*Project, error) {
	return db.projectWhere("path_hash = ?", hash)
}

func (db *DB) projectWhere(cond string, args ...interface{}) (*Project, error) {
	row := db.QueryRow(`
		SELECT id, name, path_hash, COALESCE(repository_id, ''), git_remote_url, tech_stack, project_type, created_at
		FROM projects WHERE `+cond, args...)

	var p Project
	var techStack, createdAt string
	err := row.Scan(&p.ID, &p.Name, &p.PathHash, &p.RepositoryID, &p.GitRemoteURL, &techStack, &p.ProjectType, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, errors.NewStorageError("load project", "SELECT FROM projects", err)
	}
	p.TechStack = unmarshalStrings(techStack)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// refreshProjectMetadata updates detected tech stack and project type when
// redetection produced something non-default. Name, hashes and timestamps
// are stable after creation.
func (db *DB) refreshProjectMetadata(project *Project, desc *identity.Descriptor) (*Project, error) {
	changed := false
	if len(desc.TechStack) > 0 && !sameStrings(project.TechStack, desc.TechStack) {
		project.TechStack = desc.TechStack
		changed = true
	}
	if desc.ProjectType != "" && desc.ProjectType != identity.TypeGeneral && desc.ProjectType != project.ProjectType {
		project.ProjectType = desc.ProjectType
		changed = true
	}
	if !changed {
		return project, nil
	}
	_, err := db.Exec(`UPDATE projects SET tech_stack = ?, project_type = ? WHERE id = ?`,
		marshalStrings(project.TechStack), project.ProjectType, project.ID)
	if err != nil {
		return nil, errors.NewStorageError("update project metadata", "UPDATE projects", err)
	}
	return project, nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNoRows(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no rows")
}
