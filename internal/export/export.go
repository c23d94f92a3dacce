// Package export writes a project's decision history as zstd-compressed
// JSON. The format is a stable snapshot for backup or transfer, not a wire
// protocol: one envelope with project metadata and the full decision list.
package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"admem/internal/errors"
	"admem/internal/storage"
	"admem/internal/version"
)

// Snapshot is the serialized envelope
type Snapshot struct {
	FormatVersion int                `json:"format_version"`
	Tool          string             `json:"tool"`
	ToolVersion   string             `json:"tool_version"`
	ExportedAt    time.Time          `json:"exported_at"`
	Project       SnapshotProject    `json:"project"`
	Decisions     []SnapshotDecision `json:"decisions"`
}

// SnapshotProject carries the identifying metadata of the exported project
type SnapshotProject struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	RepositoryID string   `json:"repository_id,omitempty"`
	TechStack    []string `json:"tech_stack,omitempty"`
	ProjectType  string   `json:"project_type,omitempty"`
}

// SnapshotDecision is one exported decision. Embeddings are omitted: they
// are derived data and dominate the payload size.
type SnapshotDecision struct {
	ID                     string    `json:"id"`
	Decision               string    `json:"decision"`
	Reasoning              string    `json:"reasoning"`
	Type                   string    `json:"type"`
	AlternativesConsidered []string  `json:"alternatives_considered,omitempty"`
	FilesAffected          []string  `json:"files_affected,omitempty"`
	Confidence             float64   `json:"confidence"`
	Public                 bool      `json:"public"`
	CreatedAt              time.Time `json:"created_at"`
}

const formatVersion = 1

// Write streams the project's full history through a zstd writer onto w.
// Returns the number of exported decisions.
func Write(w io.Writer, project *storage.Project, decisions []*storage.Decision) (int, error) {
	snapshot := Snapshot{
		FormatVersion: formatVersion,
		Tool:          "admem",
		ToolVersion:   version.Version,
		ExportedAt:    time.Now().UTC(),
		Project: SnapshotProject{
			ID:           project.ID,
			Name:         project.Name,
			RepositoryID: project.RepositoryID,
			TechStack:    project.TechStack,
			ProjectType:  project.ProjectType,
		},
		Decisions: make([]SnapshotDecision, 0, len(decisions)),
	}
	for _, d := range decisions {
		snapshot.Decisions = append(snapshot.Decisions, SnapshotDecision{
			ID:                     d.ID,
			Decision:               d.Decision,
			Reasoning:              d.Reasoning,
			Type:                   string(d.Type),
			AlternativesConsidered: d.AlternativesConsidered,
			FilesAffected:          d.FilesAffected,
			Confidence:             d.Confidence,
			Public:                 d.Public,
			CreatedAt:              d.CreatedAt,
		})
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, errors.Wrap(errors.InternalError, "create zstd writer", err)
	}
	encoder := json.NewEncoder(zw)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		zw.Close()
		return 0, errors.Wrap(errors.InternalError, "encode export snapshot", err)
	}
	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(errors.InternalError, "flush export", err)
	}
	return len(snapshot.Decisions), nil
}

// Read decodes a snapshot previously produced by Write
func Read(r io.Reader) (*Snapshot, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.ValidationFailed, "open zstd stream", err)
	}
	defer zr.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(zr).Decode(&snapshot); err != nil {
		return nil, errors.Wrap(errors.ValidationFailed, "decode export snapshot", err)
	}
	if snapshot.FormatVersion != formatVersion {
		return nil, errors.New(errors.ValidationFailed, "unsupported export format version")
	}
	return &snapshot, nil
}
