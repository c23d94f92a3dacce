package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"admem/internal/embedding"
	"admem/internal/errors"
)

// DecisionType is the fixed categorical enumeration for decisions
type DecisionType string

const (
	TypeTechStack    DecisionType = "tech_stack"
	TypeArchitecture DecisionType = "architecture"
	TypePattern      DecisionType = "pattern"
	TypeToolChoice   DecisionType = "tool_choice"
)

// ValidDecisionType reports whether t is in the enumeration
func ValidDecisionType(t string) bool {
	switch DecisionType(t) {
	case TypeTechStack, TypeArchitecture, TypePattern, TypeToolChoice:
		return true
	default:
		return false
	}
}

// Project is one distinct codebase
type Project struct {
	ID           string
	Name         string
	PathHash     string
	RepositoryID string // normalized git remote, empty when none
	GitRemoteURL string
	TechStack    []string
	ProjectType  string
	CreatedAt    time.Time
}

// Session is one connected working period within a project
type Session struct {
	ID            string
	ProjectID     string
	UserID        string // optional attribution
	StartedAt     time.Time
	EndedAt       *time.Time
	DecisionCount int
}

// Decision is the core durable record. Immutable once written.
type Decision struct {
	ID                     string
	ProjectID              string
	SessionID              string
	UserID                 string // optional attribution
	Decision               string
	Reasoning              string
	Type                   DecisionType
	AlternativesConsidered []string
	FilesAffected          []string
	Confidence             float64
	Public                 bool
	Embedding              []float32 // nil when never embedded
	CreatedAt              time.Time
}

// Validate enforces the write-time contract: confidence in [0,1], type in
// the enumeration, required text present, embedding width fixed. Runs before
// any row is written.
func (d *Decision) Validate() error {
	if d.Decision == "" {
		return errors.NewValidationError("decision", "must not be empty")
	}
	if d.Reasoning == "" {
		return errors.NewValidationError("reasoning", "must not be empty")
	}
	if !ValidDecisionType(string(d.Type)) {
		return errors.NewValidationError("type",
			fmt.Sprintf("%q is not one of tech_stack, architecture, pattern, tool_choice", d.Type))
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return errors.NewValidationError("confidence",
			fmt.Sprintf("%.2f is outside [0, 1]", d.Confidence))
	}
	if d.Embedding != nil && len(d.Embedding) != embedding.Dimensions {
		return errors.NewValidationError("embedding",
			fmt.Sprintf("length %d, want %d", len(d.Embedding), embedding.Dimensions))
	}
	return nil
}

// DecisionMatch is a nearest-neighbor hit with its cosine similarity
type DecisionMatch struct {
	Decision   *Decision
	Similarity float64
}

// DecisionPattern is a precomputed recommendation row. Written by the
// administrative seed path, read-only everywhere else.
type DecisionPattern struct {
	ID           string
	Name         string
	Description  string
	TechStack    []string
	ProjectTypes []string
	UsageCount   int
	SuccessRate  float64
}

// APIKeyRecord is a stored credential row. Only the bcrypt hash and lookup
// prefix are persisted, never the token itself.
type APIKeyRecord struct {
	ID          string
	UserID      string
	Name        string
	TokenPrefix string
	TokenHash   string
	CreatedAt   time.Time
	LastUsedAt  *time.Time
	RevokedAt   *time.Time
}

// marshalStrings encodes a string slice column; nil becomes an empty list
func marshalStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalStrings(data string) []string {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}

// marshalVector encodes an embedding column as a JSON float array
func marshalVector(vec []float32) string {
	data, err := json.Marshal(vec)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalVector(data string) []float32 {
	var vec []float32
	if err := json.Unmarshal([]byte(data), &vec); err != nil {
		return nil
	}
	return vec
}
