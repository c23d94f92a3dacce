package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admem/internal/storage"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	project := &storage.Project{
		ID:           "p1",
		Name:         "checkout-service",
		RepositoryID: "github.com/acme/checkout",
		TechStack:    []string{"go", "postgres"},
		ProjectType:  "backend",
	}
	decisions := []*storage.Decision{
		{
			ID:                     "d1",
			Decision:               "Use PostgreSQL for persistence",
			Reasoning:              "relational constraints",
			Type:                   storage.TypeTechStack,
			AlternativesConsidered: []string{"MongoDB"},
			Confidence:             0.9,
			Public:                 true,
			Embedding:              make([]float32, 1536),
			CreatedAt:              time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:         "d2",
			Decision:   "Split checkout into microservices",
			Reasoning:  "team boundaries",
			Type:       storage.TypeArchitecture,
			Confidence: 0.7,
			CreatedAt:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	count, err := Write(&buf, project, decisions)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	snapshot, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, "checkout-service", snapshot.Project.Name)
	require.Len(t, snapshot.Decisions, 2)
	assert.Equal(t, "Use PostgreSQL for persistence", snapshot.Decisions[0].Decision)
	assert.Equal(t, "tech_stack", snapshot.Decisions[0].Type)
	assert.True(t, snapshot.Decisions[0].Public)
}

func TestRead_RejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewBufferString("not a zstd stream"))
	require.Error(t, err)
}

func TestWrite_EmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	count, err := Write(&buf, &storage.Project{ID: "p1", Name: "empty"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	snapshot, err := Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Decisions)
}
