package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admem/internal/embedding"
	"admem/internal/identity"
	"admem/internal/logging"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db := NewDB(Options{Path: filepath.Join(t.TempDir(), "test.db")}, logging.Discard())
	t.Cleanup(func() { db.Close() })
	return db
}

func testDescriptor(repoID string) *identity.Descriptor {
	return &identity.Descriptor{
		Name:         "webapp",
		RootPath:     "/tmp/webapp",
		PathHash:     "abcdef0123456789",
		RepositoryID: repoID,
		TechStack:    []string{"react", "node"},
		ProjectType:  identity.TypeFullstack,
	}
}

func testDecision(projectID string) *Decision {
	return &Decision{
		ProjectID:              projectID,
		Decision:               "Use PostgreSQL for persistence",
		Reasoning:              "Relational constraints and mature tooling",
		Type:                   TypeTechStack,
		AlternativesConsidered: []string{"MongoDB", "SQLite"},
		FilesAffected:          []string{"docker-compose.yml"},
		Confidence:             0.9,
		Embedding:              embedding.Fallback("Use PostgreSQL for persistence"),
	}
}

func TestGetOrCreateProject_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	first, err := db.GetOrCreateProject(testDescriptor("github.com/acme/webapp"))
	require.NoError(t, err)
	second, err := db.GetOrCreateProject(testDescriptor("github.com/acme/webapp"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "webapp", second.Name)
	assert.Equal(t, []string{"react", "node"}, second.TechStack)
}

func TestGetOrCreateProject_RemoteUnifiesClones(t *testing.T) {
	db := setupTestDB(t)

	first, err := db.GetOrCreateProject(testDescriptor("github.com/acme/webapp"))
	require.NoError(t, err)

	// same repository checked out at a different path
	clone := testDescriptor("github.com/acme/webapp")
	clone.PathHash = "fedcba9876543210"
	second, err := db.GetOrCreateProject(clone)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateProject_NoRemoteSeparatesByPath(t *testing.T) {
	db := setupTestDB(t)

	first, err := db.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)

	other := testDescriptor("")
	other.PathHash = "fedcba9876543210"
	second, err := db.GetOrCreateProject(other)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestSaveDecision_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	project, err := db.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)

	d := testDecision(project.ID)
	require.NoError(t, db.SaveDecision(d))
	require.NotEmpty(t, d.ID)

	loaded, err := db.GetDecision(d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Decision, loaded.Decision)
	assert.Equal(t, d.Reasoning, loaded.Reasoning)
	assert.Equal(t, TypeTechStack, loaded.Type)
	assert.Equal(t, []string{"MongoDB", "SQLite"}, loaded.AlternativesConsidered)
	assert.Equal(t, []string{"docker-compose.yml"}, loaded.FilesAffected)
	assert.InDelta(t, 0.9, loaded.Confidence, 1e-9)
	assert.Len(t, loaded.Embedding, embedding.Dimensions)
	assert.False(t, loaded.Public)
}

func TestSaveDecision_Validation(t *testing.T) {
	db := setupTestDB(t)
	project, err := db.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Decision)
	}{
		{"empty decision", func(d *Decision) { d.Decision = "" }},
		{"empty reasoning", func(d *Decision) { d.Reasoning = "" }},
		{"unknown type", func(d *Decision) { d.Type = "hunch" }},
		{"confidence above one", func(d *Decision) { d.Confidence = 1.5 }},
		{"confidence negative", func(d *Decision) { d.Confidence = -0.1 }},
		{"wrong embedding width", func(d *Decision) { d.Embedding = []float32{1, 2, 3} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := testDecision(project.ID)
			tc.mutate(d)
			err := db.SaveDecision(d)
			require.Error(t, err)
		})
	}

	count, err := db.CountDecisions(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "no partial rows from rejected saves")
}

func TestSessionCounter(t *testing.T) {
	db := setupTestDB(t)
	project, err := db.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)
	session, err := db.StartSession(project.ID, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		d := testDecision(project.ID)
		d.SessionID = session.ID
		require.NoError(t, db.SaveDecision(d))
	}

	loaded, err := db.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.DecisionCount)
	assert.Nil(t, loaded.EndedAt)

	require.NoError(t, db.EndSession(session.ID))
	loaded, err = db.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.EndedAt)
}

func TestListRecent_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	project, err := db.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		d := testDecision(project.ID)
		d.Decision = d.Decision + " " + string(rune('a'+i))
		d.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, db.SaveDecision(d))
	}

	recent, err := db.ListRecent(project.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.True(t, recent[0].CreatedAt.After(recent[1].CreatedAt))
	assert.True(t, recent[1].CreatedAt.After(recent[2].CreatedAt))
}

func TestTimeline_FiltersAndOrder(t *testing.T) {
	db := setupTestDB(t)
	project, err := db.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	types := []DecisionType{TypeTechStack, TypeArchitecture, TypePattern, TypeToolChoice}
	for i := 0; i < 4; i++ {
		d := testDecision(project.ID)
		d.Type = types[i]
		d.CreatedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, db.SaveDecision(d))
	}

	all, err := db.Timeline(project.ID, TimelineFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "oldest first")
	}

	since := base.Add(36 * time.Hour)
	later, err := db.Timeline(project.ID, TimelineFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, later, 2)

	arch, err := db.Timeline(project.ID, TimelineFilter{Category: TypeArchitecture})
	require.NoError(t, err)
	require.Len(t, arch, 1)
	assert.Equal(t, TypeArchitecture, arch[0].Type)

	_, err = db.Timeline(project.ID, TimelineFilter{Category: "vibes"})
	require.Error(t, err)
}

func TestScanNearest_Visibility(t *testing.T) {
	db := setupTestDB(t)
	mine, err := db.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)
	other := testDescriptor("")
	other.PathHash = "0000000000000001"
	theirs, err := db.GetOrCreateProject(other)
	require.NoError(t, err)

	private := testDecision(theirs.ID)
	private.Decision = "Use Kafka for event streaming"
	private.Embedding = embedding.Fallback(private.Decision)
	require.NoError(t, db.SaveDecision(private))

	shared := testDecision(theirs.ID)
	shared.Decision = "Use Redis for caching"
	shared.Public = true
	shared.Embedding = embedding.Fallback(shared.Decision)
	require.NoError(t, db.SaveDecision(shared))

	own := testDecision(mine.ID)
	require.NoError(t, db.SaveDecision(own))

	query := embedding.Fallback("caching layer choice")

	scoped, err := db.ScanNearest(query, SearchScope{ProjectID: mine.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, own.ID, scoped[0].Decision.ID)

	global, err := db.ScanNearest(query, SearchScope{PublicOnly: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, shared.ID, global[0].Decision.ID, "private rows never leak into global search")
}

func TestScanNearest_QueryWidth(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.ScanNearest([]float32{1, 2}, SearchScope{})
	require.Error(t, err)
}

func TestPatternsFor_OrderingAndApplicability(t *testing.T) {
	db := setupTestDB(t)

	patterns := []*DecisionPattern{
		{Name: "repository-pattern", Description: "data access behind interfaces", TechStack: []string{"go"}, UsageCount: 40, SuccessRate: 0.8},
		{Name: "cqrs", Description: "split reads from writes", TechStack: []string{"go"}, UsageCount: 40, SuccessRate: 0.9},
		{Name: "redux-store", Description: "single state tree", TechStack: []string{"react"}, UsageCount: 90, SuccessRate: 0.7},
		{Name: "anywhere", Description: "applies to all stacks", UsageCount: 10, SuccessRate: 0.5},
	}
	for _, p := range patterns {
		require.NoError(t, db.UpsertPattern(p))
	}

	got, err := db.PatternsFor([]string{"go"}, "", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "cqrs", got[0].Name, "success rate breaks the usage tie")
	assert.Equal(t, "repository-pattern", got[1].Name)
	assert.Equal(t, "anywhere", got[2].Name)

	err = db.UpsertPattern(&DecisionPattern{Name: "bad", SuccessRate: 1.2})
	require.Error(t, err)
}

func TestAPIKeys_Lifecycle(t *testing.T) {
	db := setupTestDB(t)

	record, err := db.CreateAPIKey("", "ci", "admem_key_ab", "$2a$12$fakehash")
	require.NoError(t, err)

	found, err := db.APIKeysByPrefix("admem_key_ab")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, record.ID, found[0].ID)

	require.NoError(t, db.RevokeAPIKey(record.ID))
	found, err = db.APIKeysByPrefix("admem_key_ab")
	require.NoError(t, err)
	assert.Empty(t, found, "revoked keys never come back from prefix lookup")
}

func TestEnsureUser_CreateThenRefreshName(t *testing.T) {
	db := setupTestDB(t)

	created, err := db.EnsureUser("dev@example.com", "Dev")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	again, err := db.EnsureUser("dev@example.com", "Developer")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Developer", again.Name)

	_, err = db.EnsureUser("", "nobody")
	assert.Error(t, err)
}

func TestEngine_SearchUsesIndexAndScanAgree(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, EngineOptions{
		Storage:      Options{Path: filepath.Join(t.TempDir(), "test.db")},
		IndexEnabled: true,
	}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	project, err := engine.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)

	texts := []string{
		"Use PostgreSQL for persistence",
		"Adopt microservices for the order system",
		"Pick React for the dashboard",
	}
	for _, text := range texts {
		d := testDecision(project.ID)
		d.Decision = text
		d.Embedding = embedding.Fallback(text)
		require.NoError(t, engine.SaveDecision(ctx, d))
	}
	assert.Equal(t, 3, engine.IndexSize())

	query := embedding.Fallback("Use PostgreSQL for persistence")
	viaIndex, err := engine.Search(ctx, query, SearchScope{ProjectID: project.ID, Limit: 2})
	require.NoError(t, err)
	require.NotEmpty(t, viaIndex)

	viaScan, err := engine.ScanNearest(query, SearchScope{ProjectID: project.ID, Limit: 2})
	require.NoError(t, err)
	require.NotEmpty(t, viaScan)

	assert.Equal(t, viaScan[0].Decision.ID, viaIndex[0].Decision.ID)
	assert.InDelta(t, 1.0, viaIndex[0].Similarity, 1e-5, "identical text is its own nearest neighbor")
}

func TestEngine_RebuildRestoresIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := Open(ctx, EngineOptions{Storage: Options{Path: path}, IndexEnabled: true}, logging.Discard())
	require.NoError(t, err)
	project, err := first.GetOrCreateProject(testDescriptor(""))
	require.NoError(t, err)
	require.NoError(t, first.SaveDecision(ctx, testDecision(project.ID)))
	require.NoError(t, first.Close())

	second, err := Open(ctx, EngineOptions{Storage: Options{Path: path}, IndexEnabled: true}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })
	assert.Equal(t, 1, second.IndexSize())
}
