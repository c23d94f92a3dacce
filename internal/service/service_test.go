package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admem/internal/embedding"
	"admem/internal/identity"
	"admem/internal/logging"
	"admem/internal/storage"
)

// newTestService wires a service against a throwaway database and a
// fallback-only embedding generator
func newTestService(t *testing.T) *DecisionService {
	t.Helper()
	logger := logging.Discard()

	engine, err := storage.Open(context.Background(), storage.EngineOptions{
		Storage:      storage.Options{Path: filepath.Join(t.TempDir(), "test.db")},
		IndexEnabled: true,
	}, logger)
	require.NoError(t, err)

	generator, err := embedding.NewGenerator(nil, logger)
	require.NoError(t, err)

	svc := New(engine, identity.NewDetector(logger), generator, logger)
	t.Cleanup(func() {
		svc.Close()
		engine.Close()
	})
	return svc
}

// newProjectDir creates a directory that detection recognizes as a project
func newProjectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	manifest := []byte(`{"name": "checkout-service", "dependencies": {"express": "^4.0.0"}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), manifest, 0o644))
	return dir
}

func rememberReq(dir, text string) RememberRequest {
	return RememberRequest{
		WorkingDir: dir,
		Decision:   text,
		Reasoning:  "evaluated against the alternatives",
		Type:       "tech_stack",
		Confidence: 0.9,
	}
}

func TestRememberAndRecall(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)
	ctx := context.Background()

	result, err := svc.Remember(ctx, rememberReq(dir, "Use PostgreSQL for persistence"))
	require.NoError(t, err)
	assert.Equal(t, "checkout-service", result.Project.Name)
	assert.NotEmpty(t, result.Decision.ID)
	assert.Len(t, result.Decision.Embedding, embedding.Dimensions)

	recall, err := svc.Recall(ctx, RecallRequest{WorkingDir: dir, Query: "Use PostgreSQL for persistence"})
	require.NoError(t, err)
	require.NotEmpty(t, recall.Matches)
	assert.Equal(t, result.Decision.ID, recall.Matches[0].Decision.ID)
}

func TestRemember_OutsideProject(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Remember(context.Background(), rememberReq(t.TempDir(), "anything"))
	require.Error(t, err)
}

func TestRemember_Validation(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)

	req := rememberReq(dir, "Use PostgreSQL")
	req.Type = "gut_feeling"
	_, err := svc.Remember(context.Background(), req)
	require.Error(t, err)

	req = rememberReq(dir, "Use PostgreSQL")
	req.Confidence = 2
	_, err = svc.Remember(context.Background(), req)
	require.Error(t, err)
}

func TestRecall_WithoutQueryListsRecent(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)
	ctx := context.Background()

	for _, text := range []string{"first decision", "second decision", "third decision"} {
		_, err := svc.Remember(ctx, rememberReq(dir, text))
		require.NoError(t, err)
	}

	recall, err := svc.Recall(ctx, RecallRequest{WorkingDir: dir, Limit: 2})
	require.NoError(t, err)
	require.Len(t, recall.Matches, 2)
	assert.Equal(t, "third decision", recall.Matches[0].Decision.Decision)
}

func TestRecall_GlobalSeesOnlyPublic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	otherDir := newProjectDir(t)
	private := rememberReq(otherDir, "Use Kafka for events")
	_, err := svc.Remember(ctx, private)
	require.NoError(t, err)

	public := rememberReq(otherDir, "Use Redis for caching")
	public.Public = true
	shared, err := svc.Remember(ctx, public)
	require.NoError(t, err)

	myDir := newProjectDir(t)
	recall, err := svc.Recall(ctx, RecallRequest{WorkingDir: myDir, Query: "caching", Global: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, recall.Matches, 1)
	assert.Equal(t, shared.Decision.ID, recall.Matches[0].Decision.ID)
}

func TestRecall_DefaultLimit(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Remember(ctx, rememberReq(dir, fmt.Sprintf("decision number %d", i)))
		require.NoError(t, err)
	}

	recall, err := svc.Recall(ctx, RecallRequest{WorkingDir: dir})
	require.NoError(t, err)
	assert.Len(t, recall.Matches, 10, "omitted limit defaults to 10")

	recall, err = svc.Recall(ctx, RecallRequest{WorkingDir: dir, Query: "decision"})
	require.NoError(t, err)
	assert.Len(t, recall.Matches, 10, "similarity search honors the same default")
}

func TestTimeline_CategoryFilter(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)
	ctx := context.Background()

	_, err := svc.Remember(ctx, rememberReq(dir, "Use PostgreSQL"))
	require.NoError(t, err)
	arch := rememberReq(dir, "Split into microservices")
	arch.Type = "architecture"
	_, err = svc.Remember(ctx, arch)
	require.NoError(t, err)

	timeline, err := svc.Timeline(ctx, TimelineRequest{WorkingDir: dir, Category: "architecture"})
	require.NoError(t, err)
	require.Len(t, timeline.Decisions, 1)
	assert.Equal(t, storage.TypeArchitecture, timeline.Decisions[0].Type)

	_, err = svc.Timeline(ctx, TimelineRequest{WorkingDir: dir, Days: -1})
	require.Error(t, err)
}

func TestDiscoverPatterns(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)
	ctx := context.Background()

	for _, text := range []string{
		"Use Postgres as the main database",
		"Put Redis in front of Postgres for caching",
	} {
		_, err := svc.Remember(ctx, rememberReq(dir, text))
		require.NoError(t, err)
	}

	result, err := svc.DiscoverPatterns(ctx, DiscoverRequest{WorkingDir: dir, Topic: "postgres migrations"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.Total)
	require.NotEmpty(t, result.Mined)
	assert.Equal(t, "postgres", result.Mined[0].Keyword)
}

func TestDiscoverPatterns_SharedDecisionsReachEmptyProjects(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seededDir := newProjectDir(t)
	shared := rememberReq(seededDir, "Put Redis in front of the database for caching")
	shared.Public = true
	sharedResult, err := svc.Remember(ctx, shared)
	require.NoError(t, err)
	_, err = svc.Remember(ctx, rememberReq(seededDir, "Keep the billing keys in Vault"))
	require.NoError(t, err)

	emptyDir := newProjectDir(t)
	result, err := svc.DiscoverPatterns(ctx, DiscoverRequest{WorkingDir: emptyDir, Topic: "caching layer"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Summary.Total)
	require.NotEmpty(t, result.Similar, "public decisions from other projects rank for the topic")
	ids := make([]string, 0, len(result.Similar))
	for _, m := range result.Similar {
		require.True(t, m.Decision.Public, "only shared decisions cross project boundaries")
		ids = append(ids, m.Decision.ID)
	}
	assert.Contains(t, ids, sharedResult.Decision.ID)

	rendered := RenderDiscover(result)
	assert.Contains(t, rendered, "Related public decisions across projects")
	assert.Contains(t, rendered, "Put Redis in front of the database for caching")
}

func TestDiscoverPatterns_StackOverride(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)
	ctx := context.Background()

	_, err := svc.Remember(ctx, rememberReq(dir, "Use Postgres as the main database"))
	require.NoError(t, err)

	result, err := svc.DiscoverPatterns(ctx, DiscoverRequest{
		WorkingDir:  dir,
		Topic:       "service boundaries",
		TechStack:   []string{"go", "grpc"},
		ProjectType: "backend",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Total)
}

func TestSessionSpansLifetime(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)
	ctx := context.Background()

	first, err := svc.Remember(ctx, rememberReq(dir, "first"))
	require.NoError(t, err)
	second, err := svc.Remember(ctx, rememberReq(dir, "second"))
	require.NoError(t, err)

	assert.Equal(t, first.Decision.SessionID, second.Decision.SessionID)
}

func TestProjectStatus(t *testing.T) {
	svc := newTestService(t)
	dir := newProjectDir(t)
	ctx := context.Background()

	_, err := svc.Remember(ctx, rememberReq(dir, "Use PostgreSQL"))
	require.NoError(t, err)

	status, err := svc.ProjectStatus(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, status.DecisionCount)
	assert.Equal(t, "checkout-service", status.Project.Name)
}
