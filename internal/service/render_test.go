package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"admem/internal/patterns"
	"admem/internal/storage"
)

func renderFixtures() (*storage.Project, *storage.Decision) {
	project := &storage.Project{ID: "p1", Name: "checkout-service"}
	decision := &storage.Decision{
		ID:                     "d1",
		ProjectID:              "p1",
		Decision:               "Use PostgreSQL for persistence",
		Reasoning:              "relational constraints",
		Type:                   storage.TypeTechStack,
		AlternativesConsidered: []string{"MongoDB"},
		Confidence:             0.9,
		CreatedAt:              time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
	}
	return project, decision
}

func TestRenderRemember(t *testing.T) {
	project, decision := renderFixtures()
	out := RenderRemember(&RememberResult{Decision: decision, Project: project})

	assert.Contains(t, out, "checkout-service")
	assert.Contains(t, out, "Use PostgreSQL for persistence")
	assert.Contains(t, out, "confidence 90%")
	assert.NotContains(t, out, "shared publicly")

	decision.Public = true
	out = RenderRemember(&RememberResult{Decision: decision, Project: project})
	assert.Contains(t, out, "shared publicly")
}

func TestRenderRecall(t *testing.T) {
	project, decision := renderFixtures()
	result := &RecallResult{
		Project: project,
		Matches: []*storage.DecisionMatch{{Decision: decision, Similarity: 0.87}},
	}

	out := RenderRecall(result, "database choice")
	assert.Contains(t, out, "Relevance: 0.87")
	assert.Contains(t, out, "Alternatives considered: MongoDB")
	assert.Contains(t, out, "Confidence: 90%")

	empty := &RecallResult{Project: project}
	assert.Contains(t, RenderRecall(empty, "anything"), "No decisions")
	assert.Contains(t, RenderRecall(empty, ""), "yet")
}

func TestRenderTimeline_GroupsByDay(t *testing.T) {
	project, decision := renderFixtures()
	next := *decision
	next.Decision = "Add Redis cache"
	next.CreatedAt = decision.CreatedAt.Add(26 * time.Hour)

	out := RenderTimeline(&TimelineResult{
		Project:   project,
		Decisions: []*storage.Decision{decision, &next},
	}, 0)

	assert.Contains(t, out, "2026-03-01")
	assert.Contains(t, out, "2026-03-02")
	assert.Contains(t, out, "14:30")
}

func TestRenderDiscover(t *testing.T) {
	project, _ := renderFixtures()
	out := RenderDiscover(&DiscoverResult{
		Project: project,
		Summary: patterns.Summary{
			Total:  1,
			ByType: map[storage.DecisionType]int{storage.TypeTechStack: 1},
		},
		Mined: []patterns.Pattern{{Keyword: "postgres", Category: "database", Count: 3}},
		Recommended: []*storage.DecisionPattern{
			{Name: "repository-pattern", Description: "data access behind interfaces", SuccessRate: 0.8},
		},
	})

	assert.Contains(t, out, "1 tech_stack")
	assert.Contains(t, out, "postgres (database, seen 3 times)")
	assert.Contains(t, out, "repository-pattern")
	assert.Contains(t, out, "success rate 80%")
}
