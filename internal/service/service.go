// Package service orchestrates project detection, embedding, and storage
// behind the operations the tool and CLI surfaces expose. All request
// validation happens here so the transports stay thin.
package service

import (
	"context"
	"sync"
	"time"

	"admem/internal/embedding"
	"admem/internal/errors"
	"admem/internal/identity"
	"admem/internal/logging"
	"admem/internal/patterns"
	"admem/internal/storage"
)

// DecisionService is the application core. One instance lives for the
// process lifetime; each project it touches gets a single session spanning
// that lifetime.
type DecisionService struct {
	engine    *storage.Engine
	detector  *identity.Detector
	generator *embedding.Generator
	logger    *logging.Logger

	mu       sync.Mutex
	sessions map[string]string // project id -> open session id
}

// New wires the service from its collaborators
func New(engine *storage.Engine, detector *identity.Detector, generator *embedding.Generator, logger *logging.Logger) *DecisionService {
	return &DecisionService{
		engine:    engine,
		detector:  detector,
		generator: generator,
		logger:    logger,
		sessions:  make(map[string]string),
	}
}

// Close ends every open session and releases the embedding cache
func (s *DecisionService) Close() {
	s.mu.Lock()
	sessions := make([]string, 0, len(s.sessions))
	for _, id := range s.sessions {
		sessions = append(sessions, id)
	}
	s.sessions = make(map[string]string)
	s.mu.Unlock()

	for _, id := range sessions {
		if err := s.engine.EndSession(id); err != nil {
			s.logger.Warn("failed to end session", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}
	s.generator.Close()
}

// resolveProject maps a working directory to its stored project, creating
// the row on first contact
func (s *DecisionService) resolveProject(workingDir string) (*storage.Project, error) {
	desc, err := s.detector.Detect(workingDir)
	if err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, errors.New(errors.NotFound,
			"no project found at or above "+workingDir+"; run from inside a project directory")
	}
	return s.engine.GetOrCreateProject(desc)
}

// sessionFor returns the project's open session, starting one lazily
func (s *DecisionService) sessionFor(projectID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.sessions[projectID]; ok {
		return id, nil
	}
	session, err := s.engine.StartSession(projectID, "")
	if err != nil {
		return "", err
	}
	s.sessions[projectID] = session.ID
	return session.ID, nil
}

// RememberRequest records one decision against the caller's project
type RememberRequest struct {
	WorkingDir             string
	Decision               string
	Reasoning              string
	Type                   string
	AlternativesConsidered []string
	FilesAffected          []string
	Confidence             float64
	Public                 bool
}

// RememberResult reports the persisted decision and its project
type RememberResult struct {
	Decision *storage.Decision
	Project  *storage.Project
}

// Remember validates, embeds and persists a decision. The embedding never
// blocks the save: provider failures degrade to the offline fallback inside
// the generator.
func (s *DecisionService) Remember(ctx context.Context, req RememberRequest) (*RememberResult, error) {
	if req.WorkingDir == "" {
		return nil, errors.NewValidationError("working_dir", "must not be empty")
	}

	project, err := s.resolveProject(req.WorkingDir)
	if err != nil {
		return nil, err
	}
	sessionID, err := s.sessionFor(project.ID)
	if err != nil {
		return nil, err
	}

	decision := &storage.Decision{
		ProjectID:              project.ID,
		SessionID:              sessionID,
		Decision:               req.Decision,
		Reasoning:              req.Reasoning,
		Type:                   storage.DecisionType(req.Type),
		AlternativesConsidered: req.AlternativesConsidered,
		FilesAffected:          req.FilesAffected,
		Confidence:             req.Confidence,
		Public:                 req.Public,
	}
	if err := decision.Validate(); err != nil {
		return nil, err
	}

	decision.Embedding = s.generator.EmbedDecision(ctx, req.Decision, req.Reasoning, req.Type)
	if err := s.engine.SaveDecision(ctx, decision); err != nil {
		return nil, err
	}

	s.logger.Info("decision recorded", map[string]interface{}{
		"decision_id": decision.ID,
		"project":     project.Name,
		"type":        req.Type,
	})
	return &RememberResult{Decision: decision, Project: project}, nil
}

// defaultRecallLimit is how many decisions recall returns when the caller
// omits a limit
const defaultRecallLimit = 10

// discoverSimilarLimit bounds the public similarity hits reported by
// pattern discovery
const discoverSimilarLimit = 5

// RecallRequest asks for decisions relevant to a question
type RecallRequest struct {
	WorkingDir string
	Query      string  // empty means plain recent listing
	Limit      int
	Global     bool    // search public decisions across all projects
	MinScore   float64 // similarity floor, 0 disables
}

// RecallResult carries ranked context for the caller's question
type RecallResult struct {
	Project *storage.Project
	Matches []*storage.DecisionMatch
}

// Recall retrieves relevant decisions. With a query it runs a similarity
// search; without one it lists the newest decisions, each reported with
// similarity 1 so rendering stays uniform.
func (s *DecisionService) Recall(ctx context.Context, req RecallRequest) (*RecallResult, error) {
	if req.WorkingDir == "" {
		return nil, errors.NewValidationError("working_dir", "must not be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	project, err := s.resolveProject(req.WorkingDir)
	if err != nil {
		return nil, err
	}

	if req.Query == "" {
		recent, err := s.engine.ListRecent(project.ID, limit)
		if err != nil {
			return nil, err
		}
		matches := make([]*storage.DecisionMatch, len(recent))
		for i, d := range recent {
			matches[i] = &storage.DecisionMatch{Decision: d, Similarity: 1}
		}
		return &RecallResult{Project: project, Matches: matches}, nil
	}

	queryVec := s.generator.EmbedQuery(ctx, req.Query)
	scope := storage.SearchScope{Limit: limit, MinScore: req.MinScore}
	if req.Global {
		scope.PublicOnly = true
	} else {
		scope.ProjectID = project.ID
	}
	matches, err := s.engine.Search(ctx, queryVec, scope)
	if err != nil {
		return nil, err
	}
	return &RecallResult{Project: project, Matches: matches}, nil
}

// TimelineRequest asks for a chronological slice of project history
type TimelineRequest struct {
	WorkingDir string
	Days       int    // 0 means unbounded
	Category   string // empty means all types
	Limit      int
}

// TimelineResult is the chronological listing, oldest first
type TimelineResult struct {
	Project   *storage.Project
	Decisions []*storage.Decision
	Since     *time.Time
}

// Timeline lists the project's decisions in order of occurrence
func (s *DecisionService) Timeline(ctx context.Context, req TimelineRequest) (*TimelineResult, error) {
	if req.WorkingDir == "" {
		return nil, errors.NewValidationError("working_dir", "must not be empty")
	}
	if req.Days < 0 {
		return nil, errors.NewValidationError("days", "must not be negative")
	}

	project, err := s.resolveProject(req.WorkingDir)
	if err != nil {
		return nil, err
	}

	filter := storage.TimelineFilter{
		Category: storage.DecisionType(req.Category),
		Limit:    req.Limit,
	}
	var since *time.Time
	if req.Days > 0 {
		t := time.Now().UTC().AddDate(0, 0, -req.Days)
		since = &t
		filter.Since = since
	}

	decisions, err := s.engine.Timeline(project.ID, filter)
	if err != nil {
		return nil, err
	}
	return &TimelineResult{Project: project, Decisions: decisions, Since: since}, nil
}

// DiscoverRequest asks what patterns the project's history shows
type DiscoverRequest struct {
	WorkingDir  string
	Topic       string   // optional focus question
	TechStack   []string // override the detected stack for recommendations
	ProjectType string   // override the detected type for recommendations
}

// DiscoverResult combines mined history, cross-project similarity hits and
// the stored pattern catalog
type DiscoverResult struct {
	Project     *storage.Project
	Summary     patterns.Summary
	Mined       []patterns.Pattern
	Similar     []*storage.DecisionMatch // public decisions near the topic, any project
	Recommended []*storage.DecisionPattern
}

// DiscoverPatterns mines the project's decisions for recurring themes,
// searches publicly shared decisions across all projects for the topic, and
// pairs both with stored catalog recommendations for the project's stack.
// The public search is what lets a brand-new project learn from decisions
// its neighbors chose to share.
func (s *DecisionService) DiscoverPatterns(ctx context.Context, req DiscoverRequest) (*DiscoverResult, error) {
	if req.WorkingDir == "" {
		return nil, errors.NewValidationError("working_dir", "must not be empty")
	}

	project, err := s.resolveProject(req.WorkingDir)
	if err != nil {
		return nil, err
	}

	decisions, err := s.engine.Timeline(project.ID, storage.TimelineFilter{})
	if err != nil {
		return nil, err
	}

	mined := patterns.Extract(decisions)

	var similar []*storage.DecisionMatch
	if req.Topic != "" {
		mined = patterns.Rank(mined, req.Topic)

		topicVec := s.generator.EmbedQuery(ctx, req.Topic)
		similar, err = s.engine.Search(ctx, topicVec, storage.SearchScope{
			PublicOnly: true,
			Limit:      discoverSimilarLimit,
		})
		if err != nil {
			return nil, err
		}
	}

	techStack := project.TechStack
	if len(req.TechStack) > 0 {
		techStack = req.TechStack
	}
	projectType := project.ProjectType
	if req.ProjectType != "" {
		projectType = req.ProjectType
	}
	recommended, err := s.engine.PatternsFor(techStack, projectType, 5)
	if err != nil {
		return nil, err
	}

	return &DiscoverResult{
		Project:     project,
		Summary:     patterns.Summarize(decisions),
		Mined:       mined,
		Similar:     similar,
		Recommended: recommended,
	}, nil
}

// Status reports what the service knows about the caller's project
type Status struct {
	Project       *storage.Project
	DecisionCount int
	IndexSize     int
}

// ProjectStatus resolves the working directory and counts its history
func (s *DecisionService) ProjectStatus(ctx context.Context, workingDir string) (*Status, error) {
	project, err := s.resolveProject(workingDir)
	if err != nil {
		return nil, err
	}
	count, err := s.engine.CountDecisions(project.ID)
	if err != nil {
		return nil, err
	}
	return &Status{Project: project, DecisionCount: count, IndexSize: s.engine.IndexSize()}, nil
}
