package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/models"
	"github.com/noah-isme/career-agent-api/internal/repository"
	"github.com/noah-isme/career-agent-api/pkg/ai"
)

// InsightService serves the thin AI passthroughs over a stored roadmap:
// skills gap, weekly plan, step explanations, and mock interviews. Each
// builds a fixed prompt from the version's stored fields and returns the
// gateway's JSON unmodified.
type InsightService interface {
	SkillsGap(ctx context.Context, ownerID, id uint) (dto.InsightResponse, error)
	WeeklyPlan(ctx context.Context, ownerID, id uint) (dto.InsightResponse, error)
	ExplainStep(ctx context.Context, ownerID, id uint, payload dto.ExplainStepRequest) (dto.InsightResponse, error)
	MockInterview(ctx context.Context, ownerID, id uint) (dto.InsightResponse, error)
}

type insightService struct {
	repo    repository.RoadmapRepository
	gateway ai.Generator
	logger  zerolog.Logger
}

// NewInsightService constructs the insight passthroughs.
func NewInsightService(repo repository.RoadmapRepository, gateway ai.Generator, logger zerolog.Logger) InsightService {
	return &insightService{
		repo:    repo,
		gateway: gateway,
		logger:  logger.With().Str("component", "insight_service").Logger(),
	}
}

func (s *insightService) SkillsGap(ctx context.Context, ownerID, id uint) (dto.InsightResponse, error) {
	return s.passthrough(ctx, ownerID, id, func(version models.RoadmapVersion) string {
		return fmt.Sprintf(`Analyze the skills gap for someone pursuing "%s".

Roadmap steps:
%s

User preferences:
%s

Return ONLY JSON of the form:
{"missing_skills": ["..."], "strong_skills": ["..."], "recommendations": ["..."]}`,
			version.CareerName, encodeSteps(version), encodePreferences(version))
	})
}

func (s *insightService) WeeklyPlan(ctx context.Context, ownerID, id uint) (dto.InsightResponse, error) {
	return s.passthrough(ctx, ownerID, id, func(version models.RoadmapVersion) string {
		return fmt.Sprintf(`Create a week-by-week study plan for the "%s" roadmap below.

Roadmap steps:
%s

User preferences:
%s

Return ONLY JSON of the form:
{"weeks": {"Week 1": "...", "Week 2": "..."}}`,
			version.CareerName, encodeSteps(version), encodePreferences(version))
	})
}

func (s *insightService) ExplainStep(ctx context.Context, ownerID, id uint, payload dto.ExplainStepRequest) (dto.InsightResponse, error) {
	version, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	text, ok := version.Steps[payload.Step]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, payload.Step)
	}

	prompt := fmt.Sprintf(`Explain this step of a "%s" career roadmap in depth for a learner.

Step label: %s
Step content: %v

Return ONLY JSON of the form:
{"explanation": "...", "resources": ["..."], "estimated_hours": 0}`,
		version.CareerName, payload.Step, text)

	return dto.InsightResponse(s.gateway.Complete(ctx, prompt)), nil
}

func (s *insightService) MockInterview(ctx context.Context, ownerID, id uint) (dto.InsightResponse, error) {
	return s.passthrough(ctx, ownerID, id, func(version models.RoadmapVersion) string {
		return fmt.Sprintf(`Generate a mock interview for a "%s" candidate based on their roadmap.

Roadmap steps:
%s

Return ONLY JSON of the form:
{"questions": [{"question": "...", "ideal_answer": "..."}]}`,
			version.CareerName, encodeSteps(version))
	})
}

func (s *insightService) passthrough(ctx context.Context, ownerID, id uint, build func(models.RoadmapVersion) string) (dto.InsightResponse, error) {
	version, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return dto.InsightResponse(s.gateway.Complete(ctx, build(version))), nil
}

func (s *insightService) load(ctx context.Context, ownerID, id uint) (models.RoadmapVersion, error) {
	version, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoadmapVersion{}, ErrRoadmapNotFound
		}
		return models.RoadmapVersion{}, err
	}
	return version, nil
}

func encodeSteps(version models.RoadmapVersion) string {
	encoded, _ := json.Marshal(version.Steps)
	return string(encoded)
}

func encodePreferences(version models.RoadmapVersion) string {
	encoded, _ := json.Marshal(version.Preferences)
	return string(encoded)
}
