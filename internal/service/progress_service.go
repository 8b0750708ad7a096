package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/models"
	"github.com/noah-isme/career-agent-api/internal/repository"
)

// ErrUnknownStep indicates the step label is not part of the roadmap.
var ErrUnknownStep = errors.New("step is not part of the roadmap")

// ErrInvalidStatus indicates a status outside the known step states.
var ErrInvalidStatus = errors.New("invalid step status")

// ProgressService tracks per-step completion state on a persisted version.
type ProgressService interface {
	SetStepStatus(ctx context.Context, ownerID, id uint, payload dto.UpdateProgressRequest) (map[string]string, error)
	Summarize(ctx context.Context, ownerID, id uint) (dto.ProgressSummaryResponse, error)
}

type progressService struct {
	repo   repository.RoadmapRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewProgressService constructs the progress tracker.
func NewProgressService(repo repository.RoadmapRepository, logger zerolog.Logger) ProgressService {
	return &progressService{
		repo:   repo,
		logger: logger.With().Str("component", "progress_service").Logger(),
		now:    time.Now,
	}
}

// SetStepStatus updates one step's status. The step must be a current key of
// the version's step set and the status one of the known states.
func (s *progressService) SetStepStatus(ctx context.Context, ownerID, id uint, payload dto.UpdateProgressRequest) (map[string]string, error) {
	version, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoadmapNotFound
		}
		return nil, err
	}

	if _, ok := version.Steps[payload.Step]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, payload.Step)
	}
	status := models.StepStatus(payload.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, payload.Status)
	}

	version.Progress[payload.Step] = string(status)
	if err := s.repo.Update(ctx, &version); err != nil {
		return nil, err
	}

	s.logger.Info().Uint("roadmap_id", id).Str("step", payload.Step).Str("status", payload.Status).Msg("step progress updated")

	return dto.StringMap(version.Progress), nil
}

// Summarize aggregates per-status counts over the version's progress map.
// The not_started count is derived from the total rather than counted
// directly, so drift in stored values cannot make the numbers disagree.
func (s *progressService) Summarize(ctx context.Context, ownerID, id uint) (dto.ProgressSummaryResponse, error) {
	version, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressSummaryResponse{}, ErrRoadmapNotFound
		}
		return dto.ProgressSummaryResponse{}, err
	}

	progress := dto.StringMap(version.Progress)
	summary := dto.ProgressSummaryResponse{
		Total:    len(progress),
		Progress: progress,
	}
	for _, status := range progress {
		switch models.StepStatus(status) {
		case models.StepStatusCompleted:
			summary.Completed++
		case models.StepStatusInProgress:
			summary.InProgress++
		case models.StepStatusSkipped:
			summary.Skipped++
		}
	}
	summary.NotStarted = summary.Total - summary.Completed - summary.InProgress - summary.Skipped

	if summary.Total > 0 {
		percentage := float64(summary.Completed) / float64(summary.Total) * 100
		summary.CompletionPercentage = math.Round(percentage*100) / 100
	}

	return summary, nil
}
