package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/models"
	"github.com/noah-isme/career-agent-api/internal/observability"
	"github.com/noah-isme/career-agent-api/internal/repository"
	"github.com/noah-isme/career-agent-api/pkg/ai"
)

// ErrRoadmapNotFound covers missing, soft-deleted, and other-owner records
// alike so lookups never leak existence.
var ErrRoadmapNotFound = errors.New("roadmap not found")

// ErrEmptyCandidate indicates a chat-apply commit without candidate steps.
var ErrEmptyCandidate = errors.New("candidate roadmap must not be empty")

// ErrEmptyMessage indicates a chat message with no usable content.
var ErrEmptyMessage = errors.New("message must not be empty")

// Save modes accepted by ApplyChatEdit.
const (
	SaveModeNewVersion = "new_version"
	SaveModeOverwrite  = "overwrite"
	SaveModeDiscard    = "discard"
)

// Commit kinds reported on lifecycle events and metrics.
const (
	commitKindManualSave = "manual_save"
	commitKindRegenerate = "regenerate"
	commitKindChatApply  = "chat_apply"
)

// RoadmapService orchestrates the roadmap lifecycle: preview generation,
// explicit saves, chat-driven candidate edits, commits, and soft deletion.
type RoadmapService interface {
	GetOrPreview(ctx context.Context, ownerID uint, careerName string, preferences map[string]interface{}) (dto.RoadmapPreviewResponse, error)
	SaveVersion(ctx context.Context, ownerID uint, payload dto.SaveVersionRequest) (dto.SaveVersionResult, error)
	Regenerate(ctx context.Context, ownerID, id uint, payload dto.RegenerateRequest) (dto.RoadmapVersionResponse, error)
	ProposeChatEdit(ctx context.Context, ownerID, id uint, payload dto.ChatRequest) (dto.ChatProposalResponse, error)
	ApplyChatEdit(ctx context.Context, ownerID, id uint, payload dto.ApplyChatRequest) (dto.ApplyChatResult, error)
	Get(ctx context.Context, ownerID, id uint) (dto.RoadmapDetailResponse, error)
	List(ctx context.Context, ownerID uint, career, tag string) ([]dto.RoadmapListItem, error)
	Delete(ctx context.Context, ownerID, id uint) error
}

type roadmapService struct {
	repo       repository.RoadmapRepository
	references ReferenceService
	gateway    ai.Generator
	events     EventPublisher
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewRoadmapService constructs the lifecycle manager.
func NewRoadmapService(repo repository.RoadmapRepository, references ReferenceService, gateway ai.Generator, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) RoadmapService {
	return &roadmapService{
		repo:       repo,
		references: references,
		gateway:    gateway,
		events:     events,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "roadmap_service").Logger(),
		now:        time.Now,
	}
}

// GetOrPreview returns the latest saved version verbatim when one exists;
// otherwise it generates an unsaved preview from reference content and AI.
// The preview is never persisted: saving is an explicit client decision.
func (s *roadmapService) GetOrPreview(ctx context.Context, ownerID uint, careerName string, preferences map[string]interface{}) (dto.RoadmapPreviewResponse, error) {
	latest, err := s.repo.LatestByCareer(ctx, ownerID, careerName)
	if err == nil {
		response := dto.RoadmapPreviewResponse{
			ID:          &latest.ID,
			CareerName:  latest.CareerName,
			Steps:       dto.StringMap(latest.Steps),
			Progress:    dto.StringMap(latest.Progress),
			Preferences: map[string]interface{}(latest.Preferences),
			Version:     latest.Version,
			Saved:       true,
			Source:      "user_db",
		}
		if latest.Reference != nil {
			response.SourceURL = latest.Reference.SourceURL
		}
		return response, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RoadmapPreviewResponse{}, err
	}

	seed := s.references.Resolve(ctx, careerName)
	result := s.gateway.GenerateRoadmap(ctx, ai.GenerateInput{
		CareerName:     careerName,
		ReferenceSteps: seed.Steps,
		Preferences:    preferences,
	})
	if result.Degraded {
		s.logger.Warn().Str("career", careerName).Msg("preview generated via fallback")
	}

	progress := make(map[string]string, len(result.Steps))
	for label := range result.Steps {
		progress[label] = string(models.StepStatusNotStarted)
	}

	return dto.RoadmapPreviewResponse{
		CareerName:  careerName,
		Steps:       result.Steps,
		Progress:    progress,
		Preferences: preferences,
		SourceURL:   seed.SourceURL,
		Saved:       false,
		Source:      "ai_generated",
	}, nil
}

// SaveVersion commits a client-supplied step set as the next version of the
// career's lineage (version 1 when the lineage does not exist yet).
func (s *roadmapService) SaveVersion(ctx context.Context, ownerID uint, payload dto.SaveVersionRequest) (dto.SaveVersionResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SaveVersionResult{}, err
	}

	version := models.RoadmapVersion{
		OwnerID:     ownerID,
		CareerName:  strings.TrimSpace(payload.CareerName),
		Steps:       dto.ToJSONMap(payload.Roadmap),
		Preferences: datatypes.JSONMap(payload.Preferences),
		Tags:        payload.Tags,
	}
	version.Progress = models.FreshProgress(version.Steps)

	if err := s.repo.CreateVersion(ctx, &version); err != nil {
		return dto.SaveVersionResult{}, err
	}

	s.logger.Info().Uint("roadmap_id", version.ID).Int("version", version.Version).Str("career", version.CareerName).Msg("roadmap version saved")
	observability.RoadmapCommits().WithLabelValues(commitKindManualSave).Inc()
	s.events.VersionCreated(ctx, version, commitKindManualSave)

	return dto.SaveVersionResult{ID: version.ID, Version: version.Version}, nil
}

// Regenerate re-runs AI generation over an existing version's reference
// content with new preferences and commits the result as a child version.
// The old record is never mutated.
func (s *roadmapService) Regenerate(ctx context.Context, ownerID, id uint, payload dto.RegenerateRequest) (dto.RoadmapVersionResponse, error) {
	old, err := s.loadOwned(ctx, ownerID, id)
	if err != nil {
		return dto.RoadmapVersionResponse{}, err
	}

	var referenceSteps map[string]interface{}
	if old.Reference != nil {
		referenceSteps = map[string]interface{}(old.Reference.Content)
	}

	result := s.gateway.GenerateRoadmap(ctx, ai.GenerateInput{
		CareerName:     old.CareerName,
		ReferenceSteps: referenceSteps,
		Preferences:    payload.Preferences,
	})

	next := s.childOf(old, dto.ToJSONMap(result.Steps))
	next.Preferences = datatypes.JSONMap(payload.Preferences)

	if err := s.repo.CreateVersion(ctx, &next); err != nil {
		return dto.RoadmapVersionResponse{}, err
	}

	s.logger.Info().Uint("roadmap_id", next.ID).Int("version", next.Version).Msg("roadmap regenerated")
	observability.RoadmapCommits().WithLabelValues(commitKindRegenerate).Inc()
	s.events.VersionCreated(ctx, next, commitKindRegenerate)

	return dto.NewRoadmapVersionResponse(next), nil
}

// ProposeChatEdit runs one mentor-chat turn. A proposed candidate roadmap is
// returned to the client unpersisted; commitment is a separate explicit call.
func (s *roadmapService) ProposeChatEdit(ctx context.Context, ownerID, id uint, payload dto.ChatRequest) (dto.ChatProposalResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatProposalResponse{}, err
	}

	old, err := s.loadOwned(ctx, ownerID, id)
	if err != nil {
		return dto.ChatProposalResponse{}, err
	}

	message := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if message == "" {
		return dto.ChatProposalResponse{}, ErrEmptyMessage
	}

	result := s.gateway.Chat(ctx, ai.ChatInput{
		Message:     message,
		Roadmap:     dto.StringMap(old.Steps),
		Preferences: map[string]interface{}(old.Preferences),
	})

	if len(result.UpdatedRoadmap) > 0 {
		return dto.ChatProposalResponse{
			Message:          result.Message,
			CandidateRoadmap: result.UpdatedRoadmap,
			PendingSave:      true,
		}, nil
	}

	return dto.ChatProposalResponse{Message: result.Message, PendingSave: false}, nil
}

// ApplyChatEdit commits or discards a chat-proposed candidate. new_version
// persists a child record; overwrite replaces the target's steps in place
// (version number unchanged, progress reset); discard touches nothing.
func (s *roadmapService) ApplyChatEdit(ctx context.Context, ownerID, id uint, payload dto.ApplyChatRequest) (dto.ApplyChatResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplyChatResult{}, err
	}

	if payload.SaveMode == SaveModeDiscard {
		return dto.ApplyChatResult{Mode: SaveModeDiscard}, nil
	}

	if len(payload.CandidateRoadmap) == 0 {
		return dto.ApplyChatResult{}, ErrEmptyCandidate
	}

	old, err := s.loadOwned(ctx, ownerID, id)
	if err != nil {
		return dto.ApplyChatResult{}, err
	}

	candidate := dto.ToJSONMap(payload.CandidateRoadmap)

	switch payload.SaveMode {
	case SaveModeNewVersion:
		next := s.childOf(old, candidate)
		next.Preferences = old.Preferences
		if err := s.repo.CreateVersion(ctx, &next); err != nil {
			return dto.ApplyChatResult{}, err
		}
		s.logger.Info().Uint("roadmap_id", next.ID).Int("version", next.Version).Msg("chat edit committed as new version")
		observability.RoadmapCommits().WithLabelValues(commitKindChatApply).Inc()
		s.events.VersionCreated(ctx, next, commitKindChatApply)
		return dto.ApplyChatResult{ID: next.ID, Version: next.Version, Mode: SaveModeNewVersion}, nil

	case SaveModeOverwrite:
		// Prior per-step progress is intentionally discarded on overwrite,
		// even for steps whose text did not change.
		old.Steps = candidate
		old.Progress = models.FreshProgress(candidate)
		if err := s.repo.Update(ctx, &old); err != nil {
			return dto.ApplyChatResult{}, err
		}
		s.logger.Info().Uint("roadmap_id", old.ID).Int("version", old.Version).Msg("chat edit overwrote existing version")
		s.events.Overwritten(ctx, old)
		return dto.ApplyChatResult{ID: old.ID, Version: old.Version, Mode: SaveModeOverwrite}, nil
	}

	// unreachable: validator restricts save_mode to the three known values
	return dto.ApplyChatResult{}, ErrEmptyCandidate
}

// Get returns the full detail of one owned, non-deleted version.
func (s *roadmapService) Get(ctx context.Context, ownerID, id uint) (dto.RoadmapDetailResponse, error) {
	version, err := s.loadOwned(ctx, ownerID, id)
	if err != nil {
		return dto.RoadmapDetailResponse{}, err
	}

	detail := dto.RoadmapDetailResponse{RoadmapVersionResponse: dto.NewRoadmapVersionResponse(version)}
	if version.Reference != nil {
		detail.Reference = map[string]interface{}(version.Reference.Content)
		detail.SourceURL = version.Reference.SourceURL
	}
	return detail, nil
}

// List returns the caller's non-deleted versions, newest created first.
func (s *roadmapService) List(ctx context.Context, ownerID uint, career, tag string) ([]dto.RoadmapListItem, error) {
	versions, err := s.repo.List(ctx, repository.RoadmapListFilter{
		OwnerID: ownerID,
		Career:  career,
		Tag:     tag,
	})
	if err != nil {
		return nil, err
	}

	items := make([]dto.RoadmapListItem, 0, len(versions))
	for _, version := range versions {
		items = append(items, dto.NewRoadmapListItem(version))
	}
	return items, nil
}

// Delete soft-deletes a version. Children stay addressable; only this record
// leaves listings and latest-version lookups.
func (s *roadmapService) Delete(ctx context.Context, ownerID, id uint) error {
	if err := s.repo.SoftDelete(ctx, ownerID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoadmapNotFound
		}
		return err
	}

	s.logger.Info().Uint("roadmap_id", id).Msg("roadmap soft-deleted")
	s.events.Deleted(ctx, ownerID, id)
	return nil
}

func (s *roadmapService) loadOwned(ctx context.Context, ownerID, id uint) (models.RoadmapVersion, error) {
	version, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoadmapVersion{}, ErrRoadmapNotFound
		}
		return models.RoadmapVersion{}, err
	}
	return version, nil
}

// childOf prepares the successor record for a committed edit: version old+1,
// parent set, lineage and reference link inherited, progress reset.
func (s *roadmapService) childOf(old models.RoadmapVersion, steps datatypes.JSONMap) models.RoadmapVersion {
	parentID := old.ID
	return models.RoadmapVersion{
		OwnerID:     old.OwnerID,
		LineageID:   old.LineageID,
		CareerName:  old.CareerName,
		Steps:       steps,
		Progress:    models.FreshProgress(steps),
		Version:     old.Version + 1,
		ParentID:    &parentID,
		ReferenceID: old.ReferenceID,
		Tags:        append([]string(nil), old.Tags...),
	}
}
