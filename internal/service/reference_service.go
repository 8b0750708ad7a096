package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/career-agent-api/internal/models"
	"github.com/noah-isme/career-agent-api/internal/repository"
	"github.com/noah-isme/career-agent-api/pkg/scraper"
)

// ReferenceContent is what reference resolution hands to roadmap generation.
// Reference is nil when the content came straight from the scraper (or when
// nothing could be obtained at all).
type ReferenceContent struct {
	Reference *models.RoadmapReference
	Steps     map[string]interface{}
	SourceURL string
}

// ReferenceService resolves seed content for AI roadmap generation. It never
// fails: a stale blob, a freshly scraped page, or nothing at all are all
// acceptable outcomes.
type ReferenceService interface {
	Resolve(ctx context.Context, careerName string) ReferenceContent
}

type referenceService struct {
	repo    repository.ReferenceRepository
	scraper scraper.Scraper
	cache   *redis.Client
	ttl     time.Duration
	maxAge  time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewReferenceService constructs the reference resolver. maxAge bounds how
// old a stored reference may be before a refresh is attempted; ttl bounds the
// Redis cache of scraped content.
func NewReferenceService(repo repository.ReferenceRepository, scrape scraper.Scraper, cache *redis.Client, ttl, maxAge time.Duration, logger zerolog.Logger) ReferenceService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &referenceService{
		repo:    repo,
		scraper: scrape,
		cache:   cache,
		ttl:     ttl,
		maxAge:  maxAge,
		logger:  logger.With().Str("component", "reference_service").Logger(),
		now:     time.Now,
	}
}

func (s *referenceService) Resolve(ctx context.Context, careerName string) ReferenceContent {
	reference, err := s.repo.GetByName(ctx, careerName)
	switch {
	case err == nil:
		if reference.Stale(s.maxAge, s.now()) {
			if refreshed, ok := s.refresh(ctx, &reference); ok {
				reference = refreshed
			}
			// refresh failure falls back to the stale content
		}
		return ReferenceContent{
			Reference: &reference,
			Steps:     map[string]interface{}(reference.Content),
			SourceURL: reference.SourceURL,
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.scrapeFresh(ctx, careerName)
	default:
		s.logger.Warn().Err(err).Str("career", careerName).Msg("reference lookup failed, generating without seed content")
		return ReferenceContent{}
	}
}

func (s *referenceService) refresh(ctx context.Context, reference *models.RoadmapReference) (models.RoadmapReference, bool) {
	result, err := s.scraper.Fetch(ctx, reference.Name)
	if err != nil {
		s.logger.Warn().Err(err).Str("name", reference.Name).Msg("reference refresh failed, keeping stale content")
		return models.RoadmapReference{}, false
	}

	now := s.now()
	reference.Content = datatypes.JSONMap(result.Steps)
	reference.SourceURL = result.SourceURL
	reference.RefreshedAt = &now

	if err := s.repo.Save(ctx, reference); err != nil {
		s.logger.Warn().Err(err).Str("name", reference.Name).Msg("failed to persist refreshed reference")
	}
	return *reference, true
}

func (s *referenceService) scrapeFresh(ctx context.Context, careerName string) ReferenceContent {
	if cached, ok := s.fetchCache(ctx, careerName); ok {
		return cached
	}

	result, err := s.scraper.Fetch(ctx, careerName)
	if err != nil {
		s.logger.Info().Err(err).Str("career", careerName).Msg("no reference content available")
		return ReferenceContent{}
	}

	content := ReferenceContent{Steps: result.Steps, SourceURL: result.SourceURL}
	s.writeCache(ctx, careerName, content)
	return content
}

type cachedReference struct {
	Steps     map[string]interface{} `json:"steps"`
	SourceURL string                 `json:"source_url"`
}

func (s *referenceService) fetchCache(ctx context.Context, careerName string) (ReferenceContent, bool) {
	if s.cache == nil {
		return ReferenceContent{}, false
	}
	payload, err := s.cache.Get(ctx, s.cacheKey(careerName)).Result()
	if err != nil {
		return ReferenceContent{}, false
	}

	var cached cachedReference
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode reference cache")
		return ReferenceContent{}, false
	}
	return ReferenceContent{Steps: cached.Steps, SourceURL: cached.SourceURL}, true
}

func (s *referenceService) writeCache(ctx context.Context, careerName string, content ReferenceContent) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(cachedReference{Steps: content.Steps, SourceURL: content.SourceURL})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode reference cache")
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(careerName), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store reference cache")
	}
}

func (s *referenceService) cacheKey(careerName string) string {
	return "career:reference:" + scraper.Slug(careerName)
}
