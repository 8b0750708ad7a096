package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/career-agent-api/internal/models"
)

// ReferenceRepository stores scraped reference roadmaps keyed by career name.
type ReferenceRepository interface {
	GetByName(ctx context.Context, name string) (models.RoadmapReference, error)
	Save(ctx context.Context, reference *models.RoadmapReference) error
}

type referenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository constructs a repository.
func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) GetByName(ctx context.Context, name string) (models.RoadmapReference, error) {
	var reference models.RoadmapReference
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&reference).Error
	return reference, err
}

func (r *referenceRepository) Save(ctx context.Context, reference *models.RoadmapReference) error {
	return r.db.WithContext(ctx).Save(reference).Error
}
