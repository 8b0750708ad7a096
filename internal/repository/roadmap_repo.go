package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/career-agent-api/internal/models"
)

// RoadmapListFilter describes filters applied to roadmap list queries.
type RoadmapListFilter struct {
	OwnerID uint
	Career  string
	Tag     string
}

// RoadmapRepository exposes persistence for roadmap version lineages.
type RoadmapRepository interface {
	CreateVersion(ctx context.Context, version *models.RoadmapVersion) error
	GetByID(ctx context.Context, ownerID, id uint) (models.RoadmapVersion, error)
	LatestByCareer(ctx context.Context, ownerID uint, careerName string) (models.RoadmapVersion, error)
	List(ctx context.Context, filter RoadmapListFilter) ([]models.RoadmapVersion, error)
	Update(ctx context.Context, version *models.RoadmapVersion) error
	SoftDelete(ctx context.Context, ownerID, id uint) error
}

type roadmapRepository struct {
	db *gorm.DB
}

// NewRoadmapRepository constructs a repository.
func NewRoadmapRepository(db *gorm.DB) RoadmapRepository {
	return &roadmapRepository{db: db}
}

// CreateVersion persists a new version. When the caller has not already fixed
// the version number (regenerate and chat-apply do, pointing at an explicit
// parent), it is assigned max+1 over the whole lineage inside a transaction.
// Soft-deleted rows still count towards the max so numbers are never reused.
// The unique index on (owner, career, version) turns a lost race into a write
// error rather than a silent duplicate.
func (r *roadmapRepository) CreateVersion(ctx context.Context, version *models.RoadmapVersion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior models.RoadmapVersion
		err := tx.
			Where("owner_id = ? AND career_name = ?", version.OwnerID, version.CareerName).
			Order("version DESC").
			First(&prior).Error
		switch {
		case err == nil:
			if version.LineageID == "" {
				version.LineageID = prior.LineageID
			}
			if version.Version == 0 {
				version.Version = prior.Version + 1
				version.ParentID = &prior.ID
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if version.LineageID == "" {
				version.LineageID = uuid.NewString()
			}
			if version.Version == 0 {
				version.Version = 1
				version.ParentID = nil
			}
		default:
			return err
		}

		return tx.Create(version).Error
	})
}

func (r *roadmapRepository) GetByID(ctx context.Context, ownerID, id uint) (models.RoadmapVersion, error) {
	var version models.RoadmapVersion
	err := r.db.WithContext(ctx).
		Preload("Reference").
		Where("id = ? AND owner_id = ? AND is_deleted = ?", id, ownerID, false).
		First(&version).Error
	return version, err
}

func (r *roadmapRepository) LatestByCareer(ctx context.Context, ownerID uint, careerName string) (models.RoadmapVersion, error) {
	var version models.RoadmapVersion
	err := r.db.WithContext(ctx).
		Preload("Reference").
		Where("owner_id = ? AND career_name = ? AND is_deleted = ?", ownerID, careerName, false).
		Order("version DESC").
		First(&version).Error
	return version, err
}

func (r *roadmapRepository) List(ctx context.Context, filter RoadmapListFilter) ([]models.RoadmapVersion, error) {
	query := r.db.WithContext(ctx).Model(&models.RoadmapVersion{}).
		Where("owner_id = ? AND is_deleted = ?", filter.OwnerID, false)

	if search := strings.ToLower(strings.TrimSpace(filter.Career)); search != "" {
		query = query.Where("LOWER(career_name) LIKE ?", "%"+search+"%")
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = query.Where("tags LIKE ?", "%|"+tag+"|%")
	}

	var versions []models.RoadmapVersion
	if err := query.Order("created_at DESC").Order("id DESC").Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *roadmapRepository) Update(ctx context.Context, version *models.RoadmapVersion) error {
	return r.db.WithContext(ctx).Save(version).Error
}

func (r *roadmapRepository) SoftDelete(ctx context.Context, ownerID, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.RoadmapVersion{}).
		Where("id = ? AND owner_id = ? AND is_deleted = ?", id, ownerID, false).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
