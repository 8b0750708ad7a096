package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StepStatus enumerates the completion states a roadmap step can be in.
type StepStatus string

const (
	StepStatusNotStarted StepStatus = "not_started"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusSkipped    StepStatus = "skipped"
)

// Valid reports whether the status is one of the known step states.
func (s StepStatus) Valid() bool {
	switch s {
	case StepStatusNotStarted, StepStatusInProgress, StepStatusCompleted, StepStatusSkipped:
		return true
	}
	return false
}

// RoadmapVersion is one persisted roadmap instance. Versions for the same
// (owner, career name) form a lineage: version numbers increase by one per
// commit and each record points back at its predecessor.
type RoadmapVersion struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	OwnerID     uint              `gorm:"not null;index:idx_roadmap_lineage,priority:1;uniqueIndex:idx_roadmap_lineage_version,priority:1" json:"owner_id"`
	LineageID   string            `gorm:"size:36;index" json:"lineage_id"`
	CareerName  string            `gorm:"size:100;not null;index:idx_roadmap_lineage,priority:2;uniqueIndex:idx_roadmap_lineage_version,priority:2" json:"career_name"`
	Steps       datatypes.JSONMap `gorm:"type:json;not null" json:"steps"`
	Preferences datatypes.JSONMap `gorm:"type:json" json:"preferences"`
	Progress    datatypes.JSONMap `gorm:"type:json" json:"progress"`
	Version     int               `gorm:"not null;default:1;uniqueIndex:idx_roadmap_lineage_version,priority:3" json:"version"`
	ParentID    *uint             `gorm:"index" json:"parent_id"`
	ReferenceID *uint             `gorm:"index" json:"reference_id"`
	Reference   *RoadmapReference `json:"-"`
	IsDeleted   bool              `gorm:"index;default:false" json:"-"`
	TagsRaw     string            `gorm:"column:tags;type:text" json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Tags        []string          `gorm:"-" json:"tags"`
}

// BeforeSave normalises tags and guarantees progress mirrors the step set.
func (r *RoadmapVersion) BeforeSave(tx *gorm.DB) error {
	r.TagsRaw = encodeTags(r.Tags)
	if r.Version <= 0 {
		r.Version = 1
	}
	if r.Progress == nil {
		r.Progress = FreshProgress(r.Steps)
	}
	return nil
}

// AfterFind hydrates tags after loading from DB.
func (r *RoadmapVersion) AfterFind(tx *gorm.DB) error {
	r.Tags = decodeTags(r.TagsRaw)
	return nil
}

// FreshProgress builds an all-not_started progress map over the given steps.
func FreshProgress(steps datatypes.JSONMap) datatypes.JSONMap {
	progress := make(datatypes.JSONMap, len(steps))
	for label := range steps {
		progress[label] = string(StepStatusNotStarted)
	}
	return progress
}

// RoadmapReference is a named blob of scraped reference content used to seed
// AI roadmap generation.
type RoadmapReference struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Content     datatypes.JSONMap `gorm:"type:json" json:"content"`
	SourceURL   string            `gorm:"size:512" json:"source_url"`
	RefreshedAt *time.Time        `json:"refreshed_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Stale reports whether the reference should be re-fetched before use.
func (r RoadmapReference) Stale(maxAge time.Duration, now time.Time) bool {
	if r.RefreshedAt == nil {
		return true
	}
	if maxAge <= 0 {
		return false
	}
	return now.Sub(*r.RefreshedAt) > maxAge
}
