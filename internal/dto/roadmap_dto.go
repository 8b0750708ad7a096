package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/career-agent-api/internal/models"
)

// SaveVersionRequest captures an explicit client-supplied roadmap save.
type SaveVersionRequest struct {
	CareerName  string                 `json:"career_name" validate:"required"`
	Roadmap     map[string]string      `json:"roadmap" validate:"required,min=1"`
	Preferences map[string]interface{} `json:"preferences"`
	Tags        []string               `json:"tags"`
}

// RegenerateRequest carries the preferences for a fresh AI regeneration.
type RegenerateRequest struct {
	Preferences map[string]interface{} `json:"preferences"`
}

// ChatRequest is a single chat turn against a stored roadmap.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// ApplyChatRequest commits or discards a chat-proposed candidate roadmap.
type ApplyChatRequest struct {
	CandidateRoadmap map[string]string `json:"candidate_roadmap"`
	SaveMode         string            `json:"save_mode" validate:"required,oneof=new_version overwrite discard"`
}

// UpdateProgressRequest changes the status of one roadmap step.
type UpdateProgressRequest struct {
	Step   string `json:"step" validate:"required"`
	Status string `json:"status" validate:"required"`
}

// RoadmapPreviewResponse is returned by the preview-or-saved lookup.
type RoadmapPreviewResponse struct {
	ID          *uint             `json:"id,omitempty"`
	CareerName  string            `json:"career_name"`
	Steps       map[string]string `json:"steps"`
	Progress    map[string]string `json:"progress"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
	Version     int               `json:"version,omitempty"`
	SourceURL   string            `json:"source_url,omitempty"`
	Saved       bool              `json:"saved"`
	Source      string            `json:"source"`
}

// RoadmapVersionResponse serializes one persisted roadmap version.
type RoadmapVersionResponse struct {
	ID          uint                   `json:"id"`
	LineageID   string                 `json:"lineage_id"`
	CareerName  string                 `json:"career_name"`
	Steps       map[string]string      `json:"steps"`
	Preferences map[string]interface{} `json:"preferences"`
	Progress    map[string]string      `json:"progress"`
	Version     int                    `json:"version"`
	ParentID    *uint                  `json:"parent_id,omitempty"`
	Tags        []string               `json:"tags"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// RoadmapDetailResponse extends the version payload with reference material.
type RoadmapDetailResponse struct {
	RoadmapVersionResponse
	Reference map[string]interface{} `json:"reference,omitempty"`
	SourceURL string                 `json:"source_url,omitempty"`
}

// RoadmapListItem summarises a version for list views.
type RoadmapListItem struct {
	ID          uint                   `json:"id"`
	CareerName  string                 `json:"career_name"`
	Version     int                    `json:"version"`
	Tags        []string               `json:"tags"`
	Preferences map[string]interface{} `json:"preferences"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// SaveVersionResult reports the outcome of a version commit.
type SaveVersionResult struct {
	ID      uint `json:"id"`
	Version int  `json:"version"`
}

// ChatProposalResponse carries a chat answer plus an optional candidate edit.
type ChatProposalResponse struct {
	Message          string            `json:"message"`
	CandidateRoadmap map[string]string `json:"candidate_roadmap,omitempty"`
	PendingSave      bool              `json:"pending_save"`
}

// ApplyChatResult reports what a chat-apply call did.
type ApplyChatResult struct {
	ID      uint   `json:"id,omitempty"`
	Version int    `json:"version,omitempty"`
	Mode    string `json:"mode"`
}

// NewRoadmapVersionResponse converts a model into its API payload.
func NewRoadmapVersionResponse(version models.RoadmapVersion) RoadmapVersionResponse {
	return RoadmapVersionResponse{
		ID:          version.ID,
		LineageID:   version.LineageID,
		CareerName:  version.CareerName,
		Steps:       StringMap(version.Steps),
		Preferences: map[string]interface{}(version.Preferences),
		Progress:    StringMap(version.Progress),
		Version:     version.Version,
		ParentID:    version.ParentID,
		Tags:        append([]string(nil), version.Tags...),
		CreatedAt:   version.CreatedAt,
		UpdatedAt:   version.UpdatedAt,
	}
}

// NewRoadmapListItem converts a model into its list payload.
func NewRoadmapListItem(version models.RoadmapVersion) RoadmapListItem {
	return RoadmapListItem{
		ID:          version.ID,
		CareerName:  version.CareerName,
		Version:     version.Version,
		Tags:        append([]string(nil), version.Tags...),
		Preferences: map[string]interface{}(version.Preferences),
		CreatedAt:   version.CreatedAt,
		UpdatedAt:   version.UpdatedAt,
	}
}

// StringMap flattens a JSON map into string values for transport.
func StringMap(raw datatypes.JSONMap) map[string]string {
	result := make(map[string]string, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			result[key] = s
			continue
		}
		result[key] = toString(value)
	}
	return result
}

// ToJSONMap lifts a plain string map into the persisted JSON representation.
func ToJSONMap(values map[string]string) datatypes.JSONMap {
	result := make(datatypes.JSONMap, len(values))
	for key, value := range values {
		result[key] = value
	}
	return result
}
