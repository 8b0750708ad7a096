package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/career-agent-api/internal/models"
)

const (
	subjectVersionCreated = "career.roadmap.version_created"
	subjectOverwritten    = "career.roadmap.overwritten"
	subjectDeleted        = "career.roadmap.deleted"
)

// EventPublisher emits roadmap lifecycle events for downstream consumers.
// Publishing is fire-and-forget: failures are logged, never propagated.
type EventPublisher interface {
	VersionCreated(ctx context.Context, version models.RoadmapVersion, kind string)
	Overwritten(ctx context.Context, version models.RoadmapVersion)
	Deleted(ctx context.Context, ownerID, versionID uint)
}

type natsPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
	nodeID string
}

type roadmapEvent struct {
	Source     string    `json:"source"`
	OwnerID    uint      `json:"owner_id"`
	VersionID  uint      `json:"version_id,omitempty"`
	CareerName string    `json:"career_name,omitempty"`
	Version    int       `json:"version,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// NewEventPublisher constructs a NATS-backed publisher. A nil connection is
// tolerated and turns publishing into a no-op.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	return &natsPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "roadmap_events").Logger(),
		nodeID: uuid.NewString(),
	}
}

func (p *natsPublisher) VersionCreated(ctx context.Context, version models.RoadmapVersion, kind string) {
	p.publish(subjectVersionCreated, roadmapEvent{
		Source:     p.nodeID,
		OwnerID:    version.OwnerID,
		VersionID:  version.ID,
		CareerName: version.CareerName,
		Version:    version.Version,
		Kind:       kind,
		SentAt:     time.Now().UTC(),
	})
}

func (p *natsPublisher) Overwritten(ctx context.Context, version models.RoadmapVersion) {
	p.publish(subjectOverwritten, roadmapEvent{
		Source:     p.nodeID,
		OwnerID:    version.OwnerID,
		VersionID:  version.ID,
		CareerName: version.CareerName,
		Version:    version.Version,
		SentAt:     time.Now().UTC(),
	})
}

func (p *natsPublisher) Deleted(ctx context.Context, ownerID, versionID uint) {
	p.publish(subjectDeleted, roadmapEvent{
		Source:    p.nodeID,
		OwnerID:   ownerID,
		VersionID: versionID,
		SentAt:    time.Now().UTC(),
	})
}

func (p *natsPublisher) publish(subject string, event roadmapEvent) {
	if p.conn == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to encode roadmap event")
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish roadmap event")
	}
}
