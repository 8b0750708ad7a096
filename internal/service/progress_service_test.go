package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/models"
	"github.com/noah-isme/career-agent-api/internal/repository"
)

func newProgressTestEnv(t *testing.T, ownerID uint, stepLabels ...string) (ProgressService, repository.RoadmapRepository, uint) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RoadmapReference{}, &models.RoadmapVersion{}))

	repo := repository.NewRoadmapRepository(db)

	steps := datatypes.JSONMap{}
	for _, label := range stepLabels {
		steps[label] = "do " + label
	}
	version := models.RoadmapVersion{OwnerID: ownerID, CareerName: "backend-developer", Steps: steps}
	require.NoError(t, repo.CreateVersion(context.Background(), &version))

	return NewProgressService(repo, zerolog.Nop()), repo, version.ID
}

func TestSetStepStatusIsIdempotent(t *testing.T) {
	svc, repo, id := newProgressTestEnv(t, 30, "Step 1", "Step 2")
	ctx := context.Background()

	first, err := svc.SetStepStatus(ctx, 30, id, dto.UpdateProgressRequest{Step: "Step 1", Status: "completed"})
	require.NoError(t, err)
	second, err := svc.SetStepStatus(ctx, 30, id, dto.UpdateProgressRequest{Step: "Step 1", Status: "completed"})
	require.NoError(t, err)
	require.Equal(t, first, second)

	stored, err := repo.GetByID(ctx, 30, id)
	require.NoError(t, err)
	require.Equal(t, "completed", stored.Progress["Step 1"])
	require.Equal(t, "not_started", stored.Progress["Step 2"])
}

func TestSetStepStatusValidation(t *testing.T) {
	svc, _, id := newProgressTestEnv(t, 31, "Step 1")
	ctx := context.Background()

	_, err := svc.SetStepStatus(ctx, 31, id, dto.UpdateProgressRequest{Step: "Step 9", Status: "completed"})
	require.ErrorIs(t, err, ErrUnknownStep)

	_, err = svc.SetStepStatus(ctx, 31, id, dto.UpdateProgressRequest{Step: "Step 1", Status: "done"})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.SetStepStatus(ctx, 99, id, dto.UpdateProgressRequest{Step: "Step 1", Status: "completed"})
	require.ErrorIs(t, err, ErrRoadmapNotFound)
}

func TestSummarizeArithmetic(t *testing.T) {
	svc, _, id := newProgressTestEnv(t, 32, "a", "b", "c", "d")
	ctx := context.Background()

	_, err := svc.SetStepStatus(ctx, 32, id, dto.UpdateProgressRequest{Step: "a", Status: "completed"})
	require.NoError(t, err)
	_, err = svc.SetStepStatus(ctx, 32, id, dto.UpdateProgressRequest{Step: "b", Status: "in_progress"})
	require.NoError(t, err)
	_, err = svc.SetStepStatus(ctx, 32, id, dto.UpdateProgressRequest{Step: "c", Status: "skipped"})
	require.NoError(t, err)

	summary, err := svc.Summarize(ctx, 32, id)
	require.NoError(t, err)
	require.Equal(t, 4, summary.Total)
	require.Equal(t, 1, summary.Completed)
	require.Equal(t, 1, summary.InProgress)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 1, summary.NotStarted)
	require.InDelta(t, 25.0, summary.CompletionPercentage, 0.001)
	require.Len(t, summary.Progress, 4)
}

func TestSummarizeEmptyRoadmap(t *testing.T) {
	svc, _, id := newProgressTestEnv(t, 33)

	summary, err := svc.Summarize(context.Background(), 33, id)
	require.NoError(t, err)
	require.Zero(t, summary.Total)
	require.Zero(t, summary.CompletionPercentage)
}

func TestSummarizeRoundsToTwoDecimals(t *testing.T) {
	svc, _, id := newProgressTestEnv(t, 34, "a", "b", "c")
	ctx := context.Background()

	_, err := svc.SetStepStatus(ctx, 34, id, dto.UpdateProgressRequest{Step: "a", Status: "completed"})
	require.NoError(t, err)

	summary, err := svc.Summarize(ctx, 34, id)
	require.NoError(t, err)
	require.InDelta(t, 33.33, summary.CompletionPercentage, 0.001)
}
