package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/models"
	"github.com/noah-isme/career-agent-api/internal/repository"
	"github.com/noah-isme/career-agent-api/pkg/ai"
)

type fakeGateway struct {
	generate      ai.GenerateResult
	chat          ai.ChatResult
	complete      map[string]interface{}
	generateCalls int
	chatCalls     int
}

func (f *fakeGateway) GenerateRoadmap(context.Context, ai.GenerateInput) ai.GenerateResult {
	f.generateCalls++
	return f.generate
}

func (f *fakeGateway) Chat(context.Context, ai.ChatInput) ai.ChatResult {
	f.chatCalls++
	return f.chat
}

func (f *fakeGateway) Complete(context.Context, string) map[string]interface{} {
	return f.complete
}

type fakeReferences struct {
	content ReferenceContent
}

func (f fakeReferences) Resolve(context.Context, string) ReferenceContent {
	return f.content
}

func newServiceTestEnv(t *testing.T) (RoadmapService, repository.RoadmapRepository, *fakeGateway) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RoadmapReference{}, &models.RoadmapVersion{}))

	repo := repository.NewRoadmapRepository(db)
	gateway := &fakeGateway{
		generate: ai.GenerateResult{Steps: map[string]string{"Step 1": "learn fundamentals", "Step 2": "build projects"}},
	}
	events := NewEventPublisher(nil, zerolog.Nop())
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewRoadmapService(repo, fakeReferences{}, gateway, events, validate, zerolog.Nop())
	return svc, repo, gateway
}

func TestGetOrPreviewGeneratesUnsavedPreview(t *testing.T) {
	svc, repo, _ := newServiceTestEnv(t)
	ctx := context.Background()

	preview, err := svc.GetOrPreview(ctx, 10, "backend-developer", map[string]interface{}{})
	require.NoError(t, err)
	require.False(t, preview.Saved)
	require.Equal(t, "ai_generated", preview.Source)
	require.NotEmpty(t, preview.Steps)
	for _, status := range preview.Progress {
		require.Equal(t, string(models.StepStatusNotStarted), status)
	}

	// preview must not be persisted
	items, err := repo.List(ctx, repository.RoadmapListFilter{OwnerID: 10})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestGetOrPreviewReturnsSavedWithoutAICall(t *testing.T) {
	svc, _, gateway := newServiceTestEnv(t)
	ctx := context.Background()

	saved, err := svc.SaveVersion(ctx, 11, dto.SaveVersionRequest{
		CareerName: "backend-developer",
		Roadmap:    map[string]string{"Step 1": "learn go"},
	})
	require.NoError(t, err)
	gateway.generateCalls = 0

	result, err := svc.GetOrPreview(ctx, 11, "backend-developer", nil)
	require.NoError(t, err)
	require.True(t, result.Saved)
	require.Equal(t, "user_db", result.Source)
	require.Equal(t, saved.Version, result.Version)
	require.Equal(t, map[string]string{"Step 1": "learn go"}, result.Steps)
	require.Zero(t, gateway.generateCalls, "saved roadmaps must not trigger generation")
}

func TestSaveVersionScenario(t *testing.T) {
	svc, _, _ := newServiceTestEnv(t)
	ctx := context.Background()

	first, err := svc.SaveVersion(ctx, 12, dto.SaveVersionRequest{
		CareerName: "backend-developer",
		Roadmap:    map[string]string{"Step 1": "learn fundamentals"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Version)

	second, err := svc.SaveVersion(ctx, 12, dto.SaveVersionRequest{
		CareerName: "backend-developer",
		Roadmap:    map[string]string{"Step 1": "learn fundamentals", "Step 2": "ship a service"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, second.Version)

	items, err := svc.List(ctx, 12, "", "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 2, items[0].Version, "newest created first")
	require.Equal(t, 1, items[1].Version)
}

func TestSaveVersionRejectsEmptyRoadmap(t *testing.T) {
	svc, _, _ := newServiceTestEnv(t)

	_, err := svc.SaveVersion(context.Background(), 13, dto.SaveVersionRequest{
		CareerName: "backend-developer",
		Roadmap:    map[string]string{},
	})
	require.Error(t, err)

	_, err = svc.SaveVersion(context.Background(), 13, dto.SaveVersionRequest{
		Roadmap: map[string]string{"Step 1": "x"},
	})
	require.Error(t, err)
}

func TestRegenerateCreatesChildAndLeavesOldUntouched(t *testing.T) {
	svc, repo, gateway := newServiceTestEnv(t)
	ctx := context.Background()

	saved, err := svc.SaveVersion(ctx, 14, dto.SaveVersionRequest{
		CareerName: "data-engineer",
		Roadmap:    map[string]string{"Step 1": "sql"},
	})
	require.NoError(t, err)

	gateway.generate = ai.GenerateResult{Steps: map[string]string{"Step 1": "python", "Step 2": "spark"}}
	next, err := svc.Regenerate(ctx, 14, saved.ID, dto.RegenerateRequest{
		Preferences: map[string]interface{}{"pace": "fast"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, next.Version)
	require.NotNil(t, next.ParentID)
	require.Equal(t, saved.ID, *next.ParentID)
	require.Equal(t, string(models.StepStatusNotStarted), next.Progress["Step 1"])
	require.Equal(t, string(models.StepStatusNotStarted), next.Progress["Step 2"])

	old, err := repo.GetByID(ctx, 14, saved.ID)
	require.NoError(t, err)
	require.Equal(t, 1, old.Version)
	require.Equal(t, "sql", old.Steps["Step 1"])
}

func TestRegenerateUnknownVersionReportsNotFound(t *testing.T) {
	svc, _, _ := newServiceTestEnv(t)

	_, err := svc.Regenerate(context.Background(), 15, 9999, dto.RegenerateRequest{})
	require.ErrorIs(t, err, ErrRoadmapNotFound)
}

func TestProposeChatEditReturnsCandidateWithoutPersisting(t *testing.T) {
	svc, _, gateway := newServiceTestEnv(t)
	ctx := context.Background()

	saved, err := svc.SaveVersion(ctx, 16, dto.SaveVersionRequest{
		CareerName: "devops",
		Roadmap:    map[string]string{"Step 1": "linux"},
	})
	require.NoError(t, err)

	gateway.chat = ai.ChatResult{
		Message:        "I added a Kubernetes step.",
		UpdatedRoadmap: map[string]string{"Step 1": "linux", "Step 2": "kubernetes"},
	}
	proposal, err := svc.ProposeChatEdit(ctx, 16, saved.ID, dto.ChatRequest{Message: "add kubernetes"})
	require.NoError(t, err)
	require.True(t, proposal.PendingSave)
	require.Len(t, proposal.CandidateRoadmap, 2)

	items, err := svc.List(ctx, 16, "", "")
	require.NoError(t, err)
	require.Len(t, items, 1, "proposal must not be persisted")

	gateway.chat = ai.ChatResult{Message: "Looks good as is."}
	answer, err := svc.ProposeChatEdit(ctx, 16, saved.ID, dto.ChatRequest{Message: "is this fine?"})
	require.NoError(t, err)
	require.False(t, answer.PendingSave)
	require.Empty(t, answer.CandidateRoadmap)
}

func TestApplyChatEditNewVersion(t *testing.T) {
	svc, _, _ := newServiceTestEnv(t)
	ctx := context.Background()

	saved, err := svc.SaveVersion(ctx, 17, dto.SaveVersionRequest{
		CareerName: "devops",
		Roadmap:    map[string]string{"Step 1": "linux"},
	})
	require.NoError(t, err)

	result, err := svc.ApplyChatEdit(ctx, 17, saved.ID, dto.ApplyChatRequest{
		CandidateRoadmap: map[string]string{"Step 1": "linux", "Step 2": "terraform"},
		SaveMode:         SaveModeNewVersion,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Version)
	require.NotEqual(t, saved.ID, result.ID)

	items, err := svc.List(ctx, 17, "", "")
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestApplyChatEditOverwriteKeepsVersionNumber(t *testing.T) {
	svc, repo, _ := newServiceTestEnv(t)
	ctx := context.Background()

	saved, err := svc.SaveVersion(ctx, 18, dto.SaveVersionRequest{
		CareerName: "devops",
		Roadmap:    map[string]string{"Step 1": "linux", "Step 2": "docker"},
	})
	require.NoError(t, err)

	_, err = svc.ApplyChatEdit(ctx, 18, saved.ID, dto.ApplyChatRequest{
		CandidateRoadmap: map[string]string{"Step 1": "linux basics", "Step 3": "ansible"},
		SaveMode:         SaveModeOverwrite,
	})
	require.NoError(t, err)

	updated, err := repo.GetByID(ctx, 18, saved.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.Version, "overwrite keeps the version number")
	require.Equal(t, "ansible", updated.Steps["Step 3"])
	require.NotContains(t, updated.Steps, "Step 2")
	require.Equal(t, string(models.StepStatusNotStarted), updated.Progress["Step 1"])
	require.NotContains(t, updated.Progress, "Step 2", "progress keys mirror the new step set")

	items, err := svc.List(ctx, 18, "", "")
	require.NoError(t, err)
	require.Len(t, items, 1, "overwrite must not grow the lineage")
}

func TestApplyChatEditDiscardIsSideEffectFree(t *testing.T) {
	svc, repo, _ := newServiceTestEnv(t)
	ctx := context.Background()

	saved, err := svc.SaveVersion(ctx, 19, dto.SaveVersionRequest{
		CareerName: "devops",
		Roadmap:    map[string]string{"Step 1": "linux"},
	})
	require.NoError(t, err)
	before, err := repo.GetByID(ctx, 19, saved.ID)
	require.NoError(t, err)

	result, err := svc.ApplyChatEdit(ctx, 19, saved.ID, dto.ApplyChatRequest{
		CandidateRoadmap: map[string]string{"Step 1": "something else"},
		SaveMode:         SaveModeDiscard,
	})
	require.NoError(t, err)
	require.Equal(t, SaveModeDiscard, result.Mode)

	after, err := repo.GetByID(ctx, 19, saved.ID)
	require.NoError(t, err)
	require.Equal(t, before.Steps, after.Steps)
	require.Equal(t, before.Progress, after.Progress)
	require.Equal(t, before.Version, after.Version)
	require.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestApplyChatEditValidation(t *testing.T) {
	svc, _, _ := newServiceTestEnv(t)
	ctx := context.Background()

	_, err := svc.ApplyChatEdit(ctx, 20, 1, dto.ApplyChatRequest{
		CandidateRoadmap: map[string]string{"Step 1": "x"},
		SaveMode:         "merge",
	})
	require.Error(t, err)

	_, err = svc.ApplyChatEdit(ctx, 20, 1, dto.ApplyChatRequest{SaveMode: SaveModeNewVersion})
	require.ErrorIs(t, err, ErrEmptyCandidate)
}

func TestDeleteExcludesFromLatestButKeepsLineage(t *testing.T) {
	svc, repo, gateway := newServiceTestEnv(t)
	ctx := context.Background()

	first, err := svc.SaveVersion(ctx, 21, dto.SaveVersionRequest{
		CareerName: "sre",
		Roadmap:    map[string]string{"Step 1": "linux"},
	})
	require.NoError(t, err)
	second, err := svc.ApplyChatEdit(ctx, 21, first.ID, dto.ApplyChatRequest{
		CandidateRoadmap: map[string]string{"Step 1": "observability"},
		SaveMode:         SaveModeNewVersion,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 21, second.ID))
	require.ErrorIs(t, svc.Delete(ctx, 21, second.ID), ErrRoadmapNotFound)

	_, err = svc.Get(ctx, 21, second.ID)
	require.ErrorIs(t, err, ErrRoadmapNotFound)

	// the deleted id stays referenced as parent of nothing here, but the
	// remaining root must become the latest again
	latest, err := repo.LatestByCareer(ctx, 21, "sre")
	require.NoError(t, err)
	require.Equal(t, first.ID, latest.ID)

	require.NoError(t, svc.Delete(ctx, 21, first.ID))
	preview, err := svc.GetOrPreview(ctx, 21, "sre", nil)
	require.NoError(t, err)
	require.False(t, preview.Saved, "fully deleted lineage falls back to preview generation")
	require.NotZero(t, gateway.generateCalls)
}
