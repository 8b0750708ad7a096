package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/career-agent-api/internal/dto"
	"github.com/noah-isme/career-agent-api/internal/handler"
	"github.com/noah-isme/career-agent-api/internal/service"
)

type stubRoadmapService struct {
	preview     dto.RoadmapPreviewResponse
	saveResult  dto.SaveVersionResult
	version     dto.RoadmapVersionResponse
	proposal    dto.ChatProposalResponse
	applyResult dto.ApplyChatResult
	detail      dto.RoadmapDetailResponse
	items       []dto.RoadmapListItem
	err         error

	lastCareer string
	lastMode   string
}

func (s *stubRoadmapService) GetOrPreview(_ context.Context, _ uint, careerName string, _ map[string]interface{}) (dto.RoadmapPreviewResponse, error) {
	s.lastCareer = careerName
	return s.preview, s.err
}

func (s *stubRoadmapService) SaveVersion(context.Context, uint, dto.SaveVersionRequest) (dto.SaveVersionResult, error) {
	return s.saveResult, s.err
}

func (s *stubRoadmapService) Regenerate(context.Context, uint, uint, dto.RegenerateRequest) (dto.RoadmapVersionResponse, error) {
	return s.version, s.err
}

func (s *stubRoadmapService) ProposeChatEdit(context.Context, uint, uint, dto.ChatRequest) (dto.ChatProposalResponse, error) {
	return s.proposal, s.err
}

func (s *stubRoadmapService) ApplyChatEdit(_ context.Context, _ uint, _ uint, payload dto.ApplyChatRequest) (dto.ApplyChatResult, error) {
	s.lastMode = payload.SaveMode
	return s.applyResult, s.err
}

func (s *stubRoadmapService) Get(context.Context, uint, uint) (dto.RoadmapDetailResponse, error) {
	return s.detail, s.err
}

func (s *stubRoadmapService) List(context.Context, uint, string, string) ([]dto.RoadmapListItem, error) {
	return s.items, s.err
}

func (s *stubRoadmapService) Delete(context.Context, uint, uint) error {
	return s.err
}

func newRoadmapTestApp(stub *stubRoadmapService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		return c.Next()
	})
	h := handler.NewRoadmapHandler(stub, zerolog.Nop())
	h.Register(app.Group("/api/v2/career"))
	return app
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestGetOrPreviewUnescapesCareerName(t *testing.T) {
	stub := &stubRoadmapService{preview: dto.RoadmapPreviewResponse{
		CareerName: "Data Scientist",
		Steps:      map[string]string{"Step 1": "learn python"},
		Saved:      false,
		Source:     "ai_generated",
	}}
	app := newRoadmapTestApp(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/career/roadmap/Data%20Scientist", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Data Scientist", stub.lastCareer)

	body := decodeEnvelope(t, resp)
	require.Equal(t, true, body["success"])
	require.Equal(t, "roadmap preview generated", body["message"])
}

func TestGetOrPreviewReportsSavedRetrieval(t *testing.T) {
	stub := &stubRoadmapService{preview: dto.RoadmapPreviewResponse{
		CareerName: "Backend Developer",
		Saved:      true,
		Source:     "user_db",
	}}
	app := newRoadmapTestApp(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/career/roadmap/Backend+Developer", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	require.Equal(t, "saved roadmap retrieved", body["message"])
}

func TestGetOrPreviewIgnoresMalformedPreferences(t *testing.T) {
	stub := &stubRoadmapService{preview: dto.RoadmapPreviewResponse{CareerName: "DevOps Engineer"}}
	app := newRoadmapTestApp(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/career/roadmap/DevOps%20Engineer?preferences=not-json", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSaveVersionReturnsCreated(t *testing.T) {
	stub := &stubRoadmapService{saveResult: dto.SaveVersionResult{ID: 42, Version: 3}}
	app := newRoadmapTestApp(stub)

	payload := bytes.NewBufferString(`{"career_name":"Backend Developer","roadmap":{"Step 1":"learn go"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/career/roadmap/save-version", payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	data := body["data"].(map[string]interface{})
	require.Equal(t, float64(42), data["id"])
	require.Equal(t, float64(3), data["version"])
}

func TestSaveVersionIsNotTreatedAsCareerName(t *testing.T) {
	// route ordering: the static save-version POST must win over the
	// free-text career GET route
	stub := &stubRoadmapService{err: service.ErrEmptyCandidate}
	app := newRoadmapTestApp(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/career/roadmap/save-version", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, stub.lastCareer)
}

func TestRoadmapNotFoundMapsTo404(t *testing.T) {
	stub := &stubRoadmapService{err: service.ErrRoadmapNotFound}
	app := newRoadmapTestApp(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/career/roadmap/id/99", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	require.Equal(t, false, body["success"])
}

func TestInvalidIDParamIsRejected(t *testing.T) {
	app := newRoadmapTestApp(&stubRoadmapService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/career/roadmap/id/abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApplyChatForwardsSaveMode(t *testing.T) {
	stub := &stubRoadmapService{applyResult: dto.ApplyChatResult{ID: 5, Version: 2, Mode: "new_version"}}
	app := newRoadmapTestApp(stub)

	payload := bytes.NewBufferString(`{"candidate_roadmap":{"Step 1":"x"},"save_mode":"new_version"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/career/roadmap/id/5/chat/apply", payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "new_version", stub.lastMode)
}

func TestChatValidationErrorMapsTo400(t *testing.T) {
	stub := &stubRoadmapService{err: service.ErrEmptyMessage}
	app := newRoadmapTestApp(stub)

	payload := bytes.NewBufferString(`{"message":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/career/roadmap/id/5/chat", payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListIncludesFilterMeta(t *testing.T) {
	stub := &stubRoadmapService{items: []dto.RoadmapListItem{{ID: 1, CareerName: "Backend Developer", Version: 2}}}
	app := newRoadmapTestApp(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/career/my-roadmaps?career=backend&tag=go", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	meta := body["meta"].(map[string]interface{})
	require.Equal(t, "backend", meta["career"])
	require.Equal(t, "go", meta["tag"])
	require.Equal(t, float64(1), meta["count"])
}

func TestDeleteRoadmap(t *testing.T) {
	app := newRoadmapTestApp(&stubRoadmapService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v2/career/roadmap/id/3", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
