package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL = "https://router.huggingface.co/v1"
	defaultModel   = "meta-llama/Llama-4-Scout-17B-16E-Instruct"

	// FallbackStepText is the canned single-step roadmap returned when the
	// model cannot be reached at all.
	FallbackStepText = "AI generation failed, try again."
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "career",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of AI gateway requests",
	}, []string{"operation", "model"})

	aiDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "career",
		Subsystem: "ai",
		Name:      "degraded_total",
		Help:      "Number of AI responses resolved via a fallback rule",
	}, []string{"operation", "model"})
)

// generateSchema is what a well-formed roadmap generation must look like.
// Anything else falls back to a single raw-text step.
const generateSchema = `{
	"type": "object",
	"required": ["steps"],
	"properties": {
		"steps": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {"type": "string"}
		}
	}
}`

// Config defines configuration options for the OpenAI-compatible gateway.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// Client implements Generator against any OpenAI-compatible chat completion
// endpoint (the Hugging Face router by default, matching production).
type Client struct {
	client *openai.Client
	cfg    Config
	schema *jsonschema.Schema
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewClient builds a gateway client from the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.6
	}

	schema, err := jsonschema.CompileString("generate.schema.json", generateSchema)
	if err != nil {
		return nil, fmt.Errorf("compile generate schema: %w", err)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		schema: schema,
		tracer: otel.Tracer("github.com/noah-isme/career-agent-api/pkg/ai"),
		logger: cfg.Logger.With().Str("component", "ai_gateway").Logger(),
	}, nil
}

// GenerateRoadmap asks the model for a personalized step map. The result is
// validated against the generate schema; schema mismatches fall back to a
// single step holding the raw output, and transport failures fall back to a
// canned single-step roadmap.
func (c *Client) GenerateRoadmap(parent context.Context, input GenerateInput) GenerateResult {
	ctx, span := c.tracer.Start(parent, "ai.generate_roadmap", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.String("career", input.CareerName),
	))
	defer span.End()

	content, err := c.complete(ctx, generateSystemPrompt, buildGeneratePrompt(input), "generate")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn().Err(err).Str("career", input.CareerName).Msg("roadmap generation degraded to canned fallback")
		aiDegraded.WithLabelValues("generate", c.cfg.Model).Inc()
		return GenerateResult{Steps: map[string]string{"Step 1": FallbackStepText}, Degraded: true}
	}

	steps, ok := c.parseGenerated(content)
	if !ok {
		c.logger.Warn().Str("career", input.CareerName).Msg("roadmap generation returned malformed JSON, using raw text fallback")
		aiDegraded.WithLabelValues("generate", c.cfg.Model).Inc()
		return GenerateResult{Steps: map[string]string{"Step 1": content}, Degraded: true}
	}

	return GenerateResult{Steps: steps}
}

// Chat runs one mentor-chat turn. Malformed JSON degrades to a plain message
// holding the raw output; transport failure degrades to the canned message.
func (c *Client) Chat(parent context.Context, input ChatInput) ChatResult {
	ctx, span := c.tracer.Start(parent, "ai.chat", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	content, err := c.complete(ctx, jsonOnlySystemPrompt, buildChatPrompt(input), "chat")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn().Err(err).Msg("roadmap chat degraded to canned fallback")
		aiDegraded.WithLabelValues("chat", c.cfg.Model).Inc()
		return ChatResult{Message: FallbackStepText, Degraded: true}
	}

	var payload struct {
		Message        string            `json:"message"`
		UpdatedRoadmap map[string]string `json:"updated_roadmap"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil || payload.Message == "" {
		aiDegraded.WithLabelValues("chat", c.cfg.Model).Inc()
		return ChatResult{Message: content, Degraded: true}
	}

	return ChatResult{Message: payload.Message, UpdatedRoadmap: payload.UpdatedRoadmap}
}

// Complete runs a generic JSON prompt and returns whatever object the model
// produced. Non-JSON output is wrapped the same way the roadmap generator
// wraps it; transport failure yields an error-shaped object, never an error.
func (c *Client) Complete(parent context.Context, prompt string) map[string]interface{} {
	ctx, span := c.tracer.Start(parent, "ai.complete", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	content, err := c.complete(ctx, jsonOnlySystemPrompt, prompt, "complete")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		aiDegraded.WithLabelValues("complete", c.cfg.Model).Inc()
		return map[string]interface{}{"error": "AI generation failed", "details": err.Error()}
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		aiDegraded.WithLabelValues("complete", c.cfg.Model).Inc()
		return map[string]interface{}{"steps": map[string]interface{}{"Step 1": content}}
	}
	return result
}

func (c *Client) complete(ctx context.Context, system, user, operation string) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	aiDuration.WithLabelValues(operation, c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("ai %s: %w", operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai %s: no choices returned", operation)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) parseGenerated(content string) (map[string]string, bool) {
	var raw interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, false
	}
	if err := c.schema.Validate(raw); err != nil {
		return nil, false
	}

	object := raw.(map[string]interface{})
	rawSteps := object["steps"].(map[string]interface{})
	steps := make(map[string]string, len(rawSteps))
	for label, text := range rawSteps {
		steps[label] = text.(string)
	}
	return steps, true
}
