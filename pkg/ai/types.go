package ai

import "context"

// GenerateInput carries everything needed to produce a personalized roadmap.
type GenerateInput struct {
	CareerName     string
	ReferenceSteps map[string]interface{}
	Preferences    map[string]interface{}
}

// GenerateResult is the parsed roadmap returned by the model. Degraded marks
// results produced by one of the fallback rules instead of well-formed model
// output.
type GenerateResult struct {
	Steps    map[string]string
	Degraded bool
}

// ChatInput is one mentor-chat turn over an existing roadmap.
type ChatInput struct {
	Message     string
	Roadmap     map[string]string
	Preferences map[string]interface{}
}

// ChatResult is the model's answer, optionally carrying a proposed
// replacement roadmap. UpdatedRoadmap is nil when no edit was proposed.
type ChatResult struct {
	Message        string
	UpdatedRoadmap map[string]string
	Degraded       bool
}

// Generator describes the AI gateway. Implementations never return errors:
// transport failures and malformed model output degrade to documented
// fallback payloads so AI trouble is never surfaced as a request failure.
type Generator interface {
	GenerateRoadmap(ctx context.Context, input GenerateInput) GenerateResult
	Chat(ctx context.Context, input ChatInput) ChatResult
	Complete(ctx context.Context, prompt string) map[string]interface{}
}
