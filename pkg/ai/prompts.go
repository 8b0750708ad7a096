package ai

import (
	"encoding/json"
	"strings"
)

const jsonOnlySystemPrompt = "Return strictly valid JSON. No markdown, no ```."

const generateSystemPrompt = `You are an expert career roadmap generator.

Rules:
- Return ONLY valid JSON.
- No markdown, no ` + "```" + ` blocks.
- Do NOT wrap the result in extra keys like "roadmap", "data", etc.
- The ONLY valid output format is:

{"steps": {"Step 1": "...", "Step 2": "...", "Step 3": "..."}}

Steps must be detailed, practical, and personalized.
Include tools, concepts, hands-on tasks, and references where useful.`

func buildGeneratePrompt(input GenerateInput) string {
	stepsText := "None"
	if input.ReferenceSteps != nil {
		encoded, _ := json.Marshal(input.ReferenceSteps)
		stepsText = string(encoded)
		if stepsText == "{}" {
			stepsText = "No steps available in reference."
		}
	}
	preferences, _ := json.Marshal(orEmpty(input.Preferences))

	builder := strings.Builder{}
	builder.WriteString("Career: ")
	builder.WriteString(input.CareerName)
	builder.WriteString("\n\nReference roadmap steps: ")
	builder.WriteString(stepsText)
	builder.WriteString("\n\nUser preferences: ")
	builder.Write(preferences)
	builder.WriteString("\n\nReturn ONLY JSON in the EXACT format:\n")
	builder.WriteString(`{ "steps": { "Step 1": "...", "Step 2": "..." } }`)
	return builder.String()
}

func buildChatPrompt(input ChatInput) string {
	roadmap, _ := json.Marshal(input.Roadmap)
	preferences, _ := json.Marshal(orEmpty(input.Preferences))

	builder := strings.Builder{}
	builder.WriteString(`You are an AI Roadmap Mentor.

User is chatting about their roadmap.

Your tasks:
1. Answer questions clearly.
2. If user REQUESTS CHANGES, update the roadmap.
3. If NOT, return a normal message.

STRICT RULES:
- Always return valid JSON ONLY.
- No markdown.
- No ` + "```" + `.

If updating roadmap, respond ONLY as:
{"message": "<your explanation>", "updated_roadmap": {"Step 1": "...", "Step 2": "..."}}

If NOT updating:
{"message": "<your explanation>"}

------------------------------------
User message:
`)
	builder.WriteString(input.Message)
	builder.WriteString("\n\nCurrent roadmap:\n")
	builder.Write(roadmap)
	builder.WriteString("\n\nUser preferences:\n")
	builder.Write(preferences)
	builder.WriteString("\n------------------------------------")
	return builder.String()
}

func orEmpty(values map[string]interface{}) map[string]interface{} {
	if values == nil {
		return map[string]interface{}{}
	}
	return values
}
