package dto

import "fmt"

// ProgressSummaryResponse aggregates per-step completion state.
type ProgressSummaryResponse struct {
	Total                int               `json:"total_steps"`
	Completed            int               `json:"completed"`
	InProgress           int               `json:"in_progress"`
	Skipped              int               `json:"skipped"`
	NotStarted           int               `json:"not_started"`
	CompletionPercentage float64           `json:"completion_percentage"`
	Progress             map[string]string `json:"progress"`
}

// ExplainStepRequest names the step the user wants explained.
type ExplainStepRequest struct {
	Step string `json:"step" validate:"required"`
}

// InsightResponse wraps an AI passthrough result verbatim.
type InsightResponse map[string]interface{}

func toString(value interface{}) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
