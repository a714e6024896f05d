// internal/workers/ai-conversation/parse-business-query/models.go
package parsebusinessquery

import "crm-insights/internal/models"

type Input struct {
	Question string `json:"question"`
	// StartDate and EndDate (YYYY-MM-DD) select a custom period when both are set.
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type Output struct {
	StructuredQuery models.StructuredQuery `json:"structuredQuery"`
	DateRange       DateRange              `json:"dateRange"`
	Period          string                 `json:"period"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
