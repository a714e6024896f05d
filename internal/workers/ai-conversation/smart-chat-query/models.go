package smartchatquery

import "crm-insights/internal/models"

type Input struct {
	Question   string `json:"question"`
	BusinessID string `json:"businessId"`
}

type Output struct {
	StructuredQuery models.StructuredQuery `json:"structuredQuery"`
	Result          models.QueryResult     `json:"result"`
	RateLimited     bool                   `json:"rateLimited"`
}
